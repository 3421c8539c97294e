// Package vm assembles every other internal package into the single
// control surface spec.md §6 calls a Context: the heap, collector,
// rooting discipline, interner, scheduler and module table a host
// embeds to run Tiro code.
package vm

import (
	"go.uber.org/zap"

	"github.com/tiro-lang/tiro/internal/coroutine"
	"github.com/tiro-lang/tiro/internal/gc"
	"github.com/tiro-lang/tiro/internal/handle"
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/interp"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/sched"
	"github.com/tiro-lang/tiro/internal/typesys"
	"github.com/tiro-lang/tiro/internal/value"
)

// Context owns one heap and everything rooted in it. It is not safe for
// concurrent use: the runtime it drives is single-threaded, same as
// spec.md §4.9's coroutine model (concurrency is cooperative, never
// parallel).
type Context struct {
	heap      *heap.Heap
	collector *gc.Collector
	roots     *handle.RootedStack
	globals   *handle.Globals
	registers *handle.RegisterBank
	interner  *object.Interner
	sched     *sched.Scheduler
	interp    *interp.Interp
	methods   *typesys.Table
	log       *zap.Logger

	modules map[string]value.Value

	undefinedVal     value.Value
	trueVal          value.Value
	falseVal         value.Value
	stopIterationVal value.Value
}

// New creates a Context with its own heap and an empty module table.
// log may be nil, in which case the collector and scheduler log nothing.
func New(log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}

	c := &Context{
		heap:      heap.New(),
		roots:     handle.NewRootedStack(),
		globals:   handle.NewGlobals(),
		registers: &handle.RegisterBank{},
		methods:   typesys.New(),
		modules:   make(map[string]value.Value),
		log:       log,
	}
	c.interner = object.NewInterner(c.heap)
	c.sched = sched.New(log)
	c.interp = interp.New(c.heap, c.sched)
	c.interp.SetMethodResolver(c.methods)
	c.collector = gc.New(c.heap, c, log)

	c.undefinedVal = object.NewUndefined(c.heap)
	c.trueVal = object.NewBoolean(c.heap, true)
	c.falseVal = object.NewBoolean(c.heap, false)
	c.stopIterationVal = object.NewStopIteration(c.heap)

	registerBuiltinMethods(c)

	return c
}

// WalkRoots implements gc.RootProvider, visiting every category of root
// spec.md §4.3/§4.4 names: the rooted-handle stack, the globals registry,
// the interpreter register bank, the scheduler's ready queue, the
// interner's backing table, the Context's own singletons, and every
// loaded module.
func (c *Context) WalkRoots(visit func(*value.Value)) {
	c.roots.WalkRoots(visit)
	c.globals.WalkRoots(visit)
	c.registers.WalkRoots(visit)
	c.sched.WalkRoots(visit)
	c.interner.WalkRoots(visit)
	visit(&c.undefinedVal)
	visit(&c.trueVal)
	visit(&c.falseVal)
	visit(&c.stopIterationVal)
	for _, m := range c.modules {
		v := m
		visit(&v)
	}
}

// Heap returns the Context's heap, satisfying object.NativeContext so
// native function bodies registered against a Context can allocate.
func (c *Context) Heap() *heap.Heap { return c.heap }

// Interner returns the Context's string interner, for internal/loader to
// intern module/export/symbol names while instantiating a compiled
// module.
func (c *Context) Interner() *object.Interner { return c.interner }

// Methods returns the per-Kind method table, for a host embedding
// Context to register builtin methods against (e.g. String.len).
func (c *Context) Methods() *typesys.Table { return c.methods }

// NewScope opens a rooted handle scope (spec.md §4.3): every Local
// allocated under it stays reachable until Close, and Close releases
// them all at once. Callers should defer sc.Close().
func (c *Context) NewScope() *handle.Scope {
	return handle.NewScope(c.roots)
}

// collectIfNeeded runs a collection when the heap has grown past its
// threshold (spec.md §4.4). Run calls it at the safe point between
// coroutine steps; module loads do not.
func (c *Context) collectIfNeeded() {
	if c.collector.ShouldCollect() {
		c.collector.Collect(gc.TriggerAutomatic)
	}
}

// GetInteger is the SmallInteger/Integer factory (spec.md §6's
// Context.get_integer).
func (c *Context) GetInteger(n int64) value.Value { return object.NewInteger(c.heap, n) }

// GetFloat allocates a Float.
func (c *Context) GetFloat(f float64) value.Value { return object.NewFloat(c.heap, f) }

// GetInternedString returns the canonical Symbol for s (spec.md §6's
// Context.get_interned_string / get_symbol: interning a String and
// looking up its Symbol are the same operation).
func (c *Context) GetInternedString(s []byte) value.Value {
	return c.interner.Intern(c.heap, s)
}

// GetSymbol is an alias for GetInternedString, kept because spec.md names
// both entry points even though they share one implementation.
func (c *Context) GetSymbol(s []byte) value.Value { return c.GetInternedString(s) }

// GetBoolean returns the Context's single true or false singleton.
func (c *Context) GetBoolean(b bool) value.Value {
	if b {
		return c.trueVal
	}
	return c.falseVal
}

// Undefined returns the Context's single Undefined singleton.
func (c *Context) Undefined() value.Value { return c.undefinedVal }

// StopIteration returns the Context's single stop-iteration singleton.
func (c *Context) StopIteration() value.Value { return c.stopIterationVal }

// NewString allocates an uninterned String.
func (c *Context) NewString(s []byte) value.Value { return object.NewString(c.heap, s) }

// AddModule registers mod under name, making it resolvable by later
// MemberImport entries (implements loader.ImportResolver's write side).
func (c *Context) AddModule(name string, mod value.Value) {
	c.modules[name] = mod
}

// FindModule implements loader.ImportResolver.
func (c *Context) FindModule(name string) (value.Value, bool) {
	m, ok := c.modules[name]
	return m, ok
}

// MakeCoroutine allocates a new coroutine over function and binds args as
// its initial call (spec.md §4.9's Context.make_coroutine), returning it
// in the New state without enqueuing it. Call Spawn to schedule it.
func (c *Context) MakeCoroutine(function value.Value, args []value.Value) (value.Value, error) {
	co := coroutine.New(c.heap, function)
	if err := c.interp.Start(co, args); err != nil {
		return co, err
	}
	return co, nil
}

// Spawn enqueues a New or Waiting-resumed coroutine onto the ready queue.
func (c *Context) Spawn(co value.Value) {
	if coroutine.CurrentState(co) != coroutine.StateDone {
		c.sched.Enqueue(co)
	}
}

// Run drains the ready queue, stepping each coroutine in turn and
// checking the GC threshold between steps (spec.md §4.9's run loop,
// §4.4's "collect at safe points" rule).
func (c *Context) Run() {
	for {
		co, ok := c.sched.Dequeue()
		if !ok {
			return
		}
		coroutine.SetState(co, coroutine.StateRunning)
		c.interp.Step(co)
		c.collectIfNeeded()
	}
}

// RunCoroutine is a convenience for the common case of running a single
// function to completion and collecting its result (spec.md §8's
// end-to-end examples all call through this). It returns the coroutine's
// result value, or an error if the coroutine failed.
func (c *Context) RunCoroutine(function value.Value, args []value.Value) (value.Value, error) {
	co, err := c.MakeCoroutine(function, args)
	if err != nil {
		return value.Null, err
	}
	c.Spawn(co)
	c.Run()
	result, err := coroutine.Result(co)
	if err != nil {
		return value.Null, err
	}
	return result, nil
}
