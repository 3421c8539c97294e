// Package gc implements the stop-the-world mark-and-sweep collector of
// spec.md §4.4. Because internal/heap layers Tiro's own header/mark/sweep
// protocol on top of memory the Go runtime already manages (see
// internal/heap's doc comment), "sweep" here means "unlink from Tiro's live
// list and run any finalizer" rather than returning bytes to an arena —
// the underlying storage is released to Go's own collector once nothing in
// internal/heap's bookkeeping references it anymore. Every other spec
// invariant (mark bit lifecycle, threshold growth, per-collection stats)
// is implemented exactly as specified.
package gc

import (
	"time"

	"go.uber.org/zap"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// Trigger records why a collection ran (spec.md §4.2's GcTrigger).
type Trigger uint8

const (
	TriggerAutomatic Trigger = iota
	TriggerForced
	TriggerAllocFailure
)

func (t Trigger) String() string {
	switch t {
	case TriggerAutomatic:
		return "automatic"
	case TriggerForced:
		return "forced"
	case TriggerAllocFailure:
		return "alloc-failure"
	default:
		return "unknown"
	}
}

// RootProvider supplies every root set named by spec.md §4.4: the rooted
// stack, globals, the interpreter register bank, the running coroutine, the
// module table, the interner, and the small set of singleton values. It is
// implemented by internal/vm.Context, which is the only object that can see
// all of those at once.
type RootProvider interface {
	WalkRoots(visit func(*value.Value))
}

// Stats describes one completed collection, logged for observability per
// spec.md §4.4 and §7.
type Stats struct {
	Trigger    Trigger
	Duration   time.Duration
	LiveBytes  uint64
	LiveObjs   uint64
	Threshold  uint64
}

// Collector runs mark-and-sweep over a Heap, driven by an allocation
// threshold that grows geometrically the way spec.md §4.2 specifies.
type Collector struct {
	heap      *heap.Heap
	roots     RootProvider
	log       *zap.Logger
	threshold uint64
	gray      []value.Value // explicit worklist, never recursive (spec.md §4.4 tie-break).
}

const initialThreshold = 1 << 16 // small constant per spec.md §4.2.

// New constructs a Collector over h, rooted by roots, logging each
// collection to log (which may be zap.NewNop() to disable logging).
func New(h *heap.Heap, roots RootProvider, log *zap.Logger) *Collector {
	return &Collector{heap: h, roots: roots, log: log, threshold: initialThreshold}
}

// ShouldCollect reports whether the heap's current allocated-bytes count
// has crossed the collector's threshold, per spec.md §4.2.
func (c *Collector) ShouldCollect() bool {
	return c.heap.AllocatedBytes >= c.threshold
}

// Collect runs one full mark-and-sweep cycle.
func (c *Collector) Collect(trigger Trigger) Stats {
	start := time.Now()

	c.mark()
	liveBytes, liveObjs := c.sweep()

	c.threshold = nextThreshold(c.threshold, liveBytes)

	stats := Stats{
		Trigger:   trigger,
		Duration:  time.Since(start),
		LiveBytes: liveBytes,
		LiveObjs:  liveObjs,
		Threshold: c.threshold,
	}
	if c.log != nil {
		c.log.Info("gc",
			zap.String("trigger", trigger.String()),
			zap.Duration("duration", stats.Duration),
			zap.Uint64("live_bytes", liveBytes),
			zap.Uint64("live_objects", liveObjs),
			zap.Uint64("next_threshold", stats.Threshold),
		)
	}
	return stats
}

// nextThreshold implements spec.md §4.2's growth rule: keep the previous
// threshold while the live set is at most 2/3 of it, otherwise grow
// (saturating) to the next power of two at or above the live set.
func nextThreshold(previous, liveBytes uint64) uint64 {
	if liveBytes <= previous*2/3 {
		return previous
	}
	return ceilPow2(liveBytes)
}

func ceilPow2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	if n > 1<<63 {
		return ^uint64(0)
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

func (c *Collector) mark() {
	c.gray = c.gray[:0]
	c.roots.WalkRoots(func(v *value.Value) {
		c.pushGray(*v)
	})
	for len(c.gray) > 0 {
		v := c.gray[len(c.gray)-1]
		c.gray = c.gray[:len(c.gray)-1]
		c.markOne(v)
	}
}

func (c *Collector) pushGray(v value.Value) {
	if !v.IsHeapPointer() {
		return
	}
	hdr := heap.HeaderOf(v)
	if hdr.Marked() {
		return
	}
	hdr.SetMarked(true)
	c.gray = append(c.gray, v)
}

func (c *Collector) markOne(v value.Value) {
	hdr := heap.HeaderOf(v)
	desc := heap.DescriptorFor(hdr.Kind)
	if desc == nil || !desc.MayContainReferences {
		return
	}
	desc.Walk(hdr, func(child value.Value) {
		c.pushGray(child)
	})
}

func (c *Collector) sweep() (liveBytes uint64, liveObjs uint64) {
	hdr := c.heap.First()
	for hdr != nil {
		next := hdr.Next()
		if !hdr.Marked() {
			if desc := heap.DescriptorFor(hdr.Kind); desc != nil && desc.Finalize != nil {
				desc.Finalize(hdr)
			}
			c.heap.Free(hdr)
		} else {
			hdr.SetMarked(false)
			liveObjs++
		}
		hdr = next
	}
	liveBytes = c.heap.AllocatedBytes
	return
}
