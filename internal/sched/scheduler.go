// Package sched implements the coroutine ready queue and the run loop
// that drains it (spec.md §4.9, §5): a singly-linked FIFO of Ready
// coroutines, plus the Resume bridge an async native call uses to move a
// Waiting coroutine back onto it.
package sched

import (
	"go.uber.org/zap"

	"github.com/tiro-lang/tiro/internal/coroutine"
	"github.com/tiro-lang/tiro/internal/value"
)

// Runner executes one coroutine until it yields control back to the
// scheduler — by running to completion, blocking on an async call, or
// voluntarily rescheduling (a yield point). internal/interp implements
// this; internal/sched never inspects bytecode itself.
type Runner interface {
	Step(co value.Value)
}

// Scheduler is the intrusive singly-linked ready queue of spec.md §4.9.
// head/tail are struct fields rather than heap-resident state because the
// scheduler itself is part of a Context, not a language-visible object;
// they are registered as GC roots via WalkRoots the same way
// handle.Globals registers its slots.
type Scheduler struct {
	head, tail value.Value
	log        *zap.Logger
}

// New creates an empty scheduler. log receives one Debug entry per
// enqueue/dequeue and one Info entry per Resume, mirroring
// SPEC_FULL.md's zap-backed ambient logging.
func New(log *zap.Logger) *Scheduler {
	return &Scheduler{head: value.Null, tail: value.Null, log: log}
}

// WalkRoots exposes the ready queue to the collector: a coroutine parked
// on the queue must stay live even though nothing else may reference it.
func (s *Scheduler) WalkRoots(visit func(*value.Value)) {
	visit(&s.head)
	visit(&s.tail)
}

// Enqueue appends co to the tail of the ready queue and marks it Ready.
// co must not already be linked into a queue.
func (s *Scheduler) Enqueue(co value.Value) {
	coroutine.SetState(co, coroutine.StateReady)
	coroutine.SetNext(co, value.Null)
	if s.tail.IsNull() {
		s.head, s.tail = co, co
	} else {
		coroutine.SetNext(s.tail, co)
		s.tail = co
	}
	if s.log != nil {
		s.log.Debug("sched.enqueue")
	}
}

// Dequeue removes and returns the head of the ready queue.
func (s *Scheduler) Dequeue() (value.Value, bool) {
	if s.head.IsNull() {
		return value.Null, false
	}
	co := s.head
	next := coroutine.Next(co)
	coroutine.SetNext(co, value.Null)
	s.head = next
	if s.head.IsNull() {
		s.tail = value.Null
	}
	if s.log != nil {
		s.log.Debug("sched.dequeue")
	}
	return co, true
}

// Empty reports whether the ready queue has no coroutines.
func (s *Scheduler) Empty() bool { return s.head.IsNull() }

// RunUntilIdle repeatedly dequeues a Ready coroutine, transitions it to
// Running and asks r to step it, until the ready queue drains. A stepped
// coroutine that is still Ready when Step returns (it yielded
// voluntarily) is expected to have re-enqueued itself; one that moved to
// Waiting is left off the queue until Resume brings it back.
func (s *Scheduler) RunUntilIdle(r Runner) {
	for {
		co, ok := s.Dequeue()
		if !ok {
			return
		}
		coroutine.SetState(co, coroutine.StateRunning)
		r.Step(co)
	}
}

// Resume is the async native-call bridge (spec.md §4.9): a native
// function's completion callback calls this to move co from Waiting back
// to Ready, carrying either its result or its failure. The coroutine does
// not actually run again until the next RunUntilIdle drains it.
func (s *Scheduler) Resume(co value.Value, result value.Value, err error) {
	if s.log != nil {
		s.log.Info("sched.resume", zap.Bool("failed", err != nil))
	}
	if err != nil {
		coroutine.Finish(co, value.Null, err)
		return
	}
	coroutine.SetResumeValue(co, result)
	s.Enqueue(co)
}
