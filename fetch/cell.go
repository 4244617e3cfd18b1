package fetch

import (
	"fmt"
	"sync/atomic"
)

// cellStatus describes where a cell is in its lifecycle, matching §3's
// NotFetched | Success(v) | Error(e).
type cellStatus int

const (
	notFetched cellStatus = iota
	success
	failed
)

// cellState is the immutable snapshot stored in a cell once it has a
// result. A cell with no stored cellState is still NotFetched.
type cellState struct {
	status cellStatus
	value  any
	err    error
}

// cell is the type-erased, mutable, single-assignment container described
// in §3 "Result cell" and §4.1. It is created NotFetched when a request
// first enters the store, mutated exactly once by the owning source to
// Success or Error, and thereafter only read.
//
// The single atomic pointer gives cheap lock-free reads once resolved and
// is safe to write concurrently from source handlers running on separate
// goroutines, because the store hands out at most one cell per identifier
// per round and only the source that owns the blocked fetch for it writes
// to it (§5 "Shared state").
type cell struct {
	state atomic.Pointer[cellState]
}

func newCell() *cell {
	return &cell{}
}

func (c *cell) status() cellStatus {
	if s := c.state.Load(); s != nil {
		return s.status
	}
	return notFetched
}

// putSuccess transitions the cell to Success(v). Calling this more than
// once on the same cell, or after putFailure, is a contract violation and
// panics rather than silently corrupting an earlier observed result.
func (c *cell) putSuccess(v any) {
	c.put(&cellState{status: success, value: v})
}

// putFailure transitions the cell to Error(err).
func (c *cell) putFailure(err error) {
	c.put(&cellState{status: failed, err: err})
}

func (c *cell) put(s *cellState) {
	if !c.state.CompareAndSwap(nil, s) {
		panic(fmt.Sprintf("cell resolved multiple times (new status %v)", s.status))
	}
}

// forceInvariantViolation is used by the store after a drain to resolve any
// cell a source failed to transition, per §7.2 "invariant violation". Unlike
// put, this is a no-op if the cell is already resolved, since the source
// may have legitimately resolved it just before a panic elsewhere in the
// same batch.
func (c *cell) forceInvariantViolation(err error) {
	c.state.CompareAndSwap(nil, &cellState{status: failed, err: err})
}

// typedGet reads a resolved cell's value as T. Called on a cell that is
// not yet resolved, it returns an error wrapping [ErrNotDrained]; callers
// must only invoke this after the store has guaranteed the cell is
// terminal (see readbackRaw in combinators.go).
func typedGet[T any](c *cell) (T, error) {
	s := c.state.Load()
	if s == nil {
		var zero T
		return zero, fmt.Errorf("%w: cell read before resolution", ErrNotDrained)
	}
	if s.status == failed {
		var zero T
		return zero, s.err
	}
	v, _ := s.value.(T)
	return v, nil
}
