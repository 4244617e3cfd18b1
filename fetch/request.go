package fetch

import "context"

// Request is an opaque value with a stable identifier used for cache
// keying. Each request type is associated with exactly one [DataSource].
//
// Two requests are "the same" for caching purposes iff their identifiers
// are equal. It is the caller's responsibility to make the identifier
// encode every input that affects the result.
type Request interface {
	// Identifier returns the cache key for this request. It must be
	// stable for the lifetime of the request value.
	Identifier() string
}

// DataSource is the named carrier of a batch handler for one request type.
//
// A source is polymorphic in its request type at the API boundary, but the
// store groups blocked fetches by source before calling Fetch, so a given
// source instance only ever receives fetches for the request type it was
// constructed for.
type DataSource[R Request, T any] interface {
	// Name identifies this source for store-keying and tracing purposes.
	// Distinct source instances that share a Name are kept in separate
	// store buckets as long as they are different values, see
	// addToStore.
	Name() string

	// Fetch turns a non-empty batch of blocked fetches into a list of
	// scheduled tasks. Every cell behind every blocked fetch in batch
	// must be in a terminal state by the time every returned task has
	// completed.
	Fetch(ctx context.Context, batch []BlockedFetch[R, T]) []PerformFetch
}

// BlockedFetch is the view of one queued request that a [DataSource] sees
// in its batch. It exposes the original request and a cell through which
// the source reports the eventual result exactly once.
type BlockedFetch[R Request, T any] struct {
	Request R
	cell    *cell
}

// PutSuccess transitions the underlying cell to Success. It is a contract
// violation to call this, or [BlockedFetch.PutFailure], more than once for
// the same blocked fetch.
func (bf BlockedFetch[R, T]) PutSuccess(v T) {
	bf.cell.putSuccess(v)
}

// PutFailure transitions the underlying cell to Error.
func (bf BlockedFetch[R, T]) PutFailure(err error) {
	bf.cell.putFailure(err)
}

// PerformFetch is a scheduled unit of work produced by a [DataSource]'s
// batch handler: either a synchronous thunk run inline on the evaluator
// goroutine, or an asynchronous thunk whose completion the round evaluator
// awaits alongside every other async task of the same round.
//
// A thunk is expected to transition every cell it was handed to a terminal
// state via [BlockedFetch.PutSuccess] or [BlockedFetch.PutFailure]. A
// thunk's own return value carries only unexpected, non-request-specific
// failures (e.g. a transport-level error that prevented the whole batch
// from being attempted); per-request failures belong in PutFailure.
type PerformFetch struct {
	sync bool
	fn   func(context.Context) error
}

// Sync wraps a thunk that the round evaluator runs inline, in the order
// received, before moving on to async tasks.
func Sync(fn func(context.Context) error) PerformFetch {
	return PerformFetch{sync: true, fn: fn}
}

// Async wraps a thunk that the round evaluator runs concurrently with every
// other async task queued in the same round, blocking until all of them
// have completed before the round advances.
func Async(fn func(context.Context) error) PerformFetch {
	return PerformFetch{sync: false, fn: fn}
}
