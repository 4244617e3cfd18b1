package fetch

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// bucket is the type-erased per-source view a [requestStore] keeps
// internally, so that a single map can hold buckets for many different
// request/result type pairs at once (§3 "Request store").
//
// Draining a round happens in three phases across every bucket so that
// async tasks from different sources run concurrently with each other
// (§5, §8 "async tasks from both sources run concurrently"): fetchTasks is
// called for every bucket first, sync tasks run inline as soon as their
// bucket's tasks are known, and every async task from every bucket is
// gathered into one pool before any bucket is finalized.
type bucket interface {
	sourceName() string
	size() int
	fetchTasks(ctx context.Context) []PerformFetch
	runTask(ctx context.Context, t PerformFetch)
	finalize()
}

// typedBucket holds one source's pending blocked fetches for a round,
// still carrying the static request/result types so [DataSource.Fetch]
// can be called without any unsafe casting.
type typedBucket[R Request, T any] struct {
	source DataSource[R, T]
	items  []BlockedFetch[R, T]
}

func (b *typedBucket[R, T]) sourceName() string { return b.source.Name() }
func (b *typedBucket[R, T]) size() int          { return len(b.items) }

// fetchTasks calls the source's batch handler, converting a panic into an
// invariant-violating resolution of every cell in the batch rather than
// crashing the round.
func (b *typedBucket[R, T]) fetchTasks(ctx context.Context) (tasks []PerformFetch) {
	defer func() {
		if r := recover(); r != nil {
			tasks = nil
			b.failAll(ErrSourcePanic{Source: b.source.Name(), Value: r})
		}
	}()
	return b.source.Fetch(ctx, b.items)
}

// runTask executes one PerformFetch thunk, recovering from a panic and, on
// either a panic or a returned error, resolving any cell in this bucket
// that the thunk left unresolved with that failure. A thunk is free to
// resolve only some of the bucket's cells (e.g. one call per request); the
// ones it does resolve keep their own result.
func (b *typedBucket[R, T]) runTask(ctx context.Context, t PerformFetch) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = ErrSourcePanic{Source: b.source.Name(), Value: r}
			}
		}()
		return t.fn(ctx)
	}()
	if err != nil {
		b.failAll(err)
	}
}

func (b *typedBucket[R, T]) failAll(err error) {
	for _, item := range b.items {
		item.cell.forceInvariantViolation(err)
	}
}

// finalize enforces §4.2: every cell must be terminal once drain returns.
// Anything a source left NotFetched is an invariant violation, not a
// caller bug.
func (b *typedBucket[R, T]) finalize() {
	for _, item := range b.items {
		if item.cell.status() == notFetched {
			item.cell.forceInvariantViolation(ErrSourceSilent{
				Source:     b.source.Name(),
				Identifier: item.Request.Identifier(),
			})
		}
	}
}

// requestStore groups not-yet-issued blocked requests by source, as
// described in §3 and §4.2. It is rebuilt empty at the start of each round.
type requestStore struct {
	mu      sync.Mutex
	buckets map[any]bucket
	order   []any
}

func newRequestStore() *requestStore {
	return &requestStore{buckets: make(map[any]bucket)}
}

// addToStore registers a freshly-blocked request for source, keyed by the source
// value's own identity and concrete type. Two source instances are only
// ever merged into the same bucket if they compare equal with ==, which
// for typical pointer-receiver sources means pointer identity, and
// incidentally also distinguishes sources of different request/result
// types since those produce different concrete Go types behind the `any`
// key (§4.2, §9 open question on source-store keys).
func addToStore[R Request, T any](st *requestStore, source DataSource[R, T], req R, cl *cell) {
	st.mu.Lock()
	defer st.mu.Unlock()

	key := any(source)
	b, ok := st.buckets[key]
	if !ok {
		tb := &typedBucket[R, T]{source: source}
		st.buckets[key] = tb
		st.order = append(st.order, key)
		b = tb
	}
	tb := b.(*typedBucket[R, T])
	tb.items = append(tb.items, BlockedFetch[R, T]{Request: req, cell: cl})
}

// empty reports whether the store has nothing queued for this round.
func (st *requestStore) empty() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.buckets) == 0
}

// drain invokes every source's batch handler for the groups currently in
// the store, runs every sync task inline, and gathers every async task
// from every source into a single parallel wait so that async work from
// distinct sources genuinely overlaps (§5, §8).
func (st *requestStore) drain(ctx context.Context, tr *tracer) {
	st.mu.Lock()
	buckets := make([]bucket, 0, len(st.order))
	for _, k := range st.order {
		buckets = append(buckets, st.buckets[k])
	}
	st.mu.Unlock()

	tr.roundBuckets(buckets)

	type pending struct {
		b bucket
		t PerformFetch
	}
	var asyncTasks []pending

	for _, b := range buckets {
		tasks := b.fetchTasks(ctx)
		for _, t := range tasks {
			if t.sync {
				b.runTask(ctx, t)
			} else {
				asyncTasks = append(asyncTasks, pending{b: b, t: t})
			}
		}
	}

	if len(asyncTasks) > 0 {
		p := pool.New().WithErrors().WithContext(ctx)
		for _, pd := range asyncTasks {
			pd := pd
			p.Go(func(ctx context.Context) error {
				pd.b.runTask(ctx, pd.t)
				return nil
			})
		}
		_ = p.Wait()
	}

	for _, b := range buckets {
		b.finalize()
	}
}
