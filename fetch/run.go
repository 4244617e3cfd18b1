package fetch

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Environment is the mutable state one call to [Run] threads through every
// round: a cache that lives for the whole run, a request store that is
// replaced between rounds, and a tracer (§3 "Environment").
type Environment struct {
	cache  *cache
	store  *requestStore
	tracer *tracer
	runID  string
}

// RunID returns the identifier correlating every trace line this
// environment's run has emitted, so external logs can be joined against
// fetchplan's own tracing.
func (env *Environment) RunID() string {
	return env.runID
}

// Run evaluates plan to completion: it repeatedly applies plan to one
// environment created for this run, and whenever evaluation reports
// Blocked, drains the
// environment's request store (running synchronous source tasks inline
// and awaiting asynchronous tasks in parallel) before replacing plan with
// the optimized continuation and looping (§4.8).
//
// The pending list attached to a Blocked result is informational only;
// Run relies exclusively on the environment's request store to decide
// what work a round performs, so that a duplicate request discovered by
// [DataFetch] does not cause double work.
//
// Run rethrows whatever error resolved the failing cell, unchanged, the
// first time any part of plan observes it (§6 "Failure surfaced by run").
func Run[T any](ctx context.Context, plan Fetch[T], trace bool) (T, error) {
	runID := uuid.NewString()

	log := zap.NewNop()
	if trace {
		if l, err := zap.NewDevelopment(); err == nil {
			log = l
		}
	}
	defer log.Sync() //nolint:errcheck

	tr := newTracer(log, runID)
	env := &Environment{
		cache:  newCache(),
		store:  newRequestStore(),
		tracer: tr,
		runID:  runID,
	}

	current := plan
	for {
		result := current.unFetch(env)
		switch result.Kind {
		case ResultDone:
			tr.done("done")
			return result.Value, nil
		case ResultFailed:
			tr.done("failed")
			var zero T
			return zero, result.Err
		default:
			tr.roundStart(len(result.Pending))
			env.store.drain(ctx, tr)
			env.store = newRequestStore()
			current = result.Cont.ToFetch()
		}
	}
}
