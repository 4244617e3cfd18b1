package fetch

import "go.uber.org/zap"

// tracer emits the one-line-per-event observability described in §6: a
// line each for cache hit, cache miss, duplicate-in-store, invalidation,
// round start, and run completion. When tracing is disabled the
// underlying logger is a no-op, so call sites stay unconditional.
type tracer struct {
	log   *zap.Logger
	runID string
	round int
}

func newTracer(log *zap.Logger, runID string) *tracer {
	return &tracer{log: log, runID: runID}
}

func (t *tracer) cacheHit(source, id string) {
	t.log.Debug("cache hit",
		zap.String("run_id", t.runID),
		zap.String("source", source),
		zap.String("request", id),
	)
}

func (t *tracer) cacheMiss(source, id string) {
	t.log.Debug("cache miss",
		zap.String("run_id", t.runID),
		zap.String("source", source),
		zap.String("request", id),
	)
}

func (t *tracer) duplicateInStore(source, id string) {
	t.log.Debug("duplicate in store",
		zap.String("run_id", t.runID),
		zap.String("source", source),
		zap.String("request", id),
	)
}

func (t *tracer) uncached(source, id string) {
	t.log.Debug("uncached fetch",
		zap.String("run_id", t.runID),
		zap.String("source", source),
		zap.String("request", id),
	)
}

func (t *tracer) invalidate(id string) {
	t.log.Debug("invalidate",
		zap.String("run_id", t.runID),
		zap.String("request", id),
	)
}

func (t *tracer) roundStart(size int) {
	t.round++
	t.log.Debug("round start",
		zap.String("run_id", t.runID),
		zap.Int("round", t.round),
		zap.Int("size", size),
	)
}

func (t *tracer) roundBuckets(buckets []bucket) {
	if !t.log.Core().Enabled(zap.DebugLevel) {
		return
	}
	for _, b := range buckets {
		t.log.Debug("round bucket",
			zap.String("run_id", t.runID),
			zap.Int("round", t.round),
			zap.String("source", b.sourceName()),
			zap.Int("batch_size", b.size()),
		)
	}
}

func (t *tracer) done(kind string) {
	t.log.Debug("run complete",
		zap.String("run_id", t.runID),
		zap.String("outcome", kind),
		zap.Int("rounds", t.round),
	)
}
