// Package fetch provides a small embedded engine for describing composite
// data requirements as pure, composable values and then executing those
// values so that independent requests are discovered and issued as batches
// to their data sources, identical requests within a run are deduplicated
// through a cache, and sources that answer asynchronously all run
// concurrently within a round.
//
// The central type is [Fetch], a suspended computation that produces a
// value of type T once enough rounds of batching have completed. Values of
// [Fetch] are built up with [Lift], [Fail], [Map], [Ap], [Bind], the [Zip2],
// [Zip3], [Zip4] family, [Sequence], [MapSeq], [DataFetch],
// [UncachedFetch], and [Invalidate], and then handed to [Run].
//
// This is a "nuts-and-bolts" abstraction intended to be used as an
// implementation detail of a higher-level data-loading layer, not treated
// as a cross-cutting concern that appears throughout application code.
// Application code should build one composite [Fetch] value per logical
// unit of work and call [Run] once for it.
package fetch
