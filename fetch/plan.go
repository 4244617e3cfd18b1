package fetch

// resultKind distinguishes the three outcomes a plan evaluation step can
// produce, per §3 "Plan (Fetch<T>)".
type resultKind int

const (
	kindDone resultKind = iota
	kindBlocked
	kindFailed
)

// rawResult is the type-erased result of evaluating a rawFetch. [Result]
// is the typed façade callers see.
type rawResult struct {
	kind    resultKind
	value   any
	pending []BlockedInfo
	cont    *rawExpr
	err     error
}

func rawResultDone(v any) rawResult               { return rawResult{kind: kindDone, value: v} }
func rawResultFailed(err error) rawResult         { return rawResult{kind: kindFailed, err: err} }
func rawResultBlocked(p []BlockedInfo, c *rawExpr) rawResult {
	return rawResult{kind: kindBlocked, pending: p, cont: c}
}

// rawFetch is the type-erased plan: given an environment, produce a result.
// [Fetch] is the generic, statically-typed façade that callers build and
// compose; internally everything runs against this erased representation
// so that [Expr] nodes can hold continuations of arbitrary intermediate
// types without making the AST itself generic over more than its final
// result type, mirroring the teacher's own boxed-any erasure strategy for
// heterogeneous cells (§9 "Heterogeneous cache").
type rawFetch func(*Environment) rawResult

// Fetch is a suspended computation that produces a value of type T once
// enough rounds of batching have completed (§3 "Plan (Fetch<T>)").
//
// The zero value is not a usable plan; build one with [Lift], [Fail],
// [Map], [Ap], [Bind], [Zip2]..[Zip4], [Sequence], [MapSeq], [DataFetch],
// [UncachedFetch], or [Invalidate].
type Fetch[T any] struct {
	run rawFetch
}

func wrapFetch[T any](run rawFetch) Fetch[T] {
	return Fetch[T]{run: run}
}

// unFetch applies the plan to an environment, producing its typed result.
func (p Fetch[T]) unFetch(env *Environment) Result[T] {
	return typedResult[T](p.run(env))
}

// ResultKind identifies which of Done, Blocked, or Failed a [Result] holds.
type ResultKind int

const (
	// ResultDone means the plan produced its final value.
	ResultDone ResultKind = iota
	// ResultBlocked means further progress requires a store drain.
	ResultBlocked
	// ResultFailed means the plan short-circuited with an error.
	ResultFailed
)

// Result is the typed outcome of evaluating a [Fetch] against an
// environment, per §3: Done(v), Blocked(pending, cont), or Failed(e).
type Result[T any] struct {
	Kind ResultKind

	// Value holds the plan's output when Kind is ResultDone.
	Value T

	// Pending is informational only (§4.8): the authoritative record of
	// outstanding work for the round is the environment's request store,
	// not this slice. Populated when Kind is ResultBlocked.
	Pending []BlockedInfo

	// Cont is the plan expression to re-run once the round's store has
	// been drained. Populated when Kind is ResultBlocked.
	Cont Expr[T]

	// Err holds the failure when Kind is ResultFailed.
	Err error
}

func typedResult[T any](rr rawResult) Result[T] {
	switch rr.kind {
	case kindDone:
		v, _ := rr.value.(T)
		return Result[T]{Kind: ResultDone, Value: v}
	case kindFailed:
		return Result[T]{Kind: ResultFailed, Err: rr.err}
	default:
		return Result[T]{Kind: ResultBlocked, Pending: rr.pending, Cont: Expr[T]{raw: rr.cont}}
	}
}

// BlockedInfo is the informational record of one outstanding request
// included in a [Result]'s Pending list, per §4.8. Batch order across
// these is unspecified (§9 open question); do not rely on it.
type BlockedInfo struct {
	Source     string
	Identifier string
}
