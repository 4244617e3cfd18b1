package fetch

// Pair2, Pair3, and Pair4 are the tuple shapes returned by [Zip2], [Zip3],
// and [Zip4].
type Pair2[A, B any] struct {
	First  A
	Second B
}

type Pair3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

type Pair4[A, B, C, D any] struct {
	First  A
	Second B
	Third  C
	Fourth D
}

// Zip2 runs pa and pb as one applicative batch: if both are blocked, both
// sets of requests go out in the same round (§4.3 "zip{2,3,4}").
func Zip2[A, B any](pa Fetch[A], pb Fetch[B]) Fetch[Pair2[A, B]] {
	combine := func(a A) func(B) Pair2[A, B] {
		return func(b B) Pair2[A, B] { return Pair2[A, B]{First: a, Second: b} }
	}
	return Ap(Map(combine, pa), pb)
}

// Zip3 is [Zip2] extended to three plans, all sharing one batching round.
func Zip3[A, B, C any](pa Fetch[A], pb Fetch[B], pc Fetch[C]) Fetch[Pair3[A, B, C]] {
	combine := func(a A) func(B) func(C) Pair3[A, B, C] {
		return func(b B) func(C) Pair3[A, B, C] {
			return func(c C) Pair3[A, B, C] { return Pair3[A, B, C]{First: a, Second: b, Third: c} }
		}
	}
	step1 := Ap(Map(combine, pa), pb)
	return Ap(step1, pc)
}

// Zip4 is [Zip2] extended to four plans, all sharing one batching round.
func Zip4[A, B, C, D any](pa Fetch[A], pb Fetch[B], pc Fetch[C], pd Fetch[D]) Fetch[Pair4[A, B, C, D]] {
	combine := func(a A) func(B) func(C) func(D) Pair4[A, B, C, D] {
		return func(b B) func(C) func(D) Pair4[A, B, C, D] {
			return func(c C) func(D) Pair4[A, B, C, D] {
				return func(d D) Pair4[A, B, C, D] {
					return Pair4[A, B, C, D]{First: a, Second: b, Third: c, Fourth: d}
				}
			}
		}
	}
	step1 := Ap(Map(combine, pa), pb)
	step2 := Ap(step1, pc)
	return Ap(step2, pd)
}

// Sequence is a right fold using [Ap], so that every element's blocked
// requests merge into one round (§4.3 "sequence/mapSeq").
func Sequence[T any](ps []Fetch[T]) Fetch[[]T] {
	acc := Lift[[]T](nil)
	for i := len(ps) - 1; i >= 0; i-- {
		p := ps[i]
		combine := func(v T) func([]T) []T {
			return func(rest []T) []T {
				out := make([]T, 0, len(rest)+1)
				out = append(out, v)
				out = append(out, rest...)
				return out
			}
		}
		acc = Ap(Map(combine, p), acc)
	}
	return acc
}

// MapSeq applies f to every element of xs and sequences the results with
// [Sequence], preserving xs's original order in the output.
func MapSeq[T, U any](f func(T) Fetch[U], xs []T) Fetch[[]U] {
	ps := make([]Fetch[U], len(xs))
	for i, x := range xs {
		ps[i] = f(x)
	}
	return Sequence(ps)
}

// readbackRaw builds the plan described in §4.5 "readback(cell)": a Const
// plan whose evaluation inspects the cell directly — Success becomes Done,
// Error becomes Failed, and NotFetched becomes Failed with an invariant
// violation, since the round evaluator must have drained the store before
// re-running this continuation.
func readbackRaw[T any](cl *cell) rawFetch {
	return func(*Environment) rawResult {
		switch cl.status() {
		case success:
			v, _ := typedGet[T](cl)
			return rawResultDone(v)
		case failed:
			_, err := typedGet[T](cl)
			return rawResultFailed(err)
		default:
			return rawResultFailed(ErrNotDrained)
		}
	}
}

func readbackExpr[T any](cl *cell) *rawExpr {
	return constExprNode(readbackRaw[T](cl))
}

// rawDataFetch implements the cached dataFetch semantics of §4.5.
func rawDataFetch[R Request, T any](source DataSource[R, T], req R) rawFetch {
	return func(env *Environment) rawResult {
		id := req.Identifier()
		cl, created := env.cache.getOrCreate(id)
		if created {
			env.tracer.cacheMiss(source.Name(), id)
			addToStore(env.store, source, req, cl)
			pending := []BlockedInfo{{Source: source.Name(), Identifier: id}}
			return rawResultBlocked(pending, readbackExpr[T](cl))
		}

		switch cl.status() {
		case success:
			env.tracer.cacheHit(source.Name(), id)
			v, _ := typedGet[T](cl)
			return rawResultDone(v)
		case failed:
			env.tracer.cacheHit(source.Name(), id)
			_, err := typedGet[T](cl)
			return rawResultFailed(err)
		default:
			// Case 3 of §4.5: some earlier branch already queued this
			// request this round. Do not re-add it to the store.
			env.tracer.duplicateInStore(source.Name(), id)
			return rawResultBlocked(nil, readbackExpr[T](cl))
		}
	}
}

// DataFetch issues req against source, deduplicating against every other
// DataFetch for the same identifier within this run via the cache (§4.5).
func DataFetch[R Request, T any](source DataSource[R, T], req R) Fetch[T] {
	return wrapFetch[T](rawDataFetch[R, T](source, req))
}

// rawUncachedFetch implements §4.6: always allocate a fresh cell, never
// touch the cache.
func rawUncachedFetch[R Request, T any](source DataSource[R, T], req R) rawFetch {
	return func(env *Environment) rawResult {
		cl := newCell()
		addToStore(env.store, source, req, cl)
		env.tracer.uncached(source.Name(), req.Identifier())
		pending := []BlockedInfo{{Source: source.Name(), Identifier: req.Identifier()}}
		return rawResultBlocked(pending, readbackExpr[T](cl))
	}
}

// UncachedFetch issues req against source every time it is evaluated,
// bypassing the cache entirely. Intended for mutating requests whose
// results must not be memoized (§4.6).
func UncachedFetch[R Request, T any](source DataSource[R, T], req R) Fetch[T] {
	return wrapFetch[T](rawUncachedFetch[R, T](source, req))
}

// rawInvalidate implements §4.7: remove the cache entry before evaluating p,
// so the removal always takes effect before any reads inside p, and again
// once p's own evaluation has returned. The second removal matters because
// p's own dataFetch (if any) for id will have reinserted a cell into the
// cache as a side effect of resolving id itself; without removing it again,
// a later independent dataFetch for the same id would silently hit that
// cell instead of re-querying the source, contradicting the testable
// property that a subsequent dataFetch for id re-queries its source (§8
// "Invalidation"). The cell p's own continuation is already holding
// directly, by reference, so evicting it from the cache map does not
// disturb p's own in-flight resolution.
func rawInvalidate(id string, p rawFetch) rawFetch {
	return func(env *Environment) rawResult {
		env.cache.remove(id)
		env.tracer.invalidate(id)
		r := p(env)
		env.cache.remove(id)
		return r
	}
}

// Invalidate returns a plan that, on each evaluation, first removes req's
// cache entry, evaluates p, and removes the entry again so that a dataFetch
// for the same request inside or after p re-queries its source (§4.7).
func Invalidate[T any](req Request, p Fetch[T]) Fetch[T] {
	return wrapFetch[T](rawInvalidate(req.Identifier(), p.run))
}
