package fetch

// This file implements §4.3's primitive operations at two layers: an
// unexported "raw" layer operating on type-erased rawFetch/rawExpr values,
// and the exported generic façade that callers actually use. Keeping the
// operational semantics at the raw layer means Map/Ap/Bind compose however
// deeply without the AST needing a type parameter per intermediate value.

func rawLift(v any) rawFetch {
	return func(*Environment) rawResult { return rawResultDone(v) }
}

func rawFail(err error) rawFetch {
	return func(*Environment) rawResult { return rawResultFailed(err) }
}

func rawConstFetch(r rawResult) rawFetch {
	return func(*Environment) rawResult { return r }
}

// rawMap is the operational semantics behind §4.3 "map": apply f to the
// eventual value of p, propagate failure, and wrap a blocked continuation
// in a fresh Map node.
func rawMap(f func(any) any, p rawFetch) rawFetch {
	return func(env *Environment) rawResult {
		r := p(env)
		switch r.kind {
		case kindDone:
			return rawResultDone(f(r.value))
		case kindFailed:
			return r
		default:
			return rawResultBlocked(r.pending, mapExprNode(f, r.cont))
		}
	}
}

// rawAp is the operational semantics behind §4.3 "ap": both branches are
// evaluated against the same environment in the same round regardless of
// whether either is blocked, so their requests always batch together. A
// naive bind-based implementation would serialize the branches and defeat
// batching (§9 "Applicative must not collapse to monadic").
func rawAp(pf, px rawFetch) rawFetch {
	return func(env *Environment) rawResult {
		rf := pf(env)
		rx := px(env)

		switch {
		case rf.kind == kindFailed && rx.kind != kindBlocked:
			// The function branch's failure wins even if the value branch
			// also failed, but both were still evaluated this round so
			// their batched requests still went out (§7). If the other side
			// is still Blocked, fall through to the default case instead:
			// its request was queued as a side effect of evaluating it and
			// must still be drained before the failure surfaces.
			return rawResultFailed(rf.err)
		case rx.kind == kindFailed && rf.kind != kindBlocked:
			return rawResultFailed(rx.err)
		case rf.kind == kindDone && rx.kind == kindDone:
			fn := rf.value.(func(any) any)
			return rawResultDone(fn(rx.value))
		default:
			var pending []BlockedInfo
			var contF, contX *rawExpr
			if rf.kind == kindBlocked {
				pending = append(pending, rf.pending...)
				contF = rf.cont
			} else {
				contF = constExprNode(rawConstFetch(rf))
			}
			if rx.kind == kindBlocked {
				pending = append(pending, rx.pending...)
				contX = rx.cont
			} else {
				contX = constExprNode(rawConstFetch(rx))
			}
			return rawResultBlocked(pending, applyExprNode(contF, contX))
		}
	}
}

// rawBind is the operational semantics behind §4.3 "bind": run p; if Done,
// evaluate f(v) in the same round; if Blocked, the continuation's own
// requests are not discoverable until a later round, so they must not be
// added to this round's pending/store bookkeeping.
func rawBind(p rawFetch, f func(any) rawFetch) rawFetch {
	return func(env *Environment) rawResult {
		r := p(env)
		switch r.kind {
		case kindFailed:
			return r
		case kindDone:
			return f(r.value)(env)
		default:
			return rawResultBlocked(r.pending, bindExprNode(f, r.cont))
		}
	}
}

// Lift returns a plan that evaluates to Done(v) in every environment.
func Lift[T any](v T) Fetch[T] {
	return wrapFetch[T](rawLift(v))
}

// Fail returns a plan that evaluates to Failed(err) in every environment.
func Fail[T any](err error) Fetch[T] {
	return wrapFetch[T](rawFail(err))
}

// Map applies f to the eventual value of p. Failure propagates unchanged;
// a blocked p stays blocked with its continuation wrapped in a Map node.
func Map[T, U any](f func(T) U, p Fetch[T]) Fetch[U] {
	erased := func(v any) any { return f(v.(T)) }
	return wrapFetch[U](rawMap(erased, p.run))
}

// Ap is the applicative combinator: it evaluates both pf and px against
// the same environment in the same round, so that if both are blocked
// their requests are issued together in one batch rather than serialized
// (§4.3, §9).
func Ap[T, U any](pf Fetch[func(U) T], px Fetch[U]) Fetch[T] {
	adaptedPf := rawMap(func(v any) any {
		fn := v.(func(U) T)
		return func(x any) any { return fn(x.(U)) }
	}, pf.run)
	return wrapFetch[T](rawAp(adaptedPf, px.run))
}

// Bind sequences p with a continuation f that may itself depend on p's
// result. Unlike Ap, the requests f(v) will eventually block on are not
// known until p resolves, so bind can never batch across its own boundary
// (§4.3).
func Bind[T, U any](p Fetch[T], f func(T) Fetch[U]) Fetch[U] {
	erased := func(v any) rawFetch { return f(v.(T)).run }
	return wrapFetch[U](rawBind(p.run, erased))
}
