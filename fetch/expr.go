package fetch

// rawExprKind tags the four node shapes a plan continuation can take,
// per §3 "Plan expression (Expr<T>)".
type rawExprKind int

const (
	exprConst rawExprKind = iota
	exprMap
	exprApply
	exprBind
)

// rawExpr is the type-erased continuation tree. [Expr] is the generic,
// statically-typed façade; every node is built and fused at this erased
// level so that map-map and bind-bind fusion can walk across nodes whose
// intermediate types differ without the AST itself needing a type
// parameter per intermediate step.
type rawExpr struct {
	kind rawExprKind

	// exprConst
	constPlan rawFetch

	// exprMap
	mapFn    func(any) any
	mapInner *rawExpr

	// exprApply
	applyEf *rawExpr
	applyEx *rawExpr

	// exprBind
	bindFn    func(any) rawFetch
	bindInner *rawExpr
}

func constExprNode(p rawFetch) *rawExpr {
	return &rawExpr{kind: exprConst, constPlan: p}
}

func mapExprNode(f func(any) any, inner *rawExpr) *rawExpr {
	return &rawExpr{kind: exprMap, mapFn: f, mapInner: inner}
}

func applyExprNode(ef, ex *rawExpr) *rawExpr {
	return &rawExpr{kind: exprApply, applyEf: ef, applyEx: ex}
}

func bindExprNode(f func(any) rawFetch, inner *rawExpr) *rawExpr {
	return &rawExpr{kind: exprBind, bindFn: f, bindInner: inner}
}

// toFetch is the pure structural transformation described in §4.4: it
// collapses adjacent Map nodes and adjacent Bind nodes bottom-up before
// materializing the corresponding Fetch, so a long chain of binds built up
// across many rounds never grows the continuation more than one node deep
// per distinct operator (§9 "Continuation re-optimization").
//
// Apply is deliberately never fused; its two branches carry the parallel
// structure that batching depends on. Const materializes to its wrapped
// plan unchanged.
func toFetch(e *rawExpr) rawFetch {
	switch e.kind {
	case exprConst:
		return e.constPlan

	case exprMap:
		f := e.mapFn
		inner := e.mapInner
		for inner.kind == exprMap {
			g := inner.mapFn
			prevF := f
			f = func(v any) any { return prevF(g(v)) }
			inner = inner.mapInner
		}
		return rawMap(f, toFetch(inner))

	case exprApply:
		return rawAp(toFetch(e.applyEf), toFetch(e.applyEx))

	case exprBind:
		f := e.bindFn
		inner := e.bindInner
		for inner.kind == exprBind {
			g := inner.bindFn
			prevF := f
			f = func(v any) rawFetch { return rawBind(g(v), prevF) }
			inner = inner.bindInner
		}
		return rawBind(toFetch(inner), f)

	default:
		panic("fetch: unreachable expr kind")
	}
}

// Expr is the typed façade over a plan continuation, exposed to callers
// through [Result.Cont] so that tracing or debugging code can inspect its
// shape with [Describe] without being able to mutate it.
type Expr[T any] struct {
	raw *rawExpr
}

// ToFetch materializes this continuation back into a runnable [Fetch],
// applying map-map and bind-bind fusion per §4.4.
func (e Expr[T]) ToFetch() Fetch[T] {
	return wrapFetch[T](toFetch(e.raw))
}
