package fetch

import "fmt"

// Describe renders the shape of a plan continuation's expression tree,
// e.g. "Bind(Map(Const))", for use in trace lines and tests. It inspects
// structure only; it never evaluates the plan or touches the cache.
func Describe[T any](e Expr[T]) string {
	return describeRaw(e.raw)
}

func describeRaw(e *rawExpr) string {
	switch e.kind {
	case exprConst:
		return "Const"
	case exprMap:
		return fmt.Sprintf("Map(%s)", describeRaw(e.mapInner))
	case exprApply:
		return fmt.Sprintf("Apply(%s, %s)", describeRaw(e.applyEf), describeRaw(e.applyEx))
	case exprBind:
		return fmt.Sprintf("Bind(%s)", describeRaw(e.bindInner))
	default:
		return "?"
	}
}
