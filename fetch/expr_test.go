package fetch

import (
	"testing"

	"go.uber.org/zap"
)

func testEnv() *Environment {
	return &Environment{
		cache:  newCache(),
		store:  newRequestStore(),
		tracer: newTracer(zap.NewNop(), "test"),
	}
}

// TestToFetch_mapFusionStaysFlatAcrossRounds verifies §9's claim that
// fusion prevents continuation growth proportional to the number of
// rounds: a plan built from two stacked Map calls over a base that blocks
// repeatedly carries two Map nodes in its first continuation, and never
// more than one in any later round, because toFetch collapses the stack
// before each re-wrap.
func TestToFetch_mapFusionStaysFlatAcrossRounds(t *testing.T) {
	blockCount := 0
	var base rawFetch
	base = func(*Environment) rawResult {
		blockCount++
		if blockCount < 3 {
			return rawResultBlocked(nil, constExprNode(base))
		}
		return rawResultDone(1)
	}

	addOne := func(v any) any { return v.(int) + 1 }
	timesTwo := func(v any) any { return v.(int) * 2 }

	plan := rawMap(timesTwo, rawMap(addOne, base))

	env := testEnv()
	r1 := plan(env)
	if r1.kind != kindBlocked {
		t.Fatalf("round 1: got kind %v, want blocked", r1.kind)
	}
	// Before any fusion, the just-constructed chain nests two Map nodes.
	if got, want := describeRaw(r1.cont), "Map(Map(Const))"; got != want {
		t.Fatalf("round 1 cont shape = %s, want %s", got, want)
	}

	fused1 := toFetch(r1.cont)
	r2 := fused1(env)
	if r2.kind != kindBlocked {
		t.Fatalf("round 2: got kind %v, want blocked", r2.kind)
	}
	if got, want := describeRaw(r2.cont), "Map(Const)"; got != want {
		t.Fatalf("round 2 cont shape = %s, want %s (fusion should flatten it)", got, want)
	}

	fused2 := toFetch(r2.cont)
	r3 := fused2(env)
	if r3.kind != kindDone {
		t.Fatalf("round 3: got kind %v, want done", r3.kind)
	}
	if got, want := r3.value.(int), (1+1)*2; got != want {
		t.Fatalf("final value = %d, want %d", got, want)
	}
}

// TestToFetch_bindFusionStaysFlatAcrossRounds mirrors the Map case for
// Bind-Bind fusion (§4.4, §8 "Monad associativity").
func TestToFetch_bindFusionStaysFlatAcrossRounds(t *testing.T) {
	blockCount := 0
	var base rawFetch
	base = func(*Environment) rawResult {
		blockCount++
		if blockCount < 3 {
			return rawResultBlocked(nil, constExprNode(base))
		}
		return rawResultDone(1)
	}

	addOne := func(v any) rawFetch { return rawLift(v.(int) + 1) }
	timesTwo := func(v any) rawFetch { return rawLift(v.(int) * 2) }

	plan := rawBind(rawBind(base, addOne), timesTwo)

	env := testEnv()
	r1 := plan(env)
	if r1.kind != kindBlocked {
		t.Fatalf("round 1: got kind %v, want blocked", r1.kind)
	}
	if got, want := describeRaw(r1.cont), "Bind(Bind(Const))"; got != want {
		t.Fatalf("round 1 cont shape = %s, want %s", got, want)
	}

	fused1 := toFetch(r1.cont)
	r2 := fused1(env)
	if r2.kind != kindBlocked {
		t.Fatalf("round 2: got kind %v, want blocked", r2.kind)
	}
	if got, want := describeRaw(r2.cont), "Bind(Const)"; got != want {
		t.Fatalf("round 2 cont shape = %s, want %s (fusion should flatten it)", got, want)
	}

	fused2 := toFetch(r2.cont)
	r3 := fused2(env)
	if r3.kind != kindDone {
		t.Fatalf("round 3: got kind %v, want done", r3.kind)
	}
	if got, want := r3.value.(int), (1+1)*2; got != want {
		t.Fatalf("final value = %d, want %d", got, want)
	}
}

// TestRawAp_evaluatesBothBranchesEvenWhenFirstFails ensures the
// applicative's batching guarantee survives failure: both branches must
// still be evaluated in the same round so their requests go out together,
// even though the function branch's failure is what ultimately surfaces
// (§4.3, §7).
func TestRawAp_evaluatesBothBranchesEvenWhenFirstFails(t *testing.T) {
	xEvaluated := false
	pf := rawFail(errBoom)
	px := func(env *Environment) rawResult {
		xEvaluated = true
		return rawResultDone(1)
	}

	r := rawAp(pf, px)(testEnv())
	if !xEvaluated {
		t.Fatal("value branch was not evaluated even though the function branch failed")
	}
	if r.kind != kindFailed || r.err != errBoom {
		t.Fatalf("got %#v, want Failed(errBoom)", r)
	}
}

var errBoom = testError("boom")

type testError string

func (e testError) Error() string { return string(e) }
