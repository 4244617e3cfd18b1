package fetch_test

import (
	"context"
	"testing"

	"github.com/cobalt-data/fetchplan/fetch"
	"github.com/google/go-cmp/cmp"
)

// TestFunctorIdentity checks map(id, p) ≡ p (§8).
func TestFunctorIdentity(t *testing.T) {
	users := newRecordingSource[UserReq, User]("Users", map[string]User{
		"User:1": {ID: 1, Name: "Ada"},
	})

	plain := fetch.DataFetch(users, UserReq{ID: 1})
	mapped := fetch.Map(func(u User) User { return u }, plain)

	got, err := fetch.Run(context.Background(), mapped, false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	want := User{ID: 1, Name: "Ada"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Error("wrong result\n" + diff)
	}
}

// TestApplicativeHomomorphism checks ap(lift(f), lift(v)) ≡ lift(f v) (§8).
func TestApplicativeHomomorphism(t *testing.T) {
	f := func(v int) int { return v * 3 }
	got, err := fetch.Run(context.Background(), fetch.Ap(fetch.Lift(f), fetch.Lift(7)), false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if want := f(7); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

// TestMonadLeftIdentity checks bind(f, lift(v)) ≡ f(v) (§8).
func TestMonadLeftIdentity(t *testing.T) {
	f := func(v int) fetch.Fetch[string] { return fetch.Lift(fmtCount(v)) }
	got, err := fetch.Run(context.Background(), fetch.Bind(fetch.Lift(5), f), false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	want, err := fetch.Run(context.Background(), f(5), false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestMonadRightIdentity checks bind(lift, p) ≡ p (§8).
func TestMonadRightIdentity(t *testing.T) {
	users := newRecordingSource[UserReq, User]("Users", map[string]User{
		"User:1": {ID: 1, Name: "Ada"},
	})
	p := fetch.DataFetch(users, UserReq{ID: 1})
	bound := fetch.Bind(p, fetch.Lift[User])

	got, err := fetch.Run(context.Background(), bound, false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != (User{ID: 1, Name: "Ada"}) {
		t.Errorf("got %#v", got)
	}
}

func fmtCount(v int) string {
	switch v {
	case 5:
		return "five"
	default:
		return "other"
	}
}
