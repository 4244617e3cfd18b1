package fetch_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/cobalt-data/fetchplan/fetch"
)

// User and Post are the toy domain types used across the core package's
// tests, matching the literal end-to-end scenarios in §8 of the spec this
// package implements.
type User struct {
	ID   int
	Name string
}

type Post struct {
	ID       int
	AuthorID int
	Title    string
}

type UserReq struct{ ID int }

func (r UserReq) Identifier() string { return fmt.Sprintf("User:%d", r.ID) }

type PostReq struct{ ID int }

func (r PostReq) Identifier() string { return fmt.Sprintf("Post:%d", r.ID) }

// recordingSource is a DataSource that records every batch it was called
// with, so tests can assert on call count and batch contents, and resolves
// each request by looking it up in a table supplied at construction time.
type recordingSource[R fetch.Request, T any] struct {
	name  string
	table map[string]T
	async bool

	mu    sync.Mutex
	calls [][]R
}

func newRecordingSource[R fetch.Request, T any](name string, table map[string]T) *recordingSource[R, T] {
	return &recordingSource[R, T]{name: name, table: table}
}

func (s *recordingSource[R, T]) Name() string { return s.name }

func (s *recordingSource[R, T]) Fetch(ctx context.Context, batch []fetch.BlockedFetch[R, T]) []fetch.PerformFetch {
	reqs := make([]R, len(batch))
	for i, bf := range batch {
		reqs[i] = bf.Request
	}
	s.mu.Lock()
	s.calls = append(s.calls, reqs)
	s.mu.Unlock()

	work := func(context.Context) error {
		for _, bf := range batch {
			v, ok := s.table[bf.Request.Identifier()]
			if !ok {
				bf.PutFailure(fmt.Errorf("no such record: %s", bf.Request.Identifier()))
				continue
			}
			bf.PutSuccess(v)
		}
		return nil
	}
	if s.async {
		return []fetch.PerformFetch{fetch.Async(work)}
	}
	return []fetch.PerformFetch{fetch.Sync(work)}
}

func (s *recordingSource[R, T]) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *recordingSource[R, T]) lastBatch() []R {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1]
}

func batchIdentifiers[R fetch.Request](reqs []R) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Identifier()
	}
	return out
}
