// Package examplesource provides small in-memory DataSource implementations
// used by cmd/fetchplandemo to exercise fetch.Run against more than toy
// synchronous fixtures.
package examplesource

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cobalt-data/fetchplan/fetch"
)

// UserID identifies a user record. It is a fetch.Request whose Identifier
// encodes both the source's name and the id, so Users and Posts requests
// never collide in the run-wide cache even if their numeric ids do.
type UserID int

func (id UserID) Identifier() string { return fmt.Sprintf("examplesource.User:%d", int(id)) }

// PostID identifies a Posts request by author: its value is the AuthorID
// whose posts are returned.
type PostID int

func (id PostID) Identifier() string { return fmt.Sprintf("examplesource.Post:%d", int(id)) }

// User is the record type returned by Users.
type User struct {
	ID   int
	Name string
}

// Post is the record type returned by Posts.
type Post struct {
	ID       int
	AuthorID int
	Title    string
}

// Users is an in-memory, asynchronous DataSource for UserID requests. Each
// batch is served by a single goroutine-scheduled PerformFetch, simulating a
// round trip with Latency.
type Users struct {
	Latency time.Duration
	records map[int]User
}

// NewUsers builds a Users source seeded with the given records, keyed by ID.
func NewUsers(records ...User) *Users {
	m := make(map[int]User, len(records))
	for _, r := range records {
		m[r.ID] = r
	}
	return &Users{records: m}
}

func (s *Users) Name() string { return "examplesource.Users" }

func (s *Users) Fetch(ctx context.Context, batch []fetch.BlockedFetch[UserID, User]) []fetch.PerformFetch {
	return []fetch.PerformFetch{fetch.Async(func(ctx context.Context) error {
		if s.Latency > 0 {
			select {
			case <-time.After(s.Latency):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		for _, bf := range batch {
			rec, ok := s.records[int(bf.Request)]
			if !ok {
				bf.PutFailure(fmt.Errorf("examplesource: no user with id %d", int(bf.Request)))
				continue
			}
			bf.PutSuccess(rec)
		}
		return nil
	})}
}

// Posts is an in-memory, synchronous DataSource for PostID requests,
// returning every post authored by the requested user id.
type Posts struct {
	byAuthor map[int][]Post
}

// NewPosts builds a Posts source, grouping posts by AuthorID.
func NewPosts(records ...Post) *Posts {
	byAuthor := make(map[int][]Post)
	for _, r := range records {
		byAuthor[r.AuthorID] = append(byAuthor[r.AuthorID], r)
	}
	return &Posts{byAuthor: byAuthor}
}

func (s *Posts) Name() string { return "examplesource.Posts" }

func (s *Posts) Fetch(ctx context.Context, batch []fetch.BlockedFetch[PostID, []Post]) []fetch.PerformFetch {
	return []fetch.PerformFetch{fetch.Sync(func(context.Context) error {
		for _, bf := range batch {
			bf.PutSuccess(s.byAuthor[int(bf.Request)])
		}
		return nil
	})}
}

// FlakyUsers wraps Users with simulated transport failures retried with an
// exponential backoff policy, demonstrating that retry behavior belongs to
// the source, never to fetchplan's round evaluator. The first
// FailuresBeforeSuccess attempts made through this source fail; the
// attempt count is kept across batches and never reset, so later batches
// go straight through.
type FlakyUsers struct {
	Users                 *Users
	FailuresBeforeSuccess int

	attempts int
}

func (s *FlakyUsers) Name() string { return "examplesource.FlakyUsers" }

func (s *FlakyUsers) Fetch(ctx context.Context, batch []fetch.BlockedFetch[UserID, User]) []fetch.PerformFetch {
	return []fetch.PerformFetch{fetch.Async(func(ctx context.Context) error {
		policy := backoff.NewExponentialBackOff()
		policy.MaxElapsedTime = 10 * time.Second

		return backoff.Retry(func() error {
			s.attempts++
			if s.attempts <= s.FailuresBeforeSuccess {
				return fmt.Errorf("examplesource: simulated transport failure (attempt %d)", s.attempts)
			}
			for _, bf := range batch {
				rec, ok := s.Users.records[int(bf.Request)]
				if !ok {
					bf.PutFailure(fmt.Errorf("examplesource: no user with id %d", int(bf.Request)))
					continue
				}
				bf.PutSuccess(rec)
			}
			return nil
		}, backoff.WithContext(policy, ctx))
	})}
}
