// Command fetchplandemo runs the literal end-to-end batching scenarios
// fetchplan's round evaluator is built to satisfy, against the in-memory
// sources in examplesource, and prints each scenario's result. With
// --trace, every run also emits its structured trace log.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cobalt-data/fetchplan/examplesource"
	"github.com/cobalt-data/fetchplan/fetch"
)

const (
	traceFlag   = "trace"
	latencyFlag = "latency"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}

// newRootCommand builds the fetchplandemo CLI, reading flags from the
// command line, environment variables prefixed FETCHPLANDEMO_, or a
// config.yaml in the current directory, in that order.
func newRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("FETCHPLANDEMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(traceFlag, false)
	viper.SetDefault(latencyFlag, 0)
	_ = viper.ReadInConfig()

	root := &cobra.Command{
		Use:   "fetchplandemo",
		Short: "Run fetchplan's batching scenarios against example sources",
	}

	flags := root.PersistentFlags()
	flags.Bool(traceFlag, viper.GetBool(traceFlag), "enable structured trace logging for every run")
	flags.Duration(latencyFlag, viper.GetDuration(latencyFlag), "simulated round-trip latency for the Users source")
	if err := viper.BindPFlag(traceFlag, flags.Lookup(traceFlag)); err != nil {
		log.Fatal(err)
	}
	if err := viper.BindPFlag(latencyFlag, flags.Lookup(latencyFlag)); err != nil {
		log.Fatal(err)
	}

	root.AddCommand(newScenariosCommand())
	return root
}

func newScenariosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "Run every named batching scenario once and print its result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd.Context(), viper.GetBool(traceFlag), viper.GetDuration(latencyFlag))
		},
	}
}

func runScenarios(ctx context.Context, trace bool, latency time.Duration) error {
	scenarios := []struct {
		name string
		run  func(context.Context, bool, time.Duration) (string, error)
	}{
		{"zip3-batches-across-sources", scenarioZip3},
		{"bind-issues-second-round", scenarioBind},
		{"dedup-same-identifier", scenarioDedup},
		{"ap-failure-still-batches", scenarioApFailure},
		{"sequence-preserves-order", scenarioSequence},
		{"invalidate-forces-refetch", scenarioInvalidate},
		{"flaky-source-retries-transparently", scenarioFlaky},
	}

	for _, s := range scenarios {
		out, err := s.run(ctx, trace, latency)
		if err != nil {
			return fmt.Errorf("scenario %q: %w", s.name, err)
		}
		fmt.Fprintf(os.Stdout, "%s: %s\n", s.name, out)
	}
	return nil
}

func scenarioZip3(ctx context.Context, trace bool, latency time.Duration) (string, error) {
	users := examplesource.NewUsers(
		examplesource.User{ID: 1, Name: "Ada"},
		examplesource.User{ID: 2, Name: "Bo"},
	)
	users.Latency = latency
	posts := examplesource.NewPosts(
		examplesource.Post{ID: 1, AuthorID: 1, Title: "Hello"},
	)

	plan := fetch.Zip3(
		fetch.DataFetch[examplesource.UserID, examplesource.User](users, 1),
		fetch.DataFetch[examplesource.UserID, examplesource.User](users, 2),
		fetch.DataFetch[examplesource.PostID, []examplesource.Post](posts, 1),
	)

	result, err := fetch.Run(ctx, plan, trace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%+v", result), nil
}

func scenarioBind(ctx context.Context, trace bool, latency time.Duration) (string, error) {
	users := examplesource.NewUsers(examplesource.User{ID: 1, Name: "Ada"})
	users.Latency = latency
	posts := examplesource.NewPosts(examplesource.Post{ID: 1, AuthorID: 1, Title: "Hello"})

	plan := fetch.Bind(
		fetch.DataFetch[examplesource.UserID, examplesource.User](users, 1),
		func(u examplesource.User) fetch.Fetch[[]examplesource.Post] {
			return fetch.DataFetch[examplesource.PostID, []examplesource.Post](posts, examplesource.PostID(u.ID))
		},
	)

	result, err := fetch.Run(ctx, plan, trace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%+v", result), nil
}

func scenarioDedup(ctx context.Context, trace bool, latency time.Duration) (string, error) {
	users := examplesource.NewUsers(examplesource.User{ID: 1, Name: "Ada"})
	users.Latency = latency

	plan := fetch.Zip2(
		fetch.DataFetch[examplesource.UserID, examplesource.User](users, 1),
		fetch.DataFetch[examplesource.UserID, examplesource.User](users, 1),
	)

	result, err := fetch.Run(ctx, plan, trace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%+v", result), nil
}

func scenarioApFailure(ctx context.Context, trace bool, latency time.Duration) (string, error) {
	users := examplesource.NewUsers(examplesource.User{ID: 1, Name: "Ada"})
	users.Latency = latency

	plan := fetch.Zip2(
		fetch.DataFetch[examplesource.UserID, examplesource.User](users, 1),
		fetch.Fail[examplesource.User](fmt.Errorf("simulated failure")),
	)

	_, err := fetch.Run(ctx, plan, trace)
	if err == nil {
		return "", fmt.Errorf("expected failure, got none")
	}
	return fmt.Sprintf("failed as expected: %s", err), nil
}

func scenarioSequence(ctx context.Context, trace bool, latency time.Duration) (string, error) {
	users := examplesource.NewUsers(
		examplesource.User{ID: 1, Name: "Ada"},
		examplesource.User{ID: 2, Name: "Bo"},
		examplesource.User{ID: 3, Name: "Cy"},
	)
	users.Latency = latency

	plan := fetch.Sequence([]fetch.Fetch[examplesource.User]{
		fetch.DataFetch[examplesource.UserID, examplesource.User](users, 1),
		fetch.DataFetch[examplesource.UserID, examplesource.User](users, 2),
		fetch.DataFetch[examplesource.UserID, examplesource.User](users, 3),
	})

	result, err := fetch.Run(ctx, plan, trace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%+v", result), nil
}

func scenarioInvalidate(ctx context.Context, trace bool, latency time.Duration) (string, error) {
	users := examplesource.NewUsers(examplesource.User{ID: 1, Name: "Ada"})
	users.Latency = latency
	req := examplesource.UserID(1)

	plan := fetch.Bind(
		fetch.Invalidate[examplesource.User](req, fetch.DataFetch[examplesource.UserID, examplesource.User](users, req)),
		func(examplesource.User) fetch.Fetch[examplesource.User] {
			return fetch.DataFetch[examplesource.UserID, examplesource.User](users, req)
		},
	)

	result, err := fetch.Run(ctx, plan, trace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%+v", result), nil
}

func scenarioFlaky(ctx context.Context, trace bool, latency time.Duration) (string, error) {
	users := examplesource.NewUsers(examplesource.User{ID: 1, Name: "Ada"})
	users.Latency = latency
	flaky := &examplesource.FlakyUsers{Users: users, FailuresBeforeSuccess: 2}

	plan := fetch.DataFetch[examplesource.UserID, examplesource.User](flaky, 1)

	result, err := fetch.Run(ctx, plan, trace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%+v", result), nil
}
