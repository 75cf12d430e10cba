package tasks

import (
	"context"

	"github.com/lysyi3m/epgfetch/app/catalog"
	"github.com/lysyi3m/epgfetch/app/feed"
)

// TaskRunnerInterface executes a batch of tasks in order.
// Example usage:
//
//	runner := NewRunner(recorder)
//	err := runner.Run(ctx, NewSyncTasks(catalog, dates, fetcher, parser, repo, recorder, false))
type TaskRunnerInterface interface {
	Run(ctx context.Context, tasks []TaskInterface) error
	RunID() string
}

type FeedFetcher interface {
	Fetch(ctx context.Context, key feed.Key) ([]byte, error)
	Stats() feed.FetchStats
}

type FeedParser interface {
	Run(payload []byte, entry catalog.Entry, key feed.Key) (*feed.Result, error)
}
