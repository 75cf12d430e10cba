package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/lysyi3m/epgfetch/app/catalog"
	"github.com/lysyi3m/epgfetch/app/database"
	"github.com/lysyi3m/epgfetch/app/feed"
	"github.com/lysyi3m/epgfetch/app/logger"
	"github.com/lysyi3m/epgfetch/app/metrics"
)

// SyncChannelTask fetches and parses every date of one catalog entry, then
// replaces the channel's stored programmes in a single transaction.
type SyncChannelTask struct {
	Task
	Entry             catalog.Entry
	Dates             []feed.Date
	fetcher           FeedFetcher
	parser            FeedParser
	store             database.ProgrammeStore
	recorder          *metrics.Recorder
	ignoreFetchErrors bool
}

func NewSyncChannelTask(entry catalog.Entry, dates []feed.Date, fetcher FeedFetcher, parser FeedParser,
	store database.ProgrammeStore, recorder *metrics.Recorder, ignoreFetchErrors bool) *SyncChannelTask {
	return &SyncChannelTask{
		Task:              NewTask(TaskTypeSyncChannel, entry.DisplayName),
		Entry:             entry,
		Dates:             dates,
		fetcher:           fetcher,
		parser:            parser,
		store:             store,
		recorder:          recorder,
		ignoreFetchErrors: ignoreFetchErrors,
	}
}

// NewSyncTasks creates one SyncChannelTask per catalog entry, in catalog order.
func NewSyncTasks(cat *catalog.Catalog, dates []feed.Date, fetcher FeedFetcher, parser FeedParser,
	store database.ProgrammeStore, recorder *metrics.Recorder, ignoreFetchErrors bool) []TaskInterface {
	entries := cat.Entries()
	tasks := make([]TaskInterface, 0, len(entries))
	for _, entry := range entries {
		tasks = append(tasks, NewSyncChannelTask(entry, dates, fetcher, parser, store, recorder, ignoreFetchErrors))
	}
	return tasks
}

func (t *SyncChannelTask) Execute(ctx context.Context) error {
	log := logger.FromContext(ctx).With("channel", t.Entry.DisplayName, "provider_id", t.Entry.ProviderID)

	var (
		programmes []database.Programme
		fetched    int
		dropped    int
	)

	for _, date := range t.Dates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		key := feed.Key{ProviderID: t.Entry.ProviderID, Date: date}

		payload, err := t.fetch(ctx, key)
		if err != nil {
			var fetchErr *feed.FetchError
			if t.ignoreFetchErrors && errors.As(err, &fetchErr) && ctx.Err() == nil {
				log.Warn("Skipping date after fetch failure", "date", date.String(), "error", err)
				t.recorder.FeedRequest(metrics.ResultSkipped)
				continue
			}
			t.recorder.FeedRequest(metrics.ResultFailed)
			return fmt.Errorf("failed to fetch feed: %w", err)
		}
		fetched++

		result, err := t.parser.Run(payload, t.Entry, key)
		if err != nil {
			return fmt.Errorf("failed to parse feed: %w", err)
		}

		dropped += result.Dropped
		for _, p := range result.Programmes {
			programmes = append(programmes, database.Programme{
				Start:       p.Start,
				Stop:        p.Stop,
				Title:       p.Title,
				Channel:     p.Channel,
				Description: p.Description,
			})
		}
	}

	t.recorder.ProgrammesDropped(dropped)

	if fetched == 0 && len(t.Dates) > 0 {
		log.Warn("No feed could be fetched, keeping stored programmes")
		t.recorder.Channel(metrics.OutcomeUntouched)
		return nil
	}

	written, err := t.store.ReplaceChannelProgrammes(ctx, t.Entry.DisplayName, programmes)
	if err != nil {
		return fmt.Errorf("failed to store programmes: %w", err)
	}

	t.recorder.ProgrammesStored(t.Entry.DisplayName, written)
	t.recorder.Channel(metrics.OutcomeSynced)

	log.Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"dates", len(t.Dates),
		"fetched", fetched,
		"stored", written,
		"dropped", dropped)

	return nil
}

// fetch records whether the fetcher answered from its run cache.
func (t *SyncChannelTask) fetch(ctx context.Context, key feed.Key) ([]byte, error) {
	before := t.fetcher.Stats()

	payload, err := t.fetcher.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	if t.fetcher.Stats().CacheHits > before.CacheHits {
		t.recorder.FeedRequest(metrics.ResultCached)
	} else {
		t.recorder.FeedRequest(metrics.ResultFetched)
	}

	return payload, nil
}
