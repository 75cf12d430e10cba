package tasks

import (
	"context"

	"github.com/lysyi3m/epgfetch/app/companion"
	"github.com/lysyi3m/epgfetch/app/logger"
)

// CheckSubscriptionsTask asks the companion service to refresh subscription
// state. It never fails: the outcome is logged and kept for inspection.
type CheckSubscriptionsTask struct {
	Task
	client  *companion.Client
	Outcome companion.Outcome
}

func NewCheckSubscriptionsTask(client *companion.Client) *CheckSubscriptionsTask {
	return &CheckSubscriptionsTask{
		Task:   NewTask(TaskTypeCheckSubscriptions, companion.OperationCheckSubscriptions),
		client: client,
	}
}

func (t *CheckSubscriptionsTask) Execute(ctx context.Context) error {
	t.Outcome = t.client.CheckSubscriptions(ctx)

	logger.FromContext(ctx).Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"ok", t.Outcome.OK())

	return nil
}

// RegisterStreamsTask resolves live streams and registers those whose name is
// one of the companion channels. Like every companion call it never fails.
type RegisterStreamsTask struct {
	Task
	client   *companion.Client
	streams  []companion.Stream
	known    []string
	Outcomes []companion.Outcome
}

func NewRegisterStreamsTask(client *companion.Client, streams []companion.Stream, known []string) *RegisterStreamsTask {
	return &RegisterStreamsTask{
		Task:    NewTask(TaskTypeRegisterStreams, companion.OperationAddChannel),
		client:  client,
		streams: streams,
		known:   known,
	}
}

func (t *RegisterStreamsTask) Execute(ctx context.Context) error {
	t.Outcomes = t.client.RegisterStreams(ctx, t.streams, t.known)

	failed := 0
	for _, o := range t.Outcomes {
		if !o.OK() {
			failed++
		}
	}

	logger.FromContext(ctx).Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"streams", len(t.streams),
		"attempted", len(t.Outcomes),
		"failed", failed)

	return nil
}
