package service

import (
	"context"

	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/pkg/events"
	pktNats "resume-qa-be/pkg/nats"
)

const corpusWatchModule = "CORPUS_WATCH"

// CorpusUpdatedDurable is the JetStream consumer name of the corpus watcher.
const CorpusUpdatedDurable = "resume-qa-corpus-watch"

type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

type SnapshotRefresher interface {
	Refresh(ctx context.Context) int64
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService purges cached answers as soon as the corpus changes,
// instead of waiting for the next janitor tick.
type consumerService struct {
	subscriber EventSubscriber
	refresher  SnapshotRefresher
	logger     logger.ILogger
}

func NewConsumerService(subscriber EventSubscriber, refresher SnapshotRefresher, log logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		refresher:  refresher,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	return cs.subscriber.Subscribe(ctx, events.CorpusUpdated, CorpusUpdatedDurable, cs.processEvent)
}

func (cs *consumerService) processEvent(ctx context.Context, event events.Event) error {
	removed := cs.refresher.Refresh(ctx)
	cs.logger.Info(corpusWatchModule, "Corpus updated, cache refreshed", map[string]interface{}{
		"removed":     removed,
		"occurred_at": event.Timestamp(),
	})
	return nil
}
