package service

import (
	"context"
	"testing"

	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/pkg/events"
	pktNats "resume-qa-be/pkg/nats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingSubscriber struct {
	eventType string
	durable   string
	handler   pktNats.EventHandler
}

func (s *capturingSubscriber) Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error {
	s.eventType, s.durable, s.handler = eventType, durableName, handler
	return nil
}

func TestConsumerService_RefreshesOnCorpusUpdate(t *testing.T) {
	sub := &capturingSubscriber{}
	refresher := &countingRefresher{removed: 2}
	cs := NewConsumerService(sub, refresher, logger.NewNopLogger())

	require.NoError(t, cs.Consume(context.Background()))
	assert.Equal(t, events.CorpusUpdated, sub.eventType)
	assert.Equal(t, CorpusUpdatedDurable, sub.durable)

	require.NoError(t, sub.handler(context.Background(), events.New(events.CorpusUpdated, map[string]interface{}{"collection": "resume_data"})))
	assert.Equal(t, 1, refresher.calls)
}
