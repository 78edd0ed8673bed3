// Package admission moves cache writes off the response path through a
// watermill topic: the orchestrator publishes, a consumer writes.
package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/pkg/index"
	"resume-qa-be/pkg/metrics"
	"resume-qa-be/pkg/rag/semcache"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const module = "ADMISSION"

// Job is the wire form of one admission request.
type Job struct {
	QuestionText  string         `json:"question_text"`
	Language      string         `json:"language"`
	AnswerText    string         `json:"answer_text"`
	Confidence    float64        `json:"confidence"`
	Status        string         `json:"status"`
	SourceIds     []string       `json:"source_ids"`
	ModelId       string         `json:"model_id"`
	PromptVersion string         `json:"prompt_version"`
	Snapshot      index.Snapshot `json:"snapshot"`
	Vector        []float32      `json:"vector,omitempty"`
	EnqueuedAt    time.Time      `json:"enqueued_at"`
}

func newJob(q entity.Question, answer entity.EvaluatedAnswer, rc semcache.RequestContext, vector []float32) Job {
	return Job{
		QuestionText:  q.Text,
		Language:      string(q.Language),
		AnswerText:    answer.FinalText,
		Confidence:    answer.Confidence,
		Status:        string(answer.Status),
		SourceIds:     answer.SourceIds,
		ModelId:       rc.ModelId,
		PromptVersion: rc.PromptVersion,
		Snapshot:      rc.Snapshot,
		Vector:        vector,
		EnqueuedAt:    time.Now().UTC(),
	}
}

func (j Job) decode() (entity.Question, entity.EvaluatedAnswer, semcache.RequestContext, error) {
	q, err := entity.NewQuestion(j.QuestionText, j.Language, nil)
	if err != nil {
		return entity.Question{}, entity.EvaluatedAnswer{}, semcache.RequestContext{}, err
	}
	status, err := entity.ParseStatus(j.Status)
	if err != nil {
		return entity.Question{}, entity.EvaluatedAnswer{}, semcache.RequestContext{}, err
	}
	answer, err := entity.NewEvaluatedAnswer(j.AnswerText, j.Confidence, status, j.SourceIds, entity.ActionNone)
	if err != nil {
		return entity.Question{}, entity.EvaluatedAnswer{}, semcache.RequestContext{}, err
	}
	rc := semcache.RequestContext{ModelId: j.ModelId, PromptVersion: j.PromptVersion, Snapshot: j.Snapshot}
	return q, answer, rc, nil
}

// NewBus returns the in-process topic admissions travel on. Publish returns
// only once the consumer has acked, so waiting on a publisher waits on its write.
func NewBus(log watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: true,
	}, log)
}

type Publisher struct {
	publisher message.Publisher
	topic     string
}

func NewPublisher(publisher message.Publisher, topic string) *Publisher {
	return &Publisher{publisher: publisher, topic: topic}
}

// Enqueue publishes the admission request; the write itself happens in Consumer.
func (p *Publisher) Enqueue(ctx context.Context, q entity.Question, answer entity.EvaluatedAnswer, rc semcache.RequestContext, vector []float32) error {
	payload, err := json.Marshal(newJob(q, answer, rc, vector))
	if err != nil {
		return fmt.Errorf("marshal admission: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.publisher.Publish(p.topic, msg)
}

// CacheWriter is the part of the semantic cache the consumer needs.
type CacheWriter interface {
	Admit(ctx context.Context, q entity.Question, answer entity.EvaluatedAnswer, rc semcache.RequestContext, vector []float32) (bool, error)
}

type Consumer struct {
	subscriber message.Subscriber
	topic      string
	cache      CacheWriter
	metrics    *metrics.Metrics
	logger     logger.ILogger
}

func NewConsumer(subscriber message.Subscriber, topic string, cache CacheWriter, m *metrics.Metrics, log logger.ILogger) *Consumer {
	return &Consumer{subscriber: subscriber, topic: topic, cache: cache, metrics: m, logger: log}
}

// Consume subscribes and processes messages in the background until ctx ends.
func (c *Consumer) Consume(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			c.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks: a failed admission is dropped, never retried.
func (c *Consumer) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var job Job
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		c.logger.Error(module, "Failed to unmarshal admission", map[string]interface{}{"error": err.Error(), "uuid": msg.UUID})
		c.metrics.Admission("rejected")
		return
	}

	q, answer, rc, err := job.decode()
	if err != nil {
		c.logger.Error(module, "Invalid admission payload", map[string]interface{}{"error": err.Error(), "uuid": msg.UUID})
		c.metrics.Admission("rejected")
		return
	}

	written, err := c.cache.Admit(ctx, q, answer, rc, job.Vector)
	switch {
	case err != nil:
		c.logger.Error(module, "Admission dropped", map[string]interface{}{"error": err.Error(), "uuid": msg.UUID})
		c.metrics.Admission("failed")
	case written:
		c.metrics.Admission("written")
	default:
		c.metrics.Admission("rejected")
	}
}
