// Package escalation hands questions the pipeline cannot answer confidently
// to the résumé owner: it records them, announces them on the event bus and
// emails the owner.
package escalation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/internal/pkg/mailer"
	"resume-qa-be/internal/repository/unitofwork"
	"resume-qa-be/pkg/events"

	"github.com/google/uuid"
)

const module = "ESCALATION"

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Config struct {
	OwnerEmail string
	GuardTTL   time.Duration
	// DeliveryTimeout bounds the background event publish.
	DeliveryTimeout time.Duration
}

type Service struct {
	uowFactory unitofwork.RepositoryFactory
	guard      Guard
	publisher  EventPublisher
	mailer     mailer.IEmailService
	cfg        Config
	logger     logger.ILogger
	now        func() time.Time
	deliveries sync.WaitGroup
}

// NewService wires the escalation sinks. guard, publisher and mail may be nil.
func NewService(uowFactory unitofwork.RepositoryFactory, guard Guard, publisher EventPublisher, mail mailer.IEmailService, cfg Config, log logger.ILogger) *Service {
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
	return &Service{
		uowFactory: uowFactory,
		guard:      guard,
		publisher:  publisher,
		mailer:     mail,
		cfg:        cfg,
		logger:     log,
		now:        time.Now,
	}
}

func guardKey(q entity.Question) string {
	sum := sha256.Sum256([]byte(q.DedupKey()))
	return "escalation:" + hex.EncodeToString(sum[:])
}

// Notify persists an escalation record and returns its id. A repeat of the
// same question within the guard window returns the first record's id
// without a new record. The event and the owner email are sent in the
// background; only the persistence failure is returned.
func (s *Service) Notify(ctx context.Context, q entity.Question, ec entity.EscalationContext) (string, error) {
	id := uuid.New()
	key := guardKey(q)

	if s.guard != nil {
		existing, claimed, err := s.guard.Claim(ctx, key, id.String(), s.cfg.GuardTTL)
		switch {
		case err != nil:
			s.logger.Warn(module, "Escalation guard unavailable, proceeding", map[string]interface{}{"error": err.Error()})
		case !claimed:
			s.logger.Info(module, "Question already escalated", map[string]interface{}{"escalation_id": existing})
			return existing, nil
		}
	}

	record := &entity.EscalationRecord{
		Id:           id,
		QuestionText: q.Text,
		Language:     q.Language,
		Reason:       ec.Reason,
		Confidence:   ec.Confidence,
		DraftText:    ec.DraftText,
		SourceIds:    ec.SourceIds,
		Contact:      ContactFromQuestion(q),
		Status:       entity.EscalationPending,
		CreatedAt:    s.now().UTC(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.EscalationRepository().Create(ctx, record); err != nil {
		if s.guard != nil {
			if rerr := s.guard.Release(ctx, key); rerr != nil {
				s.logger.Warn(module, "Failed to release escalation guard", map[string]interface{}{"error": rerr.Error()})
			}
		}
		return "", fmt.Errorf("persist escalation: %w", err)
	}

	s.logger.Info(module, "Escalation recorded", map[string]interface{}{
		"escalation_id": record.Id.String(),
		"reason":        record.Reason,
		"has_contact":   record.Contact.HasContactMethod(),
	})

	s.deliveries.Add(1)
	go func() {
		defer s.deliveries.Done()
		deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.DeliveryTimeout)
		defer cancel()
		s.announce(deliverCtx, record)
		s.email(record)
	}()

	return record.Id.String(), nil
}

// Wait blocks until every background event and email send has finished.
func (s *Service) Wait() {
	s.deliveries.Wait()
}

func (s *Service) announce(ctx context.Context, r *entity.EscalationRecord) {
	if s.publisher == nil {
		return
	}
	evt := events.New(events.QuestionEscalated, map[string]interface{}{
		"escalation_id": r.Id.String(),
		"question":      r.QuestionText,
		"language":      string(r.Language),
		"reason":        r.Reason,
		"confidence":    r.Confidence,
		"has_contact":   r.Contact.HasContactMethod(),
	})
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Error(module, "Failed to publish escalation event", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Service) email(r *entity.EscalationRecord) {
	if s.mailer == nil || s.cfg.OwnerEmail == "" {
		return
	}
	if err := s.mailer.SendEscalation(s.cfg.OwnerEmail, r); err != nil {
		s.logger.Error(module, "Failed to email owner", map[string]interface{}{"error": err.Error()})
	}
}
