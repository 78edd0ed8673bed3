package escalation

import (
	"context"
	"sync"
	"testing"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/internal/repository/contract"
	"resume-qa-be/internal/repository/specification"
	"resume-qa-be/internal/repository/unitofwork"
	"resume-qa-be/pkg/events"
	"resume-qa-be/pkg/rag/ragtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memEscalationRepo struct {
	mu      sync.Mutex
	records []*entity.EscalationRecord
	err     error
}

func (r *memEscalationRepo) Create(ctx context.Context, record *entity.EscalationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

func (r *memEscalationRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.EscalationRecord, error) {
	return nil, nil
}

func (r *memEscalationRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EscalationRecord, error) {
	return r.records, nil
}

func (r *memEscalationRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.records)), nil
}

func (r *memEscalationRepo) MarkResolved(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type memUnitOfWork struct {
	repo *memEscalationRepo
}

func (u *memUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *memUnitOfWork) Commit() error                   { return nil }
func (u *memUnitOfWork) Rollback() error                 { return nil }
func (u *memUnitOfWork) VectorEntryRepository() contract.VectorEntryRepository {
	return nil
}
func (u *memUnitOfWork) EscalationRepository() contract.EscalationRepository {
	return u.repo
}

type memFactory struct {
	repo *memEscalationRepo
}

func (f *memFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memUnitOfWork{repo: f.repo}
}

type memGuard struct {
	mu   sync.Mutex
	held map[string]string
	err  error
}

func (g *memGuard) Claim(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", false, g.err
	}
	if v, ok := g.held[key]; ok {
		return v, false, nil
	}
	g.held[key] = value
	return "", true, nil
}

func (g *memGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	events  []events.Event
	ctxErrs []error
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	return p.err
}

type recordingMailer struct {
	mu      sync.Mutex
	to      []string
	release chan struct{} // when set, sends block until it is closed
}

func (m *recordingMailer) SendEscalation(to string, r *entity.EscalationRecord) error {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	return nil
}

func (m *recordingMailer) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.to...)
}

type fixture struct {
	svc   *Service
	repo  *memEscalationRepo
	guard *memGuard
	pub   *recordingPublisher
	mail  *recordingMailer
}

func newFixture() *fixture {
	f := &fixture{
		repo:  &memEscalationRepo{},
		guard: &memGuard{held: map[string]string{}},
		pub:   &recordingPublisher{},
		mail:  &recordingMailer{},
	}
	f.svc = NewService(&memFactory{repo: f.repo}, f.guard, f.pub, f.mail,
		Config{OwnerEmail: "owner@example.com", GuardTTL: 10 * time.Minute}, logger.NewNopLogger())
	return f
}

func question(t *testing.T, text string) entity.Question {
	q, err := entity.NewQuestion(text, "zh-TW", nil)
	require.NoError(t, err)
	return q
}

func TestNotify_RecordsAnnouncesAndEmails(t *testing.T) {
	f := newFixture()
	q := question(t, "你的期望薪資是多少？我叫王小明，Line ID: wang_ming")

	id, err := f.svc.Notify(context.Background(), q, entity.EscalationContext{
		Reason: entity.ReasonLowConfidence, Confidence: 0.2, DraftText: "draft", SourceIds: []string{"s1"},
	})
	require.NoError(t, err)
	require.Len(t, f.repo.records, 1)
	f.svc.Wait()

	rec := f.repo.records[0]
	assert.Equal(t, id, rec.Id.String())
	assert.Equal(t, entity.EscalationPending, rec.Status)
	assert.Equal(t, "王小明", rec.Contact.Name)
	assert.Equal(t, "wang_ming", rec.Contact.LineId)
	assert.Equal(t, []string{"s1"}, rec.SourceIds)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, events.QuestionEscalated, f.pub.events[0].EventType())
	assert.Equal(t, id, f.pub.events[0].Payload()["escalation_id"])
	assert.Equal(t, []string{"owner@example.com"}, f.mail.sent())
}

func TestNotify_RepeatWithinWindowReturnsFirstId(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Notify(ctx, question(t, "你的期望薪資是多少？"), entity.EscalationContext{Reason: entity.ReasonLowConfidence})
	require.NoError(t, err)
	second, err := f.svc.Notify(ctx, question(t, "你的期望薪資是多少"), entity.EscalationContext{Reason: entity.ReasonLowConfidence})
	require.NoError(t, err)

	f.svc.Wait()

	assert.Equal(t, first, second)
	assert.Len(t, f.repo.records, 1)
	assert.Len(t, f.mail.sent(), 1)
}

func TestNotify_GuardFailureFailsOpen(t *testing.T) {
	f := newFixture()
	f.guard.err = ragtest.ErrInjected

	id, err := f.svc.Notify(context.Background(), question(t, "可以遠端工作嗎？"), entity.EscalationContext{Reason: entity.ReasonOutOfScope})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Len(t, f.repo.records, 1)
}

func TestNotify_PersistFailureReleasesGuard(t *testing.T) {
	f := newFixture()
	f.repo.err = ragtest.ErrInjected
	q := question(t, "可以遠端工作嗎？")

	_, err := f.svc.Notify(context.Background(), q, entity.EscalationContext{Reason: entity.ReasonOutOfScope})
	assert.ErrorIs(t, err, ragtest.ErrInjected)
	f.svc.Wait()
	assert.Empty(t, f.guard.held)
	assert.Empty(t, f.pub.events)

	f.repo.err = nil
	_, err = f.svc.Notify(context.Background(), q, entity.EscalationContext{Reason: entity.ReasonOutOfScope})
	require.NoError(t, err)
	assert.Len(t, f.repo.records, 1)
}

func TestNotify_SinkFailuresAreSwallowed(t *testing.T) {
	f := newFixture()
	f.pub.err = ragtest.ErrInjected

	_, err := f.svc.Notify(context.Background(), question(t, "可以遠端工作嗎？"), entity.EscalationContext{Reason: entity.ReasonOutOfScope})
	require.NoError(t, err)
	f.svc.Wait()
	assert.Len(t, f.mail.sent(), 1)
}

func TestNotify_SlowMailerDoesNotDelayResponse(t *testing.T) {
	f := newFixture()
	f.mail.release = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	id, err := f.svc.Notify(ctx, question(t, "可以遠端工作嗎？"), entity.EscalationContext{Reason: entity.ReasonOutOfScope})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Empty(t, f.mail.sent())

	close(f.mail.release)
	f.svc.Wait()
	assert.Equal(t, []string{"owner@example.com"}, f.mail.sent())
}

func TestNotify_EventOutlivesRequestContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := f.svc.Notify(ctx, question(t, "可以遠端工作嗎？"), entity.EscalationContext{Reason: entity.ReasonOutOfScope})
	require.NoError(t, err)
	cancel()
	f.svc.Wait()

	require.Len(t, f.pub.events, 1)
	assert.NoError(t, f.pub.ctxErrs[0])
}
