// Package resolve drives a question from receipt to a final answer:
// semantic cache first, then retrieve, draft and evaluate with at most one
// redraft, handing anything it cannot answer confidently to a human.
package resolve

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/internal/repository/memory"
	"resume-qa-be/pkg/metrics"
	"resume-qa-be/pkg/rag/evaluate"
	"resume-qa-be/pkg/rag/semcache"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const module = "RESOLVER"

var tracer = otel.Tracer("resume-qa-be/resolve")

type Origin string

const (
	OriginDedup    Origin = "dedup"
	OriginCache    Origin = "cache"
	OriginPipeline Origin = "pipeline"
)

// Resolution is the outcome of one Resolve call. Trace is empty for dedup hits.
type Resolution struct {
	Answer       entity.EvaluatedAnswer
	Origin       Origin
	Trace        []State
	CacheScore   float64
	CacheAge     time.Duration
	EscalationId string
	Reason       string
	// Degraded marks answers shaped by an infrastructure failure.
	Degraded bool
	Latency  time.Duration
}

type Config struct {
	RetrievalTopK     int
	ModelId           string
	PromptVersion     string
	DedupTTL          time.Duration
	EscalationTimeout time.Duration
}

type Dependencies struct {
	Retriever Retriever
	Drafter   Drafter
	Evaluator Evaluator
	Cache     AnswerCache
	Snapshots SnapshotSource
	Admitter  Admitter
	Escalator Escalator
	Metrics   *metrics.Metrics
	Logger    logger.ILogger
}

type Orchestrator struct {
	deps  Dependencies
	cfg   Config
	dedup *memory.DedupRepository[*Resolution]
	wg    sync.WaitGroup
	now   func() time.Time

	requests     atomic.Int64
	cacheHits    atomic.Int64
	dedupHits    atomic.Int64
	escalations  atomic.Int64
	admissions   atomic.Int64
	latencyTotal atomic.Int64 // nanoseconds
}

func NewOrchestrator(deps Dependencies, cfg Config) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	return &Orchestrator{
		deps:  deps,
		cfg:   cfg,
		dedup: memory.NewDedupRepository[*Resolution](cfg.DedupTTL),
		now:   time.Now,
	}
}

// Resolve answers q. Collaborator failures never surface as errors: they
// end in an escalation answer. The error return is reserved for a cancelled
// context and for transitions the state machine rejects.
func (o *Orchestrator) Resolve(ctx context.Context, q entity.Question) (*Resolution, error) {
	start := o.now()
	o.requests.Add(1)

	key := q.DedupKey()
	entry, leader := o.dedup.Acquire(key)
	if !leader {
		shared, ok, err := entry.Wait(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			o.dedupHits.Add(1)
			res := *shared
			res.Origin = OriginDedup
			res.Trace = nil
			return o.finish(&res, start), nil
		}
		// the leader gave up; resolve independently
	}

	res, err := o.run(ctx, q)
	if leader {
		if err != nil || res.Degraded {
			o.dedup.Abandon(key, entry)
		} else {
			o.dedup.Complete(entry, res)
		}
	}
	if err != nil {
		return nil, err
	}
	out := *res
	return o.finish(&out, start), nil
}

func (o *Orchestrator) finish(res *Resolution, start time.Time) *Resolution {
	res.Latency = o.now().Sub(start)
	o.latencyTotal.Add(int64(res.Latency))
	if res.Origin == OriginCache {
		o.cacheHits.Add(1)
	}
	o.deps.Metrics.ObserveResolution(string(res.Origin), string(res.Answer.Status), res.Latency.Seconds())
	return res
}

// Drain waits for background admissions started by earlier calls.
func (o *Orchestrator) Drain() {
	o.wg.Wait()
}

// resolution carries the per-request state through the pipeline stages.
type resolution struct {
	o        *Orchestrator
	q        entity.Question
	m        *Machine
	rc       semcache.RequestContext
	rcOK     bool
	vector   []float32
	excerpts []entity.RetrievedExcerpt
}

func (o *Orchestrator) run(ctx context.Context, q entity.Question) (*Resolution, error) {
	ctx, span := tracer.Start(ctx, "resolve", trace.WithAttributes(
		attribute.String("question.language", string(q.Language)),
	))
	defer span.End()

	r := &resolution{o: o, q: q, m: NewMachine()}
	res, err := r.execute(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("resolve.origin", string(res.Origin)),
		attribute.String("resolve.status", string(res.Answer.Status)),
		attribute.Float64("resolve.confidence", res.Answer.Confidence),
	)
	return res, nil
}

func (r *resolution) execute(ctx context.Context) (*Resolution, error) {
	if err := r.m.Transition(StateCacheCheck); err != nil {
		return nil, err
	}
	if hit := r.checkCache(ctx); hit != nil {
		if err := r.m.Transition(StateCacheHit); err != nil {
			return nil, err
		}
		answer, err := entity.NewEvaluatedAnswer(hit.Record.AnswerText, hit.Record.Confidence,
			entity.StatusOK, hit.Record.SourceIds, entity.ActionNone)
		if err != nil {
			return nil, err
		}
		return r.done(answer, func(res *Resolution) {
			res.Origin = OriginCache
			res.CacheScore = hit.Score
			res.CacheAge = hit.Age
		})
	}

	if err := r.m.Transition(StateCacheMiss); err != nil {
		return nil, err
	}
	if err := r.m.Transition(StateRetrieve); err != nil {
		return nil, err
	}
	excerpts, err := r.retrieve(ctx)
	if err != nil {
		r.o.deps.Metrics.StageError("retrieve")
		return r.escalate(ctx, entity.EscalationContext{Reason: entity.ReasonRetrievalUnavailable}, true)
	}
	r.excerpts = excerpts

	if err := r.m.Transition(StateDraft); err != nil {
		return nil, err
	}
	feedback := ""
	for {
		draft, err := r.draft(ctx, feedback)
		if err != nil {
			r.o.deps.Metrics.StageError("draft")
			return r.escalate(ctx, entity.EscalationContext{Reason: entity.ReasonDraftFailed}, true)
		}

		switch draft.Decision {
		case entity.DecisionOutOfScope:
			return r.escalate(ctx, entity.EscalationContext{Reason: entity.ReasonOutOfScope}, false)
		case entity.DecisionAskClarify:
			return r.clarify(draft)
		}

		if err := r.m.Transition(StateEvaluate); err != nil {
			return nil, err
		}
		ev, err := r.evaluate(ctx, draft)
		if err != nil {
			return nil, err
		}
		ec := entity.EscalationContext{
			Confidence: ev.Answer.Confidence,
			DraftText:  draft.Text,
			SourceIds:  ev.Answer.SourceIds,
		}

		switch ev.Answer.Status {
		case entity.StatusOK:
			res, err := r.done(ev.Answer, nil)
			if err == nil {
				r.admit(ctx, ev.Answer)
			}
			return res, err
		case entity.StatusEscalate:
			ec.Reason = entity.ReasonLowConfidence
			return r.escalate(ctx, ec, false)
		}

		if !r.m.CanRedraft() {
			ec.Reason = entity.ReasonUnresolved
			return r.escalate(ctx, ec, false)
		}
		if err := r.m.Transition(StateRedraft); err != nil {
			return nil, err
		}
		if ierr := ev.Err(); ierr != nil {
			r.o.deps.Logger.Warn(module, "Redrafting inconsistent answer", map[string]interface{}{"error": ierr.Error()})
		}
		feedback = ev.Feedback.Render()
	}
}

// checkCache fails open: any error is logged and treated as a miss.
func (r *resolution) checkCache(ctx context.Context) *semcache.CacheHit {
	ctx, span := tracer.Start(ctx, "resolve.cache_check")
	defer span.End()

	snap, err := r.o.deps.Snapshots.Current(ctx)
	if err != nil {
		r.o.deps.Logger.Warn(module, "Corpus snapshot unavailable, skipping cache", map[string]interface{}{"error": err.Error()})
		r.o.deps.Metrics.CacheLookup("error")
		span.RecordError(err)
		return nil
	}
	r.rc = semcache.RequestContext{ModelId: r.o.cfg.ModelId, PromptVersion: r.o.cfg.PromptVersion, Snapshot: snap}
	r.rcOK = true

	hit, vector, err := r.o.deps.Cache.Lookup(ctx, r.q, r.rc)
	r.vector = vector
	switch {
	case err != nil:
		r.o.deps.Logger.Warn(module, "Cache lookup failed, continuing as miss", map[string]interface{}{"error": err.Error()})
		r.o.deps.Metrics.CacheLookup("error")
		span.RecordError(err)
		return nil
	case hit == nil:
		r.o.deps.Metrics.CacheLookup("miss")
		return nil
	}

	r.o.deps.Metrics.CacheLookup("hit")
	r.o.deps.Metrics.CacheHitScore(hit.Score)
	span.SetAttributes(attribute.Float64("semcache.score", hit.Score))
	return hit
}

func (r *resolution) retrieve(ctx context.Context) ([]entity.RetrievedExcerpt, error) {
	ctx, span := tracer.Start(ctx, "resolve.retrieve")
	defer span.End()

	excerpts, err := r.o.deps.Retriever.Search(ctx, r.q.Text, r.o.cfg.RetrievalTopK)
	if err != nil {
		r.o.deps.Logger.Error(module, "Retrieval unavailable", map[string]interface{}{"error": err.Error()})
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("retrieve.excerpts", len(excerpts)))
	return excerpts, nil
}

func (r *resolution) draft(ctx context.Context, feedback string) (entity.DraftAnswer, error) {
	ctx, span := tracer.Start(ctx, "resolve.draft", trace.WithAttributes(attribute.Bool("draft.redraft", feedback != "")))
	defer span.End()

	d, err := r.o.deps.Drafter.Draft(ctx, r.q, r.excerpts, feedback)
	if err != nil {
		r.o.deps.Logger.Error(module, "Draft generation failed", map[string]interface{}{"error": err.Error()})
		span.RecordError(err)
		return entity.DraftAnswer{}, err
	}
	span.SetAttributes(attribute.String("draft.decision", string(d.Decision)))
	return d, nil
}

func (r *resolution) evaluate(ctx context.Context, d entity.DraftAnswer) (evaluate.Evaluation, error) {
	ctx, span := tracer.Start(ctx, "resolve.evaluate")
	defer span.End()

	ev, err := r.o.deps.Evaluator.Evaluate(ctx, d, r.excerpts)
	if err != nil {
		span.RecordError(err)
		return evaluate.Evaluation{}, err
	}
	span.SetAttributes(
		attribute.String("evaluate.status", string(ev.Answer.Status)),
		attribute.Float64("evaluate.confidence", ev.Answer.Confidence),
	)
	return ev, nil
}

func (r *resolution) clarify(d entity.DraftAnswer) (*Resolution, error) {
	text := d.Text
	if text == "" {
		text = localized(clarifyFallback, r.q.Language)
	}
	answer, err := entity.NewEvaluatedAnswer(text, 0, entity.StatusNeedsEdit, d.SupportingExcerptIds, entity.ActionRequestClarification)
	if err != nil {
		return nil, err
	}
	return r.done(answer, nil)
}

func (r *resolution) done(answer entity.EvaluatedAnswer, decorate func(*Resolution)) (*Resolution, error) {
	if err := r.m.Transition(StateDone); err != nil {
		return nil, err
	}
	res := &Resolution{Answer: answer, Origin: OriginPipeline, Trace: r.m.Trace()}
	if decorate != nil {
		decorate(res)
	}
	return res, nil
}

// escalate notifies the escalation collaborator once and answers with the
// fixed localized hand-off message. Notification failures are logged only.
func (r *resolution) escalate(ctx context.Context, ec entity.EscalationContext, degraded bool) (*Resolution, error) {
	if err := r.m.Transition(StateEscalateFlow); err != nil {
		return nil, err
	}
	r.o.escalations.Add(1)
	r.o.deps.Metrics.Escalation(ec.Reason)

	answer, err := entity.NewEvaluatedAnswer(escalationMessage(ec.Reason, r.q.Language), ec.Confidence,
		entity.StatusEscalate, ec.SourceIds, entity.ActionCollectContact)
	if err != nil {
		return nil, err
	}
	res := &Resolution{
		Answer:   answer,
		Origin:   OriginPipeline,
		Trace:    r.m.Trace(),
		Reason:   ec.Reason,
		Degraded: degraded,
	}

	if r.o.deps.Escalator == nil {
		return res, nil
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.o.escalationTimeout())
	defer cancel()
	notifyCtx, span := tracer.Start(notifyCtx, "resolve.escalate", trace.WithAttributes(attribute.String("escalation.reason", ec.Reason)))
	defer span.End()

	id, err := r.o.deps.Escalator.Notify(notifyCtx, r.q, ec)
	if err != nil {
		r.o.deps.Logger.Error(module, "Escalation notify failed", map[string]interface{}{"reason": ec.Reason, "error": err.Error()})
		r.o.deps.Metrics.StageError("escalate")
		span.RecordError(err)
		return res, nil
	}
	res.EscalationId = id
	r.o.deps.Logger.Info(module, "Question escalated", map[string]interface{}{"reason": ec.Reason, "escalation_id": id})
	return res, nil
}

// admit schedules a cache write off the response path.
func (r *resolution) admit(ctx context.Context, answer entity.EvaluatedAnswer) {
	if !r.rcOK || r.o.deps.Admitter == nil || !r.o.deps.Cache.Admissible(answer) {
		r.o.deps.Metrics.Admission("skipped")
		return
	}

	bg := context.WithoutCancel(ctx)
	q, rc, vector := r.q, r.rc, r.vector
	r.o.wg.Add(1)
	go func() {
		defer r.o.wg.Done()
		if err := r.o.deps.Admitter.Enqueue(bg, q, answer, rc, vector); err != nil {
			r.o.deps.Logger.Error(module, "Admission enqueue failed", map[string]interface{}{"error": err.Error()})
			r.o.deps.Metrics.Admission("failed")
			return
		}
		r.o.admissions.Add(1)
		r.o.deps.Metrics.Admission("enqueued")
	}()
}

func (o *Orchestrator) escalationTimeout() time.Duration {
	if o.cfg.EscalationTimeout > 0 {
		return o.cfg.EscalationTimeout
	}
	return 5 * time.Second
}

// Stats is the observability surface of the orchestrator.
type Stats struct {
	Requests       int64
	CacheHits      int64
	CacheHitRate   float64
	DedupHits      int64
	CacheSize      int64
	AverageLatency time.Duration
	Escalations    int64
	Admissions     int64
}

// Stats reads the counters; CacheSize is -1 when the index cannot be counted.
func (o *Orchestrator) Stats(ctx context.Context) Stats {
	s := Stats{
		Requests:    o.requests.Load(),
		CacheHits:   o.cacheHits.Load(),
		DedupHits:   o.dedupHits.Load(),
		Escalations: o.escalations.Load(),
		Admissions:  o.admissions.Load(),
	}
	if s.Requests > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(s.Requests)
		s.AverageLatency = time.Duration(o.latencyTotal.Load() / s.Requests)
	}

	size, err := o.deps.Cache.Size(ctx)
	if err != nil {
		o.deps.Logger.Warn(module, "Cache size unavailable", map[string]interface{}{"error": err.Error()})
		size = -1
	}
	s.CacheSize = size
	return s
}
