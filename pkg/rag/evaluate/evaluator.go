package evaluate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/pkg/llm"
	"resume-qa-be/pkg/utils"
)

const module = "EVALUATOR"

const (
	supportWeight     = 0.6
	strengthWeight    = 0.25
	consistencyWeight = 0.15

	minClaimRunes   = 3
	lexicalOverlap  = 0.5
	fabricatedCost  = 0.1
	strengthSampleN = 3
)

type Config struct {
	SupportFloor       float64
	LowConfidenceFloor float64
	VerifyMaxTokens    int
	Timeout            time.Duration
}

// Evaluation is the evaluator's full verdict. Answer is what leaves the
// pipeline; the rest drives redrafting and logging.
type Evaluation struct {
	Answer       entity.EvaluatedAnswer
	Feedback     Feedback
	SupportRatio float64
	Strength     float64
	Consistency  float64
}

// Inconsistent reports whether the draft contradicts or cites outside the excerpts.
func (e Evaluation) Inconsistent() bool {
	return len(e.Feedback.Contradicted) > 0 || len(e.Feedback.FabricatedIds) > 0
}

// Err wraps ErrEvaluationInconsistent when Inconsistent is true.
func (e Evaluation) Err() error {
	if !e.Inconsistent() {
		return nil
	}
	return fmt.Errorf("%w: %d contradicted claims, %d unknown sources",
		entity.ErrEvaluationInconsistent, len(e.Feedback.Contradicted), len(e.Feedback.FabricatedIds))
}

// Feedback is the critique handed to the drafter on a redraft.
type Feedback struct {
	Unsupported   []string
	Contradicted  []string
	FabricatedIds []string
	Notes         []string
}

func (f Feedback) Empty() bool {
	return len(f.Unsupported) == 0 && len(f.Contradicted) == 0 && len(f.FabricatedIds) == 0 && len(f.Notes) == 0
}

func (f Feedback) Render() string {
	var b strings.Builder
	for _, c := range f.Contradicted {
		fmt.Fprintf(&b, "- Contradicted by the excerpts, remove or correct: %s\n", c)
	}
	for _, c := range f.Unsupported {
		fmt.Fprintf(&b, "- Not stated in any excerpt, remove: %s\n", c)
	}
	if len(f.FabricatedIds) > 0 {
		fmt.Fprintf(&b, "- Cite only the given excerpt ids; unknown ids: %s\n", strings.Join(f.FabricatedIds, ", "))
	}
	for _, n := range f.Notes {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	return strings.TrimRight(b.String(), "\n")
}

type Evaluator struct {
	verifier Verifier
	cfg      Config
	logger   logger.ILogger
}

// NewEvaluator verifies claims with provider when it is non-nil and lexically otherwise.
func NewEvaluator(provider llm.LLMProvider, cfg Config, log logger.ILogger) *Evaluator {
	lexical := LexicalVerifier{MinOverlap: lexicalOverlap}
	var v Verifier = lexical
	if provider != nil {
		v = LLMVerifier{LLM: provider, MaxTokens: cfg.VerifyMaxTokens, Fallback: lexical}
	}
	return NewEvaluatorWithVerifier(v, cfg, log)
}

func NewEvaluatorWithVerifier(v Verifier, cfg Config, log logger.ILogger) *Evaluator {
	return &Evaluator{verifier: v, cfg: cfg, logger: log}
}

// Evaluate scores a RETRIEVE_OK draft against the excerpts it was built from.
// Verification failures degrade to lexical matching; the returned error is
// reserved for a context that was cancelled before a verdict existed.
func (e *Evaluator) Evaluate(ctx context.Context, draft entity.DraftAnswer, excerpts []entity.RetrievedExcerpt) (Evaluation, error) {
	claims := splitClaims(draft.Text)
	verdicts, err := e.verify(ctx, claims, excerpts)
	if err != nil {
		return Evaluation{}, err
	}

	var fb Feedback
	supported := 0
	supportingIds := make(map[string]bool)
	for _, v := range verdicts {
		switch {
		case v.Contradicted:
			fb.Contradicted = append(fb.Contradicted, v.Claim)
		case v.Supported():
			supported++
			for _, id := range v.SupportedBy {
				supportingIds[id] = true
			}
		default:
			fb.Unsupported = append(fb.Unsupported, v.Claim)
		}
	}

	known := make(map[string]bool, len(excerpts))
	for _, ex := range excerpts {
		known[ex.SourceId] = true
	}
	for _, id := range draft.SupportingExcerptIds {
		if !known[id] {
			fb.FabricatedIds = append(fb.FabricatedIds, id)
		}
	}

	supportRatio := 0.0
	consistency := 1.0
	if len(claims) > 0 {
		supportRatio = float64(supported) / float64(len(claims))
		consistency = 1 - float64(len(fb.Contradicted))/float64(len(claims))
	}
	consistency = entity.ClampUnit(consistency - fabricatedCost*float64(len(fb.FabricatedIds)))
	strength := evidenceStrength(excerpts, supportingIds)

	multiplier, notes := ruleCheck(draft.Text)
	fb.Notes = notes

	confidence := entity.ClampUnit(supportWeight*supportRatio+strengthWeight*strength+consistencyWeight*consistency) * multiplier

	ev := Evaluation{
		Feedback:     fb,
		SupportRatio: supportRatio,
		Strength:     strength,
		Consistency:  consistency,
	}

	status := entity.StatusOK
	action := entity.ActionNone
	switch {
	case confidence < e.cfg.LowConfidenceFloor:
		status = entity.StatusEscalate
		action = entity.ActionCollectContact
	case supportRatio < e.cfg.SupportFloor || ev.Inconsistent():
		status = entity.StatusNeedsEdit
	}

	ev.Answer, err = entity.NewEvaluatedAnswer(draft.Text, confidence, status, citedIds(draft, supportingIds, known), action)
	if err != nil {
		return Evaluation{}, err
	}

	e.logger.Debug(module, "Draft evaluated", map[string]interface{}{
		"claims":       len(claims),
		"support":      supportRatio,
		"strength":     strength,
		"consistency":  consistency,
		"multiplier":   multiplier,
		"confidence":   ev.Answer.Confidence,
		"status":       status,
		"inconsistent": ev.Inconsistent(),
	})
	return ev, nil
}

func (e *Evaluator) verify(ctx context.Context, claims []string, excerpts []entity.RetrievedExcerpt) ([]ClaimVerdict, error) {
	if len(claims) == 0 {
		return nil, nil
	}

	callCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	verdicts, err := e.verifier.Verify(callCtx, claims, excerpts)
	if err == nil {
		return verdicts, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	e.logger.Warn(module, "Claim verification failed, falling back to lexical overlap", map[string]interface{}{
		"error": err.Error(),
	})
	return LexicalVerifier{MinOverlap: lexicalOverlap}.Verify(ctx, claims, excerpts)
}

// splitClaims treats each sentence with enough content as one atomic claim.
func splitClaims(text string) []string {
	var claims []string
	for _, s := range utils.SplitSentences(text) {
		if utils.ContentRuneCount(s) >= minClaimRunes {
			claims = append(claims, s)
		}
	}
	return claims
}

// evidenceStrength averages the similarity of excerpts that back at least one
// claim, or of the best few excerpts when none do.
func evidenceStrength(excerpts []entity.RetrievedExcerpt, supporting map[string]bool) float64 {
	if len(excerpts) == 0 {
		return 0
	}
	sum, n := 0.0, 0
	for _, ex := range excerpts {
		if supporting[ex.SourceId] {
			sum += ex.Similarity
			n++
		}
	}
	if n > 0 {
		return entity.ClampUnit(sum / float64(n))
	}

	sims := make([]float64, len(excerpts))
	for i, ex := range excerpts {
		sims[i] = ex.Similarity
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sims)))
	if len(sims) > strengthSampleN {
		sims = sims[:strengthSampleN]
	}
	for _, s := range sims {
		sum += s
	}
	return entity.ClampUnit(sum / float64(len(sims)))
}

// citedIds keeps the draft's own citations that exist, then adds excerpts
// the verifier found supporting, in excerpt order.
func citedIds(draft entity.DraftAnswer, supporting, known map[string]bool) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, id := range draft.SupportingExcerptIds {
		if known[id] && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	extra := make([]string, 0, len(supporting))
	for id := range supporting {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(ids, extra...)
}
