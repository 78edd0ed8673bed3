package draft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/pkg/llm"
	"resume-qa-be/pkg/utils"
)

const module = "DRAFTER"

type Config struct {
	RelevanceFloor float64
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
}

// Drafter turns excerpts into a draft answer with exactly one completion call.
type Drafter struct {
	llm    llm.LLMProvider
	cfg    Config
	logger logger.ILogger
}

func NewDrafter(provider llm.LLMProvider, cfg Config, log logger.ILogger) *Drafter {
	return &Drafter{llm: provider, cfg: cfg, logger: log}
}

type draftReply struct {
	Decision string   `json:"decision"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
}

// Draft never retries the completion call. feedback is the evaluator's
// rendered critique on a redraft and empty otherwise.
func (d *Drafter) Draft(ctx context.Context, q entity.Question, excerpts []entity.RetrievedExcerpt, feedback string) (entity.DraftAnswer, error) {
	if !d.anyRelevant(excerpts) {
		d.logger.Info(module, "No excerpt above relevance floor", map[string]interface{}{
			"excerpts": len(excerpts), "floor": d.cfg.RelevanceFloor,
		})
		return entity.DraftAnswer{Decision: entity.DecisionOutOfScope}, nil
	}

	prompt := NewPromptBuilder(q, excerpts, feedback).Build()

	callCtx := ctx
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	raw, err := d.llm.Generate(callCtx, prompt,
		llm.WithTemperature(d.cfg.Temperature),
		llm.WithMaxTokens(d.cfg.MaxTokens),
	)
	if err != nil {
		d.logger.Error(module, "Completion failed", map[string]interface{}{"error": err.Error()})
		return entity.DraftAnswer{}, fmt.Errorf("%w: %w", entity.ErrDraftGenerationFailed, err)
	}

	return d.parse(raw), nil
}

func (d *Drafter) anyRelevant(excerpts []entity.RetrievedExcerpt) bool {
	for _, e := range excerpts {
		if e.Similarity > d.cfg.RelevanceFloor {
			return true
		}
	}
	return false
}

// parse accepts the JSON contract and falls back to treating the whole reply
// as answer text without citations.
func (d *Drafter) parse(raw string) entity.DraftAnswer {
	var reply draftReply
	if err := utils.ExtractJSON(raw, &reply); err != nil {
		d.logger.Warn(module, "Reply was not JSON, using it as plain answer", map[string]interface{}{"error": err.Error()})
		return entity.DraftAnswer{Text: strings.TrimSpace(raw), Decision: entity.DecisionRetrieveOK}
	}

	decision, err := entity.ParseDecision(strings.ToUpper(strings.TrimSpace(reply.Decision)))
	if err != nil {
		d.logger.Warn(module, "Unknown decision, assuming RETRIEVE_OK", map[string]interface{}{"decision": reply.Decision})
		decision = entity.DecisionRetrieveOK
	}

	text := strings.TrimSpace(reply.Answer)
	if decision == entity.DecisionRetrieveOK && text == "" {
		decision = entity.DecisionOutOfScope
	}

	return entity.DraftAnswer{
		Text:                 text,
		Decision:             decision,
		SupportingExcerptIds: reply.Sources,
	}
}
