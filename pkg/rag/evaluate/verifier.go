package evaluate

import (
	"context"
	"fmt"
	"strings"

	"resume-qa-be/internal/entity"
	"resume-qa-be/pkg/llm"
	"resume-qa-be/pkg/utils"
)

// ClaimVerdict is the verification outcome for one claim.
type ClaimVerdict struct {
	Claim        string
	SupportedBy  []string
	Contradicted bool
}

func (v ClaimVerdict) Supported() bool {
	return len(v.SupportedBy) > 0 && !v.Contradicted
}

// Verifier matches claims against excerpts. Verdicts are returned in claim order.
type Verifier interface {
	Verify(ctx context.Context, claims []string, excerpts []entity.RetrievedExcerpt) ([]ClaimVerdict, error)
}

// LexicalVerifier supports a claim with every excerpt that covers at least
// MinOverlap of the claim's content tokens. It cannot detect contradictions.
type LexicalVerifier struct {
	MinOverlap float64
}

var stopwords = map[string]bool{
	"i": true, "a": true, "an": true, "the": true, "and": true, "or": true, "of": true, "to": true,
	"in": true, "on": true, "at": true, "for": true, "with": true, "is": true, "am": true, "are": true,
	"was": true, "were": true, "be": true, "have": true, "has": true, "had": true, "my": true, "me": true,
	"as": true, "by": true, "it": true, "that": true, "this": true, "also": true,
	"我": true, "的": true, "了": true, "是": true, "在": true, "有": true, "和": true, "也": true, "與": true,
}

func contentTokens(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range utils.Tokenize(text) {
		if !stopwords[tok] {
			set[tok] = true
		}
	}
	return set
}

func (l LexicalVerifier) Verify(ctx context.Context, claims []string, excerpts []entity.RetrievedExcerpt) ([]ClaimVerdict, error) {
	excerptTokens := make([]map[string]bool, len(excerpts))
	for i, e := range excerpts {
		excerptTokens[i] = contentTokens(e.Text)
	}

	verdicts := make([]ClaimVerdict, len(claims))
	for i, claim := range claims {
		verdicts[i] = ClaimVerdict{Claim: claim}
		tokens := contentTokens(claim)
		if len(tokens) == 0 {
			continue
		}
		for j, e := range excerpts {
			hit := 0
			for tok := range tokens {
				if excerptTokens[j][tok] {
					hit++
				}
			}
			if float64(hit)/float64(len(tokens)) >= l.MinOverlap {
				verdicts[i].SupportedBy = append(verdicts[i].SupportedBy, e.SourceId)
			}
		}
	}
	return verdicts, nil
}

// LLMVerifier asks the completion service for per-claim verdicts at zero
// temperature and falls back to Fallback for anything it cannot parse.
type LLMVerifier struct {
	LLM       llm.LLMProvider
	MaxTokens int
	Fallback  Verifier
}

type verdictReply struct {
	Claim        int      `json:"claim"`
	SupportedBy  []string `json:"supported_by"`
	Contradicted bool     `json:"contradicted"`
}

func (v LLMVerifier) Verify(ctx context.Context, claims []string, excerpts []entity.RetrievedExcerpt) ([]ClaimVerdict, error) {
	raw, err := v.LLM.Generate(ctx, buildVerifyPrompt(claims, excerpts),
		llm.WithTemperature(0),
		llm.WithMaxTokens(v.MaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("verify claims: %w", err)
	}

	var replies []verdictReply
	if err := utils.ExtractJSON(raw, &replies); err != nil {
		return nil, fmt.Errorf("%w: unparseable verdicts: %v", entity.ErrEvaluationInconsistent, err)
	}

	known := make(map[string]bool, len(excerpts))
	for _, e := range excerpts {
		known[e.SourceId] = true
	}

	verdicts := make([]ClaimVerdict, len(claims))
	seen := make([]bool, len(claims))
	for _, r := range replies {
		idx := r.Claim - 1
		if idx < 0 || idx >= len(claims) || seen[idx] {
			continue
		}
		seen[idx] = true
		verdicts[idx] = ClaimVerdict{Claim: claims[idx], Contradicted: r.Contradicted}
		for _, id := range r.SupportedBy {
			if known[id] {
				verdicts[idx].SupportedBy = append(verdicts[idx].SupportedBy, id)
			}
		}
	}

	// claims the model skipped get the fallback's opinion
	var missing []string
	var missingIdx []int
	for i, ok := range seen {
		if !ok {
			missing = append(missing, claims[i])
			missingIdx = append(missingIdx, i)
		}
	}
	if len(missing) > 0 && v.Fallback != nil {
		fallback, err := v.Fallback.Verify(ctx, missing, excerpts)
		if err != nil {
			return nil, err
		}
		for k, i := range missingIdx {
			verdicts[i] = fallback[k]
		}
	} else {
		for _, i := range missingIdx {
			verdicts[i] = ClaimVerdict{Claim: claims[i]}
		}
	}
	return verdicts, nil
}

func buildVerifyPrompt(claims []string, excerpts []entity.RetrievedExcerpt) string {
	var prompt strings.Builder
	prompt.WriteString("<task>\nFor each numbered claim, list the excerpt ids that state it, and mark it contradicted if an excerpt says otherwise.\n")
	prompt.WriteString("Judge strictly: paraphrase is fine, added detail is not supported.\n</task>\n\n")

	prompt.WriteString("<excerpts>\n")
	for _, e := range excerpts {
		fmt.Fprintf(&prompt, "<excerpt id=%q>\n%s\n</excerpt>\n", e.SourceId, strings.TrimSpace(e.Text))
	}
	prompt.WriteString("</excerpts>\n\n<claims>\n")
	for i, c := range claims {
		fmt.Fprintf(&prompt, "%d. %s\n", i+1, c)
	}
	prompt.WriteString("</claims>\n\n")
	prompt.WriteString(`Reply with a JSON array only: [{"claim": 1, "supported_by": ["id"], "contradicted": false}, ...]`)
	prompt.WriteString("\n")
	return prompt.String()
}
