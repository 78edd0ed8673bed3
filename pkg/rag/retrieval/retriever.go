package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/pkg/embedding"
	"resume-qa-be/pkg/index"
	"resume-qa-be/pkg/retry"
)

const module = "RETRIEVER"

type Config struct {
	Collection      string
	SimilarityFloor float64 // loose; relevance is the drafter's call
	Retry           retry.Config
}

// Retriever finds corpus passages for a question.
type Retriever struct {
	embedder embedding.EmbeddingProvider
	index    index.SimilarityIndex
	cfg      Config
	logger   logger.ILogger
}

func NewRetriever(embedder embedding.EmbeddingProvider, idx index.SimilarityIndex, cfg Config, log logger.ILogger) *Retriever {
	return &Retriever{embedder: embedder, index: idx, cfg: cfg, logger: log}
}

// Search returns up to topK excerpts ordered by similarity, highest first.
// Empty input yields an empty result. Persistent index or embedding failure
// yields an error wrapping entity.ErrRetrievalUnavailable.
func (r *Retriever) Search(ctx context.Context, text string, topK int) ([]entity.RetrievedExcerpt, error) {
	if strings.TrimSpace(text) == "" {
		r.logger.Warn(module, "Empty query, skipping retrieval", nil)
		return []entity.RetrievedExcerpt{}, nil
	}

	onRetry := func(stage string) func(error, int) {
		return func(err error, attempt int) {
			r.logger.Warn(module, "Retrying "+stage, map[string]interface{}{"attempt": attempt, "error": err.Error()})
		}
	}

	vector, err := retry.Do(ctx, r.cfg.Retry, func(ctx context.Context) ([]float32, error) {
		res, err := r.embedder.Generate(ctx, text, embedding.TaskRetrievalQuery)
		if err != nil {
			return nil, err
		}
		return res.Embedding.Values, nil
	}, onRetry("embedding"))
	if err != nil {
		r.logger.Error(module, "Embedding failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: embed query: %v", entity.ErrRetrievalUnavailable, err)
	}

	hits, err := retry.Do(ctx, r.cfg.Retry, func(ctx context.Context) ([]index.Hit, error) {
		return r.index.Query(ctx, r.cfg.Collection, vector, topK)
	}, onRetry("index query"))
	if err != nil {
		r.logger.Error(module, "Index query failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: query %s: %v", entity.ErrRetrievalUnavailable, r.cfg.Collection, err)
	}

	excerpts := make([]entity.RetrievedExcerpt, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < r.cfg.SimilarityFloor {
			continue
		}
		excerpts = append(excerpts, entity.RetrievedExcerpt{
			SourceId:   h.Entry.Id,
			Similarity: h.Similarity,
			Text:       h.Entry.Document,
			Metadata:   h.Entry.Metadata,
		})
	}
	sort.SliceStable(excerpts, func(i, j int) bool {
		return excerpts[i].Similarity > excerpts[j].Similarity
	})

	r.logger.Debug(module, "Retrieved excerpts", map[string]interface{}{"raw": len(hits), "kept": len(excerpts)})
	return excerpts, nil
}
