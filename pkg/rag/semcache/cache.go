// Package semcache reuses earlier answers for semantically equivalent
// questions when the conditions they were produced under still hold.
package semcache

import (
	"context"
	"fmt"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/pkg/embedding"
	"resume-qa-be/pkg/index"
	"resume-qa-be/pkg/retry"
)

const module = "SEMCACHE"

type Config struct {
	Collection         string
	TopK               int
	HitSimilarityFloor float64
	HitScoreFloor      float64
	WriteThreshold     float64
	HalfLife           time.Duration
	TTL                time.Duration
	EmbedRetry         retry.Config
	IndexRetry         retry.Config
}

// RequestContext is what a cached answer must agree with to be served.
type RequestContext struct {
	ModelId       string
	PromptVersion string
	Snapshot      index.Snapshot
}

type CacheHit struct {
	Record     *entity.CachedAnswerRecord
	Similarity float64
	Score      float64
	Age        time.Duration
}

// Cache is safe for concurrent use; all state lives in the index.
type Cache struct {
	embedder embedding.EmbeddingProvider
	index    index.SimilarityIndex
	cfg      Config
	logger   logger.ILogger
	now      func() time.Time
}

func NewCache(embedder embedding.EmbeddingProvider, idx index.SimilarityIndex, cfg Config, log logger.ILogger) *Cache {
	return &Cache{embedder: embedder, index: idx, cfg: cfg, logger: log, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) Config() Config {
	return c.cfg
}

// Embed returns the cache-space vector of the normalized question.
func (c *Cache) Embed(ctx context.Context, q entity.Question) ([]float32, error) {
	vec, err := retry.Do(ctx, c.cfg.EmbedRetry, func(ctx context.Context) ([]float32, error) {
		res, err := c.embedder.Generate(ctx, q.Normalized(), embedding.TaskRetrievalQuery)
		if err != nil {
			return nil, err
		}
		return res.Embedding.Values, nil
	}, c.onRetry("embedding"))
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %v", entity.ErrCacheUnavailable, err)
	}
	return vec, nil
}

// Lookup returns the best servable record, or nil on a miss. The question
// vector is returned alongside so admission can reuse it; it is nil when
// embedding failed. Errors wrap entity.ErrCacheUnavailable and callers treat
// them as a miss.
func (c *Cache) Lookup(ctx context.Context, q entity.Question, rc RequestContext) (*CacheHit, []float32, error) {
	vec, err := c.Embed(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	hits, err := retry.Do(ctx, c.cfg.IndexRetry, func(ctx context.Context) ([]index.Hit, error) {
		return c.index.Query(ctx, c.cfg.Collection, vec, c.cfg.TopK)
	}, c.onRetry("index query"))
	if err != nil {
		return nil, vec, fmt.Errorf("%w: query %s: %v", entity.ErrCacheUnavailable, c.cfg.Collection, err)
	}

	now := c.now()
	var best *CacheHit
	for _, h := range hits {
		rec, err := fromVectorEntry(h.Entry)
		if err != nil {
			c.logger.Warn(module, "Skipping undecodable record", map[string]interface{}{"error": err.Error()})
			continue
		}

		age := rec.Age(now)
		if age > c.cfg.TTL || rec.Status != entity.StatusOK {
			continue
		}
		consistency := Consistency(rec, q.Language, rc)
		if consistency == consistencyNone {
			continue
		}
		if h.Similarity < c.cfg.HitSimilarityFloor {
			continue
		}

		score := CombinedScore(h.Similarity, rec.Confidence, age, c.cfg.HalfLife, consistency)
		if best == nil || score > best.Score {
			best = &CacheHit{Record: rec, Similarity: h.Similarity, Score: score, Age: age}
		}
	}

	if best == nil || best.Score < c.cfg.HitScoreFloor {
		fields := map[string]interface{}{"candidates": len(hits)}
		if best != nil {
			fields["best_score"] = best.Score
		}
		c.logger.Debug(module, "Cache miss", fields)
		return nil, vec, nil
	}

	c.logger.Info(module, "Cache hit", map[string]interface{}{
		"id": best.Record.Id, "similarity": best.Similarity, "score": best.Score, "age": best.Age.String(),
	})
	return best, vec, nil
}

// Admissible reports whether answer may be written at all.
func (c *Cache) Admissible(answer entity.EvaluatedAnswer) bool {
	return answer.Status == entity.StatusOK && answer.Confidence >= c.cfg.WriteThreshold
}

// Admit writes answer under the question's deterministic id. It is a no-op
// returning false for answers below the write bar. A nil vector is embedded here.
func (c *Cache) Admit(ctx context.Context, q entity.Question, answer entity.EvaluatedAnswer, rc RequestContext, vector []float32) (bool, error) {
	if !c.Admissible(answer) {
		return false, nil
	}

	if vector == nil {
		var err error
		if vector, err = c.Embed(ctx, q); err != nil {
			return false, err
		}
	}

	rec := &entity.CachedAnswerRecord{
		Id:                entity.CachedAnswerId(q.Normalized(), q.Language, rc.ModelId, rc.PromptVersion),
		QuestionText:      q.Text,
		Embedding:         vector,
		AnswerText:        answer.FinalText,
		Confidence:        answer.Confidence,
		Status:            answer.Status,
		SourceIds:         answer.SourceIds,
		Language:          q.Language,
		ModelId:           rc.ModelId,
		PromptVersion:     rc.PromptVersion,
		CorpusSnapshotId:  rc.Snapshot.Id,
		CorpusSizeAtWrite: rc.Snapshot.Size,
		CreatedAt:         c.now().UTC(),
	}

	_, err := retry.Do(ctx, c.cfg.IndexRetry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.index.Upsert(ctx, toVectorEntry(c.cfg.Collection, rec))
	}, c.onRetry("upsert"))
	if err != nil {
		return false, fmt.Errorf("%w: upsert %s: %v", entity.ErrCacheUnavailable, rec.Id, err)
	}

	c.logger.Info(module, "Answer admitted", map[string]interface{}{
		"id": rec.Id, "confidence": rec.Confidence, "snapshot": rec.CorpusSnapshotId,
	})
	return true, nil
}

// Purge deletes records past TTL or written against a snapshot other than current.
func (c *Cache) Purge(ctx context.Context, current index.Snapshot) (int64, error) {
	removed, err := c.index.Prune(ctx, c.cfg.Collection, index.PruneFilter{
		CreatedBefore: c.now().Add(-c.cfg.TTL),
		MetadataKey:   metaSnapshotId,
		MetadataValue: current.Id,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: prune %s: %v", entity.ErrCacheUnavailable, c.cfg.Collection, err)
	}
	if removed > 0 {
		c.logger.Info(module, "Purged cached answers", map[string]interface{}{"removed": removed, "snapshot": current.Id})
	}
	return removed, nil
}

// Size is the number of stored records.
func (c *Cache) Size(ctx context.Context) (int64, error) {
	return c.index.Count(ctx, c.cfg.Collection)
}

func (c *Cache) onRetry(stage string) func(error, int) {
	return func(err error, attempt int) {
		c.logger.Warn(module, "Retrying "+stage, map[string]interface{}{"attempt": attempt, "error": err.Error()})
	}
}
