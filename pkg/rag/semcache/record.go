package semcache

import (
	"fmt"
	"time"

	"resume-qa-be/internal/entity"
)

// metadata keys of a cached answer row
const (
	metaAnswer        = "answer_text"
	metaConfidence    = "confidence"
	metaStatus        = "status"
	metaSourceIds     = "source_ids"
	metaLanguage      = "language"
	metaModelId       = "model_id"
	metaPromptVersion = "prompt_version"
	metaSnapshotId    = "corpus_snapshot_id"
	metaCorpusSize    = "corpus_size_at_write"
)

func toVectorEntry(collection string, rec *entity.CachedAnswerRecord) *entity.VectorEntry {
	sourceIds := make([]interface{}, len(rec.SourceIds))
	for i, id := range rec.SourceIds {
		sourceIds[i] = id
	}

	return &entity.VectorEntry{
		Id:             rec.Id,
		Collection:     collection,
		Document:       rec.QuestionText,
		EmbeddingValue: rec.Embedding,
		Metadata: map[string]interface{}{
			metaAnswer:        rec.AnswerText,
			metaConfidence:    rec.Confidence,
			metaStatus:        string(rec.Status),
			metaSourceIds:     sourceIds,
			metaLanguage:      string(rec.Language),
			metaModelId:       rec.ModelId,
			metaPromptVersion: rec.PromptVersion,
			metaSnapshotId:    rec.CorpusSnapshotId,
			metaCorpusSize:    rec.CorpusSizeAtWrite,
		},
		CreatedAt: rec.CreatedAt,
	}
}

// fromVectorEntry accepts metadata straight from memory or decoded from JSON,
// where numbers arrive as float64 and lists as []interface{}.
func fromVectorEntry(e *entity.VectorEntry) (*entity.CachedAnswerRecord, error) {
	m := e.Metadata
	status, err := entity.ParseStatus(str(m[metaStatus]))
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", e.Id, err)
	}
	lang, err := entity.ParseLanguage(str(m[metaLanguage]))
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", e.Id, err)
	}
	confidence, ok := num(m[metaConfidence])
	if !ok {
		return nil, fmt.Errorf("record %s: missing confidence", e.Id)
	}
	size, _ := num(m[metaCorpusSize])

	return &entity.CachedAnswerRecord{
		Id:                e.Id,
		QuestionText:      e.Document,
		Embedding:         e.EmbeddingValue,
		AnswerText:        str(m[metaAnswer]),
		Confidence:        confidence,
		Status:            status,
		SourceIds:         strs(m[metaSourceIds]),
		Language:          lang,
		ModelId:           str(m[metaModelId]),
		PromptVersion:     str(m[metaPromptVersion]),
		CorpusSnapshotId:  str(m[metaSnapshotId]),
		CorpusSizeAtWrite: int64(size),
		CreatedAt:         e.CreatedAt.In(time.UTC),
	}, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func num(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func strs(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, x := range list {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
