package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CachedAnswerRecord is the persisted unit of the semantic answer cache.
// Only OK answers above the write threshold are ever stored.
type CachedAnswerRecord struct {
	Id                string
	QuestionText      string
	Embedding         []float32
	AnswerText        string
	Confidence        float64
	Status            Status
	SourceIds         []string
	Language          Language
	ModelId           string
	PromptVersion     string
	CorpusSnapshotId  string
	CorpusSizeAtWrite int64
	CreatedAt         time.Time
}

func (r *CachedAnswerRecord) Age(now time.Time) time.Duration {
	age := now.Sub(r.CreatedAt)
	if age < 0 {
		return 0
	}
	return age
}

// CachedAnswerId derives the record id from the question identity, so
// re-admitting the same question overwrites instead of duplicating.
func CachedAnswerId(normalizedText string, language Language, modelId, promptVersion string) string {
	h := sha256.New()
	for _, part := range []string{normalizedText, string(language), modelId, promptVersion} {
		h.Write([]byte(part))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}
