package semcache

import (
	"math"
	"time"

	"resume-qa-be/internal/entity"
)

const (
	consistencyFull    = 1.0
	consistencyPartial = 0.7
	consistencyNone    = 0.0
)

// RecencyWeight decays as exp(-age/halfLife), so it is 1/e at halfLife.
// A non-positive halfLife disables decay.
func RecencyWeight(age, halfLife time.Duration) float64 {
	if halfLife <= 0 || age <= 0 {
		return 1
	}
	return math.Exp(-age.Hours() / halfLife.Hours())
}

// Consistency compares the conditions a record was written under with the
// current request. A different corpus snapshot or language rejects the record
// outright; a different model or prompt version only discounts it.
func Consistency(rec *entity.CachedAnswerRecord, lang entity.Language, rc RequestContext) float64 {
	if rec.CorpusSnapshotId != rc.Snapshot.Id || rec.Language != lang {
		return consistencyNone
	}
	if rec.ModelId != rc.ModelId || rec.PromptVersion != rc.PromptVersion {
		return consistencyPartial
	}
	return consistencyFull
}

// CombinedScore = similarity × confidence × recency × consistency.
func CombinedScore(similarity, confidence float64, age, halfLife time.Duration, consistency float64) float64 {
	return similarity * confidence * RecencyWeight(age, halfLife) * consistency
}
