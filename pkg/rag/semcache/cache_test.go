package semcache

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/pkg/logger"
	"resume-qa-be/internal/repository/memory"
	"resume-qa-be/pkg/index"
	"resume-qa-be/pkg/rag/ragtest"
	"resume-qa-be/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const collection = "cached_answers"

var (
	now      = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	snapshot = index.Snapshot{Id: "resume_data:42", Size: 42}
	rc       = RequestContext{ModelId: "qwen2.5:7b", PromptVersion: "resolve-v1", Snapshot: snapshot}
)

func defaultConfig() Config {
	return Config{
		Collection:         collection,
		TopK:               3,
		HitSimilarityFloor: 0.85,
		HitScoreFloor:      0.75,
		WriteThreshold:     0.90,
		HalfLife:           168 * time.Hour,
		TTL:                168 * time.Hour,
		EmbedRetry:         retry.Config{MaxRetries: 2},
		IndexRetry:         retry.Config{MaxRetries: 2},
	}
}

type fixture struct {
	cache    *Cache
	index    *ragtest.Index
	embedder *ragtest.Embedder
}

func newFixture(cfg Config) *fixture {
	idx := ragtest.WrapIndex(memory.NewVectorIndex())
	emb := ragtest.NewEmbedder()
	c := NewCache(emb, idx, cfg, logger.NewNopLogger()).WithClock(func() time.Time { return now })
	return &fixture{cache: c, index: idx, embedder: emb}
}

func question(t *testing.T, text string) entity.Question {
	q, err := entity.NewQuestion(text, "en", nil)
	require.NoError(t, err)
	return q
}

// ask makes the question's vector sit at cosine sim from the (1,0) axis every seeded record uses.
func (f *fixture) ask(t *testing.T, text string, sim float64) entity.Question {
	q := question(t, text)
	f.embedder.Set(q.Normalized(), ragtest.UnitAt(sim)...)
	return q
}

func (f *fixture) seed(t *testing.T, rec entity.CachedAnswerRecord) {
	if rec.Id == "" {
		rec.Id = "rec-" + rec.CreatedAt.Format(time.RFC3339Nano)
	}
	if rec.Status == "" {
		rec.Status = entity.StatusOK
	}
	if rec.Language == "" {
		rec.Language = entity.LanguageEn
	}
	if rec.ModelId == "" {
		rec.ModelId = rc.ModelId
	}
	if rec.PromptVersion == "" {
		rec.PromptVersion = rc.PromptVersion
	}
	if rec.CorpusSnapshotId == "" {
		rec.CorpusSnapshotId = snapshot.Id
	}
	rec.Embedding = []float32{1, 0}
	require.NoError(t, f.index.SimilarityIndex.Upsert(context.Background(), toVectorEntry(collection, &rec)))
}

func TestLookup_FreshMatchingRecordHits(t *testing.T) {
	f := newFixture(defaultConfig())
	f.seed(t, entity.CachedAnswerRecord{AnswerText: "Go and PostgreSQL.", Confidence: 0.92, CreatedAt: now.Add(-time.Hour)})

	hit, vec, err := f.cache.Lookup(context.Background(), f.ask(t, "What are your technical skills?", 0.95), rc)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.NotNil(t, vec)
	assert.InDelta(t, 0.95*0.92*0.99406, hit.Score, 1e-3)
	assert.Equal(t, time.Hour, hit.Age)
	assert.Equal(t, "Go and PostgreSQL.", hit.Record.AnswerText)
}

func TestLookup_SimilarityGate(t *testing.T) {
	tests := []struct {
		name       string
		similarity float64
		wantHit    bool
	}{
		{"below floor", 0.849, false},
		{"just above floor", 0.851, true},
		{"well above", 0.99, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(defaultConfig())
			// perfect confidence and zero age cannot compensate for a weak match
			f.seed(t, entity.CachedAnswerRecord{AnswerText: "a", Confidence: 1, CreatedAt: now})

			hit, _, err := f.cache.Lookup(context.Background(), f.ask(t, "Where did you study?", tt.similarity), rc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHit, hit != nil)
		})
	}
}

func TestLookup_CorpusSnapshotMismatchNeverHits(t *testing.T) {
	f := newFixture(defaultConfig())
	f.seed(t, entity.CachedAnswerRecord{
		AnswerText: "Go and PostgreSQL.", Confidence: 1, CreatedAt: now, CorpusSnapshotId: "resume_data:41",
	})

	hit, _, err := f.cache.Lookup(context.Background(), f.ask(t, "What are your technical skills?", 1.0), rc)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestLookup_LanguageMismatchNeverHits(t *testing.T) {
	f := newFixture(defaultConfig())
	f.seed(t, entity.CachedAnswerRecord{AnswerText: "Go 與 PostgreSQL。", Confidence: 1, CreatedAt: now, Language: entity.LanguageZhTW})

	hit, _, err := f.cache.Lookup(context.Background(), f.ask(t, "What are your technical skills?", 1.0), rc)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestLookup_ModelChangeDiscounts(t *testing.T) {
	f := newFixture(defaultConfig())
	f.seed(t, entity.CachedAnswerRecord{AnswerText: "a", Confidence: 1, CreatedAt: now, ModelId: "llama3:8b"})

	hit, _, err := f.cache.Lookup(context.Background(), f.ask(t, "What are your technical skills?", 1.0), rc)
	require.NoError(t, err)
	assert.Nil(t, hit, "0.7 consistency drops a perfect record below the score floor")

	cfg := defaultConfig()
	cfg.HitScoreFloor = 0.6
	f = newFixture(cfg)
	f.seed(t, entity.CachedAnswerRecord{AnswerText: "a", Confidence: 1, CreatedAt: now, PromptVersion: "resolve-v0"})
	hit, _, err = f.cache.Lookup(context.Background(), f.ask(t, "What are your technical skills?", 1.0), rc)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.InDelta(t, 0.7, hit.Score, 1e-9)
}

func TestLookup_TTLExpiry(t *testing.T) {
	cfg := defaultConfig()
	cfg.HalfLife = 0 // isolate TTL from decay

	f := newFixture(cfg)
	f.seed(t, entity.CachedAnswerRecord{AnswerText: "old", Confidence: 1, CreatedAt: now.Add(-cfg.TTL - time.Minute)})
	hit, _, err := f.cache.Lookup(context.Background(), f.ask(t, "What are your technical skills?", 1.0), rc)
	require.NoError(t, err)
	assert.Nil(t, hit)

	f = newFixture(cfg)
	f.seed(t, entity.CachedAnswerRecord{AnswerText: "recent", Confidence: 1, CreatedAt: now.Add(-cfg.TTL + time.Minute)})
	hit, _, err = f.cache.Lookup(context.Background(), f.ask(t, "What are your technical skills?", 1.0), rc)
	require.NoError(t, err)
	assert.NotNil(t, hit)
}

func TestLookup_NonOKRecordsIgnored(t *testing.T) {
	f := newFixture(defaultConfig())
	f.seed(t, entity.CachedAnswerRecord{AnswerText: "a", Confidence: 1, CreatedAt: now, Status: entity.StatusNeedsEdit})

	hit, _, err := f.cache.Lookup(context.Background(), f.ask(t, "What are your technical skills?", 1.0), rc)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestLookup_PrefersYoungerOfIdenticalRecords(t *testing.T) {
	f := newFixture(defaultConfig())
	f.seed(t, entity.CachedAnswerRecord{Id: "old", AnswerText: "old", Confidence: 0.95, CreatedAt: now.Add(-48 * time.Hour)})
	f.seed(t, entity.CachedAnswerRecord{Id: "new", AnswerText: "new", Confidence: 0.95, CreatedAt: now.Add(-2 * time.Hour)})

	hit, _, err := f.cache.Lookup(context.Background(), f.ask(t, "What are your technical skills?", 0.97), rc)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "new", hit.Record.Id)
}

func TestCombinedScore_RecencyMonotonic(t *testing.T) {
	halfLife := 168 * time.Hour
	prev := CombinedScore(0.9, 0.95, 0, halfLife, 1)
	for h := 1; h <= 400; h += 7 {
		score := CombinedScore(0.9, 0.95, time.Duration(h)*time.Hour, halfLife, 1)
		assert.LessOrEqual(t, score, prev, "age %dh", h)
		prev = score
	}
}

func TestConsistency(t *testing.T) {
	base := entity.CachedAnswerRecord{
		Language: entity.LanguageEn, ModelId: rc.ModelId, PromptVersion: rc.PromptVersion, CorpusSnapshotId: snapshot.Id,
	}
	tests := []struct {
		name   string
		mutate func(r *entity.CachedAnswerRecord)
		want   float64
	}{
		{"all match", func(r *entity.CachedAnswerRecord) {}, 1.0},
		{"model differs", func(r *entity.CachedAnswerRecord) { r.ModelId = "other" }, 0.7},
		{"prompt differs", func(r *entity.CachedAnswerRecord) { r.PromptVersion = "other" }, 0.7},
		{"snapshot differs", func(r *entity.CachedAnswerRecord) { r.CorpusSnapshotId = "resume_data:1" }, 0},
		{"snapshot and model differ", func(r *entity.CachedAnswerRecord) { r.CorpusSnapshotId = "x"; r.ModelId = "y" }, 0},
		{"language differs", func(r *entity.CachedAnswerRecord) { r.Language = entity.LanguageZhTW }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base
			tt.mutate(&rec)
			assert.Equal(t, tt.want, Consistency(&rec, entity.LanguageEn, rc))
		})
	}
}

func TestLookup_IndexFailureIsCacheUnavailable(t *testing.T) {
	f := newFixture(defaultConfig())
	f.index.FailQueries = -1

	hit, _, err := f.cache.Lookup(context.Background(), f.ask(t, "What are your technical skills?", 1.0), rc)
	assert.Nil(t, hit)
	assert.True(t, errors.Is(err, entity.ErrCacheUnavailable))
	assert.Equal(t, 3, f.index.Queries, "one attempt plus two retries")
}

func TestLookup_TransientIndexFailureRecovers(t *testing.T) {
	f := newFixture(defaultConfig())
	f.seed(t, entity.CachedAnswerRecord{AnswerText: "a", Confidence: 1, CreatedAt: now})
	f.index.FailQueries = 1

	hit, _, err := f.cache.Lookup(context.Background(), f.ask(t, "What are your technical skills?", 1.0), rc)
	require.NoError(t, err)
	assert.NotNil(t, hit)
	assert.Equal(t, 2, f.index.Queries)
}

func TestAdmit_Idempotent(t *testing.T) {
	f := newFixture(defaultConfig())
	q := f.ask(t, "What are your technical skills?", 1.0)
	answer, err := entity.NewEvaluatedAnswer("Go and PostgreSQL.", 0.95, entity.StatusOK, []string{"skills-1"}, entity.ActionNone)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ok, err := f.cache.Admit(context.Background(), q, answer, rc, nil)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	// same question, different surface form
	ok, err := f.cache.Admit(context.Background(), question(t, "  what are your TECHNICAL skills "), answer, rc, []float32{1, 0})
	require.NoError(t, err)
	assert.True(t, ok)

	size, err := f.cache.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	hit, _, err := f.cache.Lookup(context.Background(), q, rc)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, entity.CachedAnswerId(q.Normalized(), q.Language, rc.ModelId, rc.PromptVersion), hit.Record.Id)
	assert.Equal(t, []string{"skills-1"}, hit.Record.SourceIds)
	assert.Equal(t, snapshot.Size, hit.Record.CorpusSizeAtWrite)
}

func TestAdmit_WriteThreshold(t *testing.T) {
	tests := []struct {
		name       string
		status     entity.Status
		confidence float64
		want       bool
	}{
		{"ok at threshold", entity.StatusOK, 0.90, true},
		{"ok above", entity.StatusOK, 0.99, true},
		{"ok below", entity.StatusOK, 0.8999, false},
		{"needs edit high confidence", entity.StatusNeedsEdit, 0.99, false},
		{"escalate", entity.StatusEscalate, 0.2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(defaultConfig())
			answer, err := entity.NewEvaluatedAnswer("text", tt.confidence, tt.status, nil, entity.ActionNone)
			require.NoError(t, err)

			ok, err := f.cache.Admit(context.Background(), question(t, "Where do you live?"), answer, rc, []float32{1, 0})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)

			wantUpserts := 0
			if tt.want {
				wantUpserts = 1
			}
			assert.Equal(t, wantUpserts, f.index.Upserts)
		})
	}
}

func TestAdmit_UpsertFailureIsCacheUnavailable(t *testing.T) {
	f := newFixture(defaultConfig())
	f.index.FailUpserts = true
	answer, _ := entity.NewEvaluatedAnswer("text", 0.95, entity.StatusOK, nil, entity.ActionNone)

	ok, err := f.cache.Admit(context.Background(), question(t, "Where do you live?"), answer, rc, []float32{1, 0})
	assert.False(t, ok)
	assert.True(t, errors.Is(err, entity.ErrCacheUnavailable))
}

func TestPurge_RemovesExpiredAndStaleSnapshot(t *testing.T) {
	f := newFixture(defaultConfig())
	f.seed(t, entity.CachedAnswerRecord{Id: "fresh", Confidence: 1, CreatedAt: now.Add(-time.Hour)})
	f.seed(t, entity.CachedAnswerRecord{Id: "expired", Confidence: 1, CreatedAt: now.Add(-200 * time.Hour)})
	f.seed(t, entity.CachedAnswerRecord{Id: "stale", Confidence: 1, CreatedAt: now, CorpusSnapshotId: "resume_data:41"})

	removed, err := f.cache.Purge(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	size, _ := f.cache.Size(context.Background())
	assert.Equal(t, int64(1), size)
}

func TestJanitor_SweepUsesCurrentSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(defaultConfig())
	for _, id := range []string{"p1", "p2"} {
		require.NoError(t, f.index.Upsert(ctx, &entity.VectorEntry{Id: id, Collection: "resume_data", EmbeddingValue: []float32{1, 0}}))
	}
	snapshots := index.NewSnapshotProvider(f.index, "resume_data", time.Minute, retry.Config{})
	current, err := snapshots.Current(ctx)
	require.NoError(t, err)

	f.seed(t, entity.CachedAnswerRecord{Id: "current", Confidence: 1, CreatedAt: now, CorpusSnapshotId: current.Id})
	f.seed(t, entity.CachedAnswerRecord{Id: "before-edit", Confidence: 1, CreatedAt: now, CorpusSnapshotId: "resume_data:1:0"})

	j := NewJanitor(f.cache, snapshots, time.Hour, logger.NewNopLogger())
	assert.Equal(t, int64(1), j.Sweep(ctx))

	// the memoized snapshot hides the new document until Refresh
	require.NoError(t, f.index.Upsert(ctx, &entity.VectorEntry{Id: "p3", Collection: "resume_data", EmbeddingValue: []float32{0, 1}}))
	assert.Equal(t, int64(0), j.Sweep(ctx))
	assert.Equal(t, int64(1), j.Refresh(ctx))
}

func TestJanitor_RefreshPurgesAfterInPlaceEdit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(defaultConfig())
	passage := &entity.VectorEntry{Id: "p1", Collection: "resume_data", Document: "Go since 2018", EmbeddingValue: []float32{1, 0}, CreatedAt: now}
	require.NoError(t, f.index.Upsert(ctx, passage))

	snapshots := index.NewSnapshotProvider(f.index, "resume_data", time.Minute, retry.Config{})
	before, err := snapshots.Current(ctx)
	require.NoError(t, err)
	f.seed(t, entity.CachedAnswerRecord{Id: "answer", Confidence: 1, CreatedAt: now, CorpusSnapshotId: before.Id})

	passage.Document = "Go since 2016"
	require.NoError(t, f.index.Upsert(ctx, passage))

	j := NewJanitor(f.cache, snapshots, time.Hour, logger.NewNopLogger())
	assert.Equal(t, int64(1), j.Refresh(ctx))

	after, err := snapshots.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Size, after.Size)
	assert.NotEqual(t, before.Id, after.Id)

	q := f.ask(t, "Since when has the candidate used Go?", 0.99)
	hit, _, err := f.cache.Lookup(ctx, q, RequestContext{ModelId: rc.ModelId, PromptVersion: rc.PromptVersion, Snapshot: after})
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestFromVectorEntry_JSONDecodedMetadata(t *testing.T) {
	rec := &entity.CachedAnswerRecord{
		Id: "id", QuestionText: "q", AnswerText: "a", Confidence: 0.93, Status: entity.StatusOK,
		SourceIds: []string{"s1", "s2"}, Language: entity.LanguageZhTW, ModelId: "m", PromptVersion: "p",
		CorpusSnapshotId: "resume_data:7", CorpusSizeAtWrite: 7, CreatedAt: now,
	}
	entry := toVectorEntry(collection, rec)

	// jsonb hands metadata back as float64 and []interface{}
	raw, err := json.Marshal(entry.Metadata)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	entry.Metadata = decoded

	got, err := fromVectorEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, rec.SourceIds, got.SourceIds)
	assert.Equal(t, int64(7), got.CorpusSizeAtWrite)
	assert.Equal(t, entity.LanguageZhTW, got.Language)
	assert.Equal(t, 0.93, got.Confidence)

	entry.Metadata[metaStatus] = "MAYBE"
	_, err = fromVectorEntry(entry)
	assert.Error(t, err)
}

func TestRecencyWeight_IsInverseEAtHalfLife(t *testing.T) {
	halfLife := 168 * time.Hour
	assert.Equal(t, 1.0, RecencyWeight(0, halfLife))
	assert.InDelta(t, 1/math.E, RecencyWeight(halfLife, halfLife), 1e-9)
	assert.InDelta(t, math.Exp(-2), RecencyWeight(2*halfLife, halfLife), 1e-9)
	assert.Equal(t, 1.0, RecencyWeight(time.Hour, 0))
}
