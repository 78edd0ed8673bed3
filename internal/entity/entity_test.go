package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuestion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims and lowers", "  What are your Technical Skills?  ", "what are your technical skills"},
		{"collapses whitespace", "what   are\tyour\nskills", "what are your skills"},
		{"strips cjk punctuation", "你會什麼程式語言？", "你會什麼程式語言"},
		{"keeps inner punctuation", "node.js or go?", "node.js or go"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQuestion(tt.in))
		})
	}
}

func TestNewQuestionValidates(t *testing.T) {
	_, err := NewQuestion("  ", "en", nil)
	assert.True(t, errors.Is(err, ErrInvalidQuestion))

	_, err = NewQuestion("hello", "fr", nil)
	assert.True(t, errors.Is(err, ErrInvalidQuestion))

	q, err := NewQuestion(" What are your skills? ", "", nil)
	require.NoError(t, err)
	assert.Equal(t, LanguageZhTW, q.Language)
	assert.Equal(t, "zh-TW|what are your skills", q.DedupKey())
}

func TestNewQuestionCopiesContext(t *testing.T) {
	turns := []Turn{{Role: "user", Content: "hi"}}
	q, err := NewQuestion("skills?", "en", turns)
	require.NoError(t, err)

	turns[0].Content = "changed"
	assert.Equal(t, "hi", q.Context[0].Content)
}

func TestNewEvaluatedAnswer(t *testing.T) {
	a, err := NewEvaluatedAnswer("text", 1.4, StatusOK, []string{"a"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, a.Confidence)
	assert.Equal(t, ActionNone, a.Action)

	_, err = NewEvaluatedAnswer("text", 0.5, Status("maybe"), nil, "")
	assert.Error(t, err)
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("ASK_CLARIFY")
	require.NoError(t, err)
	assert.Equal(t, DecisionAskClarify, d)

	_, err = ParseDecision("answerable")
	assert.Error(t, err)
}

func TestCachedAnswerIdIsDeterministic(t *testing.T) {
	a := CachedAnswerId("what are your skills", LanguageEn, "qwen2.5:7b", "resolve-v1")
	b := CachedAnswerId("what are your skills", LanguageEn, "qwen2.5:7b", "resolve-v1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, CachedAnswerId("what are your skills", LanguageZhTW, "qwen2.5:7b", "resolve-v1"))
	assert.NotEqual(t, a, CachedAnswerId("what are your skills", LanguageEn, "qwen2.5:7b", "resolve-v2"))
	// field boundaries matter
	assert.NotEqual(t,
		CachedAnswerId("ab", LanguageEn, "c", "d"),
		CachedAnswerId("a", LanguageEn, "bc", "d"))
}
