package entity

import (
	"fmt"
	"strings"
	"unicode"
)

type Language string

const (
	LanguageZhTW Language = "zh-TW"
	LanguageEn   Language = "en"
)

func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LanguageZhTW, LanguageEn:
		return Language(s), nil
	case "":
		return LanguageZhTW, nil
	default:
		return "", fmt.Errorf("%w: unsupported language %q", ErrInvalidQuestion, s)
	}
}

// Turn is one prior exchange in the visitor's conversation.
type Turn struct {
	Role    string
	Content string
}

// Question is built once per request and passed by value through the pipeline.
type Question struct {
	Text     string
	Language Language
	Context  []Turn
}

func NewQuestion(text string, language string, context []Turn) (Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Question{}, fmt.Errorf("%w: empty text", ErrInvalidQuestion)
	}
	lang, err := ParseLanguage(language)
	if err != nil {
		return Question{}, err
	}
	turns := make([]Turn, len(context))
	copy(turns, context)
	return Question{Text: text, Language: lang, Context: turns}, nil
}

func (q Question) Normalized() string {
	return NormalizeQuestion(q.Text)
}

// DedupKey identifies byte-identical (after normalization) questions in the same language.
func (q Question) DedupKey() string {
	return string(q.Language) + "|" + q.Normalized()
}

const trailingPunctuation = "?？!！。.,，;；"

// NormalizeQuestion lower-cases, collapses whitespace and drops trailing punctuation.
func NormalizeQuestion(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
	return strings.TrimRight(text, trailingPunctuation+" ")
}
