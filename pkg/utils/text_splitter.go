package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var bulletPrefix = regexp.MustCompile(`^(?:[-*•·]|\d+[.)])\s+`)

// SplitSentences breaks text at sentence-ending punctuation (ASCII and CJK)
// and newlines. Bullet markers are stripped and empty pieces dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		s = strings.TrimSpace(bulletPrefix.ReplaceAllString(s, ""))
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		switch r {
		case '\n', '。', '！', '？', '；':
			if r != '\n' {
				current.WriteRune(r)
			}
			flush()
		case '.', '!', '?', ';':
			current.WriteRune(r)
			// "3.5 years" and "node.js" are not sentence ends
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return sentences
}

// Tokenize lower-cases text into comparable units: latin words and digits as
// whole tokens, Han characters one per token.
func Tokenize(text string) []string {
	var tokens []string
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#':
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// ContentRuneCount counts letters and digits, ignoring spaces and punctuation.
func ContentRuneCount(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
