package evaluate

import (
	"fmt"
	"strings"

	"resume-qa-be/pkg/utils"
)

const (
	minAnswerRunes = 20
	maxAnswerRunes = 600
	rulePenalty    = 0.95
)

var speculativePhrases = []string{
	"i think", "i guess", "probably", "maybe", "i believe", "not sure",
	"我覺得", "我猜", "可能吧", "大概", "應該是吧", "不確定",
}

// ruleCheck applies cheap style checks to the answer text. It returns a
// multiplier in (0,1] and one note per failed check.
func ruleCheck(answer string) (float64, []string) {
	multiplier := 1.0
	var notes []string

	n := utils.ContentRuneCount(answer)
	switch {
	case n < minAnswerRunes:
		multiplier *= rulePenalty
		notes = append(notes, fmt.Sprintf("answer is too short (%d characters); give a complete sentence", n))
	case n > maxAnswerRunes:
		multiplier *= rulePenalty
		notes = append(notes, fmt.Sprintf("answer is too long (%d characters); keep it concise", n))
	}

	lower := strings.ToLower(answer)
	for _, p := range speculativePhrases {
		if strings.Contains(lower, p) {
			multiplier *= rulePenalty
			notes = append(notes, fmt.Sprintf("avoid speculative wording (%q); state only what the excerpts say", p))
			break
		}
	}
	return multiplier, notes
}
