package escalation

import (
	"regexp"
	"strings"

	"resume-qa-be/internal/entity"
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	// Taiwanese mobile numbers: 09xx-xxx-xxx, optionally +886 instead of the leading 0
	phonePattern = regexp.MustCompile(`(?:\+886-?|0)9\d{2}[- ]?\d{3}[- ]?\d{3}`)
	linePattern  = regexp.MustCompile(`(?i)\bline\s*(?:id)?\s*[:：]?\s*(?:is\s+|是\s*)?([a-zA-Z0-9._-]{2,20})`)

	telegramPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:telegram|tg)\s*[:：]?\s*(?:is\s+|是\s*)?@?([a-zA-Z0-9_]{3,32})`),
		regexp.MustCompile(`(?:^|\s)@([a-zA-Z0-9_]{3,32})\b`),
	}

	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:我叫|我的名字是|可以叫我)\s*(\p{Han}{1,6}|[A-Za-z]+(?: [A-Z][a-z]+)?)`),
		regexp.MustCompile(`(?:姓名|名字|稱呼)\s*[:：]?\s*(\p{Han}{1,6}|[A-Za-z]+(?: [A-Z][a-z]+)?)`),
		regexp.MustCompile(`(?:[Mm]y name is|[Cc]all me|I'm|I am)\s+([A-Z][a-zA-Z]+(?: [A-Z][a-zA-Z]+)?)`),
		regexp.MustCompile(`(?i)\bname\s*[:：]\s*([A-Za-z]+(?: [A-Za-z]+)?)`),
	}
)

const maxNameRunes = 30

// ParseContact extracts whatever contact details a visitor volunteered in
// free text. Fields that fail validation are left empty.
func ParseContact(text string) entity.ContactInfo {
	var c entity.ContactInfo

	for _, p := range namePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			name := strings.TrimSpace(m[1])
			if n := len([]rune(name)); n >= 1 && n <= maxNameRunes {
				c.Name = name
				break
			}
		}
	}

	c.Email = emailPattern.FindString(text)

	if m := phonePattern.FindString(text); m != "" {
		c.Phone = normalizePhone(m)
	}

	if m := linePattern.FindStringSubmatch(text); m != nil {
		candidate := m[1]
		if !emailPattern.MatchString(candidate) && !phonePattern.MatchString(candidate) && !strings.EqualFold(candidate, "id") {
			c.LineId = candidate
		}
	}

	// skip the domain part of an email address
	withoutEmails := emailPattern.ReplaceAllString(text, " ")
	for _, p := range telegramPatterns {
		if m := p.FindStringSubmatch(withoutEmails); m != nil {
			c.Telegram = m[1]
			break
		}
	}

	return c
}

// normalizePhone turns +886-912-345-678 into 0912345678.
func normalizePhone(raw string) string {
	phone := strings.NewReplacer("-", "", " ", "").Replace(raw)
	if strings.HasPrefix(phone, "+886") {
		phone = "0" + phone[4:]
	}
	return phone
}

// ContactFromQuestion scans the question and the visitor's earlier turns.
func ContactFromQuestion(q entity.Question) entity.ContactInfo {
	var b strings.Builder
	b.WriteString(q.Text)
	for _, turn := range q.Context {
		if turn.Role == "user" {
			b.WriteString("\n")
			b.WriteString(turn.Content)
		}
	}
	return ParseContact(b.String())
}
