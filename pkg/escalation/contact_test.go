package escalation

import (
	"testing"

	"resume-qa-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContact(t *testing.T) {
	tests := []struct {
		name string
		text string
		want entity.ContactInfo
	}{
		{
			name: "chinese name and email",
			text: "我叫張三，Email 是 zhang.san@example.com",
			want: entity.ContactInfo{Name: "張三", Email: "zhang.san@example.com"},
		},
		{
			name: "international phone is normalized",
			text: "電話 +886-912-345-678 謝謝",
			want: entity.ContactInfo{Phone: "0912345678"},
		},
		{
			name: "local phone with dashes",
			text: "call 0912-345-678",
			want: entity.ContactInfo{Phone: "0912345678"},
		},
		{
			name: "english name, line and telegram",
			text: "My name is John Smith. LINE ID: john_s88, telegram @johnsmith",
			want: entity.ContactInfo{Name: "John Smith", LineId: "john_s88", Telegram: "johnsmith"},
		},
		{
			name: "email domain is not a telegram handle",
			text: "reach me at jane@example.org",
			want: entity.ContactInfo{Email: "jane@example.org"},
		},
		{
			name: "bare handle",
			text: "ping @dev_jane please",
			want: entity.ContactInfo{Telegram: "dev_jane"},
		},
		{
			name: "online is not line",
			text: "I found your résumé online",
			want: entity.ContactInfo{},
		},
		{
			name: "nothing to find",
			text: "What are your technical skills?",
			want: entity.ContactInfo{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseContact(tt.text))
		})
	}
}

func TestContactFromQuestion_ReadsUserTurns(t *testing.T) {
	q, err := entity.NewQuestion("Do you take freelance work?", "en", []entity.Turn{
		{Role: "assistant", Content: "Contact me at owner@example.com"},
		{Role: "user", Content: "my email is visitor@example.com"},
	})
	require.NoError(t, err)

	c := ContactFromQuestion(q)
	assert.Equal(t, "visitor@example.com", c.Email)
	assert.True(t, c.HasContactMethod())
}
