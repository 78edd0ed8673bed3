package draft

import (
	"fmt"
	"strings"

	"resume-qa-be/internal/entity"
)

// PromptBuilder assembles the drafting prompt. Excerpts are the only material
// the model may use; ids are echoed back so the evaluator can check citations.
type PromptBuilder struct {
	question entity.Question
	excerpts []entity.RetrievedExcerpt
	feedback string
}

func NewPromptBuilder(q entity.Question, excerpts []entity.RetrievedExcerpt, feedback string) *PromptBuilder {
	return &PromptBuilder{question: q, excerpts: excerpts, feedback: feedback}
}

func (b *PromptBuilder) Build() string {
	var prompt strings.Builder

	b.writeTask(&prompt)
	b.writeExcerpts(&prompt)
	b.writeConversation(&prompt)
	b.writeFeedback(&prompt)
	b.writeOutputFormat(&prompt)
	b.writeQuestion(&prompt)

	return prompt.String()
}

func (b *PromptBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString("You answer questions about the résumé owner, speaking as the owner in first person.\n")
	prompt.WriteString("Use only the excerpts below. Do not add facts that are not in them.\n")
	if b.question.Language == entity.LanguageZhTW {
		prompt.WriteString("Answer in Traditional Chinese (zh-TW).\n")
	} else {
		prompt.WriteString("Answer in English.\n")
	}
	prompt.WriteString("</task>\n\n")
}

func (b *PromptBuilder) writeExcerpts(prompt *strings.Builder) {
	prompt.WriteString("<excerpts>\n")
	for _, e := range b.excerpts {
		fmt.Fprintf(prompt, "<excerpt id=%q similarity=\"%.2f\">\n%s\n</excerpt>\n", e.SourceId, e.Similarity, strings.TrimSpace(e.Text))
	}
	prompt.WriteString("</excerpts>\n\n")
}

func (b *PromptBuilder) writeConversation(prompt *strings.Builder) {
	if len(b.question.Context) == 0 {
		return
	}
	prompt.WriteString("<conversation>\n")
	for _, turn := range b.question.Context {
		fmt.Fprintf(prompt, "%s: %s\n", turn.Role, turn.Content)
	}
	prompt.WriteString("</conversation>\n\n")
}

func (b *PromptBuilder) writeFeedback(prompt *strings.Builder) {
	if b.feedback == "" {
		return
	}
	prompt.WriteString("<reviewer_feedback>\n")
	prompt.WriteString("A previous draft was rejected. Fix these problems:\n")
	prompt.WriteString(b.feedback)
	prompt.WriteString("\n</reviewer_feedback>\n\n")
}

func (b *PromptBuilder) writeOutputFormat(prompt *strings.Builder) {
	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Reply with a single JSON object and nothing else:\n")
	prompt.WriteString(`{"decision": "RETRIEVE_OK" | "OUT_OF_SCOPE" | "ASK_CLARIFY", "answer": "...", "sources": ["excerpt id", ...]}`)
	prompt.WriteString("\n")
	prompt.WriteString("- OUT_OF_SCOPE: the excerpts do not answer the question, or it is unrelated to the résumé.\n")
	prompt.WriteString("- ASK_CLARIFY: the question has several plausible meanings that the excerpts answer differently; put one short clarifying question in \"answer\".\n")
	prompt.WriteString("- RETRIEVE_OK: answer concisely and list the ids of every excerpt you used.\n")
	prompt.WriteString("</output_format>\n\n")
}

func (b *PromptBuilder) writeQuestion(prompt *strings.Builder) {
	prompt.WriteString("<question>\n")
	prompt.WriteString(b.question.Text)
	prompt.WriteString("\n</question>\n")
}
