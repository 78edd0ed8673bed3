package mailer

import (
	"fmt"
	"html"
	"strings"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendEscalation(toEmail string, record *entity.EscalationRecord) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderName string, log logger.ILogger) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: username,
		senderName:  senderName,
		logger:      log,
	}
}

func (s *emailService) SendEscalation(toEmail string, record *entity.EscalationRecord) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[Résumé Q&A] Question needs your reply (%s)", record.Reason))
	m.SetBody("text/html", RenderEscalation(record))

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send escalation", map[string]interface{}{"to": toEmail, "error": err.Error()})
		return err
	}

	s.logger.Info("MAILER", "Escalation sent", map[string]interface{}{"to": toEmail, "escalation_id": record.Id.String()})
	return nil
}

// RenderEscalation builds the owner-facing email body. All visitor text is escaped.
func RenderEscalation(r *entity.EscalationRecord) string {
	contact := []string{}
	add := func(label, value string) {
		if value != "" {
			contact = append(contact, fmt.Sprintf("<li>%s: %s</li>", label, html.EscapeString(value)))
		}
	}
	add("Name", r.Contact.Name)
	add("Email", r.Contact.Email)
	add("Phone", r.Contact.Phone)
	add("LINE", r.Contact.LineId)
	add("Telegram", r.Contact.Telegram)
	contactBlock := "<p>No contact details yet.</p>"
	if len(contact) > 0 {
		contactBlock = "<ul>" + strings.Join(contact, "") + "</ul>"
	}

	draft := ""
	if r.DraftText != "" {
		draft = fmt.Sprintf("<p><b>Last draft</b> (confidence %.2f):</p><blockquote>%s</blockquote>",
			r.Confidence, html.EscapeString(r.DraftText))
	}

	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>A visitor's question was escalated</h2>
			<p><b>Reason:</b> %s &middot; <b>Language:</b> %s</p>
			<blockquote>%s</blockquote>
			%s
			<h3>Contact</h3>
			%s
			<p style="color:#888;">Escalation %s, %s</p>
		</div>
	`,
		html.EscapeString(r.Reason),
		html.EscapeString(string(r.Language)),
		html.EscapeString(r.QuestionText),
		draft,
		contactBlock,
		r.Id.String(),
		r.CreatedAt.Format("2006-01-02 15:04:05 MST"),
	)
}
