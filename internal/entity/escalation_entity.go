package entity

import (
	"time"

	"github.com/google/uuid"
)

type EscalationStatus string

const (
	EscalationPending  EscalationStatus = "pending"
	EscalationResolved EscalationStatus = "resolved"
)

// ContactInfo is whatever the visitor volunteered about how to reach them.
type ContactInfo struct {
	Name     string
	Email    string
	Phone    string
	LineId   string
	Telegram string
}

func (c ContactInfo) HasContactMethod() bool {
	return c.Email != "" || c.Phone != "" || c.LineId != "" || c.Telegram != ""
}

type EscalationRecord struct {
	Id           uuid.UUID
	QuestionText string
	Language     Language
	Reason       string
	Confidence   float64
	DraftText    string
	SourceIds    []string
	Contact      ContactInfo
	Status       EscalationStatus
	CreatedAt    time.Time
	ResolvedAt   *time.Time
}

// Escalation reasons
const (
	ReasonOutOfScope           = "out_of_scope"
	ReasonLowConfidence        = "low_confidence"
	ReasonUnresolved           = "unresolved_after_redraft"
	ReasonRetrievalUnavailable = "retrieval_unavailable"
	ReasonDraftFailed          = "draft_failed"
)

// EscalationContext is what the pipeline knows when it hands a question to a human.
type EscalationContext struct {
	Reason     string
	Confidence float64
	DraftText  string
	SourceIds  []string
}
