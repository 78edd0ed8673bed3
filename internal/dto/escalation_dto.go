package dto

import (
	"time"

	"github.com/google/uuid"
)

type ListEscalationsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=pending resolved"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type EscalationContact struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LineId   string `json:"line_id,omitempty"`
	Telegram string `json:"telegram,omitempty"`
}

type EscalationResponse struct {
	Id         uuid.UUID         `json:"id"`
	Question   string            `json:"question"`
	Language   string            `json:"language"`
	Reason     string            `json:"reason"`
	Confidence float64           `json:"confidence"`
	DraftText  string            `json:"draft_text,omitempty"`
	SourceIds  []string          `json:"source_ids"`
	Contact    EscalationContact `json:"contact"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
}

type EscalationListResponse struct {
	Items []*EscalationResponse `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

type PurgeCacheResponse struct {
	Removed   int64 `json:"removed"`
	CacheSize int64 `json:"cache_size"`
}
