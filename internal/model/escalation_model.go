package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Escalation struct {
	Id              uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	QuestionText    string                      `gorm:"type:text;not null"`
	Language        string                      `gorm:"type:varchar(8)"`
	Reason          string                      `gorm:"type:varchar(64)"`
	Confidence      float64                     `gorm:"default:0"`
	DraftText       string                      `gorm:"type:text"`
	SourceIds       datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	ContactName     string                      `gorm:"type:varchar(128)"`
	ContactEmail    string                      `gorm:"type:varchar(255)"`
	ContactPhone    string                      `gorm:"type:varchar(32)"`
	ContactLine     string                      `gorm:"type:varchar(64)"`
	ContactTelegram string                      `gorm:"type:varchar(64)"`
	Status          string                      `gorm:"type:varchar(16);index;default:'pending'"`
	CreatedAt       time.Time                   `gorm:"autoCreateTime"`
	ResolvedAt      *time.Time
}

func (Escalation) TableName() string {
	return "escalations"
}
