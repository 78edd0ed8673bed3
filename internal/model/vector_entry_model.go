package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// VectorEntry backs both similarity collections. Rows are keyed by
// (collection, id) so cached answers can be upserted by their deterministic id.
type VectorEntry struct {
	Collection     string            `gorm:"type:varchar(64);primaryKey"`
	Id             string            `gorm:"type:varchar(128);primaryKey"`
	Document       string            `gorm:"type:text"`
	EmbeddingValue pgvector.Vector   `gorm:"type:vector(768)"` // nomic-embed-text and text-embedding-004 are both 768-d
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"index"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime"`
}

func (VectorEntry) TableName() string {
	return "vector_entries"
}
