package entity

import "time"

// VectorEntry is one row of a similarity index collection (corpus passage or cached answer).
type VectorEntry struct {
	Id             string
	Collection     string
	Document       string
	EmbeddingValue []float32
	Metadata       map[string]interface{}
	CreatedAt      time.Time
}
