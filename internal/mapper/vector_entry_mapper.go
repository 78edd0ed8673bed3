package mapper

import (
	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type VectorEntryMapper struct{}

func NewVectorEntryMapper() *VectorEntryMapper {
	return &VectorEntryMapper{}
}

func (m *VectorEntryMapper) ToEntity(e *model.VectorEntry) *entity.VectorEntry {
	if e == nil {
		return nil
	}

	metadata := map[string]interface{}(e.Metadata)
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	return &entity.VectorEntry{
		Id:             e.Id,
		Collection:     e.Collection,
		Document:       e.Document,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		Metadata:       metadata,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *VectorEntryMapper) ToModel(e *entity.VectorEntry) *model.VectorEntry {
	if e == nil {
		return nil
	}

	return &model.VectorEntry{
		Collection:     e.Collection,
		Id:             e.Id,
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		Metadata:       datatypes.JSONMap(e.Metadata),
		CreatedAt:      e.CreatedAt,
	}
}
