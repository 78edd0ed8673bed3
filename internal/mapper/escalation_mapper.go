package mapper

import (
	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/model"

	"gorm.io/datatypes"
)

type EscalationMapper struct{}

func NewEscalationMapper() *EscalationMapper {
	return &EscalationMapper{}
}

func (m *EscalationMapper) ToEntity(e *model.Escalation) *entity.EscalationRecord {
	if e == nil {
		return nil
	}

	return &entity.EscalationRecord{
		Id:           e.Id,
		QuestionText: e.QuestionText,
		Language:     entity.Language(e.Language),
		Reason:       e.Reason,
		Confidence:   e.Confidence,
		DraftText:    e.DraftText,
		SourceIds:    []string(e.SourceIds),
		Contact: entity.ContactInfo{
			Name:     e.ContactName,
			Email:    e.ContactEmail,
			Phone:    e.ContactPhone,
			LineId:   e.ContactLine,
			Telegram: e.ContactTelegram,
		},
		Status:     entity.EscalationStatus(e.Status),
		CreatedAt:  e.CreatedAt,
		ResolvedAt: e.ResolvedAt,
	}
}

func (m *EscalationMapper) ToModel(e *entity.EscalationRecord) *model.Escalation {
	if e == nil {
		return nil
	}

	return &model.Escalation{
		Id:              e.Id,
		QuestionText:    e.QuestionText,
		Language:        string(e.Language),
		Reason:          e.Reason,
		Confidence:      e.Confidence,
		DraftText:       e.DraftText,
		SourceIds:       datatypes.NewJSONSlice(e.SourceIds),
		ContactName:     e.Contact.Name,
		ContactEmail:    e.Contact.Email,
		ContactPhone:    e.Contact.Phone,
		ContactLine:     e.Contact.LineId,
		ContactTelegram: e.Contact.Telegram,
		Status:          string(e.Status),
		CreatedAt:       e.CreatedAt,
		ResolvedAt:      e.ResolvedAt,
	}
}

func (m *EscalationMapper) ToEntities(models []*model.Escalation) []*entity.EscalationRecord {
	entities := make([]*entity.EscalationRecord, len(models))
	for i, e := range models {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
