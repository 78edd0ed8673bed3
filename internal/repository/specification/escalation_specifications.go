package specification

import "gorm.io/gorm"

type ByEscalationStatus struct {
	Status string
}

func (s ByEscalationStatus) Apply(db *gorm.DB) *gorm.DB {
	if s.Status == "" {
		return db
	}
	return db.Where("status = ?", s.Status)
}
