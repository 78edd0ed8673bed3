package specification

import (
	"time"

	"gorm.io/gorm"
)

type InCollection struct {
	Collection string
}

func (s InCollection) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("collection = ?", s.Collection)
}

// ExpiredOrMismatched matches rows created before CreatedBefore, or whose
// metadata value under Key differs from Value. A zero CreatedBefore or an
// empty Key disables that half.
type ExpiredOrMismatched struct {
	CreatedBefore time.Time
	Key           string
	Value         string
}

func (s ExpiredOrMismatched) Apply(db *gorm.DB) *gorm.DB {
	switch {
	case !s.CreatedBefore.IsZero() && s.Key != "":
		return db.Where("(created_at < ? OR metadata->>? IS DISTINCT FROM ?)", s.CreatedBefore, s.Key, s.Value)
	case !s.CreatedBefore.IsZero():
		return db.Where("created_at < ?", s.CreatedBefore)
	case s.Key != "":
		return db.Where("metadata->>? IS DISTINCT FROM ?", s.Key, s.Value)
	default:
		return db.Where("1 = 0")
	}
}
