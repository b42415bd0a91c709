package bullet

import "time"

type Status string

const (
	StatusOpen     Status = "open"
	StatusDone     Status = "done"
	StatusCanceled Status = "canceled"
)

// Bullet is one task entry on a daily page. SpaceID is carried alongside
// PageID so space-scoped queries skip the page join. CompletedAt is set iff
// status is done. SortKey orders bullets within a page; new bullets append
// at the end.
type Bullet struct {
	ID          uint64  `gorm:"primaryKey"`
	SpaceID     uint64  `gorm:"index;not null"`
	PageID      uint64  `gorm:"index;not null"`
	Content     string  `gorm:"type:text;not null"`
	Status      Status  `gorm:"type:text;not null"`
	IsPrivate   bool    `gorm:"not null;default:false"`
	AssignedTo  *uint64 `gorm:"index"`
	CreatedBy   uint64  `gorm:"not null"`
	SortKey     int64   `gorm:"not null"`
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
}
