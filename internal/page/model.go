package page

import "time"

// DailyPage is the single task container for one space on one calendar date.
// Unique on (space_id, page_date); the date is the identity, so losers of a
// concurrent first-visit race re-read the winner's row.
type DailyPage struct {
	ID        uint64    `gorm:"primaryKey"`
	SpaceID   uint64    `gorm:"uniqueIndex:uq_pages_space_date;not null"`
	PageDate  string    `gorm:"uniqueIndex:uq_pages_space_date;not null"` // YYYY-MM-DD
	CreatedBy uint64    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (DailyPage) TableName() string { return "daily_pages" }
