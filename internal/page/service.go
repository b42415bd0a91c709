package page

import (
	"context"
	"errors"
	"time"

	"bujo/internal/space"

	"gorm.io/gorm"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate = errors.New("invalid date, want YYYY-MM-DD")
	ErrNotMember   = errors.New("not a member of this space")
	ErrNotFound    = errors.New("not found")
)

type Service struct {
	DB     *gorm.DB
	Spaces *space.Service
}

// Today returns the current date in page format.
func Today() string {
	return time.Now().Format(DateLayout)
}

// Ensure returns the page for (space, date), creating it on first visit.
// Repeat calls are side-effect-free. When two first visits race, the loser
// hits the unique index and re-reads the winner's row instead of failing.
func (s *Service) Ensure(ctx context.Context, actorID, spaceID uint64, date string) (*DailyPage, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}

	ok, err := s.Spaces.IsMember(ctx, spaceID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}

	var p DailyPage
	err = s.DB.WithContext(ctx).
		Where("space_id = ? AND page_date = ?", spaceID, date).
		First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p = DailyPage{SpaceID: spaceID, PageDate: date, CreatedBy: actorID}
	err = s.DB.WithContext(ctx).Create(&p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		p = DailyPage{}
		err = s.DB.WithContext(ctx).
			Where("space_id = ? AND page_date = ?", spaceID, date).
			First(&p).Error
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get loads a page by id for members of its space.
func (s *Service) Get(ctx context.Context, actorID, pageID uint64) (*DailyPage, error) {
	var p DailyPage
	if err := s.DB.WithContext(ctx).First(&p, pageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ok, err := s.Spaces.IsMember(ctx, p.SpaceID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}
	return &p, nil
}
