package bullet

import (
	"context"
	"errors"
	"strings"
	"time"

	"bujo/internal/page"
	"bujo/internal/space"

	"gorm.io/gorm"
)

var (
	ErrEmptyContent      = errors.New("content required")
	ErrNotFound          = errors.New("not found")
	ErrNotMember         = errors.New("not a member of this space")
	ErrCanceled          = errors.New("bullet is canceled")
	ErrAssigneeNotMember = errors.New("assignee is not a member of this space")
)

// sortKeyStep leaves gaps between neighbors so a future reorder can place a
// bullet between two others without renumbering the whole page.
const sortKeyStep = 1024

type Service struct {
	DB     *gorm.DB
	Spaces *space.Service
	Pages  *page.Service
}

// View is a bullet joined with its assignee's profile for list rendering.
type View struct {
	ID            uint64     `json:"id"`
	SpaceID       uint64     `json:"space_id"`
	PageID        uint64     `json:"page_id"`
	Content       string     `json:"content"`
	Status        Status     `json:"status"`
	IsPrivate     bool       `json:"is_private"`
	AssignedTo    *uint64    `json:"assigned_to"`
	AssigneeEmail string     `json:"assignee_email,omitempty"`
	AssigneeName  string     `json:"assignee_name,omitempty"`
	CreatedBy     uint64     `json:"created_by"`
	SortKey       int64      `json:"sort_key"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Create appends an open bullet at the end of the page.
func (s *Service) Create(ctx context.Context, actorID, spaceID, pageID uint64, content string) (*Bullet, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	if err := s.requireMember(ctx, actorID, spaceID); err != nil {
		return nil, err
	}

	var pg page.DailyPage
	if err := s.DB.WithContext(ctx).First(&pg, pageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if pg.SpaceID != spaceID {
		return nil, ErrNotFound
	}

	b := Bullet{
		SpaceID:   spaceID,
		PageID:    pageID,
		Content:   content,
		Status:    StatusOpen,
		CreatedBy: actorID,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxKey int64
		if err := tx.Model(&Bullet{}).
			Where("page_id = ?", pageID).
			Select("coalesce(max(sort_key), 0)").
			Scan(&maxKey).Error; err != nil {
			return err
		}
		b.SortKey = maxKey + sortKeyStep
		return tx.Create(&b).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListForPage returns the bullets a principal may see on a page, ordered by
// sort key. Other people's private bullets are filtered in SQL, never
// fetched and dropped in code.
func (s *Service) ListForPage(ctx context.Context, actorID, pageID uint64) ([]View, error) {
	pg, err := s.Pages.Get(ctx, actorID, pageID)
	if err != nil {
		if errors.Is(err, page.ErrNotFound) {
			return nil, ErrNotFound
		}
		if errors.Is(err, page.ErrNotMember) {
			return nil, ErrNotMember
		}
		return nil, err
	}

	var rows []View
	err = s.DB.WithContext(ctx).
		Table("bullets").
		Select("bullets.id, bullets.space_id, bullets.page_id, bullets.content, bullets.status, bullets.is_private, bullets.assigned_to, coalesce(users.email, '') as assignee_email, coalesce(users.display_name, '') as assignee_name, bullets.created_by, bullets.sort_key, bullets.completed_at, bullets.created_at").
		Joins("left join users on users.id = bullets.assigned_to").
		Where("bullets.page_id = ?", pg.ID).
		Where("bullets.is_private = ? OR bullets.created_by = ?", false, actorID).
		Order("bullets.sort_key asc, bullets.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ToggleStatus flips open to done and done to open. Entering done stamps
// completed_at; leaving done clears it. Both fields change in one UPDATE so
// a concurrent reader never sees a half-applied transition. Canceled
// bullets do not toggle.
func (s *Service) ToggleStatus(ctx context.Context, actorID, bulletID uint64) (*Bullet, error) {
	b, err := s.get(ctx, actorID, bulletID)
	if err != nil {
		return nil, err
	}
	if b.Status == StatusCanceled {
		return nil, ErrCanceled
	}

	res := s.DB.WithContext(ctx).Model(&Bullet{}).
		Where("id = ? AND status <> ?", bulletID, StatusCanceled).
		Updates(map[string]any{
			"status":       gorm.Expr("CASE WHEN status = ? THEN ? ELSE ? END", StatusDone, StatusOpen, StatusDone),
			"completed_at": gorm.Expr("CASE WHEN status = ? THEN NULL ELSE ? END", StatusDone, time.Now()),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// deleted or canceled since we looked
		return nil, ErrNotFound
	}
	return s.reload(ctx, bulletID)
}

// Cancel moves a bullet to canceled from any state and clears completed_at.
// One-way: canceled bullets stay canceled.
func (s *Service) Cancel(ctx context.Context, actorID, bulletID uint64) (*Bullet, error) {
	if _, err := s.get(ctx, actorID, bulletID); err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&Bullet{}).
		Where("id = ?", bulletID).
		Updates(map[string]any{
			"status":       StatusCanceled,
			"completed_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.reload(ctx, bulletID)
}

// Delete removes the bullet outright. No tombstone.
func (s *Service) Delete(ctx context.Context, actorID, bulletID uint64) error {
	if _, err := s.get(ctx, actorID, bulletID); err != nil {
		return err
	}

	res := s.DB.WithContext(ctx).Delete(&Bullet{}, bulletID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TogglePrivate flips the visibility flag. Status is untouched.
func (s *Service) TogglePrivate(ctx context.Context, actorID, bulletID uint64) (*Bullet, error) {
	if _, err := s.get(ctx, actorID, bulletID); err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&Bullet{}).
		Where("id = ?", bulletID).
		Update("is_private", gorm.Expr("NOT is_private"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.reload(ctx, bulletID)
}

// Reassign sets or clears the assignee. An assignee must hold a current
// membership in the bullet's space; this is checked at assignment time
// rather than with a hard constraint.
func (s *Service) Reassign(ctx context.Context, actorID, bulletID uint64, assigneeID *uint64) (*Bullet, error) {
	b, err := s.get(ctx, actorID, bulletID)
	if err != nil {
		return nil, err
	}

	if assigneeID != nil {
		ok, err := s.Spaces.IsMember(ctx, b.SpaceID, *assigneeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAssigneeNotMember
		}
	}

	res := s.DB.WithContext(ctx).Model(&Bullet{}).
		Where("id = ?", bulletID).
		Update("assigned_to", assigneeID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.reload(ctx, bulletID)
}

// get loads a bullet and verifies the actor belongs to its space.
func (s *Service) get(ctx context.Context, actorID, bulletID uint64) (*Bullet, error) {
	var b Bullet
	if err := s.DB.WithContext(ctx).First(&b, bulletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.requireMember(ctx, actorID, b.SpaceID); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Service) reload(ctx context.Context, bulletID uint64) (*Bullet, error) {
	var b Bullet
	if err := s.DB.WithContext(ctx).First(&b, bulletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *Service) requireMember(ctx context.Context, actorID, spaceID uint64) error {
	ok, err := s.Spaces.IsMember(ctx, spaceID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}
