package space

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"bujo/internal/jobs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNameRequired    = errors.New("space name required")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidRole     = errors.New("invalid role")
	ErrNotFound        = errors.New("not found")
	ErrNotMember       = errors.New("not a member of this space")
	ErrNotOwner        = errors.New("owner role required")
	ErrDuplicateInvite = errors.New("email already invited")
	ErrAlreadyMember   = errors.New("already a member")
)

type Service struct {
	DB *gorm.DB
}

// SpaceWithRole is a space annotated with the caller's role.
type SpaceWithRole struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy uint64    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	Role      Role      `json:"role"`
}

// PendingInvite is an unaccepted invitation annotated with the space name.
type PendingInvite struct {
	ID        uint64    `json:"id"`
	SpaceID   uint64    `json:"space_id"`
	SpaceName string    `json:"space_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSpace creates the space and the creator's owner membership in one
// transaction; a failed membership insert rolls the space back.
func (s *Service) CreateSpace(ctx context.Context, actorID uint64, name string) (*Space, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	sp := Space{Name: name, CreatedBy: actorID}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sp).Error; err != nil {
			return err
		}
		m := Membership{SpaceID: sp.ID, UserID: actorID, Role: RoleOwner}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// ListSpacesFor returns every space the user belongs to, newest first.
func (s *Service) ListSpacesFor(ctx context.Context, userID uint64) ([]SpaceWithRole, error) {
	var rows []SpaceWithRole
	err := s.DB.WithContext(ctx).
		Table("spaces").
		Select("spaces.id, spaces.name, spaces.created_by, spaces.created_at, space_members.role").
		Joins("join space_members on space_members.space_id = spaces.id").
		Where("space_members.user_id = ?", userID).
		Order("spaces.created_at desc, spaces.id desc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RoleOf is a pure lookup; ok is false when the user has no membership.
func (s *Service) RoleOf(ctx context.Context, spaceID, userID uint64) (Role, bool, error) {
	var m Membership
	err := s.DB.WithContext(ctx).
		Where("space_id = ? AND user_id = ?", spaceID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return m.Role, true, nil
}

func (s *Service) IsMember(ctx context.Context, spaceID, userID uint64) (bool, error) {
	_, ok, err := s.RoleOf(ctx, spaceID, userID)
	return ok, err
}

func (s *Service) IsOwner(ctx context.Context, spaceID, userID uint64) (bool, error) {
	role, ok, err := s.RoleOf(ctx, spaceID, userID)
	return ok && role == RoleOwner, err
}

// Invite issues a pending invitation and enqueues the invite email in the
// same transaction. Only owners may invite. A pending invite for the same
// (space, email) pair is reported as ErrDuplicateInvite via the partial
// unique index, not a pre-check, so concurrent inviters cannot race past it.
func (s *Service) Invite(ctx context.Context, actorID, spaceID uint64, email string, role Role) (*Invitation, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if role == "" {
		role = RoleMember
	}
	if role != RoleOwner && role != RoleMember {
		return nil, ErrInvalidRole
	}

	actorRole, ok, err := s.RoleOf(ctx, spaceID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}
	if actorRole != RoleOwner {
		return nil, ErrNotOwner
	}

	inv := Invitation{
		SpaceID:   spaceID,
		Email:     email,
		Role:      role,
		Token:     uuid.NewString(),
		InvitedBy: actorID,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateInvite
			}
			return err
		}

		payload, _ := json.Marshal(map[string]any{"invite_id": inv.ID})
		j := jobs.Job{
			UserID:  actorID,
			Type:    jobs.TypeInviteEmail,
			Payload: payload,
			RunAt:   time.Now(),
			Status:  jobs.StatusPending,
		}
		return tx.Create(&j).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListPendingInvitesFor returns unaccepted invitations addressed to email,
// newest first, annotated with the space name.
func (s *Service) ListPendingInvitesFor(ctx context.Context, email string) ([]PendingInvite, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var rows []PendingInvite
	err := s.DB.WithContext(ctx).
		Table("space_invites").
		Select("space_invites.id, space_invites.space_id, spaces.name as space_name, space_invites.email, space_invites.role, space_invites.created_at").
		Joins("join spaces on spaces.id = space_invites.space_id").
		Where("space_invites.email = ? AND space_invites.accepted_at IS NULL", email).
		Order("space_invites.created_at desc, space_invites.id desc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AcceptInvite redeems a pending invitation for the acting user: membership
// insert and accepted_at stamp are one transaction. A duplicate membership
// rolls everything back (the invite stays pending); a lost race on the
// accepted_at stamp means someone else redeemed it first.
func (s *Service) AcceptInvite(ctx context.Context, actorID, inviteID uint64) (*Membership, error) {
	var m Membership
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv Invitation
		if err := tx.Where("id = ? AND accepted_at IS NULL", inviteID).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		m = Membership{SpaceID: inv.SpaceID, UserID: actorID, Role: inv.Role}
		if err := tx.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyMember
			}
			return err
		}

		res := tx.Model(&Invitation{}).
			Where("id = ? AND accepted_at IS NULL", inviteID).
			Update("accepted_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MemberInfo is a roster entry for assignee pickers.
type MemberInfo struct {
	UserID      uint64 `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// ListMembers returns the member roster of a space. Members only.
func (s *Service) ListMembers(ctx context.Context, actorID, spaceID uint64) ([]MemberInfo, error) {
	ok, err := s.IsMember(ctx, spaceID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}

	var rows []MemberInfo
	err = s.DB.WithContext(ctx).
		Table("space_members").
		Select("space_members.user_id, users.email, users.display_name, space_members.role").
		Joins("join users on users.id = space_members.user_id").
		Where("space_members.space_id = ?", spaceID).
		Order("space_members.created_at asc, space_members.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetSpace loads a space by id for members only.
func (s *Service) GetSpace(ctx context.Context, actorID, spaceID uint64) (*Space, error) {
	ok, err := s.IsMember(ctx, spaceID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}

	var sp Space
	if err := s.DB.WithContext(ctx).First(&sp, spaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sp, nil
}
