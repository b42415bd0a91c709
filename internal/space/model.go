package space

import "time"

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Space is the tenant boundary. Never renamed or deleted.
type Space struct {
	ID        uint64    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	CreatedBy uint64    `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// Membership grants a principal a role inside a space.
// Unique on (space_id, user_id).
type Membership struct {
	ID        uint64    `gorm:"primaryKey"`
	SpaceID   uint64    `gorm:"uniqueIndex:uq_members_space_user;not null"`
	UserID    uint64    `gorm:"uniqueIndex:uq_members_space_user;not null"`
	Role      Role      `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// Invitation is a pending grant of membership keyed by email.
// A partial unique index on (space_id, email) while accepted_at is null keeps
// pending invites unique; AcceptedAt is stamped exactly once.
type Invitation struct {
	ID         uint64     `gorm:"primaryKey"`
	SpaceID    uint64     `gorm:"index;not null"`
	Email      string     `gorm:"not null"`
	Role       Role       `gorm:"type:text;not null"`
	Token      string     `gorm:"uniqueIndex;not null"`
	InvitedBy  uint64     `gorm:"not null"`
	AcceptedAt *time.Time
	CreatedAt  time.Time `gorm:"not null"`
}

func (Membership) TableName() string { return "space_members" }
func (Invitation) TableName() string { return "space_invites" }
