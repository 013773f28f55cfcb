package domain

import "time"

type Role string

const (
	RoleCreator Role = "creator"
	RoleMember  Role = "member"
)

// Member is one membership record per (room, user). Leaving deactivates
// the record instead of deleting it, so a later rejoin reuses it.
type Member struct {
	RoomID       string     `db:"room_id" json:"room_id"`
	UserID       string     `db:"user_id" json:"user_id"`
	Name         string     `db:"user_name" json:"name"`
	Email        string     `db:"user_email" json:"email"`
	AvatarURL    *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	Role         Role       `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	JoinedAt     time.Time  `db:"joined_at" json:"joined_at"`
	LastJoinedAt *time.Time `db:"last_joined_at" json:"last_joined_at,omitempty"`
	LeftAt       *time.Time `db:"left_at" json:"left_at,omitempty"`
}
