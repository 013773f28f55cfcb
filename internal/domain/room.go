package domain

import "time"

const (
	MinRoomUsers     = 2
	MaxRoomUsers     = 50
	DefaultRoomUsers = 10
)

type Room struct {
	ID           string     `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	Name         string     `db:"name" json:"name"`
	Description  string     `db:"description" json:"description"`
	CreatedBy    string     `db:"created_by" json:"created_by"`
	CreatorName  string     `db:"creator_name" json:"creator_name"`
	MaxUsers     int        `db:"max_users" json:"max_users"`
	CurrentUsers int        `db:"current_users" json:"current_users"`
	IsPrivate    bool       `db:"is_private" json:"is_private"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	ClosedAt     *time.Time `db:"closed_at" json:"closed_at,omitempty"`
}

// RoomPatch carries a partial update: nil fields are left untouched.
// ClearPassword removes the password even though PasswordHash is nil.
type RoomPatch struct {
	Name          *string
	Description   *string
	MaxUsers      *int
	IsPrivate     *bool
	PasswordHash  *string
	ClearPassword bool
	CreatedBy     *string
	CreatorName   *string
}

// ClampMaxUsers forces a requested capacity into the allowed range.
func ClampMaxUsers(n int) int {
	if n <= 0 {
		return DefaultRoomUsers
	}
	if n < MinRoomUsers {
		return MinRoomUsers
	}
	if n > MaxRoomUsers {
		return MaxRoomUsers
	}
	return n
}
