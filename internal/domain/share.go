package domain

import "time"

type ShareLink struct {
	Token       string     `db:"token" json:"token"`
	RoomID      string     `db:"room_id" json:"room_id"`
	RoomCode    string     `db:"room_code" json:"room_code"`
	RoomName    string     `db:"room_name" json:"room_name"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	Message     string     `db:"message" json:"message"`
	MaxUses     *int       `db:"max_uses" json:"max_uses,omitempty"` // nil is unlimited
	CurrentUses int        `db:"current_uses" json:"current_uses"`
	Views       int        `db:"views" json:"views"`
	Clicks      int        `db:"clicks" json:"clicks"`
	Joins       int        `db:"joins" json:"joins"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	LastUsedAt  *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
	InviteExpired  InviteStatus = "expired"
)

type Invitation struct {
	Token        string       `db:"token" json:"token"`
	RoomID       string       `db:"room_id" json:"room_id"`
	RoomCode     string       `db:"room_code" json:"room_code"`
	RoomName     string       `db:"room_name" json:"room_name"`
	FromUserID   string       `db:"from_user_id" json:"from_user_id"`
	FromUserName string       `db:"from_user_name" json:"from_user_name"`
	ToEmail      string       `db:"to_email" json:"to_email"`
	Message      string       `db:"message" json:"message"`
	Status       InviteStatus `db:"status" json:"status"`
	ExpiresAt    time.Time    `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	RespondedAt  *time.Time   `db:"responded_at" json:"responded_at,omitempty"`
	RespondedBy  *string      `db:"responded_by" json:"responded_by,omitempty"`
}

// ShareStats is the creator-facing aggregate over a room's links and invites.
type ShareStats struct {
	TotalLinks          int     `json:"total_links"`
	ActiveLinks         int     `json:"active_links"`
	TotalViews          int     `json:"total_views"`
	TotalClicks         int     `json:"total_clicks"`
	TotalJoins          int     `json:"total_joins"`
	TotalInvitations    int     `json:"total_invitations"`
	PendingInvitations  int     `json:"pending_invitations"`
	AcceptedInvitations int     `json:"accepted_invitations"`
	DeclinedInvitations int     `json:"declined_invitations"`
	ConversionRate      float64 `json:"conversion_rate"`
}
