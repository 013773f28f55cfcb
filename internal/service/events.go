package service

import (
	"time"

	"github.com/hapdev05/Room-server/internal/domain"
)

// Event names delivered through the fan-out. No ordering or delivery
// guarantee; clients treat every snapshot event as authoritative.
const (
	EventRoomSync       = "room-sync-update"
	EventForceRefresh   = "room-force-refresh"
	EventPresenceChange = "user-presence-change"
	EventUserStatus     = "user-status-change"
	EventOnlineUsers    = "online-users-list"
	EventNotification   = "notification"
)

type SyncedUser struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsInRoom  bool      `json:"is_in_room"`
	SyncedAt  time.Time `json:"synced_at"`
}

type RoomSyncPayload struct {
	RoomID       string          `json:"room_id"`
	Room         domain.Room     `json:"room"`
	Members      []domain.Member `json:"members"`
	TotalMembers int             `json:"total_members"`
	SyncedUser   *SyncedUser     `json:"synced_user,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

type PresenceChangePayload struct {
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	IsOnline  bool      `json:"is_online"`
	Timestamp time.Time `json:"timestamp"`
}

type UserStatusPayload struct {
	User      domain.User `json:"user"`
	IsOnline  bool        `json:"is_online"`
	Timestamp time.Time   `json:"timestamp"`
}

type OnlineUsersPayload struct {
	Users []domain.User `json:"users"`
	Count int           `json:"count"`
}
