package service

import (
	"context"
	"time"

	"github.com/hapdev05/Room-server/internal/domain"
)

// Store interfaces are defined on the consumer side; internal/postgres
// provides the durable implementations, tests provide in-memory ones.

type RoomStore interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	// GetActiveByCode looks up among active rooms only; codes of closed
	// rooms are considered free.
	GetActiveByCode(ctx context.Context, code string) (*domain.Room, error)
	CodeInUse(ctx context.Context, code string) (bool, error)
	// Update merges only the named fields of the patch.
	Update(ctx context.Context, id string, patch domain.RoomPatch) error
	SetCurrentUsers(ctx context.Context, id string, n int) error
	Close(ctx context.Context, id string, at time.Time) error
	ListActive(ctx context.Context) ([]domain.Room, error)
}

type MemberStore interface {
	Get(ctx context.Context, roomID, userID string) (*domain.Member, error)
	ListByRoom(ctx context.Context, roomID string) ([]domain.Member, error)
	// InsertCreator seeds the first member at room creation, no capacity check.
	InsertCreator(ctx context.Context, m *domain.Member) error
	// InsertNew atomically checks active-member count against maxUsers,
	// inserts the record and bumps the room's current_users. Returns
	// domain.ErrRoomFull when the room is at capacity.
	InsertNew(ctx context.Context, m *domain.Member, maxUsers int) error
	Reactivate(ctx context.Context, roomID, userID string, at time.Time) error
	Deactivate(ctx context.Context, roomID, userID string, at time.Time) error
	SetRole(ctx context.Context, roomID, userID string, role domain.Role) error
	RoomIDsByUser(ctx context.Context, userID string) ([]string, error)
}

type ShareStore interface {
	CreateLink(ctx context.Context, l *domain.ShareLink) error
	GetLink(ctx context.Context, token string) (*domain.ShareLink, error)
	AddLinkView(ctx context.Context, token string, at time.Time) error
	AddLinkClick(ctx context.Context, token string, at time.Time) error
	// AddLinkJoin bumps joins and current_uses together.
	AddLinkJoin(ctx context.Context, token string, at time.Time) error
	DeactivateLink(ctx context.Context, token string, at time.Time) error
	LinksByRoom(ctx context.Context, roomID string) ([]domain.ShareLink, error)
	LinksByUser(ctx context.Context, userID string) ([]domain.ShareLink, error)

	CreateInvite(ctx context.Context, inv *domain.Invitation) error
	GetInvite(ctx context.Context, token string) (*domain.Invitation, error)
	SetInviteStatus(ctx context.Context, token string, status domain.InviteStatus, by *string, at time.Time) error
	InvitesByRoom(ctx context.Context, roomID string) ([]domain.Invitation, error)
	InvitesByEmail(ctx context.Context, email string) ([]domain.Invitation, error)
}

// RoomWithMembers is the canonical snapshot handed to callers and pushed
// to live connections.
type RoomWithMembers struct {
	domain.Room
	Members []domain.Member `json:"members"`
}
