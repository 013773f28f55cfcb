package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hapdev05/Room-server/internal/domain"
	"github.com/hapdev05/Room-server/internal/security"
)

const (
	roomCodeLen      = 6
	codeGenAttempts  = 10
	defaultRoomTitle = "Room"
)

// RoomService is the room directory: it creates rooms with collision-free
// human codes and resolves rooms to Room+Members snapshots.
type RoomService struct {
	rooms   RoomStore
	members MemberStore
}

func NewRoomService(rooms RoomStore, members MemberStore) *RoomService {
	return &RoomService{rooms: rooms, members: members}
}

type CreateRoomSpec struct {
	Name        string
	Description string
	MaxUsers    int
	IsPrivate   bool
	Password    string
}

// CreateRoom creates a room and seeds the creator as its first active
// member. Code generation retries against the active-code uniqueness
// constraint a fixed number of times before giving up.
func (s *RoomService) CreateRoom(ctx context.Context, spec CreateRoomSpec, creator domain.User) (*RoomWithMembers, error) {
	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("%s %s", defaultRoomTitle, code)
	}

	room := &domain.Room{
		ID:           uuid.NewString(),
		Code:         code,
		Name:         name,
		Description:  spec.Description,
		CreatedBy:    creator.ID,
		CreatorName:  creator.Name,
		MaxUsers:     domain.ClampMaxUsers(spec.MaxUsers),
		CurrentUsers: 1,
		IsPrivate:    spec.IsPrivate,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if spec.IsPrivate && spec.Password != "" {
		hash, err := security.HashPassword(spec.Password)
		if err != nil {
			return nil, fmt.Errorf("hash room password: %w", err)
		}
		room.PasswordHash = &hash
	}

	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("rooms.Create: %w", err)
	}

	first := &domain.Member{
		RoomID:    room.ID,
		UserID:    creator.ID,
		Name:      creator.Name,
		Email:     creator.Email,
		AvatarURL: creator.AvatarURL,
		Role:      domain.RoleCreator,
		IsActive:  true,
		JoinedAt:  now,
	}
	if err := s.members.InsertCreator(ctx, first); err != nil {
		return nil, fmt.Errorf("members.InsertCreator: %w", err)
	}

	return &RoomWithMembers{Room: *room, Members: []domain.Member{*first}}, nil
}

func (s *RoomService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeGenAttempts; attempt++ {
		code, err := security.RoomCode(roomCodeLen)
		if err != nil {
			return "", err
		}
		inUse, err := s.rooms.CodeInUse(ctx, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
	return "", domain.ErrCodeExhausted
}

// GetByID returns the room merged with its full member list.
func (s *RoomService) GetByID(ctx context.Context, roomID string) (*RoomWithMembers, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	members, err := s.members.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &RoomWithMembers{Room: *room, Members: members}, nil
}

// GetByCode resolves a human code among active rooms only.
func (s *RoomService) GetByCode(ctx context.Context, code string) (*RoomWithMembers, error) {
	room, err := s.rooms.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	members, err := s.members.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	return &RoomWithMembers{Room: *room, Members: members}, nil
}

// UserRooms returns the active rooms the user has a member record in.
func (s *RoomService) UserRooms(ctx context.Context, userID string) ([]RoomWithMembers, error) {
	ids, err := s.members.RoomIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]RoomWithMembers, 0, len(ids))
	for _, id := range ids {
		rm, err := s.GetByID(ctx, id)
		if err != nil {
			continue // room may have been closed meanwhile
		}
		if rm.IsActive {
			out = append(out, *rm)
		}
	}
	return out, nil
}

// ListActive returns all active rooms with their members.
func (s *RoomService) ListActive(ctx context.Context) ([]RoomWithMembers, error) {
	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoomWithMembers, 0, len(rooms))
	for _, r := range rooms {
		members, err := s.members.ListByRoom(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RoomWithMembers{Room: r, Members: members})
	}
	return out, nil
}
