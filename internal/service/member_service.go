package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/hapdev05/Room-server/internal/domain"
	"github.com/hapdev05/Room-server/internal/security"
)

// MemberService is the membership ledger: it owns join/leave/role
// transitions and enforces capacity, password and creator-succession
// rules. Every mutation is scoped to a single room.
type MemberService struct {
	rooms   RoomStore
	members MemberStore
}

func NewMemberService(rooms RoomStore, members MemberStore) *MemberService {
	return &MemberService{rooms: rooms, members: members}
}

// Join adds the user to the room identified by its human code.
//
// A returning member is reactivated regardless of capacity: a room that
// filled up after they left must not block their rejoin. A genuinely new
// member goes through the store's transactional capacity check, so two
// near-simultaneous joins cannot overshoot maxUsers.
func (s *MemberService) Join(ctx context.Context, roomCode string, user domain.User, password string) (*RoomWithMembers, error) {
	room, err := s.rooms.GetActiveByCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}

	if room.IsPrivate {
		if room.PasswordHash == nil || security.ComparePassword(*room.PasswordHash, password) != nil {
			return nil, domain.ErrWrongPassword
		}
	}

	now := time.Now().UTC()
	_, err = s.members.Get(ctx, room.ID, user.ID)
	switch {
	case err == nil:
		if err := s.members.Reactivate(ctx, room.ID, user.ID, now); err != nil {
			return nil, fmt.Errorf("members.Reactivate: %w", err)
		}
		if err := s.recountUsers(ctx, room.ID); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrMemberNotFound):
		m := &domain.Member{
			RoomID:    room.ID,
			UserID:    user.ID,
			Name:      user.Name,
			Email:     user.Email,
			AvatarURL: user.AvatarURL,
			Role:      domain.RoleMember,
			IsActive:  true,
			JoinedAt:  now,
		}
		if err := s.members.InsertNew(ctx, m, room.MaxUsers); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	slog.Info("user joined room", "room", room.ID, "code", roomCode, "user", user.ID)
	return s.snapshot(ctx, room.ID)
}

// Leave deactivates the member record, recomputes the member count from
// the active set and applies creator succession. Reports whether the
// room was closed because the last member left.
func (s *MemberService) Leave(ctx context.Context, roomID, userID string) (bool, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return false, err
	}

	member, err := s.members.Get(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return false, domain.ErrNotInRoom
		}
		return false, err
	}
	if !member.IsActive {
		return false, domain.ErrNotInRoom
	}

	now := time.Now().UTC()
	if err := s.members.Deactivate(ctx, roomID, userID, now); err != nil {
		return false, fmt.Errorf("members.Deactivate: %w", err)
	}

	all, err := s.members.ListByRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	active := lo.Filter(all, func(m domain.Member, _ int) bool {
		return m.IsActive && m.UserID != userID
	})

	// Recompute, not decrement: tolerates concurrent writers.
	if err := s.rooms.SetCurrentUsers(ctx, roomID, len(active)); err != nil {
		return false, fmt.Errorf("rooms.SetCurrentUsers: %w", err)
	}

	closedRoom := false
	switch {
	case len(active) == 0:
		if _, err := s.Close(ctx, roomID); err != nil {
			return false, err
		}
		closedRoom = true
	case room.CreatedBy == userID:
		if err := s.transferOwnership(ctx, roomID, active); err != nil {
			return false, err
		}
	}

	slog.Info("user left room", "room", roomID, "user", userID, "remaining", len(active))
	return closedRoom, nil
}

// transferOwnership promotes the active member with the earliest joinedAt;
// ties break on userId so the outcome is deterministic.
func (s *MemberService) transferOwnership(ctx context.Context, roomID string, active []domain.Member) error {
	successor := lo.MinBy(active, func(a, b domain.Member) bool {
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})

	if err := s.members.SetRole(ctx, roomID, successor.UserID, domain.RoleCreator); err != nil {
		return fmt.Errorf("members.SetRole: %w", err)
	}
	patch := domain.RoomPatch{
		CreatedBy:   &successor.UserID,
		CreatorName: &successor.Name,
	}
	if err := s.rooms.Update(ctx, roomID, patch); err != nil {
		return fmt.Errorf("rooms.Update: %w", err)
	}

	slog.Info("room ownership transferred", "room", roomID, "new_creator", successor.UserID)
	return nil
}

type UpdateRoomSpec struct {
	Name        *string
	Description *string
	MaxUsers    *int
	IsPrivate   *bool
	Password    *string // empty string clears the password
}

// UpdateSettings applies a creator-only partial update of the mutable
// room fields.
func (s *MemberService) UpdateSettings(ctx context.Context, roomID string, spec UpdateRoomSpec, requesterID string) (*RoomWithMembers, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatedBy != requesterID {
		return nil, domain.ErrNotCreator
	}

	patch := domain.RoomPatch{
		Name:        spec.Name,
		Description: spec.Description,
		IsPrivate:   spec.IsPrivate,
	}
	if spec.MaxUsers != nil {
		n := domain.ClampMaxUsers(*spec.MaxUsers)
		patch.MaxUsers = &n
	}
	if spec.Password != nil {
		if *spec.Password == "" {
			patch.ClearPassword = true
		} else {
			hash, err := security.HashPassword(*spec.Password)
			if err != nil {
				return nil, fmt.Errorf("hash room password: %w", err)
			}
			patch.PasswordHash = &hash
		}
	}

	if err := s.rooms.Update(ctx, roomID, patch); err != nil {
		return nil, fmt.Errorf("rooms.Update: %w", err)
	}
	return s.snapshot(ctx, roomID)
}

// Close marks the room inactive and stamps closedAt. Idempotent.
func (s *MemberService) Close(ctx context.Context, roomID string) (bool, error) {
	if err := s.rooms.Close(ctx, roomID, time.Now().UTC()); err != nil {
		return false, err
	}
	slog.Info("room closed", "room", roomID)
	return true, nil
}

func (s *MemberService) recountUsers(ctx context.Context, roomID string) error {
	all, err := s.members.ListByRoom(ctx, roomID)
	if err != nil {
		return err
	}
	n := lo.CountBy(all, func(m domain.Member) bool { return m.IsActive })
	if err := s.rooms.SetCurrentUsers(ctx, roomID, n); err != nil {
		return fmt.Errorf("rooms.SetCurrentUsers: %w", err)
	}
	return nil
}

func (s *MemberService) snapshot(ctx context.Context, roomID string) (*RoomWithMembers, error) {
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
