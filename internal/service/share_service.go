package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/hapdev05/Room-server/internal/domain"
	"github.com/hapdev05/Room-server/internal/security"
)

const (
	defaultLinkTTL   = 24 * time.Hour
	defaultInviteTTL = 72 * time.Hour
)

// RoomResolver is the subset of the directory the share service needs.
type RoomResolver interface {
	GetByID(ctx context.Context, roomID string) (*RoomWithMembers, error)
}

// Joiner is the ledger join path; a redeemed share artifact is treated
// as an ordinary join request.
type Joiner interface {
	Join(ctx context.Context, roomCode string, user domain.User, password string) (*RoomWithMembers, error)
}

// ShareService issues and redeems expiring share links and personal
// invitations for rooms.
type ShareService struct {
	store  ShareStore
	rooms  RoomResolver
	ledger Joiner
}

func NewShareService(store ShareStore, rooms RoomResolver, ledger Joiner) *ShareService {
	return &ShareService{store: store, rooms: rooms, ledger: ledger}
}

type ShareLinkSpec struct {
	TTL     time.Duration
	MaxUses *int
	Message string
}

// CreateShareLink issues a new link for the room. Creator only.
func (s *ShareService) CreateShareLink(ctx context.Context, roomID, userID string, spec ShareLinkSpec) (*domain.ShareLink, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatedBy != userID {
		return nil, domain.ErrNotCreator
	}

	token, err := security.ShareToken()
	if err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}

	ttl := spec.TTL
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}
	message := spec.Message
	if message == "" {
		message = fmt.Sprintf("Join %s!", room.Name)
	}

	now := time.Now().UTC()
	link := &domain.ShareLink{
		Token:     token,
		RoomID:    room.ID,
		RoomCode:  room.Code,
		RoomName:  room.Name,
		CreatedBy: userID,
		Message:   message,
		MaxUses:   spec.MaxUses,
		IsActive:  true,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.store.CreateLink(ctx, link); err != nil {
		return nil, fmt.Errorf("store.CreateLink: %w", err)
	}

	slog.Info("share link created", "room", room.ID, "token", token)
	return link, nil
}

// GetShareLink validates and returns the link, counting the view.
func (s *ShareService) GetShareLink(ctx context.Context, token string) (*domain.ShareLink, error) {
	link, err := s.validLink(ctx, token)
	if err != nil {
		return nil, err
	}
	link.Views++
	if err := s.store.AddLinkView(ctx, token, time.Now().UTC()); err != nil {
		slog.Warn("share link view count failed", "token", token, "err", err)
	}
	return link, nil
}

// UseShareLink records a click-through on a valid link.
func (s *ShareService) UseShareLink(ctx context.Context, token string) (*domain.ShareLink, error) {
	link, err := s.validLink(ctx, token)
	if err != nil {
		return nil, err
	}
	link.Clicks++
	if err := s.store.AddLinkClick(ctx, token, time.Now().UTC()); err != nil {
		slog.Warn("share link click count failed", "token", token, "err", err)
	}
	return link, nil
}

// RedeemShareLink turns a valid link into an ordinary ledger join for
// the link's room and counts the successful join against the link.
func (s *ShareService) RedeemShareLink(ctx context.Context, token string, user domain.User, password string) (*RoomWithMembers, error) {
	link, err := s.validLink(ctx, token)
	if err != nil {
		return nil, err
	}

	snap, err := s.ledger.Join(ctx, link.RoomCode, user, password)
	if err != nil {
		return nil, err
	}

	if err := s.store.AddLinkJoin(ctx, token, time.Now().UTC()); err != nil {
		slog.Warn("share link join count failed", "token", token, "err", err)
	}
	return snap, nil
}

// DeactivateShareLink turns a link off. Creator only.
func (s *ShareService) DeactivateShareLink(ctx context.Context, token, userID string) error {
	link, err := s.store.GetLink(ctx, token)
	if err != nil {
		return err
	}
	if link.CreatedBy != userID {
		return domain.ErrNotCreator
	}
	return s.store.DeactivateLink(ctx, token, time.Now().UTC())
}

func (s *ShareService) validLink(ctx context.Context, token string) (*domain.ShareLink, error) {
	link, err := s.store.GetLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if !link.IsActive {
		return nil, domain.ErrShareInactive
	}
	if time.Now().After(link.ExpiresAt) {
		return nil, domain.ErrShareExpired
	}
	if link.MaxUses != nil && link.CurrentUses >= *link.MaxUses {
		return nil, domain.ErrShareExhausted
	}
	return link, nil
}

type InvitationSpec struct {
	ToEmail string
	Message string
	TTL     time.Duration
}

// CreateInvitation issues a personal invite. Any active member may invite.
func (s *ShareService) CreateInvitation(ctx context.Context, roomID, fromUserID string, spec InvitationSpec) (*domain.Invitation, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	sender, ok := lo.Find(room.Members, func(m domain.Member) bool {
		return m.UserID == fromUserID && m.IsActive
	})
	if !ok {
		return nil, domain.ErrNotInRoom
	}

	token, err := security.ShareToken()
	if err != nil {
		return nil, fmt.Errorf("generate invite token: %w", err)
	}

	ttl := spec.TTL
	if ttl <= 0 {
		ttl = defaultInviteTTL
	}
	message := spec.Message
	if message == "" {
		message = fmt.Sprintf("%s invited you to join %s", sender.Name, room.Name)
	}

	now := time.Now().UTC()
	inv := &domain.Invitation{
		Token:        token,
		RoomID:       room.ID,
		RoomCode:     room.Code,
		RoomName:     room.Name,
		FromUserID:   fromUserID,
		FromUserName: sender.Name,
		ToEmail:      spec.ToEmail,
		Message:      message,
		Status:       domain.InvitePending,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}
	if err := s.store.CreateInvite(ctx, inv); err != nil {
		return nil, fmt.Errorf("store.CreateInvite: %w", err)
	}

	slog.Info("invitation created", "room", room.ID, "to", spec.ToEmail)
	return inv, nil
}

// GetInvitation returns a pending invite, lazily expiring stale ones.
func (s *ShareService) GetInvitation(ctx context.Context, token string) (*domain.Invitation, error) {
	inv, err := s.store.GetInvite(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.Status != domain.InvitePending {
		return nil, domain.ErrInviteAnswered
	}
	if time.Now().After(inv.ExpiresAt) {
		if err := s.store.SetInviteStatus(ctx, token, domain.InviteExpired, nil, time.Now().UTC()); err != nil {
			slog.Warn("invite expiry update failed", "token", token, "err", err)
		}
		return nil, domain.ErrInviteExpired
	}
	return inv, nil
}

// RespondToInvitation accepts or declines a pending invite; acceptance
// runs the ordinary ledger join for the invited room.
func (s *ShareService) RespondToInvitation(ctx context.Context, token string, accept bool, user domain.User, password string) (*RoomWithMembers, error) {
	inv, err := s.GetInvitation(ctx, token)
	if err != nil {
		return nil, err
	}

	status := domain.InviteDeclined
	var snap *RoomWithMembers
	if accept {
		snap, err = s.ledger.Join(ctx, inv.RoomCode, user, password)
		if err != nil {
			return nil, err
		}
		status = domain.InviteAccepted
	}

	if err := s.store.SetInviteStatus(ctx, token, status, &user.ID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("store.SetInviteStatus: %w", err)
	}

	slog.Info("invitation answered", "token", token, "status", status)
	return snap, nil
}

// RoomShareStats aggregates link and invite counters. Creator only.
func (s *ShareService) RoomShareStats(ctx context.Context, roomID, userID string) (*domain.ShareStats, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatedBy != userID {
		return nil, domain.ErrNotCreator
	}

	links, err := s.store.LinksByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	invites, err := s.store.InvitesByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stats := &domain.ShareStats{
		TotalLinks:       len(links),
		TotalInvitations: len(invites),
	}
	for _, l := range links {
		if l.IsActive && now.Before(l.ExpiresAt) {
			stats.ActiveLinks++
		}
		stats.TotalViews += l.Views
		stats.TotalClicks += l.Clicks
		stats.TotalJoins += l.Joins
	}
	for _, inv := range invites {
		switch inv.Status {
		case domain.InvitePending:
			stats.PendingInvitations++
		case domain.InviteAccepted:
			stats.AcceptedInvitations++
		case domain.InviteDeclined:
			stats.DeclinedInvitations++
		}
	}
	if stats.TotalClicks > 0 {
		stats.ConversionRate = float64(stats.TotalJoins) / float64(stats.TotalClicks) * 100
	}
	return stats, nil
}

// UserShareLinks lists links the user created.
func (s *ShareService) UserShareLinks(ctx context.Context, userID string) ([]domain.ShareLink, error) {
	return s.store.LinksByUser(ctx, userID)
}

// UserInvitations lists invites addressed to the email.
func (s *ShareService) UserInvitations(ctx context.Context, email string) ([]domain.Invitation, error) {
	return s.store.InvitesByEmail(ctx, email)
}
