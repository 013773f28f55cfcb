package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hapdev05/Room-server/internal/domain"
)

// memStore backs every store interface with maps, mirroring the
// postgres implementations closely enough for service-level tests.
type memStore struct {
	mu      sync.Mutex
	rooms   map[string]*domain.Room
	members map[string]map[string]*domain.Member // roomID -> userID
	links   map[string]*domain.ShareLink
	invites map[string]*domain.Invitation
}

func newMemStore() *memStore {
	return &memStore{
		rooms:   make(map[string]*domain.Room),
		members: make(map[string]map[string]*domain.Member),
		links:   make(map[string]*domain.ShareLink),
		invites: make(map[string]*domain.Invitation),
	}
}

// --- RoomStore ---

func (s *memStore) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *room
	s.rooms[room.ID] = &cp
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) GetActiveByCode(_ context.Context, code string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.Code == code && r.IsActive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

func (s *memStore) CodeInUse(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.Code == code && r.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Update(_ context.Context, id string, patch domain.RoomPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if patch.Name != nil {
		r.Name = *patch.Name
	}
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	if patch.MaxUsers != nil {
		r.MaxUsers = *patch.MaxUsers
	}
	if patch.IsPrivate != nil {
		r.IsPrivate = *patch.IsPrivate
	}
	if patch.ClearPassword {
		r.PasswordHash = nil
	} else if patch.PasswordHash != nil {
		r.PasswordHash = patch.PasswordHash
	}
	if patch.CreatedBy != nil {
		r.CreatedBy = *patch.CreatedBy
	}
	if patch.CreatorName != nil {
		r.CreatorName = *patch.CreatorName
	}
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) SetCurrentUsers(_ context.Context, id string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	r.CurrentUsers = n
	return nil
}

func (s *memStore) Close(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	r.IsActive = false
	if r.ClosedAt == nil {
		r.ClosedAt = &at
	}
	return nil
}

func (s *memStore) ListActive(_ context.Context) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Room
	for _, r := range s.rooms {
		if r.IsActive {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- MemberStore ---

func (s *memStore) Get(_ context.Context, roomID, userID string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[roomID][userID]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) ListByRoom(_ context.Context, roomID string) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Member
	for _, m := range s.members[roomID] {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (s *memStore) InsertCreator(_ context.Context, m *domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(m)
	return nil
}

func (s *memStore) InsertNew(_ context.Context, m *domain.Member, maxUsers int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := 0
	for _, ex := range s.members[m.RoomID] {
		if ex.IsActive {
			active++
		}
	}
	if active >= maxUsers {
		return domain.ErrRoomFull
	}
	s.put(m)
	if r, ok := s.rooms[m.RoomID]; ok {
		r.CurrentUsers = active + 1
	}
	return nil
}

// put must be called with the lock held.
func (s *memStore) put(m *domain.Member) {
	if s.members[m.RoomID] == nil {
		s.members[m.RoomID] = make(map[string]*domain.Member)
	}
	cp := *m
	s.members[m.RoomID][m.UserID] = &cp
}

func (s *memStore) Reactivate(_ context.Context, roomID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[roomID][userID]
	if !ok {
		return domain.ErrMemberNotFound
	}
	m.IsActive = true
	m.LastJoinedAt = &at
	m.LeftAt = nil
	return nil
}

func (s *memStore) Deactivate(_ context.Context, roomID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[roomID][userID]
	if !ok {
		return domain.ErrMemberNotFound
	}
	m.IsActive = false
	m.LeftAt = &at
	return nil
}

func (s *memStore) SetRole(_ context.Context, roomID, userID string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[roomID][userID]
	if !ok {
		return domain.ErrMemberNotFound
	}
	m.Role = role
	return nil
}

func (s *memStore) RoomIDsByUser(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for roomID, byUser := range s.members {
		if _, ok := byUser[userID]; ok {
			out = append(out, roomID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// --- ShareStore ---

func (s *memStore) CreateLink(_ context.Context, l *domain.ShareLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.links[l.Token] = &cp
	return nil
}

func (s *memStore) GetLink(_ context.Context, token string) (*domain.ShareLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[token]
	if !ok {
		return nil, domain.ErrShareNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *memStore) AddLinkView(_ context.Context, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.links[token]; ok {
		l.Views++
		l.LastUsedAt = &at
	}
	return nil
}

func (s *memStore) AddLinkClick(_ context.Context, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.links[token]; ok {
		l.Clicks++
		l.LastUsedAt = &at
	}
	return nil
}

func (s *memStore) AddLinkJoin(_ context.Context, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.links[token]; ok {
		l.Joins++
		l.CurrentUses++
		l.LastUsedAt = &at
	}
	return nil
}

func (s *memStore) DeactivateLink(_ context.Context, token string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[token]
	if !ok {
		return domain.ErrShareNotFound
	}
	l.IsActive = false
	return nil
}

func (s *memStore) LinksByRoom(_ context.Context, roomID string) ([]domain.ShareLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ShareLink
	for _, l := range s.links {
		if l.RoomID == roomID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *memStore) LinksByUser(_ context.Context, userID string) ([]domain.ShareLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ShareLink
	for _, l := range s.links {
		if l.CreatedBy == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *memStore) CreateInvite(_ context.Context, inv *domain.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inv
	s.invites[inv.Token] = &cp
	return nil
}

func (s *memStore) GetInvite(_ context.Context, token string) (*domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[token]
	if !ok {
		return nil, domain.ErrInviteNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *memStore) SetInviteStatus(_ context.Context, token string, status domain.InviteStatus, by *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[token]
	if !ok {
		return domain.ErrInviteNotFound
	}
	inv.Status = status
	inv.RespondedBy = by
	inv.RespondedAt = &at
	return nil
}

func (s *memStore) InvitesByRoom(_ context.Context, roomID string) ([]domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Invitation
	for _, inv := range s.invites {
		if inv.RoomID == roomID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (s *memStore) InvitesByEmail(_ context.Context, email string) ([]domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Invitation
	for _, inv := range s.invites {
		if inv.ToEmail == email {
			out = append(out, *inv)
		}
	}
	return out, nil
}

// fakePublisher records broadcasts for assertions.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	RoomID  string
	UserID  string
	Event   string
	Payload any
}

func (p *fakePublisher) Broadcast(roomID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{RoomID: roomID, Event: event, Payload: payload})
}

func (p *fakePublisher) SendToUser(userID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Event: event, Payload: payload})
}

func (p *fakePublisher) byEvent(event string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// fakePresence returns a fixed subscriber count per room.
type fakePresence struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakePresence() *fakePresence {
	return &fakePresence{counts: make(map[string]int)}
}

func (p *fakePresence) set(roomID string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[roomID] = n
}

func (p *fakePresence) CountSubscribers(roomID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[roomID]
}
