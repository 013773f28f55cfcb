package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hapdev05/Room-server/internal/domain"
	"github.com/hapdev05/Room-server/internal/security"
	"github.com/hapdev05/Room-server/internal/service"
	"github.com/hapdev05/Room-server/internal/transport/ws"
)

const testJWTSecret = "handler-test-secret"

// recordingSync captures the leveling work handlers schedule. It also
// satisfies the socket server's Syncer so one instance wires the whole
// router.
type recordingSync struct {
	mu        sync.Mutex
	refreshes []string
	joins     []string
}

func (r *recordingSync) QueueRefresh(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes = append(r.refreshes, roomID)
}

func (r *recordingSync) AutoSyncAPIJoin(roomID, userID string, _ domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins = append(r.joins, roomID+":"+userID)
}

func (r *recordingSync) SyncUser(context.Context, string, string, domain.User) {}

func (r *recordingSync) SyncUserPresence(context.Context, string, bool) {}

func (r *recordingSync) Refreshes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.refreshes...)
}

func (r *recordingSync) Joins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.joins...)
}

type handlerEnv struct {
	store   *memLedger
	rec     *recordingSync
	rooms   *service.RoomService
	members *service.MemberService
	router  http.Handler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	store := newMemLedger()
	roomSvc := service.NewRoomService(store, store)
	memberSvc := service.NewMemberService(store, store)
	rec := &recordingSync{}
	verifier := security.NewTokenVerifier(testJWTSecret, "")

	h := NewHandler(roomSvc, memberSvc, nil, rec)
	wsServer := ws.NewServer(ws.NewHub(), rec, verifier)
	return &handlerEnv{
		store:   store,
		rec:     rec,
		rooms:   roomSvc,
		members: memberSvc,
		router:  NewRouter(h, wsServer, verifier, nil),
	}
}

func testUser(id, name string) domain.User {
	return domain.User{ID: id, Name: name, Email: id + "@example.com"}
}

func bearerFor(t *testing.T, user domain.User) string {
	t.Helper()
	tok, err := security.Sign(testJWTSecret, "", user, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (e *handlerEnv) do(t *testing.T, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestLeaveRoom_NotifiesSubscribers(t *testing.T) {
	req := require.New(t)
	env := newHandlerEnv(t)
	ctx := context.Background()

	alice := testUser("u1", "Alice")
	bob := testUser("u2", "Bob")
	room, err := env.rooms.CreateRoom(ctx, service.CreateRoomSpec{Name: "standup", MaxUsers: 3}, alice)
	req.NoError(err)
	_, err = env.members.Join(ctx, room.Code, bob, "")
	req.NoError(err)

	rr := env.do(t, http.MethodPost, "/rooms/"+room.ID+"/leave", bearerFor(t, bob), nil)
	req.Equal(http.StatusOK, rr.Code)

	// The remaining members must hear about the departure.
	req.Equal([]string{room.ID}, env.rec.Refreshes())

	got, err := env.store.GetByID(ctx, room.ID)
	req.NoError(err)
	req.True(got.IsActive)
	req.Equal(1, got.CurrentUsers)
}

func TestLeaveRoom_LastMemberSkipsRefresh(t *testing.T) {
	req := require.New(t)
	env := newHandlerEnv(t)
	ctx := context.Background()

	alice := testUser("u1", "Alice")
	room, err := env.rooms.CreateRoom(ctx, service.CreateRoomSpec{Name: "solo"}, alice)
	req.NoError(err)

	rr := env.do(t, http.MethodPost, "/rooms/"+room.ID+"/leave", bearerFor(t, alice), nil)
	req.Equal(http.StatusOK, rr.Code)

	// The room closed behind the last member; there is nobody to refresh.
	req.Empty(env.rec.Refreshes())

	got, err := env.store.GetByID(ctx, room.ID)
	req.NoError(err)
	req.False(got.IsActive)
}

func TestJoinRoom_SchedulesLevelingPasses(t *testing.T) {
	req := require.New(t)
	env := newHandlerEnv(t)
	ctx := context.Background()

	alice := testUser("u1", "Alice")
	bob := testUser("u2", "Bob")
	room, err := env.rooms.CreateRoom(ctx, service.CreateRoomSpec{Name: "standup"}, alice)
	req.NoError(err)

	rr := env.do(t, http.MethodPost, "/rooms/join", bearerFor(t, bob), JoinRoomRequest{Code: room.Code})
	req.Equal(http.StatusOK, rr.Code)
	req.Equal([]string{room.ID + ":u2"}, env.rec.Joins())
}

func TestRooms_RequireAuth(t *testing.T) {
	env := newHandlerEnv(t)
	rr := env.do(t, http.MethodPost, "/rooms/r1/leave", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

// memLedger backs the room and member stores with maps, the same way
// the service-level tests fake their persistence.
type memLedger struct {
	mu      sync.Mutex
	rooms   map[string]*domain.Room
	members map[string]map[string]*domain.Member // roomID -> userID
}

func newMemLedger() *memLedger {
	return &memLedger{
		rooms:   make(map[string]*domain.Room),
		members: make(map[string]map[string]*domain.Member),
	}
}

func (s *memLedger) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *room
	s.rooms[room.ID] = &cp
	return nil
}

func (s *memLedger) GetByID(_ context.Context, id string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memLedger) GetActiveByCode(_ context.Context, code string) (*domain.Room, error) {
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

func (s *memLedger) CodeInUse(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.Code == code && r.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *memLedger) Update(_ context.Context, id string, patch domain.RoomPatch) error {
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

func (s *memLedger) SetCurrentUsers(_ context.Context, id string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	r.CurrentUsers = n
	return nil
}

func (s *memLedger) Close(_ context.Context, id string, at time.Time) error {
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

func (s *memLedger) ListActive(_ context.Context) ([]domain.Room, error) {
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

func (s *memLedger) Get(_ context.Context, roomID, userID string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[roomID][userID]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memLedger) ListByRoom(_ context.Context, roomID string) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Member
	for _, m := range s.members[roomID] {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *memLedger) InsertCreator(_ context.Context, m *domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(m)
	return nil
}

func (s *memLedger) InsertNew(_ context.Context, m *domain.Member, maxUsers int) error {
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
func (s *memLedger) put(m *domain.Member) {
	if s.members[m.RoomID] == nil {
		s.members[m.RoomID] = make(map[string]*domain.Member)
	}
	cp := *m
	s.members[m.RoomID][m.UserID] = &cp
}

func (s *memLedger) Reactivate(_ context.Context, roomID, userID string, at time.Time) error {
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

func (s *memLedger) Deactivate(_ context.Context, roomID, userID string, at time.Time) error {
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

func (s *memLedger) SetRole(_ context.Context, roomID, userID string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[roomID][userID]
	if !ok {
		return domain.ErrMemberNotFound
	}
	m.Role = role
	return nil
}

func (s *memLedger) RoomIDsByUser(_ context.Context, userID string) ([]string, error) {
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
