package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/hapdev05/Room-server/internal/domain"
)

// Directory is the snapshot source the reconciler reads from.
type Directory interface {
	GetByID(ctx context.Context, roomID string) (*RoomWithMembers, error)
	UserRooms(ctx context.Context, userID string) ([]RoomWithMembers, error)
	ListActive(ctx context.Context) ([]RoomWithMembers, error)
}

// Publisher is the notification fan-out: fire-and-forget delivery to a
// room's subscribers or to a user's personal channel.
type Publisher interface {
	Broadcast(roomID, event string, payload any)
	SendToUser(userID, event string, payload any)
}

// PresenceView exposes the live-connection side of the dual state.
type PresenceView interface {
	CountSubscribers(roomID string) int
}

// SyncService levels the durable membership ledger against the transient
// presence view: it re-derives the canonical member snapshot and pushes
// it to every live subscriber. Its operations are advisory; I/O failures
// are logged and left for the next pass.
type SyncService struct {
	directory Directory
	publisher Publisher
	presence  PresenceView

	coalesceWindow   time.Duration
	joinSyncDelay    time.Duration
	joinRefreshDelay time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
	timers   map[int64]*time.Timer
	nextID   int64
	closed   bool
}

type SyncConfig struct {
	CoalesceWindow   time.Duration
	JoinSyncDelay    time.Duration
	JoinRefreshDelay time.Duration
}

func NewSyncService(directory Directory, publisher Publisher, presence PresenceView, cfg SyncConfig) *SyncService {
	if cfg.CoalesceWindow <= 0 {
		cfg.CoalesceWindow = 2 * time.Second
	}
	if cfg.JoinSyncDelay <= 0 {
		cfg.JoinSyncDelay = time.Second
	}
	if cfg.JoinRefreshDelay <= 0 {
		cfg.JoinRefreshDelay = 3 * time.Second
	}
	return &SyncService{
		directory:        directory,
		publisher:        publisher,
		presence:         presence,
		coalesceWindow:   cfg.CoalesceWindow,
		joinSyncDelay:    cfg.JoinSyncDelay,
		joinRefreshDelay: cfg.JoinRefreshDelay,
		inFlight:         make(map[string]struct{}),
		timers:           make(map[int64]*time.Timer),
	}
}

// Close cancels all scheduled follow-ups. Further scheduling is a no-op.
func (s *SyncService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// after runs fn once after d unless the service is closed first.
func (s *SyncService) after(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	id := s.nextID
	s.nextID++
	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, id)
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			fn()
		}
	})
}

// SyncUser pushes a snapshot focused on one user to the whole room.
// Calls are deduplicated by (room, user): a second call while one is in
// flight is dropped, and the key is released after the coalescing window
// rather than on completion, so a burst collapses to one push.
func (s *SyncService) SyncUser(ctx context.Context, roomID, userID string, info domain.User) {
	key := roomID + ":" + userID

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, busy := s.inFlight[key]; busy {
		s.mu.Unlock()
		slog.Debug("sync already in flight", "room", roomID, "user", userID)
		return
	}
	s.inFlight[key] = struct{}{}
	s.mu.Unlock()

	snap, err := s.directory.GetByID(ctx, roomID)
	if err != nil {
		slog.Warn("sync user: snapshot failed", "room", roomID, "user", userID, "err", err)
		s.releaseKey(key)
		return
	}

	inRoom := lo.SomeBy(snap.Members, func(m domain.Member) bool {
		return m.UserID == userID && m.IsActive
	})

	now := time.Now().UTC()
	s.publisher.Broadcast(roomID, EventRoomSync, RoomSyncPayload{
		RoomID:       roomID,
		Room:         snap.Room,
		Members:      snap.Members,
		TotalMembers: snap.CurrentUsers,
		SyncedUser: &SyncedUser{
			UserID:   userID,
			Name:     info.Name,
			Email:    info.Email,
			IsInRoom: inRoom,
			SyncedAt: now,
		},
		Timestamp: now,
	})

	s.after(s.coalesceWindow, func() { s.releaseKey(key) })
}

func (s *SyncService) releaseKey(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

// ForceRefresh unconditionally pushes the canonical snapshot to every
// subscriber of the room.
func (s *SyncService) ForceRefresh(ctx context.Context, roomID string) {
	snap, err := s.directory.GetByID(ctx, roomID)
	if err != nil {
		slog.Warn("force refresh: snapshot failed", "room", roomID, "err", err)
		return
	}

	s.publisher.Broadcast(roomID, EventForceRefresh, RoomSyncPayload{
		RoomID:       roomID,
		Room:         snap.Room,
		Members:      snap.Members,
		TotalMembers: snap.CurrentUsers,
		Timestamp:    time.Now().UTC(),
	})
}

// QueueRefresh hands a refresh to the delayed-task runner instead of a
// bare goroutine, so Close cancels refreshes still pending at shutdown.
func (s *SyncService) QueueRefresh(roomID string) {
	s.after(0, func() {
		s.ForceRefresh(context.Background(), roomID)
	})
}

// ConsistencyCheck compares the live subscriber count against the active
// ledger count and refreshes on mismatch. Advisory: the two views are
// updated through independent paths and may transiently disagree.
func (s *SyncService) ConsistencyCheck(ctx context.Context, roomID string) {
	snap, err := s.directory.GetByID(ctx, roomID)
	if err != nil {
		slog.Warn("consistency check: snapshot failed", "room", roomID, "err", err)
		return
	}

	dbCount := lo.CountBy(snap.Members, func(m domain.Member) bool { return m.IsActive })
	liveCount := s.presence.CountSubscribers(roomID)

	if dbCount != liveCount {
		slog.Info("membership drift detected",
			"room", roomID, "ledger", dbCount, "live", liveCount)
		s.ForceRefresh(ctx, roomID)
	}
}

// AutoSyncAPIJoin bridges the common case of a REST join that is followed
// shortly by the user's live connection subscribing: a focused sync after
// a short delay, then a full refresh. Best effort, not a guarantee.
func (s *SyncService) AutoSyncAPIJoin(roomID, userID string, info domain.User) {
	s.after(s.joinSyncDelay, func() {
		s.SyncUser(context.Background(), roomID, userID, info)
	})
	s.after(s.joinRefreshDelay, func() {
		s.ForceRefresh(context.Background(), roomID)
	})
}

// SyncUserPresence tells every room the user belongs to that they went
// online or offline. Room-level membership is unaffected by connectivity.
func (s *SyncService) SyncUserPresence(ctx context.Context, userID string, online bool) {
	rooms, err := s.directory.UserRooms(ctx, userID)
	if err != nil {
		slog.Warn("presence sync: list rooms failed", "user", userID, "err", err)
		return
	}

	now := time.Now().UTC()
	for _, rm := range rooms {
		s.publisher.Broadcast(rm.ID, EventPresenceChange, PresenceChangePayload{
			RoomID:    rm.ID,
			UserID:    userID,
			IsOnline:  online,
			Timestamp: now,
		})
	}

	slog.Debug("presence synced", "user", userID, "online", online, "rooms", len(rooms))
}

// RunConsistencyLoop periodically levels every active room until the
// context is cancelled. Meant to run in its own goroutine.
func (s *SyncService) RunConsistencyLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rooms, err := s.directory.ListActive(ctx)
			if err != nil {
				slog.Warn("consistency loop: list rooms failed", "err", err)
				continue
			}
			for _, rm := range rooms {
				s.ConsistencyCheck(ctx, rm.ID)
			}
		}
	}
}
