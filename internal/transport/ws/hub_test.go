package ws

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hapdev05/Room-server/internal/domain"
)

// fakeConn satisfies Conn without a socket and records delivered frames.
type fakeConn struct {
	id   string
	user domain.User

	mu   sync.Mutex
	msgs []Message
}

func newFakeConn(userID string) *fakeConn {
	return &fakeConn{
		id:   uuid.NewString(),
		user: domain.User{ID: userID, Name: userID, Email: userID + "@example.com"},
	}
}

func (c *fakeConn) ID() string        { return c.id }
func (c *fakeConn) User() domain.User { return c.user }
func (c *fakeConn) Close() error      { return nil }

func (c *fakeConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeConn) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.msgs...)
}

func TestHub_AttachDetach_FirstAndLast(t *testing.T) {
	req := require.New(t)
	hub := NewHub()

	phone := newFakeConn("u1")
	laptop := newFakeConn("u1")

	req.True(hub.Attach(phone)) // first connection: user came online
	req.False(hub.Attach(laptop))
	req.True(hub.Online("u1"))

	_, last, ok := hub.Detach(phone.ID())
	req.True(ok)
	req.False(last) // laptop still connected
	req.True(hub.Online("u1"))

	user, last, ok := hub.Detach(laptop.ID())
	req.True(ok)
	req.True(last)
	req.Equal("u1", user.ID)
	req.False(hub.Online("u1"))

	_, _, ok = hub.Detach(laptop.ID())
	req.False(ok) // already gone
}

func TestHub_CountSubscribers_DistinctUsers(t *testing.T) {
	req := require.New(t)
	hub := NewHub()

	phone := newFakeConn("u1")
	laptop := newFakeConn("u1")
	other := newFakeConn("u2")
	for _, c := range []*fakeConn{phone, laptop, other} {
		hub.Attach(c)
	}

	req.True(hub.Subscribe(phone.ID(), "room-a"))
	req.True(hub.Subscribe(laptop.ID(), "room-a"))
	req.True(hub.Subscribe(other.ID(), "room-a"))

	// Two devices of the same user count once.
	req.Equal(2, hub.CountSubscribers("room-a"))
	req.Equal(0, hub.CountSubscribers("room-b"))

	hub.Unsubscribe(phone.ID(), "room-a")
	req.Equal(2, hub.CountSubscribers("room-a")) // laptop still there

	hub.Unsubscribe(laptop.ID(), "room-a")
	req.Equal(1, hub.CountSubscribers("room-a"))
}

func TestHub_SubscribeUnknownConn(t *testing.T) {
	hub := NewHub()
	require.False(t, hub.Subscribe("nope", "room-a"))
}

func TestHub_Broadcast_RoomScoped(t *testing.T) {
	req := require.New(t)
	hub := NewHub()

	inRoom := newFakeConn("u1")
	outside := newFakeConn("u2")
	hub.Attach(inRoom)
	hub.Attach(outside)
	hub.Subscribe(inRoom.ID(), "room-a")

	hub.Broadcast("room-a", "room-sync-update", map[string]string{"k": "v"})

	req.Len(inRoom.received(), 1)
	req.Equal("room-sync-update", inRoom.received()[0].Type)
	req.Empty(outside.received())
}

func TestHub_SendToUser_AllDevices(t *testing.T) {
	req := require.New(t)
	hub := NewHub()

	phone := newFakeConn("u1")
	laptop := newFakeConn("u1")
	other := newFakeConn("u2")
	for _, c := range []*fakeConn{phone, laptop, other} {
		hub.Attach(c)
	}

	hub.SendToUser("u1", "notification", "hello")

	req.Len(phone.received(), 1)
	req.Len(laptop.received(), 1)
	req.Empty(other.received())
}

func TestHub_Detach_DropsSubscriptions(t *testing.T) {
	req := require.New(t)
	hub := NewHub()

	c := newFakeConn("u1")
	hub.Attach(c)
	hub.Subscribe(c.ID(), "room-a")
	req.Equal(1, hub.CountSubscribers("room-a"))

	hub.Detach(c.ID())
	req.Equal(0, hub.CountSubscribers("room-a"))

	hub.Broadcast("room-a", "room-sync-update", nil)
	req.Empty(c.received())
}

func TestHub_ListOnline(t *testing.T) {
	req := require.New(t)
	hub := NewHub()

	phone := newFakeConn("u1")
	laptop := newFakeConn("u1")
	other := newFakeConn("u2")
	for _, c := range []*fakeConn{phone, laptop, other} {
		hub.Attach(c)
	}

	online := hub.ListOnline()
	req.Len(online, 2) // distinct users, not connections

	ids := map[string]bool{online[0].ID: true, online[1].ID: true}
	req.True(ids["u1"])
	req.True(ids["u2"])
}
