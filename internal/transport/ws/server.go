package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hapdev05/Room-server/internal/domain"
	"github.com/hapdev05/Room-server/internal/security"
	"github.com/hapdev05/Room-server/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Syncer interface {
	SyncUser(ctx context.Context, roomID, userID string, info domain.User)
	SyncUserPresence(ctx context.Context, userID string, online bool)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	sync     Syncer
	verifier *security.TokenVerifier

	pingEvery time.Duration
}

func NewServer(hub *Hub, sync Syncer, verifier *security.TokenVerifier) *Server {
	return &Server{
		hub:      hub,
		sync:     sync,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws?access_token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	accessToken := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if accessToken == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			accessToken = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if accessToken == "" {
		http.Error(w, "missing access_token", http.StatusUnauthorized)
		return
	}
	claims, err := s.verifier.Parse(accessToken)
	if err != nil {
		http.Error(w, "invalid access_token", http.StatusUnauthorized)
		return
	}
	user := claims.User()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}

	c := newWsConn(conn, user)
	first := s.hub.Attach(c)

	if first {
		s.hub.BroadcastAll(service.EventUserStatus, service.UserStatusPayload{
			User:      user,
			IsOnline:  true,
			Timestamp: time.Now().UTC(),
		})
		s.sync.SyncUserPresence(r.Context(), user.ID, true)
	}
	s.sendOnlineUsers(c)

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	gone, last, ok := s.hub.Detach(c.ID())
	if ok && last {
		s.hub.BroadcastAll(service.EventUserStatus, service.UserStatusPayload{
			User:      gone,
			IsOnline:  false,
			Timestamp: time.Now().UTC(),
		})
		s.sync.SyncUserPresence(context.Background(), gone.ID, false)
	}

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "user", user.ID, "err", err)
	}
}

func (s *Server) sendOnlineUsers(c *wsConn) {
	users := s.hub.ListOnline()
	_ = c.Send(Message{
		Type: service.EventOnlineUsers,
		Payload: service.OnlineUsersPayload{
			Users: users,
			Count: len(users),
		},
	})
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()
	user := c.User()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case TypeSubscribe:
			var p subscribePayload
			if json.Unmarshal(msg.Payload, &p) != nil || p.RoomID == "" {
				continue
			}
			if !s.hub.Subscribe(c.ID(), p.RoomID) {
				continue
			}
			// Joining the room channel schedules a leveling pass so the
			// subscriber sees the current ledger state.
			s.sync.SyncUser(ctx, p.RoomID, user.ID, user)
		case TypeUnsubscribe:
			var p subscribePayload
			if json.Unmarshal(msg.Payload, &p) != nil || p.RoomID == "" {
				continue
			}
			s.hub.Unsubscribe(c.ID(), p.RoomID)
		case TypeGetOnlineUsers:
			s.sendOnlineUsers(c)
		case TypeNotify:
			var p notifyPayload
			if json.Unmarshal(msg.Payload, &p) != nil || p.TargetUserID == "" {
				continue
			}
			s.hub.SendToUser(p.TargetUserID, service.EventNotification, p.Notification)
		default:
			// ignore
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

type wsConn struct {
	id     string
	conn   *websocket.Conn
	user   domain.User
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn, user domain.User) *wsConn {
	return &wsConn{
		id:     uuid.NewString(),
		conn:   c,
		user:   user,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string        { return c.id }
func (c *wsConn) User() domain.User { return c.user }

func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}
