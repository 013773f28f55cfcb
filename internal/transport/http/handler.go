package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hapdev05/Room-server/internal/domain"
	"github.com/hapdev05/Room-server/internal/service"
	httpmw "github.com/hapdev05/Room-server/internal/transport/http/middleware"
	"github.com/hapdev05/Room-server/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

// SyncTrigger schedules the leveling work that follows a ledger mutation.
type SyncTrigger interface {
	QueueRefresh(roomID string)
	AutoSyncAPIJoin(roomID, userID string, info domain.User)
}

type Handler struct {
	roomSvc   *service.RoomService
	memberSvc *service.MemberService
	shareSvc  *service.ShareService
	sync      SyncTrigger
}

func NewHandler(room *service.RoomService, member *service.MemberService, share *service.ShareService, sync SyncTrigger) *Handler {
	return &Handler{
		roomSvc:   room,
		memberSvc: member,
		shareSvc:  share,
		sync:      sync,
	}
}

// respondErr maps the domain error taxonomy onto HTTP statuses.
func respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, domain.ErrShareNotFound),
		errors.Is(err, domain.ErrInviteNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrWrongPassword),
		errors.Is(err, domain.ErrNotCreator),
		errors.Is(err, domain.ErrNotInRoom):
		httputil.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrRoomFull):
		httputil.Error(w, http.StatusConflict, "room full")
	case errors.Is(err, domain.ErrInviteAnswered):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrShareInactive),
		errors.Is(err, domain.ErrShareExpired),
		errors.Is(err, domain.ErrShareExhausted),
		errors.Is(err, domain.ErrInviteExpired):
		httputil.Error(w, http.StatusGone, err.Error())
	default:
		slog.Error(op, slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func mustUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	u, ok := httpmw.UserFromCtx(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "missing identity")
	}
	return u, ok
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		httputil.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), service.CreateRoomSpec{
		Name:        req.Name,
		Description: req.Description,
		MaxUsers:    req.MaxUsers,
		IsPrivate:   req.IsPrivate,
		Password:    req.Password,
	}, user)
	if err != nil {
		respondErr(w, "handler.CreateRoom", err)
		return
	}

	httputil.Created(w, room)
}

// GET /rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomSvc.ListActive(r.Context())
	if err != nil {
		respondErr(w, "handler.ListRooms", err)
		return
	}
	httputil.OK(w, rooms)
}

// GET /rooms/my
func (h *Handler) MyRooms(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	rooms, err := h.roomSvc.UserRooms(r.Context(), user.ID)
	if err != nil {
		respondErr(w, "handler.MyRooms", err)
		return
	}
	httputil.OK(w, rooms)
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomSvc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, "handler.GetRoom", err)
		return
	}
	httputil.OK(w, room)
}

// GET /rooms/code/{code}
func (h *Handler) GetRoomByCode(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomSvc.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondErr(w, "handler.GetRoomByCode", err)
		return
	}
	httputil.OK(w, room)
}

// POST /rooms/join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	room, err := h.memberSvc.Join(r.Context(), req.Code, user, req.Password)
	if err != nil {
		respondErr(w, "handler.JoinRoom", err)
		return
	}

	// The join went through the REST ledger, not the socket: schedule the
	// delayed leveling passes so subscribers catch up.
	h.sync.AutoSyncAPIJoin(room.ID, user.ID, user)

	httputil.OK(w, room)
}

// POST /rooms/{id}/leave
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	roomID := chi.URLParam(r, "id")

	closed, err := h.memberSvc.Leave(r.Context(), roomID, user.ID)
	if err != nil {
		respondErr(w, "handler.LeaveRoom", err)
		return
	}
	// Subscribers learn of the departure right away; a closed room has
	// nobody left to tell.
	if !closed {
		h.sync.QueueRefresh(roomID)
	}

	httputil.OK(w, StatusResponse{Status: "left"})
}

// PATCH /rooms/{id}
func (h *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	roomID := chi.URLParam(r, "id")

	room, err := h.memberSvc.UpdateSettings(r.Context(), roomID, service.UpdateRoomSpec{
		Name:        req.Name,
		Description: req.Description,
		MaxUsers:    req.MaxUsers,
		IsPrivate:   req.IsPrivate,
		Password:    req.Password,
	}, user.ID)
	if err != nil {
		respondErr(w, "handler.UpdateRoom", err)
		return
	}
	h.sync.QueueRefresh(roomID)

	httputil.OK(w, room)
}

// DELETE /rooms/{id}
func (h *Handler) CloseRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	roomID := chi.URLParam(r, "id")

	room, err := h.roomSvc.GetByID(r.Context(), roomID)
	if err != nil {
		respondErr(w, "handler.CloseRoom", err)
		return
	}
	if room.CreatedBy != user.ID {
		respondErr(w, "handler.CloseRoom", domain.ErrNotCreator)
		return
	}
	if _, err := h.memberSvc.Close(r.Context(), roomID); err != nil {
		respondErr(w, "handler.CloseRoom", err)
		return
	}
	h.sync.QueueRefresh(roomID)

	httputil.OK(w, StatusResponse{Status: "closed"})
}

// POST /rooms/{id}/share
func (h *Handler) CreateShareLink(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req CreateShareLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	link, err := h.shareSvc.CreateShareLink(r.Context(), chi.URLParam(r, "id"), user.ID, service.ShareLinkSpec{
		TTL:     time.Duration(req.TTLHours) * time.Hour,
		MaxUses: req.MaxUses,
		Message: req.Message,
	})
	if err != nil {
		respondErr(w, "handler.CreateShareLink", err)
		return
	}
	httputil.Created(w, link)
}

// GET /rooms/{id}/share/stats
func (h *Handler) ShareStats(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	stats, err := h.shareSvc.RoomShareStats(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		respondErr(w, "handler.ShareStats", err)
		return
	}
	httputil.OK(w, stats)
}

// GET /share/links
func (h *Handler) MyShareLinks(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	links, err := h.shareSvc.UserShareLinks(r.Context(), user.ID)
	if err != nil {
		respondErr(w, "handler.MyShareLinks", err)
		return
	}
	httputil.OK(w, links)
}

// GET /share/{token} — public preview, counts a view.
func (h *Handler) GetShareLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.shareSvc.GetShareLink(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondErr(w, "handler.GetShareLink", err)
		return
	}
	httputil.OK(w, link)
}

// POST /share/{token}/click — public, counts a click-through.
func (h *Handler) ClickShareLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.shareSvc.UseShareLink(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondErr(w, "handler.ClickShareLink", err)
		return
	}
	httputil.OK(w, link)
}

// POST /share/{token}/join
func (h *Handler) RedeemShareLink(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req RedeemShareLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	room, err := h.shareSvc.RedeemShareLink(r.Context(), chi.URLParam(r, "token"), user, req.Password)
	if err != nil {
		respondErr(w, "handler.RedeemShareLink", err)
		return
	}
	h.sync.AutoSyncAPIJoin(room.ID, user.ID, user)

	httputil.OK(w, room)
}

// DELETE /share/{token}
func (h *Handler) DeactivateShareLink(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	if err := h.shareSvc.DeactivateShareLink(r.Context(), chi.URLParam(r, "token"), user.ID); err != nil {
		respondErr(w, "handler.DeactivateShareLink", err)
		return
	}
	httputil.OK(w, StatusResponse{Status: "deactivated"})
}

// POST /rooms/{id}/invite
func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ToEmail == "" {
		httputil.Error(w, http.StatusBadRequest, "to_email is required")
		return
	}

	inv, err := h.shareSvc.CreateInvitation(r.Context(), chi.URLParam(r, "id"), user.ID, service.InvitationSpec{
		ToEmail: req.ToEmail,
		Message: req.Message,
		TTL:     time.Duration(req.TTLHours) * time.Hour,
	})
	if err != nil {
		respondErr(w, "handler.CreateInvitation", err)
		return
	}
	httputil.Created(w, inv)
}

// GET /invitations
func (h *Handler) MyInvitations(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	invites, err := h.shareSvc.UserInvitations(r.Context(), user.Email)
	if err != nil {
		respondErr(w, "handler.MyInvitations", err)
		return
	}
	httputil.OK(w, invites)
}

// GET /invitations/{token}
func (h *Handler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.shareSvc.GetInvitation(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondErr(w, "handler.GetInvitation", err)
		return
	}
	httputil.OK(w, inv)
}

// POST /invitations/{token}/respond
func (h *Handler) RespondInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req RespondInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	room, err := h.shareSvc.RespondToInvitation(r.Context(), chi.URLParam(r, "token"), req.Accept, user, req.Password)
	if err != nil {
		respondErr(w, "handler.RespondInvitation", err)
		return
	}
	if room != nil {
		h.sync.AutoSyncAPIJoin(room.ID, user.ID, user)
		httputil.OK(w, room)
		return
	}

	httputil.OK(w, StatusResponse{Status: "declined"})
}
