package http

import (
	"net/http"
	"time"

	"github.com/hapdev05/Room-server/internal/security"
	httpmw "github.com/hapdev05/Room-server/internal/transport/http/middleware"
	"github.com/hapdev05/Room-server/internal/transport/ws"
	"github.com/hapdev05/Room-server/pkg/httputil"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *Handler, wsServer *ws.Server, verifier *security.TokenVerifier, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httputil.MiddlewareLogging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WS endpoint authenticates itself via access_token.
	r.Get("/ws", wsServer.HandleWS)

	// Public share landing: preview and click-through do not require a login.
	r.Get("/share/{token}", h.GetShareLink)
	r.Post("/share/{token}/click", h.ClickShareLink)

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.Auth(verifier))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/rooms", func(rm chi.Router) {
			rm.Post("/", h.CreateRoom)
			rm.Get("/", h.ListRooms)
			rm.Get("/my", h.MyRooms)
			rm.Post("/join", h.JoinRoom)
			rm.Get("/code/{code}", h.GetRoomByCode)

			rm.Route("/{id}", func(rr chi.Router) {
				rr.Get("/", h.GetRoom)
				rr.Post("/leave", h.LeaveRoom)
				rr.Patch("/", h.UpdateRoom)
				rr.Delete("/", h.CloseRoom)
				rr.Post("/share", h.CreateShareLink)
				rr.Get("/share/stats", h.ShareStats)
				rr.Post("/invite", h.CreateInvitation)
			})
		})

		pr.Get("/share/links", h.MyShareLinks)
		pr.Post("/share/{token}/join", h.RedeemShareLink)
		pr.Delete("/share/{token}", h.DeactivateShareLink)

		pr.Route("/invitations", func(iv chi.Router) {
			iv.Get("/", h.MyInvitations)
			iv.Get("/{token}", h.GetInvitation)
			iv.Post("/{token}/respond", h.RespondInvitation)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
