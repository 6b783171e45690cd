package stream

import (
	"log/slog"
	"net/http"

	"github.com/kabsikabs/integration-core/internal/auth"
)

// Handler upgrades an authenticated HTTP request to a WebSocket
// connection bound to one session. Mounted directly by internal/app
// alongside pkg/jobber's callback Router, for the same reason
// httpserver.NewServer's doc comment gives: connector/transport-specific
// routes are wired by the caller, not the generic server constructor.
type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// ServeHTTP upgrades the connection and blocks for its lifetime. Mount
// with router.Get("/ws", handler.ServeHTTP) behind auth.Middleware so
// auth.FromContext is populated before the upgrade — the session id
// itself still comes from the query string since a session belongs to
// whichever LLM/Jobber flow created it, not to the caller's identity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("stream: upgrade failed", "error", err, "session_id", sessionID)
		return
	}

	identity := auth.FromContext(r.Context())
	userID := ""
	if identity != nil {
		userID = identity.UserID
	}
	h.logger.Info("stream: client connected", "session_id", sessionID, "user_id", userID)

	client := newClient(h.hub, conn, sessionID, h.logger)
	client.run()
}
