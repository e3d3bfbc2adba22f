package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	mw "github.com/lorrc/avisos-backend/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/lorrc/avisos-backend/internal/adapters/primary/websocket"
)

// WebSocketConfig controls the upgrade of /comments connections.
type WebSocketConfig struct {
	AllowedOrigins  []string // exact hosts or "*.example.com"
	ReadBufferSize  int
	WriteBufferSize int
	IsDevelopment   bool // accept any origin
}

// WebSocketHandler upgrades requests on the comments stream endpoint and
// hands the connection to the hub. The stream is public: it carries the
// same data as the REST read path.
type WebSocketHandler struct {
	hub      *wsAdapter.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWebSocketHandler(hub *wsAdapter.Hub, cfg WebSocketConfig, logger *slog.Logger) *WebSocketHandler {
	h := &WebSocketHandler{hub: hub, logger: logger.With("handler", "websocket")}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return h.checkOrigin(r, cfg)
		},
	}
	return h
}

// checkOrigin accepts requests without an Origin header, which come from
// non-browser clients.
func (h *WebSocketHandler) checkOrigin(r *http.Request, cfg WebSocketConfig) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if cfg.IsDevelopment {
		h.logger.Debug("development mode, accepting websocket origin", "origin", origin)
		return true
	}

	u, err := url.Parse(origin)
	if err == nil && originAllowed(u.Host, cfg.AllowedOrigins) {
		return true
	}
	h.logger.Warn("websocket origin rejected",
		"origin", origin,
		"remote_addr", r.RemoteAddr,
	)
	return false
}

// originAllowed matches host against exact entries and "*.example.com"
// wildcards. A wildcard also matches the bare domain.
func originAllowed(host string, allowed []string) bool {
	for _, entry := range allowed {
		domain, wildcard := strings.CutPrefix(entry, "*.")
		switch {
		case !wildcard && host == entry:
			return true
		case wildcard && (host == domain || strings.HasSuffix(host, "."+domain)):
			return true
		}
	}
	return false
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With("request_id", mw.GetRequestID(r.Context()), "remote_addr", r.RemoteAddr)

	// Upgrade writes the HTTP error response itself.
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := h.hub.Serve(conn)
	log.Info("websocket connection established", "client_id", client.ID)
}
