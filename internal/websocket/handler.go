package websocket

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"pricingcli/internal/config"
)

// Handler upgrades viewer connections and attaches them to hub.
// An empty AllowedOrigins accepts any origin.
func Handler(hub *Hub, cfg config.WebSocketConfig, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(cfg.AllowedOrigins) == 0 {
				return true
			}
			for _, allowed := range cfg.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			logger.Warn("WebSocket origin not allowed", slog.String("origin", origin))
			return false
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.ErrorContext(r.Context(), "WebSocket upgrade failed",
				slog.String("error", err.Error()),
				slog.String("request_id", reqID))
			return
		}

		client := NewClient(hub, conn, reqID, logger)
		client.Serve()

		logger.InfoContext(r.Context(), "WebSocket client connected",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("request_id", reqID))
	}
}
