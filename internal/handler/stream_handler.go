package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/realtime"
	"vntrbirds-be/internal/service"
	"vntrbirds-be/pkg/logger"
)

// Stream message types
const (
	MessageLeaderboard = "leaderboard"
	MessageSettings    = "settings"
	MessageSubmission  = "submission"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	readLimit    = 512
)

// StreamHandler upgrades clients to websockets and keeps them fed.
// Leaderboard and settings updates are fanned out through the hub by Run;
// team streams are fed per connection.
type StreamHandler struct {
	hub         *realtime.Hub
	leaderboard service.LeaderboardService
	settings    service.SettingsService
	hunt        service.HuntService
	registry    service.RegistryService
	upgrader    websocket.Upgrader
	logger      *logger.Logger
}

// NewStreamHandler creates a new stream handler. An empty allowedOrigins list
// accepts any origin.
func NewStreamHandler(hub *realtime.Hub, services *service.Services, allowedOrigins []string, log *logger.Logger) *StreamHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &StreamHandler{
		hub:         hub,
		leaderboard: services.Leaderboard,
		settings:    services.Settings,
		hunt:        services.Hunt,
		registry:    services.Registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(origins) == 0 || origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
		logger: log.Named("stream"),
	}
}

// Run forwards service updates to hub subscribers until ctx ends or the
// services stop publishing.
func (h *StreamHandler) Run(ctx context.Context) {
	boards, cancelBoards := h.leaderboard.Subscribe()
	defer cancelBoards()
	flags, cancelFlags := h.settings.Watch()
	defer cancelFlags()

	for boards != nil || flags != nil {
		select {
		case <-ctx.Done():
			return
		case board, ok := <-boards:
			if !ok {
				boards = nil
				continue
			}
			h.hub.Broadcast(realtime.StreamLeaderboard, realtime.Message{Type: MessageLeaderboard, Data: board})
		case open, ok := <-flags:
			if !ok {
				flags = nil
				continue
			}
			h.hub.Broadcast(realtime.StreamSettings, realtime.Message{
				Type: MessageSettings,
				Data: domain.SettingsResponse{SubmissionsOpen: open},
			})
		}
	}
}

// Leaderboard handles GET /api/leaderboard/stream
func (h *StreamHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	h.serveHub(w, r, realtime.StreamLeaderboard, func() realtime.Message {
		return realtime.Message{Type: MessageLeaderboard, Data: h.leaderboard.Snapshot()}
	})
}

// Settings handles GET /api/settings/stream
func (h *StreamHandler) Settings(w http.ResponseWriter, r *http.Request) {
	h.serveHub(w, r, realtime.StreamSettings, func() realtime.Message {
		return realtime.Message{
			Type: MessageSettings,
			Data: domain.SettingsResponse{SubmissionsOpen: h.settings.SubmissionsOpen()},
		}
	})
}

// Team handles GET /api/teams/{teamId}/stream
func (h *StreamHandler) Team(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamId")

	// Resolve the team before upgrading so unknown ids get a JSON 404
	if _, err := h.registry.GetTeam(r.Context(), teamID); err != nil {
		respondError(w, r, err, service.MsgSomethingWrong, h.logger)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	stream := realtime.TeamStream(teamID)
	client := realtime.NewClient(conn)
	h.hub.Add(stream, client)
	defer h.hub.Remove(stream, client)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	go readPump(conn, cancel)

	finds, stop, err := h.hunt.WatchTeam(ctx, teamID)
	if err != nil {
		h.logger.WithError(err).WithField("team_id", teamID).Warn("Failed to watch team")
		return
	}
	defer stop()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case sub, ok := <-finds:
			if !ok {
				return
			}
			if err := client.Send(realtime.Message{Type: MessageSubmission, Data: sub}); err != nil {
				return
			}
		case <-ping.C:
			if err := client.Ping(); err != nil {
				return
			}
		}
	}
}

// serveHub registers the connection on a hub stream and sends the current
// state. Later updates arrive through Run.
func (h *StreamHandler) serveHub(w http.ResponseWriter, r *http.Request, stream string, current func() realtime.Message) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	client := realtime.NewClient(conn)
	h.hub.Add(stream, client)
	defer h.hub.Remove(stream, client)

	if err := client.Send(current()); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	go readPump(conn, cancel)

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := client.Ping(); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and calls done when the peer goes away
func readPump(conn *websocket.Conn, done func()) {
	defer done()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
