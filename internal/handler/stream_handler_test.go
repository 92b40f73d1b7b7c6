package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/realtime"
	"vntrbirds-be/pkg/logger"
)

type streamEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func streamServer(t *testing.T, f *fakes, origins []string) (*httptest.Server, *realtime.Hub) {
	t.Helper()

	log := logger.NewNop()
	hub := realtime.NewHub(log, nil)
	h := NewStreamHandler(hub, f.services(), origins, log)

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	r := chi.NewRouter()
	r.Get("/api/leaderboard/stream", h.Leaderboard)
	r.Get("/api/settings/stream", h.Settings)
	r.Get("/api/teams/{teamId}/stream", h.Team)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		hub.CloseAll()
		srv.Close()
	})
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) streamEnvelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env streamEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestStreamHandler_Leaderboard(t *testing.T) {
	f := newFakes()
	f.leaderboard.board = domain.Leaderboard{
		Entries: []domain.LeaderboardEntry{{TeamScore: domain.TeamScore{TeamID: "a", TeamName: "A", TotalPoints: 10, Rank: 1}}},
	}
	srv, hub := streamServer(t, f, nil)

	conn := dial(t, srv, "/api/leaderboard/stream")

	first := readEnvelope(t, conn)
	assert.Equal(t, MessageLeaderboard, first.Type)
	var board domain.Leaderboard
	require.NoError(t, json.Unmarshal(first.Data, &board))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, 10, board.Entries[0].TotalPoints)

	require.Eventually(t, func() bool {
		return hub.Count(realtime.StreamLeaderboard) == 1 && f.leaderboard.subscribers() == 1
	}, time.Second, 10*time.Millisecond)

	f.leaderboard.set(domain.Leaderboard{
		Entries: []domain.LeaderboardEntry{{TeamScore: domain.TeamScore{TeamID: "a", TeamName: "A", TotalPoints: 35, Rank: 1}, RecentlyChanged: true}},
	})

	update := readEnvelope(t, conn)
	require.NoError(t, json.Unmarshal(update.Data, &board))
	assert.Equal(t, 35, board.Entries[0].TotalPoints)
	assert.True(t, board.Entries[0].RecentlyChanged)
}

func TestStreamHandler_Settings(t *testing.T) {
	f := newFakes()
	f.settings.open = false
	srv, _ := streamServer(t, f, nil)

	conn := dial(t, srv, "/api/settings/stream")

	env := readEnvelope(t, conn)
	assert.Equal(t, MessageSettings, env.Type)
	assert.JSONEq(t, `{"submissions_open":false}`, string(env.Data))
}

func TestStreamHandler_Team(t *testing.T) {
	f := newFakes()
	srv, hub := streamServer(t, f, nil)

	conn := dial(t, srv, "/api/teams/team-1/stream")
	require.Eventually(t, func() bool {
		return hub.Count(realtime.TeamStream("team-1")) == 1
	}, time.Second, 10*time.Millisecond)

	f.hunt.finds <- domain.Submission{ID: "s1", TeamID: "team-1", ItemID: "owl", Points: 10}

	env := readEnvelope(t, conn)
	assert.Equal(t, MessageSubmission, env.Type)
	var sub domain.Submission
	require.NoError(t, json.Unmarshal(env.Data, &sub))
	assert.Equal(t, "owl", sub.ItemID)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return hub.Count(realtime.TeamStream("team-1")) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamHandler_UnknownTeam(t *testing.T) {
	srv, _ := streamServer(t, newFakes(), nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/teams/missing/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamHandler_RejectsForeignOrigin(t *testing.T) {
	srv, _ := streamServer(t, newFakes(), []string{"https://hunt.example"})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/settings/stream"

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://hunt.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = conn.Close()
}
