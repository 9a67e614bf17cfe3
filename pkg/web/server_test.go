package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ask/internal/log"
	"github.com/teslashibe/go-ask/pkg/journal"
	"github.com/teslashibe/go-ask/pkg/session"
)

func snapshot(state session.State, turns int) session.Snapshot {
	return session.Snapshot{
		SessionID: "s-1",
		State:     state,
		Turns:     turns,
		Compute:   "ask@compute.local:22",
		Robot:     "nao@10.0.0.5:22",
	}
}

func getJSON(t *testing.T, s *Server, path string, v any) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v))
}

func TestStatusEndpoint(t *testing.T) {
	s := NewServer(":0", WithLogger(log.Discard()))

	var status Status
	getJSON(t, s, "/api/status", &status)
	assert.Equal(t, "idle", status.State)

	s.OnState(snapshot(session.StateListening, 0))
	getJSON(t, s, "/api/status", &status)
	assert.Equal(t, "listening", status.State)
	assert.Equal(t, "s-1", status.SessionID)
	assert.Equal(t, "nao@10.0.0.5:22", status.Robot)
}

func TestTurnsFromMemory(t *testing.T) {
	s := NewServer(":0", WithLogger(log.Discard()))

	for _, q := range []string{"first", "second", "third"} {
		s.OnTurn(session.Turn{
			SessionID: "s-1",
			Utterance: session.Utterance{Text: q, Timestamp: time.Now()},
			Answer:    session.Answer{Text: "answer " + q, Origin: "retrieved"},
			Outcome:   journal.OutcomeAnswered,
		})
	}
	s.OnTurn(session.Turn{
		Utterance: session.Utterance{Text: "fourth"},
		Outcome:   journal.OutcomeEmpty,
		Err:       session.ErrEmptyResponse,
	})

	var turns []TurnEntry
	getJSON(t, s, "/api/turns?limit=2", &turns)
	require.Len(t, turns, 2)
	assert.Equal(t, "fourth", turns[0].Question)
	assert.Equal(t, session.ErrEmptyResponse.Error(), turns[0].Error)
	assert.Equal(t, "third", turns[1].Question)

	assert.Equal(t, 4, s.Status().Turns)
}

func TestTurnsFromJournal(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	_, err = j.Record(context.Background(), journal.Turn{Question: "stored", Outcome: journal.OutcomeAnswered})
	require.NoError(t, err)

	s := NewServer(":0", WithJournal(j), WithLogger(log.Discard()))

	var turns []TurnEntry
	getJSON(t, s, "/api/turns", &turns)
	require.Len(t, turns, 1)
	assert.Equal(t, "stored", turns[0].Question)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := NewServer(":0", WithLogger(log.Discard()))

	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

func startServer(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Serve(ctx, ln)

	return "ws://" + ln.Addr().String()
}

func readEvent(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	var ev map[string]any
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestStatusWebSocket(t *testing.T) {
	s := NewServer("", WithLogger(log.Discard()))
	base := startServer(t, s)

	var ws *websocket.Conn
	require.Eventually(t, func() bool {
		var err error
		ws, _, err = websocket.DefaultDialer.Dial(base+"/ws/status", nil)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	defer ws.Close()

	first := readEvent(t, ws)
	assert.Equal(t, "status", first["type"])
	assert.Equal(t, "idle", first["data"].(map[string]any)["state"])

	s.OnState(snapshot(session.StateDispatching, 2))

	next := readEvent(t, ws)
	assert.Equal(t, "status", next["type"])
	data := next["data"].(map[string]any)
	assert.Equal(t, "dispatching", data["state"])
	assert.Equal(t, float64(2), data["turns"])
}

func TestLogsWebSocket(t *testing.T) {
	s := NewServer("", WithLogger(log.Discard()))
	logger := slog.New(s.LogHandler(slog.NewTextHandler(io.Discard, nil)))

	logger.Info("before connect", "step", 1)
	logger.Debug("hidden")

	base := startServer(t, s)
	var ws *websocket.Conn
	require.Eventually(t, func() bool {
		var err error
		ws, _, err = websocket.DefaultDialer.Dial(base+"/ws/logs", nil)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	defer ws.Close()

	replayed := readEvent(t, ws)
	entry := replayed["data"].(map[string]any)
	assert.Equal(t, "before connect", entry["message"])
	assert.Equal(t, float64(1), entry["attrs"].(map[string]any)["step"])

	logger.With("component", "session").Warn("dispatch failed", "error", errors.New("boom"))

	live := readEvent(t, ws)
	entry = live["data"].(map[string]any)
	assert.Equal(t, "dispatch failed", entry["message"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "session", entry["attrs"].(map[string]any)["component"])
	assert.Equal(t, "boom", entry["attrs"].(map[string]any)["error"])
}

func TestLogAttrsKeepErrorText(t *testing.T) {
	s := NewServer("", WithLogger(log.Discard()))
	logger := slog.New(s.LogHandler(slog.NewTextHandler(io.Discard, nil)))

	logger.With("target", "nao@10.0.0.5:22").Warn("speak failed",
		"error", fmt.Errorf("remote: connection failed: %w", errors.New("connection refused")),
		"elapsed", 1500*time.Millisecond,
		slog.Group("exit", "code", 2),
	)

	logs := s.Logs()
	require.Len(t, logs, 1)

	raw, err := json.Marshal(logs[0])
	require.NoError(t, err)

	var decoded struct {
		Attrs map[string]any `json:"attrs"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "remote: connection failed: connection refused", decoded.Attrs["error"])
	assert.Equal(t, "1.5s", decoded.Attrs["elapsed"])
	assert.Equal(t, "nao@10.0.0.5:22", decoded.Attrs["target"])
	assert.Equal(t, map[string]any{"code": float64(2)}, decoded.Attrs["exit"])
}
