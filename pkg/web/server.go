// Package web provides the live session dashboard and the compute-node
// answer API.
package web

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-ask/pkg/hub"
	"github.com/teslashibe/go-ask/pkg/journal"
	"github.com/teslashibe/go-ask/pkg/session"
)

const (
	maxLogs  = 500
	maxTurns = 100
)

// Status is the dashboard view of a session.
type Status struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	Turns     int       `json:"turns"`
	Compute   string    `json:"compute"`
	Robot     string    `json:"robot"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TurnEntry is one finished turn as shown on the dashboard.
type TurnEntry struct {
	At       time.Time `json:"at"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Score    float64   `json:"score"`
	Origin   string    `json:"origin"`
	Outcome  string    `json:"outcome"`
	Error    string    `json:"error,omitempty"`
}

// LogEntry is a diagnostic line forwarded to the dashboard.
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Server is the web dashboard server. It observes a session.
type Server struct {
	app     *fiber.App
	addr    string
	journal *journal.Journal
	logger  *slog.Logger

	status   Status
	statusMu sync.RWMutex

	logs   []LogEntry
	logsMu sync.RWMutex

	turns   []TurnEntry
	turnsMu sync.RWMutex

	statusHub *hub.Hub
	logHub    *hub.Hub
}

// Option configures a Server.
type Option func(*Server)

// WithJournal serves /api/turns from j instead of memory.
func WithJournal(j *journal.Journal) Option {
	return func(s *Server) { s.journal = j }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a dashboard listening on addr once started.
func NewServer(addr string, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		logger: slog.Default(),
		logs:   make([]LogEntry, 0, maxLogs),
		turns:  make([]TurnEntry, 0, maxTurns),
		status: Status{State: session.StateIdle.String()},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")
	s.statusHub = hub.New("status", s.logger)
	s.logHub = hub.New("logs", s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "go-ask dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/turns", s.handleTurns)
	api.Get("/logs", s.handleLogs)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	s.app = app
	return s
}

// App exposes the fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the dashboard on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.statusHub.Run(ctx)
	go s.logHub.Run(ctx)

	go func() {
		<-ctx.Done()
		s.app.ShutdownWithTimeout(5 * time.Second)
	}()

	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("dashboard stopped", "error", err)
		}
	}()
}

// OnState records and broadcasts a state change.
func (s *Server) OnState(snap session.Snapshot) {
	s.statusMu.Lock()
	s.status = Status{
		SessionID: snap.SessionID,
		State:     snap.State.String(),
		Turns:     snap.Turns,
		Compute:   snap.Compute,
		Robot:     snap.Robot,
		UpdatedAt: time.Now(),
	}
	status := s.status
	s.statusMu.Unlock()

	s.statusHub.Publish("status", status)
}

// OnTurn records and broadcasts a finished turn.
func (s *Server) OnTurn(t session.Turn) {
	entry := TurnEntry{
		At:       t.Utterance.Timestamp,
		Question: t.Utterance.Text,
		Answer:   t.Answer.Text,
		Score:    t.Answer.Score,
		Origin:   t.Answer.Origin,
		Outcome:  t.Outcome,
	}
	if t.Err != nil {
		entry.Error = t.Err.Error()
	}

	s.turnsMu.Lock()
	s.turns = append(s.turns, entry)
	if len(s.turns) > maxTurns {
		s.turns = s.turns[1:]
	}
	s.turnsMu.Unlock()

	s.statusMu.Lock()
	s.status.Turns++
	s.statusMu.Unlock()

	s.statusHub.Publish("turn", entry)
}

// AddLog appends a diagnostic line and broadcasts it.
func (s *Server) AddLog(entry LogEntry) {
	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.Publish("log", entry)
}

// Logs returns a copy of the buffered diagnostics, oldest first.
func (s *Server) Logs() []LogEntry {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return append([]LogEntry(nil), s.logs...)
}

// Status returns the current dashboard status.
func (s *Server) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

var _ session.Observer = (*Server)(nil)
