package web

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-ask/pkg/journal"
	"github.com/teslashibe/go-ask/pkg/resolve"
	"github.com/teslashibe/go-ask/pkg/session"
)

// Resolver answers one question.
type Resolver interface {
	Answer(ctx context.Context, question string) resolve.Result
}

// ResolveRequest is the body of POST /api/resolve.
type ResolveRequest struct {
	Question string `json:"question"`
}

// AnswerServer exposes the resolution engine over HTTP on the compute node.
type AnswerServer struct {
	app      *fiber.App
	resolver Resolver
	health   func(ctx context.Context) error
	journal  *journal.Journal
	logger   *slog.Logger
}

// AnswerOption configures an AnswerServer.
type AnswerOption func(*AnswerServer)

// WithHealthCheck sets the probe behind GET /api/health.
func WithHealthCheck(fn func(ctx context.Context) error) AnswerOption {
	return func(s *AnswerServer) { s.health = fn }
}

// WithRecorder journals every resolved question.
func WithRecorder(j *journal.Journal) AnswerOption {
	return func(s *AnswerServer) { s.journal = j }
}

// WithAnswerLogger sets the structured logger.
func WithAnswerLogger(l *slog.Logger) AnswerOption {
	return func(s *AnswerServer) { s.logger = l }
}

// NewAnswerServer creates the answer API around r.
func NewAnswerServer(r Resolver, opts ...AnswerOption) *AnswerServer {
	s := &AnswerServer{resolver: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web.answer")

	app := fiber.New(fiber.Config{
		AppName:               "go-ask answer",
		DisableStartupMessage: true,
	})
	api := app.Group("/api")
	api.Post("/resolve", s.handleResolve)
	api.Get("/health", s.handleHealth)

	s.app = app
	return s
}

// App exposes the fiber app.
func (s *AnswerServer) App() *fiber.App {
	return s.app
}

// Serve runs the API on ln until ctx is done.
func (s *AnswerServer) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		s.app.ShutdownWithTimeout(5 * time.Second)
	}()
	s.logger.Info("answer API listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

func (s *AnswerServer) handleResolve(c *fiber.Ctx) error {
	var req ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	// An empty question is not an error: it misses the keyword gate and is
	// answered by the generator.
	req.Question = strings.TrimSpace(req.Question)

	start := time.Now()
	answer := session.AnswerFromResult(s.resolver.Answer(c.UserContext(), req.Question))
	s.logger.Info("resolved",
		"origin", answer.Origin,
		"score", answer.Score,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if s.journal != nil {
		outcome := journal.OutcomeResolved
		if answer.Text == "" {
			outcome = journal.OutcomeEmpty
		}
		if _, err := s.journal.Record(c.UserContext(), journal.Turn{
			Question: req.Question,
			Answer:   answer.Text,
			Score:    answer.Score,
			Origin:   answer.Origin,
			Outcome:  outcome,
		}); err != nil {
			s.logger.Warn("journal write failed", "error", err)
		}
	}

	return c.JSON(answer)
}

func (s *AnswerServer) handleHealth(c *fiber.Ctx) error {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
