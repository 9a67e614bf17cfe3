package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-ask/pkg/hub"
)

// handleStatus returns the current session status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleTurns returns recent turns, newest first
func (s *Server) handleTurns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > maxTurns {
		limit = maxTurns
	}

	if s.journal != nil {
		turns, err := s.journal.Recent(c.UserContext(), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		out := make([]TurnEntry, 0, len(turns))
		for _, t := range turns {
			out = append(out, TurnEntry{
				At:       t.At,
				Question: t.Question,
				Answer:   t.Answer,
				Score:    t.Score,
				Origin:   t.Origin,
				Outcome:  t.Outcome,
				Error:    t.Error,
			})
		}
		return c.JSON(out)
	}

	s.turnsMu.RLock()
	defer s.turnsMu.RUnlock()
	out := make([]TurnEntry, 0, limit)
	for i := len(s.turns) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.turns[i])
	}
	return c.JSON(out)
}

// handleLogs returns buffered diagnostics
func (s *Server) handleLogs(c *fiber.Ctx) error {
	return c.JSON(s.Logs())
}

// handleStatusWS sends the current status, then every change
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	if client == nil {
		return
	}

	if msg, err := hub.NewEvent("status", s.Status()).Encode(); err == nil {
		client.Send(msg)
	}
	client.Run()
}

// replayLogs stays below the hub's per-client outbox.
const replayLogs = 50

// handleLogsWS replays the latest diagnostics, then streams new ones
func (s *Server) handleLogsWS(c *websocket.Conn) {
	client := hub.NewClient(s.logHub, c)
	if client == nil {
		return
	}

	s.logsMu.RLock()
	for _, entry := range s.logs[max(0, len(s.logs)-replayLogs):] {
		if msg, err := hub.NewEvent("log", entry).Encode(); err == nil {
			client.Send(msg)
		}
	}
	s.logsMu.RUnlock()

	client.Run()
}
