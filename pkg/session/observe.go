package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-ask/pkg/journal"
)

// JournalObserver records every finished turn in a journal.
type JournalObserver struct {
	journal *journal.Journal
	logger  *slog.Logger
}

// NewJournalObserver wraps j.
func NewJournalObserver(j *journal.Journal, logger *slog.Logger) *JournalObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalObserver{journal: j, logger: logger.With("component", "session.journal")}
}

// OnState is a no-op.
func (o *JournalObserver) OnState(Snapshot) {}

// OnTurn appends the turn.
func (o *JournalObserver) OnTurn(t Turn) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rec := journal.Turn{
		SessionID: t.SessionID,
		At:        t.Utterance.Timestamp,
		Question:  t.Utterance.Text,
		Answer:    t.Answer.Text,
		Score:     t.Answer.Score,
		Origin:    t.Answer.Origin,
		Outcome:   t.Outcome,
	}
	if t.Err != nil {
		rec.Error = t.Err.Error()
	}

	if _, err := o.journal.Record(ctx, rec); err != nil {
		o.logger.Warn("journal write failed", "error", err)
	}
}

var _ Observer = (*JournalObserver)(nil)
