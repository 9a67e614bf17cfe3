package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, q := range []string{"first", "second", "third"} {
		_, err := j.Record(ctx, Turn{
			SessionID: "s1",
			At:        base.Add(time.Duration(i) * time.Second),
			Question:  q,
			Answer:    "answer " + q,
			Score:     float64(90 + i),
			Origin:    "retrieved",
			Outcome:   OutcomeAnswered,
		})
		require.NoError(t, err)
	}

	recent, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, "third", recent[0].Question)
	assert.Equal(t, "second", recent[1].Question)
	assert.Equal(t, 92.0, recent[0].Score)
	assert.True(t, recent[0].At.Equal(base.Add(2*time.Second)))

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecordFillsDefaults(t *testing.T) {
	j := openTemp(t)

	turn, err := j.Record(context.Background(), Turn{Question: "q", Outcome: OutcomeEmpty, Error: "no answer"})
	require.NoError(t, err)

	assert.NotEmpty(t, turn.ID)
	assert.False(t, turn.At.IsZero())

	recent, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, turn.ID, recent[0].ID)
	assert.Equal(t, "no answer", recent[0].Error)
}

func TestSession(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	j.Record(ctx, Turn{SessionID: "a", Question: "a1"})
	j.Record(ctx, Turn{SessionID: "b", Question: "b1"})
	j.Record(ctx, Turn{SessionID: "a", Question: "a2"})

	turns, err := j.Session(ctx, "a")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "a1", turns[0].Question)
	assert.Equal(t, "a2", turns[1].Question)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.Record(context.Background(), Turn{Question: "persist me"})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	recent, err := j.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "persist me", recent[0].Question)
}
