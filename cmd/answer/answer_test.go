package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ask/internal/log"
	"github.com/teslashibe/go-ask/pkg/knowledge"
	"github.com/teslashibe/go-ask/pkg/resolve"
	"github.com/teslashibe/go-ask/pkg/session"
)

func TestWriteAnswer(t *testing.T) {
	a := session.Answer{Text: "The faculty was founded in 1969.", Score: 100, Origin: "retrieved", Tier: "high"}

	var text bytes.Buffer
	require.NoError(t, writeAnswer(&text, outputText, a))
	assert.Equal(t, "The faculty was founded in 1969.\n", text.String())

	var js bytes.Buffer
	require.NoError(t, writeAnswer(&js, outputJSON, a))

	parsed, err := session.ParseAnswer(js.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &raw))
	assert.Equal(t, "high", raw["tier"])
}

func TestCheckKnowledge(t *testing.T) {
	kb := knowledge.New(
		knowledge.Entry{Question: "When was the faculty founded?", Answer: "1969"},
		knowledge.Entry{Question: "Where is the faculty located?", Answer: "Košice"},
		knowledge.Entry{Question: "when was the Faculty founded? ", Answer: "duplicate"},
		knowledge.Entry{Question: "What is the weather like?", Answer: "sunny"},
	)
	engine := resolve.New(kb, resolve.WithLogger(log.Discard()))

	r := checkKnowledge(engine)
	assert.Equal(t, 4, r.entries)
	assert.Equal(t, 2, r.types[resolve.TypeWhen])
	assert.Equal(t, 1, r.types[resolve.TypeWhere])
	assert.Equal(t, 1, r.types[resolve.TypeWhat])
	assert.Equal(t, []string{"when was the Faculty founded? "}, r.duplicates)
	assert.Equal(t, []string{"What is the weather like?"}, r.unreachable)

	var out bytes.Buffer
	r.print(&out, "test.json")
	assert.Contains(t, out.String(), "Entries: 4")
	assert.Contains(t, out.String(), "Duplicate questions")
	assert.Contains(t, out.String(), "without a gate keyword")
}

func TestRootRequiresQuestion(t *testing.T) {
	root := newRootCmd()
	assert.Error(t, root.Args(root, nil))
	assert.NoError(t, root.Args(root, []string{"When", "was", "FEI", "founded?"}))
	assert.NotNil(t, root.Flags().Lookup("output"))
}
