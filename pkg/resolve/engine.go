// Package resolve decides how a question is answered: by retrieving a curated
// answer from the knowledge base or by falling back to a generative model.
//
// Retrieval is a keyword-gated fuzzy match. Each knowledge entry is scored
// with a normalized edit-distance similarity plus two boosts: one for shared
// words and one for matching question types. Scores are not clamped, so a
// retrieved candidate can score up to 125.
package resolve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/teslashibe/go-ask/pkg/knowledge"
)

// Scoring constants.
const (
	DefaultThreshold = 80
	DefaultMaxLength = 100

	TopicBoost    = 10
	TypeBoost     = 15
	MinSharedWord = 2

	ExactScore = 100
	MaxScore   = 100 + TopicBoost + TypeBoost
)

// DefaultKeywords gate access to the knowledge base.
var DefaultKeywords = []string{
	"Faculty", "Košice", "Electrical Engineering", "Informatics",
	"departments", "research", "established", "founded", "created",
	"year", "date", "when",
}

// Origin records where a candidate's text came from.
type Origin int

const (
	// OriginNoMatch is the sentinel for "no knowledge base answer".
	OriginNoMatch Origin = iota
	OriginRetrieved
	OriginGenerated
)

func (o Origin) String() string {
	switch o {
	case OriginRetrieved:
		return "retrieved"
	case OriginGenerated:
		return "generated"
	default:
		return "no_match"
	}
}

// Candidate is a proposed answer.
type Candidate struct {
	Text   string
	Score  float64
	Origin Origin
}

// NoMatch is the sentinel candidate.
var NoMatch = Candidate{Origin: OriginNoMatch}

// Generator produces a free-form answer of bounded length.
type Generator interface {
	Generate(ctx context.Context, question string, maxLength int) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, question string, maxLength int) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, question string, maxLength int) (string, error) {
	return f(ctx, question, maxLength)
}

// Result is the outcome of Answer.
type Result struct {
	Candidate
	Decision Decision
}

// Engine resolves questions against one knowledge base.
type Engine struct {
	kb        *knowledge.Base
	keywords  []string
	threshold float64
	maxLength int
	policy    Policy
	generator Generator
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithKeywords replaces the gate keywords.
func WithKeywords(keywords ...string) Option {
	return func(e *Engine) { e.keywords = keywords }
}

// WithThreshold sets the minimum final score for a retrieval match.
func WithThreshold(t float64) Option {
	return func(e *Engine) { e.threshold = t }
}

// WithMaxLength bounds generated answers.
func WithMaxLength(n int) Option {
	return func(e *Engine) { e.maxLength = n }
}

// WithPolicy sets the confidence tiers used by Answer.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithGenerator sets the generative fallback.
func WithGenerator(g Generator) Option {
	return func(e *Engine) { e.generator = g }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over kb.
func New(kb *knowledge.Base, opts ...Option) *Engine {
	e := &Engine{
		kb:        kb,
		keywords:  DefaultKeywords,
		threshold: DefaultThreshold,
		maxLength: DefaultMaxLength,
		policy:    DefaultPolicy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "resolve")
	return e
}

// Knowledge returns the engine's knowledge base.
func (e *Engine) Knowledge() *knowledge.Base {
	return e.kb
}

// Admits reports whether question passes the engine's keyword gate.
func (e *Engine) Admits(question string) bool {
	return containsAny(question, e.keywords)
}

// Resolve runs the keyword gate and knowledge base retrieval with the
// engine's keywords and threshold. A question that fails the gate is
// answered by the generator. A question that passes the gate but matches
// nothing yields the NoMatch sentinel; use Answer to apply the confidence
// policy and fall back to generation.
func (e *Engine) Resolve(ctx context.Context, question string) Candidate {
	if !e.Admits(question) {
		e.logger.Debug("keyword gate closed", "question", question)
		return e.generate(ctx, question)
	}
	return e.Retrieve(question, e.keywords, e.threshold)
}

// Retrieve scores question against every entry and returns the best match
// at or above threshold, or NoMatch. It is pure: no generation, no I/O.
func (e *Engine) Retrieve(question string, keywords []string, threshold float64) Candidate {
	if !containsAny(question, keywords) {
		return NoMatch
	}

	n := e.kb.Len()
	normalized := strings.ToLower(strings.TrimSpace(question))

	for i := 0; i < n; i++ {
		entry := e.kb.At(i)
		if normalized == strings.ToLower(strings.TrimSpace(entry.Question)) {
			return Candidate{Text: entry.Answer, Score: ExactScore, Origin: OriginRetrieved}
		}
	}

	qtype := ClassifyQuestion(question)
	best := NoMatch
	bestScore := -1.0

	for i := 0; i < n; i++ {
		entry := e.kb.At(i)
		score := scoreEntry(question, qtype, entry.Question)
		if score >= threshold && score > bestScore {
			best = Candidate{Text: entry.Answer, Score: score, Origin: OriginRetrieved}
			bestScore = score
		}
	}

	return best
}

// scoreEntry computes base similarity plus topic and type boosts.
func scoreEntry(question string, qtype QuestionType, entryQuestion string) float64 {
	score := Similarity(question, entryQuestion)

	if sharedWords(question, entryQuestion) >= MinSharedWord {
		score += TopicBoost
	}

	if qtype != TypeNone && qtype == ClassifyQuestion(entryQuestion) {
		score += TypeBoost
	}

	return score
}

// Answer resolves question and applies the confidence policy: accepted
// retrievals are returned as is, everything else is generated.
func (e *Engine) Answer(ctx context.Context, question string) Result {
	c := e.Resolve(ctx, question)
	if c.Origin == OriginGenerated {
		return Result{Candidate: c, Decision: DecisionGenerate}
	}

	d := e.policy.Decide(c)
	if d.Accepted() {
		e.logger.Info("answer retrieved", "score", c.Score, "tier", d.String())
		return Result{Candidate: c, Decision: d}
	}

	e.logger.Info("no confident match, generating", "score", c.Score)
	return Result{Candidate: e.generate(ctx, question), Decision: DecisionGenerate}
}

// generate never fails: errors are logged and produce empty text.
func (e *Engine) generate(ctx context.Context, question string) Candidate {
	if e.generator == nil {
		e.logger.Warn("no generator configured")
		return Candidate{Origin: OriginGenerated}
	}

	text, err := e.generator.Generate(ctx, question, e.maxLength)
	if err != nil {
		e.logger.Error("generation failed", "error", err)
		return Candidate{Origin: OriginGenerated}
	}
	return Candidate{Text: strings.TrimSpace(text), Origin: OriginGenerated}
}
