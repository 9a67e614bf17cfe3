package resolve

// Decision is the action taken on a retrieval candidate.
type Decision int

const (
	// DecisionGenerate discards the candidate and asks the generator.
	DecisionGenerate Decision = iota
	// DecisionAccept uses the candidate at acceptable confidence.
	DecisionAccept
	// DecisionAcceptHigh uses the candidate at high confidence.
	DecisionAcceptHigh
)

func (d Decision) String() string {
	switch d {
	case DecisionAcceptHigh:
		return "high"
	case DecisionAccept:
		return "acceptable"
	default:
		return "generate"
	}
}

// Accepted reports whether the candidate text should be used as is.
func (d Decision) Accepted() bool {
	return d == DecisionAccept || d == DecisionAcceptHigh
}

// Default confidence tier boundaries.
const (
	DefaultHighConfidence       = 90
	DefaultAcceptableConfidence = 75
)

// Policy maps a candidate score to a Decision.
type Policy struct {
	High       float64
	Acceptable float64
}

// DefaultPolicy returns the 90/75 tiering.
func DefaultPolicy() Policy {
	return Policy{High: DefaultHighConfidence, Acceptable: DefaultAcceptableConfidence}
}

// Decide classifies c. Anything that did not come from the knowledge base
// is routed to generation.
func (p Policy) Decide(c Candidate) Decision {
	if c.Origin != OriginRetrieved {
		return DecisionGenerate
	}
	switch {
	case c.Score >= p.High:
		return DecisionAcceptHigh
	case c.Score >= p.Acceptable:
		return DecisionAccept
	default:
		return DecisionGenerate
	}
}
