package resolve

// QuestionType is the coarse intent of a question.
type QuestionType int

const (
	TypeNone QuestionType = iota
	TypeWhen
	TypeWhere
	TypeWho
	TypeWhat
)

var questionTypeNames = map[QuestionType]string{
	TypeNone:  "none",
	TypeWhen:  "when",
	TypeWhere: "where",
	TypeWho:   "who",
	TypeWhat:  "what",
}

func (t QuestionType) String() string {
	if name, ok := questionTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// indicator lists are checked in this order; the first type with a hit wins.
var indicators = []struct {
	qtype    QuestionType
	keywords []string
}{
	{TypeWhen, []string{"when", "established", "founded", "created", "year", "date"}},
	{TypeWhere, []string{"where", "located", "address", "city"}},
	{TypeWho, []string{"who", "person", "people", "faculty"}},
	{TypeWhat, []string{"what", "purpose", "description"}},
}

// ClassifyQuestion derives the question type from indicator substrings.
func ClassifyQuestion(text string) QuestionType {
	for _, ind := range indicators {
		if containsAny(text, ind.keywords) {
			return ind.qtype
		}
	}
	return TypeNone
}
