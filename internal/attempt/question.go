package attempt

import (
	"strings"

	"github.com/Saivarun91/preptara-cli/internal/api"
)

// InputMode is how a question accepts answers: one selection that replaces
// the previous one, or a set of toggled selections.
type InputMode int

const (
	InputSingle InputMode = iota
	InputMulti
)

// Question is one item of an attempt's fixed question set.
type Question struct {
	ID      string
	Text    string
	Type    string
	Options []string
	Marks   int
}

// ResolveInputMode is the single place the single-vs-multi decision lives.
// A question takes multiple answers only when its declared type says so AND
// it offers more than two options: two-option banks tagged as multi (usually
// true/false imports) always take a single answer, matching how the platform
// renders and scores them.
func ResolveInputMode(q Question) InputMode {
	if declaredMulti(q.Type) && len(q.Options) > 2 {
		return InputMulti
	}
	return InputSingle
}

func declaredMulti(questionType string) bool {
	switch strings.ToLower(strings.TrimSpace(questionType)) {
	case "multi", "multiple", "multiple_choice", "mcq":
		return true
	}
	return false
}

// QuestionsFromPayload converts the attempt-start wire format into the
// session's question set, preserving option order.
func QuestionsFromPayload(payload []api.QuestionPayload) []Question {
	questions := make([]Question, 0, len(payload))
	for _, item := range payload {
		questions = append(questions, Question{
			ID:      item.ID,
			Text:    item.Text,
			Type:    item.Type,
			Options: item.Options,
			Marks:   item.Marks,
		})
	}
	return questions
}
