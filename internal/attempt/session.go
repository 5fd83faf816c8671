package attempt

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeExpired is returned for answer edits after the countdown hit
	// zero. Expiry freezes the answer map; navigation stays allowed.
	ErrTimeExpired = errors.New("time budget expired")

	ErrUnknownQuestion = errors.New("unknown question")
	ErrUnknownOption   = errors.New("option is not part of this question")
)

// Answer is one answer-map entry. Single-choice entries hold exactly one
// selection; multi-choice entries hold the toggled set (possibly empty after
// a deselection, which counts as unanswered).
type Answer struct {
	Mode     InputMode
	Selected []string
}

// SubmittedAnswer is one (question, selections) pair of the flattened
// submission sequence, ordered by question-set position.
type SubmittedAnswer struct {
	QuestionID string
	Selected   []string
}

// Session is the live state of one exam-taking session. The question set and
// time budget are fixed at construction; the answer map and cursor mutate
// only through the methods below, and every mutation is refused once the
// session is terminated. Session is not goroutine-safe: the Controller
// serializes timer ticks and user events against it.
type Session struct {
	attemptID  string
	questions  []Question
	byID       map[string]int
	answers    map[string]Answer
	remaining  int
	cursor     int
	terminated bool
}

// NewSession builds a session from the attempt-start payload. The backend
// supplies the time budget in minutes; this is the one place it is converted
// to seconds.
func NewSession(attemptID string, timeLimitMinutes int, questions []Question) (*Session, error) {
	if attemptID == "" {
		return nil, errors.New("attempt id is required")
	}
	if timeLimitMinutes <= 0 {
		return nil, errors.New("time limit must be positive")
	}
	if len(questions) == 0 {
		return nil, errors.New("question set is empty")
	}

	byID := make(map[string]int, len(questions))
	for idx, question := range questions {
		if question.ID == "" {
			return nil, fmt.Errorf("question at position %d has no id", idx)
		}
		if _, dup := byID[question.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", question.ID)
		}
		byID[question.ID] = idx
	}

	return &Session{
		attemptID: attemptID,
		questions: questions,
		byID:      byID,
		answers:   make(map[string]Answer),
		remaining: timeLimitMinutes * 60,
	}, nil
}

func (s *Session) AttemptID() string { return s.attemptID }
func (s *Session) Len() int          { return len(s.questions) }
func (s *Session) Remaining() int    { return s.remaining }
func (s *Session) Terminated() bool  { return s.terminated }

// Expired reports that the countdown ran out before the session terminated.
func (s *Session) Expired() bool { return s.remaining == 0 && !s.terminated }

func (s *Session) Cursor() int { return s.cursor }

// Current returns the question under the cursor.
func (s *Session) Current() Question { return s.questions[s.cursor] }

// QuestionAt returns the question at position i.
func (s *Session) QuestionAt(i int) (Question, bool) {
	if i < 0 || i >= len(s.questions) {
		return Question{}, false
	}
	return s.questions[i], true
}

// Seek moves the cursor to position i. Out-of-range positions and terminated
// sessions leave the cursor unchanged.
func (s *Session) Seek(i int) {
	if s.terminated || i < 0 || i >= len(s.questions) {
		return
	}
	s.cursor = i
}

func (s *Session) Next() { s.Seek(s.cursor + 1) }
func (s *Session) Prev() { s.Seek(s.cursor - 1) }

// SetAnswer records a selection for the given question. Single-choice
// questions replace the previous selection; multi-choice questions toggle
// the option within the stored set. A terminated session makes this a silent
// no-op; an expired one refuses the edit with ErrTimeExpired.
func (s *Session) SetAnswer(questionID, option string) error {
	if s.terminated {
		return nil
	}
	if s.remaining == 0 {
		return ErrTimeExpired
	}

	idx, ok := s.byID[questionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	question := s.questions[idx]
	if !hasOption(question, option) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, option)
	}

	if ResolveInputMode(question) == InputSingle {
		s.answers[questionID] = Answer{Mode: InputSingle, Selected: []string{option}}
		return nil
	}

	entry := s.answers[questionID]
	entry.Mode = InputMulti
	entry.Selected = toggle(entry.Selected, option)
	s.answers[questionID] = entry
	return nil
}

// Answer returns the recorded entry for a question, if any.
func (s *Session) Answer(questionID string) (Answer, bool) {
	entry, ok := s.answers[questionID]
	return entry, ok
}

// IsAnswered reports whether a question has a non-empty selection.
func (s *Session) IsAnswered(questionID string) bool {
	entry, ok := s.answers[questionID]
	return ok && len(entry.Selected) > 0
}

// AnsweredCount recounts answered questions on every call so the value never
// lags the answer map.
func (s *Session) AnsweredCount() int {
	count := 0
	for _, question := range s.questions {
		if s.IsAnswered(question.ID) {
			count++
		}
	}
	return count
}

// Tick is one countdown step: decrement remaining time by exactly one
// second, never below zero, never after termination. It is the only mutation
// path for remaining time.
func (s *Session) Tick() {
	if s.terminated || s.remaining == 0 {
		return
	}
	s.remaining--
}

// Submission flattens the answer map into the ordered (question id,
// selections) sequence the scoring service expects. Only touched questions
// appear; single-choice entries become one-element sequences.
func (s *Session) Submission() []SubmittedAnswer {
	out := make([]SubmittedAnswer, 0, len(s.answers))
	for _, question := range s.questions {
		entry, ok := s.answers[question.ID]
		if !ok {
			continue
		}
		selected := make([]string, len(entry.Selected))
		copy(selected, entry.Selected)
		out = append(out, SubmittedAnswer{QuestionID: question.ID, Selected: selected})
	}
	return out
}

// AnswerMap is a deep copy of the answer map keyed by question id, used as
// the serialization unit for local drafts.
func (s *Session) AnswerMap() map[string][]string {
	out := make(map[string][]string, len(s.answers))
	for questionID, entry := range s.answers {
		selected := make([]string, len(entry.Selected))
		copy(selected, entry.Selected)
		out[questionID] = selected
	}
	return out
}

// terminate marks the session immutable. Called by the Controller on submit
// success only.
func (s *Session) terminate() {
	s.terminated = true
}

func hasOption(question Question, option string) bool {
	for _, candidate := range question.Options {
		if candidate == option {
			return true
		}
	}
	return false
}

func toggle(selected []string, option string) []string {
	for idx, candidate := range selected {
		if candidate == option {
			return append(selected[:idx], selected[idx+1:]...)
		}
	}
	return append(selected, option)
}
