package attempt

import (
	"errors"
	"testing"
)

func testQuestions() []Question {
	return []Question{
		{ID: "q1", Text: "capital of france", Type: "single", Options: []string{"Paris", "Lyon", "Nice"}, Marks: 1},
		{ID: "q2", Text: "prime numbers", Type: "multiple", Options: []string{"2", "3", "4", "5"}, Marks: 2},
		{ID: "q3", Text: "go is compiled", Type: "multiple", Options: []string{"True", "False"}, Marks: 1},
	}
}

func newTestSession(t *testing.T, minutes int) *Session {
	t.Helper()
	session, err := NewSession("att-1", minutes, testQuestions())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return session
}

func TestNewSessionConvertsMinutesToSecondsOnce(t *testing.T) {
	session := newTestSession(t, 30)
	if got := session.Remaining(); got != 1800 {
		t.Fatalf("Remaining() after load with time_limit=30 = %d, want 1800", got)
	}
}

func TestNewSessionRejectsBadInput(t *testing.T) {
	if _, err := NewSession("", 10, testQuestions()); err == nil {
		t.Fatalf("expected error for empty attempt id")
	}
	if _, err := NewSession("att-1", 0, testQuestions()); err == nil {
		t.Fatalf("expected error for non-positive time limit")
	}
	if _, err := NewSession("att-1", 10, nil); err == nil {
		t.Fatalf("expected error for empty question set")
	}

	duplicated := []Question{
		{ID: "q1", Options: []string{"a", "b"}},
		{ID: "q1", Options: []string{"a", "b"}},
	}
	if _, err := NewSession("att-1", 10, duplicated); err == nil {
		t.Fatalf("expected error for duplicate question ids")
	}
}

func TestSetAnswerSingleChoiceReplaces(t *testing.T) {
	session := newTestSession(t, 10)

	if err := session.SetAnswer("q1", "Lyon"); err != nil {
		t.Fatalf("first SetAnswer failed: %v", err)
	}
	if err := session.SetAnswer("q1", "Nice"); err != nil {
		t.Fatalf("second SetAnswer failed: %v", err)
	}

	entry, ok := session.Answer("q1")
	if !ok {
		t.Fatalf("expected an answer entry for q1")
	}
	if entry.Mode != InputSingle {
		t.Fatalf("entry mode = %v, want InputSingle", entry.Mode)
	}
	if len(entry.Selected) != 1 || entry.Selected[0] != "Nice" {
		t.Fatalf("expected exactly the second option, got %v", entry.Selected)
	}
}

func TestSetAnswerMultiChoiceToggles(t *testing.T) {
	session := newTestSession(t, 10)

	if err := session.SetAnswer("q2", "2"); err != nil {
		t.Fatalf("SetAnswer failed: %v", err)
	}
	if err := session.SetAnswer("q2", "2"); err != nil {
		t.Fatalf("toggle-off SetAnswer failed: %v", err)
	}

	entry, ok := session.Answer("q2")
	if !ok {
		t.Fatalf("expected a touched entry for q2")
	}
	if len(entry.Selected) != 0 {
		t.Fatalf("expected option toggled off, got %v", entry.Selected)
	}
	if session.IsAnswered("q2") {
		t.Fatalf("empty selection set must not count as answered")
	}
}

func TestSetAnswerMultiChoiceDeselectKeepsOthers(t *testing.T) {
	session := newTestSession(t, 10)

	for _, option := range []string{"2", "3"} {
		if err := session.SetAnswer("q2", option); err != nil {
			t.Fatalf("SetAnswer(%q) failed: %v", option, err)
		}
	}
	if err := session.SetAnswer("q2", "2"); err != nil {
		t.Fatalf("deselect failed: %v", err)
	}

	entry, _ := session.Answer("q2")
	if len(entry.Selected) != 1 || entry.Selected[0] != "3" {
		t.Fatalf("expected one remaining selection \"3\", got %v", entry.Selected)
	}
}

func TestTwoOptionMultiTypeStoresSingleAnswer(t *testing.T) {
	session := newTestSession(t, 10)

	if err := session.SetAnswer("q3", "True"); err != nil {
		t.Fatalf("SetAnswer failed: %v", err)
	}
	if err := session.SetAnswer("q3", "False"); err != nil {
		t.Fatalf("SetAnswer failed: %v", err)
	}

	entry, _ := session.Answer("q3")
	if entry.Mode != InputSingle {
		t.Fatalf("two-option multi question stored mode %v, want InputSingle", entry.Mode)
	}
	if len(entry.Selected) != 1 || entry.Selected[0] != "False" {
		t.Fatalf("expected radio replace semantics, got %v", entry.Selected)
	}
}

func TestSetAnswerRejectsUnknownInputs(t *testing.T) {
	session := newTestSession(t, 10)

	if err := session.SetAnswer("nope", "Paris"); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
	if err := session.SetAnswer("q1", "Berlin"); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected ErrUnknownOption, got %v", err)
	}
}

func TestAnsweredCountRecomputes(t *testing.T) {
	session := newTestSession(t, 10)

	if got := session.AnsweredCount(); got != 0 {
		t.Fatalf("initial AnsweredCount = %d, want 0", got)
	}

	_ = session.SetAnswer("q1", "Paris")
	_ = session.SetAnswer("q2", "3")
	if got := session.AnsweredCount(); got != 2 {
		t.Fatalf("AnsweredCount after two answers = %d, want 2", got)
	}

	// Toggling the only multi selection off must drop the count immediately.
	_ = session.SetAnswer("q2", "3")
	if got := session.AnsweredCount(); got != 1 {
		t.Fatalf("AnsweredCount after deselect = %d, want 1", got)
	}
}

func TestTickStopsAtZero(t *testing.T) {
	session := newTestSession(t, 1)

	for i := 0; i < 65; i++ {
		session.Tick()
	}
	if got := session.Remaining(); got != 0 {
		t.Fatalf("Remaining after over-ticking = %d, want 0", got)
	}
	if !session.Expired() {
		t.Fatalf("expected session to report expiry at zero")
	}
}

func TestExpiryFreezesAnswerEdits(t *testing.T) {
	session := newTestSession(t, 1)
	_ = session.SetAnswer("q1", "Paris")

	for i := 0; i < 60; i++ {
		session.Tick()
	}

	if err := session.SetAnswer("q1", "Lyon"); !errors.Is(err, ErrTimeExpired) {
		t.Fatalf("expected ErrTimeExpired after countdown, got %v", err)
	}
	entry, _ := session.Answer("q1")
	if entry.Selected[0] != "Paris" {
		t.Fatalf("expired edit mutated answer map: %v", entry.Selected)
	}
}

func TestTerminationMakesSessionImmutable(t *testing.T) {
	session := newTestSession(t, 10)
	_ = session.SetAnswer("q1", "Paris")
	session.Seek(1)
	remainingBefore := session.Remaining()

	session.terminate()

	if err := session.SetAnswer("q1", "Lyon"); err != nil {
		t.Fatalf("post-termination SetAnswer must be a silent no-op, got %v", err)
	}
	entry, _ := session.Answer("q1")
	if entry.Selected[0] != "Paris" {
		t.Fatalf("post-termination SetAnswer mutated the answer map: %v", entry.Selected)
	}

	session.Tick()
	if session.Remaining() != remainingBefore {
		t.Fatalf("post-termination tick changed remaining time: %d -> %d", remainingBefore, session.Remaining())
	}

	session.Seek(0)
	session.Next()
	if session.Cursor() != 1 {
		t.Fatalf("post-termination navigation moved the cursor to %d", session.Cursor())
	}
}

func TestSeekClampsToQuestionSet(t *testing.T) {
	session := newTestSession(t, 10)

	session.Seek(-1)
	if session.Cursor() != 0 {
		t.Fatalf("Seek(-1) moved cursor to %d", session.Cursor())
	}
	session.Seek(99)
	if session.Cursor() != 0 {
		t.Fatalf("Seek(99) moved cursor to %d", session.Cursor())
	}

	session.Next()
	session.Next()
	session.Next() // already at the last question
	if session.Cursor() != 2 {
		t.Fatalf("Next past the end moved cursor to %d", session.Cursor())
	}
	session.Prev()
	if session.Cursor() != 1 {
		t.Fatalf("Prev moved cursor to %d, want 1", session.Cursor())
	}
}

func TestSubmissionFlattensTouchedEntriesInOrder(t *testing.T) {
	session := newTestSession(t, 10)

	// Touch q2 first, then q1: submission order must follow the question
	// set, not touch order. q3 stays untouched and absent.
	_ = session.SetAnswer("q2", "5")
	_ = session.SetAnswer("q2", "2")
	_ = session.SetAnswer("q1", "Paris")

	submission := session.Submission()
	if len(submission) != 2 {
		t.Fatalf("expected 2 submitted entries, got %d", len(submission))
	}
	if submission[0].QuestionID != "q1" || submission[1].QuestionID != "q2" {
		t.Fatalf("submission not in question-set order: %v", submission)
	}
	if len(submission[0].Selected) != 1 || submission[0].Selected[0] != "Paris" {
		t.Fatalf("single answer not wrapped in one-element sequence: %v", submission[0].Selected)
	}
	if len(submission[1].Selected) != 2 {
		t.Fatalf("multi answer lost selections: %v", submission[1].Selected)
	}
}

func TestAnswerMapIsACopy(t *testing.T) {
	session := newTestSession(t, 10)
	_ = session.SetAnswer("q2", "2")

	snapshot := session.AnswerMap()
	snapshot["q2"][0] = "mutated"

	entry, _ := session.Answer("q2")
	if entry.Selected[0] != "2" {
		t.Fatalf("AnswerMap leaked internal state: %v", entry.Selected)
	}
}
