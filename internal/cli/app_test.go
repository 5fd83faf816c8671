package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Saivarun91/preptara-cli/internal/api"
	"github.com/Saivarun91/preptara-cli/internal/api/apitest"
	"github.com/Saivarun91/preptara-cli/internal/auth"
	"github.com/Saivarun91/preptara-cli/internal/history"
	"github.com/rs/zerolog"
)

func scriptedConfig(t *testing.T, backend *apitest.Server, store *history.Store) Config {
	t.Helper()
	session := auth.NewSession("")
	client := api.NewClient(backend.URL, backend.Client(), session.Credential, zerolog.Nop())
	return Config{
		Client:       client,
		Auth:         session,
		History:      store,
		TickInterval: time.Hour,
		PasswordFD:   -1,
		Logger:       zerolog.Nop(),
	}
}

func runScript(t *testing.T, cfg Config, lines ...string) string {
	t.Helper()
	input := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var output strings.Builder
	if err := Run(context.Background(), input, &output, cfg); err != nil {
		t.Fatalf("Run failed: %v\noutput:\n%s", err, output.String())
	}
	return output.String()
}

func examBackend() *apitest.Server {
	backend := apitest.New()
	backend.LoginToken = "session-token"
	backend.LoginUser = api.User{ID: 7, Email: "kiran@example.com", Name: "Kiran"}
	backend.Enrolled = true
	backend.Start = api.StartAttemptResponse{
		AttemptID:        "att-1",
		TimeLimitMinutes: 30,
		Questions: []api.QuestionPayload{
			{ID: "q1", Text: "Capital of France?", Type: "single", Options: []string{"Paris", "Lyon", "Nice"}, Marks: 1},
			{ID: "q2", Text: "Which are prime?", Type: "multiple", Options: []string{"2", "3", "4", "5"}, Marks: 2},
		},
	}
	backend.Result = api.AttemptResult{
		AttemptID:  "att-1",
		Score:      3,
		TotalMarks: 3,
		Correct:    2,
	}
	return backend
}

func TestLoginCommandStoresCredential(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	cfg := scriptedConfig(t, backend, nil)

	output := runScript(t, cfg,
		"login",
		"kiran@example.com",
		"secret",
		"whoami",
		"exit",
	)

	if !strings.Contains(output, "signed in as kiran@example.com") {
		t.Fatalf("login confirmation missing:\n%s", output)
	}
	if !strings.Contains(output, "Kiran (kiran@example.com)") {
		t.Fatalf("whoami after login wrong:\n%s", output)
	}
	if got := cfg.Auth.Credential(); got != "session-token" {
		t.Fatalf("stored credential = %q", got)
	}
}

func TestLoginCommandReportsRejection(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	backend.LoginFails = true
	cfg := scriptedConfig(t, backend, nil)

	output := runScript(t, cfg,
		"login",
		"kiran@example.com",
		"wrong",
		"exit",
	)

	if !strings.Contains(output, "login failed") {
		t.Fatalf("rejection not reported:\n%s", output)
	}
	if got := cfg.Auth.Credential(); got != "" {
		t.Fatalf("rejected login stored a credential: %q", got)
	}
}

func TestTakeRequiresLogin(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	cfg := scriptedConfig(t, backend, nil)

	output := runScript(t, cfg,
		"take cat-42",
		"exit",
	)

	if !strings.Contains(output, "You need to sign in first") {
		t.Fatalf("missing login redirect:\n%s", output)
	}
	if backend.StartCalls != 0 {
		t.Fatalf("attempt started despite missing credential: %d calls", backend.StartCalls)
	}
}

func TestTakeRejectsUnenrolledCategory(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	backend.Enrolled = false
	cfg := scriptedConfig(t, backend, nil)

	output := runScript(t, cfg,
		"login",
		"kiran@example.com",
		"secret",
		"take cat-42",
		"exit",
	)

	if !strings.Contains(output, "not enrolled in category cat-42") {
		t.Fatalf("missing enrollment denial:\n%s", output)
	}
	if backend.StartCalls != 0 {
		t.Fatalf("attempt started for unenrolled user: %d calls", backend.StartCalls)
	}
}

func TestTakeFlowAnswersAndSubmits(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	cfg := scriptedConfig(t, backend, nil)

	output := runScript(t, cfg,
		"login",
		"kiran@example.com",
		"secret",
		"take cat-42",
		"a",      // q1: Paris
		"n",      // to q2
		"a",      // q2: toggle 2
		"d",      // q2: toggle 5
		"submit",
		"yes",
		"exit",
	)

	if !strings.Contains(output, "Attempt att-1 started: 2 questions, 30:00 on the clock.") {
		t.Fatalf("attempt header missing:\n%s", output)
	}
	if !strings.Contains(output, "Submitted.") {
		t.Fatalf("submit confirmation missing:\n%s", output)
	}
	if !strings.Contains(output, "Score: 3/3") {
		t.Fatalf("result not rendered:\n%s", output)
	}

	if backend.Submissions() != 1 {
		t.Fatalf("backend saw %d submissions, want 1", backend.Submissions())
	}
	submission := backend.LastSubmission
	if submission.AttemptID != "att-1" || len(submission.Answers) != 2 {
		t.Fatalf("unexpected submission: %+v", submission)
	}
	if got := submission.Answers[0].SelectedAnswers; len(got) != 1 || got[0] != "Paris" {
		t.Fatalf("q1 answer = %v, want [Paris]", got)
	}
	if got := submission.Answers[1].SelectedAnswers; len(got) != 2 || got[0] != "2" || got[1] != "5" {
		t.Fatalf("q2 answer = %v, want [2 5]", got)
	}
}

func TestTakeSingleChoiceReplacesSelection(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	cfg := scriptedConfig(t, backend, nil)

	// Pick Lyon, then change to Paris: single choice keeps only the last one.
	output := runScript(t, cfg,
		"login",
		"kiran@example.com",
		"secret",
		"take cat-42",
		"b",
		"a",
		"submit",
		"yes",
		"exit",
	)

	if !strings.Contains(output, "Submitted.") {
		t.Fatalf("submit confirmation missing:\n%s", output)
	}
	submission := backend.LastSubmission
	if len(submission.Answers) != 1 {
		t.Fatalf("expected only the answered question, got %+v", submission.Answers)
	}
	if got := submission.Answers[0].SelectedAnswers; len(got) != 1 || got[0] != "Paris" {
		t.Fatalf("replacement lost: %v", got)
	}
}

func TestTakeQuitAbandonsAttempt(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	cfg := scriptedConfig(t, backend, store)

	output := runScript(t, cfg,
		"login",
		"kiran@example.com",
		"secret",
		"take cat-42",
		"a",
		"quit",
		"yes",
		"exit",
	)

	if !strings.Contains(output, "Attempt abandoned.") {
		t.Fatalf("abandon confirmation missing:\n%s", output)
	}
	if backend.Submissions() != 0 {
		t.Fatalf("quit still submitted: %d", backend.Submissions())
	}

	attempts, err := store.ListAttempts(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListAttempts failed: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Status != history.StatusAbandoned {
		t.Fatalf("abandoned attempt not recorded: %+v", attempts)
	}
}

func TestTakeSubmitFailureKeepsAnswers(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	backend.SetSubmitStatus(500)
	cfg := scriptedConfig(t, backend, nil)

	output := runScript(t, cfg,
		"login",
		"kiran@example.com",
		"secret",
		"take cat-42",
		"a",
		"submit",
		"yes",
		"status",
		"quit",
		"yes",
		"exit",
	)

	if !strings.Contains(output, "Submission failed") {
		t.Fatalf("failure not reported:\n%s", output)
	}
	if !strings.Contains(output, "Your answers are kept") {
		t.Fatalf("retry hint missing:\n%s", output)
	}
	// The loop stays alive after the failure; status still renders.
	if !strings.Contains(output, "answered 1/2") {
		t.Fatalf("answers lost across failed submit:\n%s", output)
	}
	if backend.Submissions() != 1 {
		t.Fatalf("backend saw %d submissions, want 1", backend.Submissions())
	}
	submission := backend.LastSubmission
	if got := submission.Answers[0].SelectedAnswers; len(got) != 1 || got[0] != "Paris" {
		t.Fatalf("failed submission payload wrong: %v", got)
	}
}

func TestHistoryCommandListsAttempts(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	if err := store.RecordStart(context.Background(), "att-old", "cat-9"); err != nil {
		t.Fatalf("seed history: %v", err)
	}
	cfg := scriptedConfig(t, backend, store)

	output := runScript(t, cfg,
		"history",
		"exit",
	)

	if !strings.Contains(output, "att-old") || !strings.Contains(output, "category=cat-9") {
		t.Fatalf("history listing missing seeded attempt:\n%s", output)
	}
}

func TestHistoryCommandWithoutStore(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	cfg := scriptedConfig(t, backend, nil)

	output := runScript(t, cfg,
		"history",
		"exit",
	)

	if !strings.Contains(output, "Local history is disabled.") {
		t.Fatalf("missing disabled notice:\n%s", output)
	}
}

func TestCategoriesCommand(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	backend.Categories = []api.Category{
		{ID: "cat-1", Name: "Algebra", TestCount: 4},
	}
	cfg := scriptedConfig(t, backend, nil)

	output := runScript(t, cfg,
		"categories",
		"exit",
	)

	if !strings.Contains(output, "[cat-1] Algebra (4 tests)") {
		t.Fatalf("categories listing wrong:\n%s", output)
	}
}

func TestResultCommand(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	backend.Result = api.AttemptResult{
		AttemptID:  "att-1",
		Score:      2.5,
		TotalMarks: 3,
		Correct:    2,
		Incorrect:  1,
		Questions: []api.ResultQuestion{
			{
				QuestionID:      "q1",
				Text:            "Capital of France?",
				SelectedAnswers: []string{"Paris"},
				CorrectAnswers:  []string{"Paris"},
				Correct:         true,
				Marks:           1,
			},
		},
	}
	cfg := scriptedConfig(t, backend, nil)

	output := runScript(t, cfg,
		"result att-1",
		"exit",
	)

	if !strings.Contains(output, "Score: 2.5/3") {
		t.Fatalf("score line missing:\n%s", output)
	}
	if !strings.Contains(output, "Q1 (correct): Capital of France?") {
		t.Fatalf("question breakdown missing:\n%s", output)
	}
}

func TestUnknownCommand(t *testing.T) {
	backend := examBackend()
	defer backend.Close()
	cfg := scriptedConfig(t, backend, nil)

	output := runScript(t, cfg,
		"frobnicate",
		"exit",
	)

	if !strings.Contains(output, "unknown command") {
		t.Fatalf("unknown command not flagged:\n%s", output)
	}
}
