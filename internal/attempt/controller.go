package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Saivarun91/preptara-cli/internal/api"
	"github.com/rs/zerolog"
)

var (
	ErrNoSession        = errors.New("no active attempt session")
	ErrAlreadyStarted   = errors.New("attempt already started for this controller")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	ErrSubmitInFlight   = errors.New("submission already in progress")
)

// Phase is the controller's tagged state. Illegal combinations (submitting a
// terminated session, answering while gated) are unrepresentable to callers.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseGated
	PhaseRunning
	PhaseSubmitting
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseGated:
		return "gated"
	case PhaseRunning:
		return "running"
	case PhaseSubmitting:
		return "submitting"
	case PhaseTerminated:
		return "terminated"
	}
	return "unknown"
}

// StartFunc creates one attempt record on the scoring service. Non-idempotent.
type StartFunc func(ctx context.Context, categoryID string) (api.StartAttemptResponse, error)

// SubmitFunc sends the answer sequence for scoring.
type SubmitFunc func(ctx context.Context, req api.SubmitAttemptRequest) error

// HistoryRecorder persists attempt progress locally. All calls are
// best-effort: failures are logged, never surfaced to the attempt flow.
type HistoryRecorder interface {
	RecordStart(ctx context.Context, attemptID, categoryID string) error
	SaveDraft(ctx context.Context, attemptID string, answers map[string][]string) error
	MarkSubmitted(ctx context.Context, attemptID string, answered int) error
	MarkAbandoned(ctx context.Context, attemptID string) error
	ClearDraft(ctx context.Context, attemptID string) error
}

// ControllerConfig wires a Controller's collaborators.
type ControllerConfig struct {
	Gate   *Gate
	Start  StartFunc
	Submit SubmitFunc
	// History may be nil to disable local persistence.
	History HistoryRecorder
	// TickInterval defaults to one second. Tests shorten it.
	TickInterval time.Duration
	Logger       zerolog.Logger
}

// Controller owns one attempt session end to end: enrollment gate, one-shot
// load, countdown clock, answer edits and the single submission transition.
// All session mutation funnels through its mutex, so delayed timer ticks and
// user events observe the current termination flag, never a stale snapshot.
type Controller struct {
	mu sync.Mutex

	gate    *Gate
	start   StartFunc
	submit  SubmitFunc
	history HistoryRecorder
	tick    time.Duration
	log     zerolog.Logger

	categoryID string
	phase      Phase
	session    *Session
	started    bool
	submitting bool

	clockStop chan struct{}
	clockDone chan struct{}
	stopOnce  sync.Once
}

func NewController(cfg ControllerConfig) *Controller {
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	return &Controller{
		gate:      cfg.Gate,
		start:     cfg.Start,
		submit:    cfg.Submit,
		history:   cfg.History,
		tick:      tick,
		log:       cfg.Logger,
		phase:     PhaseLoading,
		clockStop: make(chan struct{}),
		clockDone: make(chan struct{}),
	}
}

// Begin runs the enrollment gate and, once authorized, loads the attempt
// session and starts the countdown. The loader runs at most once per
// controller: starting an attempt consumes a server-side slot, so a failed
// load is surfaced and never retried implicitly.
func (c *Controller) Begin(ctx context.Context, categoryID string) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.categoryID = categoryID
	c.mu.Unlock()

	if err := c.gate.Authorize(ctx, categoryID); err != nil {
		c.mu.Lock()
		c.phase = PhaseGated
		c.mu.Unlock()
		return err
	}

	payload, err := c.start(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("load attempt: %w", err)
	}

	session, err := NewSession(payload.AttemptID, payload.TimeLimitMinutes, QuestionsFromPayload(payload.Questions))
	if err != nil {
		return fmt.Errorf("load attempt: %w", err)
	}

	c.mu.Lock()
	c.session = session
	c.phase = PhaseRunning
	c.mu.Unlock()

	if c.history != nil {
		if err := c.history.RecordStart(ctx, session.AttemptID(), categoryID); err != nil {
			c.log.Warn().Err(err).Msg("history: record start failed")
		}
	}

	go c.runClock()
	return nil
}

// View is a consistent read snapshot for rendering.
type View struct {
	Phase         Phase
	AttemptID     string
	CategoryID    string
	Remaining     int
	Expired       bool
	Cursor        int
	QuestionCount int
	AnsweredCount int
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := View{Phase: c.phase, CategoryID: c.categoryID}
	if c.session == nil {
		return view
	}
	view.AttemptID = c.session.AttemptID()
	view.Remaining = c.session.Remaining()
	view.Expired = c.session.Expired()
	view.Cursor = c.session.Cursor()
	view.QuestionCount = c.session.Len()
	view.AnsweredCount = c.session.AnsweredCount()
	return view
}

// QuestionAt returns the question at position i. The question set is
// immutable, so the copy is safe to render without the lock.
func (c *Controller) QuestionAt(i int) (Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Question{}, false
	}
	return c.session.QuestionAt(i)
}

// Selected returns a copy of the current selections for a question.
func (c *Controller) Selected(questionID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	entry, ok := c.session.Answer(questionID)
	if !ok {
		return nil
	}
	out := make([]string, len(entry.Selected))
	copy(out, entry.Selected)
	return out
}

// SetAnswer records a selection through the session and autosaves the
// updated answer map.
func (c *Controller) SetAnswer(questionID, option string) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	err := c.session.SetAnswer(questionID, option)
	var snapshot map[string][]string
	var attemptID string
	if err == nil && !c.session.Terminated() && c.history != nil {
		snapshot = c.session.AnswerMap()
		attemptID = c.session.AttemptID()
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if snapshot != nil {
		if saveErr := c.history.SaveDraft(context.Background(), attemptID, snapshot); saveErr != nil {
			c.log.Warn().Err(saveErr).Msg("history: draft save failed")
		}
	}
	return nil
}

func (c *Controller) Seek(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Seek(i)
	}
}

func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Next()
	}
}

func (c *Controller) Prev() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Prev()
	}
}

// Submit drives the single terminal transition. The in-flight guard makes a
// second call before the first resolves a no-op with ErrSubmitInFlight, so
// exactly one network submission is ever issued per success. On failure the
// termination flag stays false and the answer map is untouched; the user may
// retry.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.session.Terminated() {
		c.mu.Unlock()
		return ErrAlreadySubmitted
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	c.submitting = true
	c.phase = PhaseSubmitting
	req := api.SubmitAttemptRequest{
		AttemptID: c.session.AttemptID(),
		Answers:   answersPayload(c.session.Submission()),
	}
	c.mu.Unlock()

	err := c.submit(ctx, req)

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.phase = PhaseRunning
		c.mu.Unlock()
		return fmt.Errorf("submit attempt: %w", err)
	}
	c.session.terminate()
	c.phase = PhaseTerminated
	answered := c.session.AnsweredCount()
	attemptID := c.session.AttemptID()
	c.mu.Unlock()

	c.stopClock()

	if c.history != nil {
		if err := c.history.MarkSubmitted(context.Background(), attemptID, answered); err != nil {
			c.log.Warn().Err(err).Msg("history: mark submitted failed")
		}
		if err := c.history.ClearDraft(context.Background(), attemptID); err != nil {
			c.log.Warn().Err(err).Msg("history: clear draft failed")
		}
	}
	return nil
}

// Close tears the controller down: the clock stops immediately and a still
// running session is recorded as abandoned. Safe to call more than once.
func (c *Controller) Close() {
	c.stopClock()

	c.mu.Lock()
	session := c.session
	abandoned := session != nil && !session.Terminated()
	var attemptID string
	if abandoned {
		attemptID = session.AttemptID()
	}
	c.mu.Unlock()

	if abandoned && c.history != nil {
		if err := c.history.MarkAbandoned(context.Background(), attemptID); err != nil {
			c.log.Warn().Err(err).Msg("history: mark abandoned failed")
		}
	}
}

// runClock delivers one-second ticks to the session until the budget hits
// zero, the session terminates, or the controller is torn down. A tick
// delivered after termination is absorbed by the session's own guard.
func (c *Controller) runClock() {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	defer close(c.clockDone)

	for {
		select {
		case <-c.clockStop:
			return
		case <-ticker.C:
			expired, done := c.deliverTick()
			if done {
				return
			}
			if expired {
				c.autoSubmit()
				return
			}
		}
	}
}

func (c *Controller) deliverTick() (expired, done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.session.Terminated() {
		return false, true
	}
	c.session.Tick()
	return c.session.Remaining() == 0, false
}

// autoSubmit implements the expiry policy: the budget running out freezes
// edits and submits the answers collected so far. If this submission fails
// the session stays un-terminated and an explicit user Submit can retry.
func (c *Controller) autoSubmit() {
	c.log.Info().Msg("time budget expired, submitting collected answers")
	if err := c.Submit(context.Background()); err != nil {
		c.log.Error().Err(err).Msg("auto-submit failed; submit manually to retry")
	}
}

func (c *Controller) stopClock() {
	c.stopOnce.Do(func() { close(c.clockStop) })
}

// ClockStopped exposes clock shutdown to tests and to graceful teardown.
func (c *Controller) ClockStopped() <-chan struct{} {
	return c.clockDone
}

func answersPayload(submission []SubmittedAnswer) []api.AnswerPayload {
	out := make([]api.AnswerPayload, 0, len(submission))
	for _, entry := range submission {
		out = append(out, api.AnswerPayload{
			QuestionID:      entry.QuestionID,
			SelectedAnswers: entry.Selected,
		})
	}
	return out
}
