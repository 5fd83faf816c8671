package api

// User is the account profile returned by the login endpoint.
type User struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginRequest is the credential payload for /api/users/login/.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued credential and the account profile.
type LoginResponse struct {
	Token string `json:"token" validate:"required"`
	User  User   `json:"user"`
}

// Category is one course category available on the platform.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TestCount   int    `json:"test_count"`
}

type categoriesResponse struct {
	Categories []Category `json:"categories"`
}

type enrollmentStatusResponse struct {
	Enrolled bool `json:"enrolled"`
}

// QuestionPayload is one question as issued by the attempt-start endpoint.
// Options are ordered; their order is significant for display and for
// correlating submitted answers.
type QuestionPayload struct {
	ID      string   `json:"id" validate:"required"`
	Text    string   `json:"question" validate:"required"`
	Type    string   `json:"question_type" validate:"required"`
	Options []string `json:"options" validate:"min=2,dive,required"`
	Marks   int      `json:"marks" validate:"gt=0"`
}

type startAttemptRequest struct {
	CategoryID string `json:"category_id"`
}

// StartAttemptResponse is the freshly created attempt: a server-issued
// attempt id, the time budget in minutes, and the fixed question set.
type StartAttemptResponse struct {
	AttemptID        string            `json:"attempt_id" validate:"required"`
	TimeLimitMinutes int               `json:"time_limit" validate:"gt=0"`
	Questions        []QuestionPayload `json:"questions" validate:"min=1,dive"`
}

// AnswerPayload is one (question, selected answers) pair of a submission.
// Single-choice selections are wrapped in a one-element slice.
type AnswerPayload struct {
	QuestionID      string   `json:"question_id"`
	SelectedAnswers []string `json:"selected_answers"`
}

// SubmitAttemptRequest correlates a submission with its attempt id.
type SubmitAttemptRequest struct {
	AttemptID string          `json:"attempt_id"`
	Answers   []AnswerPayload `json:"answers"`
}

// ResultQuestion is the per-question breakdown of a scored attempt.
type ResultQuestion struct {
	QuestionID      string   `json:"question_id"`
	Text            string   `json:"question"`
	SelectedAnswers []string `json:"selected_answers"`
	CorrectAnswers  []string `json:"correct_answers"`
	Correct         bool     `json:"correct"`
	Marks           int      `json:"marks"`
	Explanation     string   `json:"explanation,omitempty"`
}

// AttemptResult is the scored outcome of a submitted attempt.
type AttemptResult struct {
	AttemptID  string           `json:"attempt_id"`
	Score      float64          `json:"score"`
	TotalMarks int              `json:"total_marks"`
	Correct    int              `json:"correct"`
	Incorrect  int              `json:"incorrect"`
	Unanswered int              `json:"unanswered"`
	Questions  []ResultQuestion `json:"questions"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (e errorResponse) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}
