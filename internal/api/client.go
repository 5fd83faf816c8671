package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrServiceUnavailable wraps transport-level failures (DNS, refused
// connections, timeouts) so callers can distinguish them from API errors.
var ErrServiceUnavailable = errors.New("preptara service unavailable")

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// validate checks decoded payloads before they reach the attempt core.
var validate = validator.New()

// Client talks to the Preptara REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	credential func() string
	log        zerolog.Logger
}

// NewClient builds a backend client. credential supplies the current bearer
// token and may return "" for unauthenticated calls; it is re-read on every
// request so a login mid-session takes effect immediately.
func NewClient(baseURL string, httpClient *http.Client, credential func() string, log zerolog.Logger) *Client {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if credential == nil {
		credential = func() string { return "" }
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		credential: credential,
		log:        log,
	}
}

// Login exchanges email and password for a credential and account profile.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return LoginResponse{}, errors.New("email is required")
	}
	if password == "" {
		return LoginResponse{}, errors.New("password is required")
	}

	var payload LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/users/login/", LoginRequest{Email: email, Password: password}, &payload)
	if err != nil {
		return LoginResponse{}, err
	}
	if err := validate.Struct(payload); err != nil {
		return LoginResponse{}, fmt.Errorf("invalid login payload: %w", err)
	}
	return payload, nil
}

// ListCategories returns the course categories available on the platform.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var payload categoriesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/courses/categories/", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Categories, nil
}

// EnrollmentStatus reports whether the authenticated caller is enrolled in
// the given category. The backend treats an absent or expired credential as
// not enrolled.
func (c *Client) EnrollmentStatus(ctx context.Context, categoryID string) (bool, error) {
	if strings.TrimSpace(categoryID) == "" {
		return false, errors.New("category id is required")
	}

	query := url.Values{}
	query.Set("category", categoryID)

	var payload enrollmentStatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/enroll/status/?"+query.Encode(), nil, &payload); err != nil {
		return false, err
	}
	return payload.Enrolled, nil
}

// StartAttempt creates one attempt record on the scoring service and returns
// the attempt id, time budget and question set. Starting an attempt consumes
// a server-side attempt slot, so callers must not retry automatically.
func (c *Client) StartAttempt(ctx context.Context, categoryID string) (StartAttemptResponse, error) {
	if strings.TrimSpace(categoryID) == "" {
		return StartAttemptResponse{}, errors.New("category id is required")
	}

	var payload StartAttemptResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/tests/start-attempt/", startAttemptRequest{CategoryID: categoryID}, &payload)
	if err != nil {
		return StartAttemptResponse{}, err
	}
	if err := validate.Struct(payload); err != nil {
		return StartAttemptResponse{}, fmt.Errorf("invalid attempt payload: %w", err)
	}
	return payload, nil
}

// SubmitAttempt sends the answer sequence for scoring. A failed submission
// does not consume the attempt; callers may retry.
func (c *Client) SubmitAttempt(ctx context.Context, req SubmitAttemptRequest) error {
	if strings.TrimSpace(req.AttemptID) == "" {
		return errors.New("attempt id is required")
	}
	if req.Answers == nil {
		req.Answers = []AnswerPayload{}
	}
	return c.doJSON(ctx, http.MethodPost, "/api/tests/submit-attempt/", req, nil)
}

// AttemptResult fetches the scored outcome of a submitted attempt.
func (c *Client) AttemptResult(ctx context.Context, attemptID string) (AttemptResult, error) {
	if strings.TrimSpace(attemptID) == "" {
		return AttemptResult{}, errors.New("attempt id is required")
	}

	var payload AttemptResult
	path := "/api/tests/attempt-result/" + url.PathEscape(attemptID) + "/"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return AttemptResult{}, err
	}
	return payload, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token := c.credential(); token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	request.Header.Set("X-Request-ID", requestID)

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.log.Debug().Str("request_id", requestID).Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	c.log.Debug().Str("request_id", requestID).Str("method", method).Str("path", path).Int("status", response.StatusCode).Msg("request done")

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.message()) != "" {
			apiErr.Message = payload.message()
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
