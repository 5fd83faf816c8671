package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Saivarun91/preptara-cli/internal/api"
	"github.com/Saivarun91/preptara-cli/internal/auth"
	"github.com/Saivarun91/preptara-cli/internal/history"
	"github.com/rs/zerolog"
)

const defaultHistoryLimit = 10

// Config wires the interactive app's collaborators.
type Config struct {
	Client *api.Client
	Auth   *auth.Session
	// History may be nil; the app then runs without local persistence.
	History *history.Store
	// TickInterval overrides the one-second countdown tick. Tests shorten it.
	TickInterval time.Duration
	// PasswordFD is the file descriptor used for no-echo password entry,
	// -1 when stdin is not a terminal.
	PasswordFD int
	Logger     zerolog.Logger
}

// Run drives the interactive command loop until exit or EOF.
func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	if cfg.Client == nil {
		return errors.New("api client is required")
	}
	if cfg.Auth == nil {
		return errors.New("auth session is required")
	}

	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "preptara – exam practice terminal")
	if user, ok := cfg.Auth.User(); ok {
		fmt.Fprintf(out, "signed in as %s\n", user.Email)
	} else {
		fmt.Fprintln(out, "not signed in. use 'login' to start.")
	}
	fmt.Fprintln(out)
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])

		switch command {
		case "help":
			printHelp(out)
		case "exit":
			return nil
		case "login":
			if err := runLogin(ctx, reader, out, cfg); err != nil {
				fmt.Fprintf(out, "login failed: %v\n", err)
			}
		case "logout":
			if err := cfg.Auth.Logout(); err != nil {
				fmt.Fprintf(out, "logout failed: %v\n", err)
			} else {
				fmt.Fprintln(out, "signed out.")
			}
		case "whoami":
			if user, ok := cfg.Auth.User(); ok {
				fmt.Fprintf(out, "%s (%s)\n", user.Name, user.Email)
			} else {
				fmt.Fprintln(out, "not signed in.")
			}
		case "categories":
			if err := runCategories(ctx, out, cfg.Client); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "take":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: take <category_id>")
				continue
			}
			if err := runTake(ctx, reader, out, cfg, args[1]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "result":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: result <attempt_id>")
				continue
			}
			if err := runResult(ctx, out, cfg.Client, args[1]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "history":
			limit, parseErr := parsePositiveLimit(args, 1, defaultHistoryLimit)
			if parseErr != nil {
				fmt.Fprintf(out, "invalid history limit: %v\n", parseErr)
				continue
			}
			if err := runHistory(ctx, out, cfg.History, limit); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		default:
			fmt.Fprintln(out, "unknown command. type 'help' for usage.")
		}
	}
}

func runLogin(ctx context.Context, reader *bufio.Reader, out io.Writer, cfg Config) error {
	email, err := promptLine(reader, out, "Email: ")
	if err != nil {
		return err
	}
	password, err := readPassword(reader, out, cfg.PasswordFD)
	if err != nil {
		return err
	}

	payload, err := cfg.Client.Login(ctx, email, password)
	if err != nil {
		return describeClientError(err)
	}

	if err := cfg.Auth.Login(payload.Token, auth.User{
		ID:    payload.User.ID,
		Email: payload.User.Email,
		Name:  payload.User.Name,
	}); err != nil {
		return err
	}

	fmt.Fprintf(out, "signed in as %s\n", payload.User.Email)
	return nil
}

func runCategories(ctx context.Context, out io.Writer, client *api.Client) error {
	categories, err := client.ListCategories(ctx)
	if err != nil {
		return describeClientError(err)
	}

	if len(categories) == 0 {
		fmt.Fprintln(out, "No categories available.")
		return nil
	}

	fmt.Fprintln(out, "Categories:")
	for idx, item := range categories {
		fmt.Fprintf(out, "%d. [%s] %s (%d tests)\n", idx+1, item.ID, item.Name, item.TestCount)
	}
	return nil
}

func runResult(ctx context.Context, out io.Writer, client *api.Client, attemptID string) error {
	result, err := client.AttemptResult(ctx, attemptID)
	if err != nil {
		return describeClientError(err)
	}
	renderResult(out, result)
	return nil
}

func runHistory(ctx context.Context, out io.Writer, store *history.Store, limit int) error {
	if store == nil {
		fmt.Fprintln(out, "Local history is disabled.")
		return nil
	}

	attempts, err := store.ListAttempts(ctx, limit)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No attempts recorded yet.")
		return nil
	}

	fmt.Fprintln(out, "Recent attempts:")
	for idx, item := range attempts {
		fmt.Fprintf(out, "%d. %s category=%s status=%s answered=%d started=%s\n",
			idx+1,
			item.AttemptID,
			item.CategoryID,
			item.Status,
			item.AnsweredCount,
			item.StartedAt.Format(time.RFC3339),
		)
	}
	return nil
}

func renderResult(out io.Writer, result api.AttemptResult) {
	fmt.Fprintf(out, "Attempt %s\n", result.AttemptID)
	fmt.Fprintf(out, "Score: %g/%d (correct %d, incorrect %d, unanswered %d)\n",
		result.Score, result.TotalMarks, result.Correct, result.Incorrect, result.Unanswered)

	for idx, question := range result.Questions {
		status := "wrong"
		if question.Correct {
			status = "correct"
		}
		fmt.Fprintf(out, "\nQ%d (%s): %s\n", idx+1, status, question.Text)
		if len(question.SelectedAnswers) > 0 {
			fmt.Fprintf(out, "  your answer: %s\n", strings.Join(question.SelectedAnswers, ", "))
		} else {
			fmt.Fprintln(out, "  your answer: (none)")
		}
		fmt.Fprintf(out, "  correct answer: %s\n", strings.Join(question.CorrectAnswers, ", "))
		if question.Explanation != "" {
			fmt.Fprintf(out, "  explanation: %s\n", question.Explanation)
		}
	}
}

func describeClientError(err error) error {
	if errors.Is(err, api.ErrServiceUnavailable) {
		return errors.New("preptara service unavailable, try again later")
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("server rejected the request: %s", apiErr.Message)
	}
	return err
}
