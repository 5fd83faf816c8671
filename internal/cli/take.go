package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Saivarun91/preptara-cli/internal/api"
	"github.com/Saivarun91/preptara-cli/internal/attempt"
)

// runTake is the timed exam-attempt flow: enrollment gate, one-shot load,
// then the interactive question loop until submit, expiry or quit.
func runTake(ctx context.Context, reader *bufio.Reader, out io.Writer, cfg Config, categoryID string) error {
	gate := attempt.NewGate(cfg.Client, cfg.Auth, cfg.Logger)

	controllerCfg := attempt.ControllerConfig{
		Gate:         gate,
		Start:        cfg.Client.StartAttempt,
		Submit:       cfg.Client.SubmitAttempt,
		TickInterval: cfg.TickInterval,
		Logger:       cfg.Logger,
	}
	if cfg.History != nil {
		controllerCfg.History = cfg.History
	}
	ctrl := attempt.NewController(controllerCfg)
	defer ctrl.Close()

	if err := ctrl.Begin(ctx, categoryID); err != nil {
		if errors.Is(err, attempt.ErrLoginRequired) {
			fmt.Fprintln(out, "You need to sign in first. Use 'login'.")
			return nil
		}
		if errors.Is(err, attempt.ErrNotEnrolled) {
			fmt.Fprintf(out, "You are not enrolled in category %s.\n", categoryID)
			return nil
		}
		return describeClientError(err)
	}

	view := ctrl.View()
	fmt.Fprintf(out, "\nAttempt %s started: %d questions, %s on the clock.\n",
		view.AttemptID, view.QuestionCount, formatClock(view.Remaining))
	fmt.Fprintln(out, "Answer with option letters. Commands: n(ext), p(rev), g <num>, list, status, submit, quit.")

	showQuestion(out, ctrl)

	for {
		view = ctrl.View()
		if view.Phase == attempt.PhaseTerminated {
			// The clock ran out and the auto-submit succeeded while we were
			// waiting for input.
			fmt.Fprintln(out, "\nTime is up. Your answers were submitted automatically.")
			return showResult(ctx, out, cfg.Client, view.AttemptID)
		}
		if view.Expired {
			fmt.Fprintln(out, "\nTime is up. Answers are frozen; use 'submit' to send them or 'quit'.")
		}

		line, err := promptLine(reader, out, "attempt> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])

		switch command {
		case "n", "next":
			ctrl.Next()
			showQuestion(out, ctrl)
		case "p", "prev":
			ctrl.Prev()
			showQuestion(out, ctrl)
		case "g", "goto":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: g <question number>")
				continue
			}
			number, convErr := strconv.Atoi(args[1])
			if convErr != nil || number < 1 || number > ctrl.View().QuestionCount {
				fmt.Fprintln(out, "no such question.")
				continue
			}
			ctrl.Seek(number - 1)
			showQuestion(out, ctrl)
		case "list":
			showNavigator(out, ctrl)
		case "status":
			showStatus(out, ctrl)
		case "submit":
			confirmed, promptErr := promptYesNo(reader, out, "Submit your answers? (yes/no): ")
			if promptErr != nil {
				return promptErr
			}
			if !confirmed {
				continue
			}
			if err := ctrl.Submit(ctx); err != nil {
				if errors.Is(err, attempt.ErrAlreadySubmitted) {
					fmt.Fprintln(out, "Already submitted.")
					return showResult(ctx, out, cfg.Client, ctrl.View().AttemptID)
				}
				fmt.Fprintf(out, "Submission failed: %v\nYour answers are kept; try 'submit' again.\n", describeClientError(err))
				continue
			}
			fmt.Fprintln(out, "Submitted.")
			return showResult(ctx, out, cfg.Client, ctrl.View().AttemptID)
		case "quit":
			confirmed, promptErr := promptYesNo(reader, out, "Abandon this attempt? (yes/no): ")
			if promptErr != nil {
				return promptErr
			}
			if confirmed {
				fmt.Fprintln(out, "Attempt abandoned.")
				return nil
			}
		default:
			answerCurrent(out, ctrl, args[0])
		}
	}
}

func answerCurrent(out io.Writer, ctrl *attempt.Controller, input string) {
	view := ctrl.View()
	question, ok := ctrl.QuestionAt(view.Cursor)
	if !ok {
		fmt.Fprintln(out, "no current question.")
		return
	}

	index, ok := parseOptionIndex(input, len(question.Options))
	if !ok {
		fmt.Fprintf(out, "unknown command or option. Options run A-%s; type 'help' commands inline.\n",
			optionLetter(len(question.Options)-1))
		return
	}

	if err := ctrl.SetAnswer(question.ID, question.Options[index]); err != nil {
		if errors.Is(err, attempt.ErrTimeExpired) {
			fmt.Fprintln(out, "Time is up; answers can no longer change.")
			return
		}
		fmt.Fprintf(out, "could not record answer: %v\n", err)
		return
	}

	showQuestion(out, ctrl)
}

func showQuestion(out io.Writer, ctrl *attempt.Controller) {
	view := ctrl.View()
	question, ok := ctrl.QuestionAt(view.Cursor)
	if !ok {
		return
	}

	selected := ctrl.Selected(question.ID)
	mode := attempt.ResolveInputMode(question)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d (%d marks): %s\n", view.Cursor+1, view.QuestionCount, question.Marks, question.Text)
	if mode == attempt.InputMulti {
		fmt.Fprintln(out, "(select all that apply; a letter toggles)")
	}
	for idx, option := range question.Options {
		marker := " "
		if contains(selected, option) {
			marker = "x"
		}
		fmt.Fprintf(out, "  [%s] %s. %s\n", marker, optionLetter(idx), option)
	}
	showStatus(out, ctrl)
}

func showStatus(out io.Writer, ctrl *attempt.Controller) {
	view := ctrl.View()
	fmt.Fprintf(out, "answered %d/%d · %s remaining\n",
		view.AnsweredCount, view.QuestionCount, formatClock(view.Remaining))
}

func showNavigator(out io.Writer, ctrl *attempt.Controller) {
	view := ctrl.View()
	for idx := 0; idx < view.QuestionCount; idx++ {
		question, ok := ctrl.QuestionAt(idx)
		if !ok {
			continue
		}
		marker := " "
		if len(ctrl.Selected(question.ID)) > 0 {
			marker = "x"
		}
		cursor := "  "
		if idx == view.Cursor {
			cursor = "> "
		}
		fmt.Fprintf(out, "%s[%s] %2d. %s\n", cursor, marker, idx+1, truncate(question.Text, 60))
	}
}

func showResult(ctx context.Context, out io.Writer, client *api.Client, attemptID string) error {
	result, err := client.AttemptResult(ctx, attemptID)
	if err != nil {
		fmt.Fprintf(out, "could not fetch result: %v\nUse 'result %s' to view it later.\n",
			describeClientError(err), attemptID)
		return nil
	}
	fmt.Fprintln(out)
	renderResult(out, result)
	return nil
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max-1] + "…"
}
