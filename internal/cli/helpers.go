package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/term"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  login")
	fmt.Fprintln(out, "  logout")
	fmt.Fprintln(out, "  whoami")
	fmt.Fprintln(out, "  categories")
	fmt.Fprintln(out, "  take <category_id>")
	fmt.Fprintln(out, "  result <attempt_id>")
	fmt.Fprintln(out, "  history [limit]")
	fmt.Fprintln(out, "  exit")
}

func promptLine(reader *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo when fd refers to a terminal, falling back
// to a plain line read (tests, pipes).
func readPassword(reader *bufio.Reader, out io.Writer, fd int) (string, error) {
	fmt.Fprint(out, "Password: ")
	if fd >= 0 && term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func promptYesNo(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(out, "Please answer yes or no.")
		}
	}
}

func parsePositiveLimit(args []string, index int, defaultValue int) (int, error) {
	if len(args) <= index {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(args[index])
	if err != nil || value <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return value, nil
}

// formatClock renders remaining seconds as M:SS (or H:MM:SS past an hour).
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func optionLetter(index int) string {
	return string(rune('A' + index))
}

// parseOptionIndex maps a single letter to an option index, rejecting
// letters past the option count.
func parseOptionIndex(input string, optionCount int) (int, bool) {
	input = strings.ToUpper(strings.TrimSpace(input))
	if len(input) != 1 || optionCount < 1 {
		return -1, false
	}
	letter := input[0]
	maxLetter := byte('A' + optionCount - 1)
	if letter < 'A' || letter > maxLetter {
		return -1, false
	}
	return int(letter - 'A'), true
}
