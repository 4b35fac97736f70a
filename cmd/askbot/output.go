package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// Human-facing output goes to stderr; answers and JSON go to stdout.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stderr, colorize(colorCyan, "→ "+msg))
}

// printAnswer renders one /api/ask reply.
func printAnswer(a answer) {
	switch {
	case a.Kind == "clarification":
		fmt.Fprintln(stdout, colorize(colorYellow, "?"), "Which of these did you mean?")
		for i, o := range a.Options {
			fmt.Fprintf(stdout, "  %d. [%s] %s\n", i+1, o.Category, o.Preview)
		}
	default:
		text := a.Text
		if strings.TrimSpace(text) == "" && a.FileURL == "" {
			text = "..."
		}
		if text != "" {
			fmt.Fprintln(stdout, text)
		}
		if a.FileURL != "" {
			fmt.Fprintf(stdout, "  %s %s\n", colorize(colorBold, "file:"), a.FileURL)
		}
	}

	meta := fmt.Sprintf("%s/%s score=%.2f", a.Kind, a.Lang, a.Score)
	if a.Category != "" {
		meta += " category=" + a.Category
	}
	if a.FollowUp {
		meta += " follow-up"
	}
	fmt.Fprintln(stderr, colorize(colorCyan, "  "+meta))
}
