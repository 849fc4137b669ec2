// Package ui formats terminal messages for the command line.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// MessageOptions configures message formatting
type MessageOptions struct {
	Level        Level
	Context      string
	Problem      string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatMessage creates a message with suggestions and help commands
//
// Example output:
//
//	OBJECT NOT FOUND: Custmer
//	   No Table named 'Custmer' is loaded.
//
//	   Did you mean: Customer, Customer Bank Account?
//
//	   → alsym search "Cust*" --type Table
func FormatMessage(opts MessageOptions) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	switch opts.Level {
	case LevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
	case LevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
	default:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
	}
	hint := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if opts.NoColor {
		for _, c := range []*color.Color{headerColor, bodyColor, hint, cyan} {
			c.DisableColor()
		}
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s\n", strings.ToUpper(opts.Context))
		bodyColor.Fprintf(&b, "   %s\n", opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s\n", opts.Problem)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		hint.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}
	return b.String()
}

// WriteMessage writes a formatted message to w
func WriteMessage(w io.Writer, opts MessageOptions) {
	fmt.Fprint(w, FormatMessage(opts))
}

// ObjectNotFound formats a failed object lookup
func ObjectNotFound(message, name, objectType string, suggestions []string, noColor bool) string {
	search := fmt.Sprintf("alsym search %q", searchPattern(name))
	if objectType != "" {
		search += " --type " + objectType
	}
	return FormatMessage(MessageOptions{
		Level:        LevelWarning,
		Context:      "object not found",
		Problem:      message,
		Suggestions:  suggestions,
		HelpCommands: []string{search},
		NoColor:      noColor,
	})
}

// searchPattern turns a mistyped name into a prefix pattern
func searchPattern(name string) string {
	runes := []rune(name)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	return string(runes) + "*"
}
