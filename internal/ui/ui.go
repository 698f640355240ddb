// Package ui renders command results and messages on the terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// UI writes styled output. Colors are dropped when the writer is not a terminal.
type UI struct {
	writer io.Writer
	styles styles
}

func NewUI(w io.Writer) *UI {
	return &UI{writer: w, styles: newStyles(lipgloss.NewRenderer(w))}
}

func (u *UI) Println(message string) {
	fmt.Fprintln(u.writer, message)
}

// Message prints a formatted plain message
func (u *UI) Message(format string, args ...interface{}) {
	fmt.Fprintf(u.writer, format, args...)
}

func (u *UI) Success(message string) {
	u.Println(u.styles.success.Render(message))
}

func (u *UI) Info(message string) {
	u.Println(u.styles.info.Render(message))
}

func (u *UI) Error(message string) {
	u.Println(u.styles.errMark.Render("!") + " " + u.styles.errText.Render(message))
}

func (u *UI) Warning(message string) {
	u.Println(u.styles.warnMark.Render("?") + " " + u.styles.warnText.Render(message))
}

// Lines prints one entry per line, or an info note when there are none
func (u *UI) Lines(lines []string) {
	if len(lines) == 0 {
		u.Info("(none)")
		return
	}
	u.Println(strings.Join(lines, "\n"))
}

// Prompt returns the input prompt, e.g. "Shop* > " for a modified project
func (u *UI) Prompt(project string, modified bool) string {
	var b strings.Builder
	if project != "" {
		b.WriteString(u.styles.project.Render(project))
		if modified {
			b.WriteString(u.styles.modified.Render("*"))
		}
		b.WriteString(" ")
	}
	b.WriteString(u.styles.prompt.Render("> "))
	return b.String()
}
