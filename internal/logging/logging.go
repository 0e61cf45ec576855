// Package logging builds the leveled loggers used across ionmd.
package logging

import (
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Level maps a verbosity count to a log level: 0 is warn, 1 info and
// anything higher debug.
func Level(verbosity int) log.Level {
	switch {
	case verbosity <= 0:
		return log.WarnLevel
	case verbosity == 1:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}

func New(w io.Writer, verbosity int) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Level:           Level(verbosity),
		Prefix:          "ionmd",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	l.SetStyles(styles())
	return l
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

func styles() *log.Styles {
	s := log.DefaultStyles()
	s.Prefix = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	s.Key = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	s.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Bold(true).
		Foreground(lipgloss.Color("196"))
	s.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Bold(true).
		Foreground(lipgloss.Color("220"))
	return s
}
