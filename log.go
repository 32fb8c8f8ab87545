package main

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// setupLog discards logging by default. Set LECTOR_DEBUG=1 to write logs
// to the file named by LECTOR_LOGFILE instead.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)
	if os.Getenv("LECTOR_DEBUG") != "1" {
		return func() error { return nil }, nil
	}

	logFile := os.Getenv("LECTOR_LOGFILE")
	if logFile == "" {
		return func() error { return nil }, nil
	}

	f, err := tea.LogToFileWith(logFile, "lector", log.Default())
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	return f.Close, nil
}
