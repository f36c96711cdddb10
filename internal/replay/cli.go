package replay

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/speakercam/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging logs to stdout, and also to logFile when it is non-empty.
// The returned func closes the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	var w io.Writer = os.Stdout
	closeFn := func() error { return nil }

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closeFn = file.Close
	}

	if err := logger.Init(logger.WithFormat("text"), logger.WithWriter(w)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return nil, err
		}
	}
	return closeFn, nil
}

// ShowHelp prints usage information for the replay tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Speakercam Replay Tool
======================

Replays scripted multi-speaker scenes against a running speakercam service
and verifies that the virtual camera follows whoever is talking.

Usage:
  go run ./cmd/replay [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -mode string
        Transport: http (one request per frame) or ws (one stream per session) (default "http")
  -sessions int
        Number of sessions to replay (default 4)
  -frames int
        Frames per session, at least 60 (default 240)
  -workers int
        Sessions replayed at once (default: all)
  -timeout duration
        HTTP request timeout (default 30s)
  -max-jump float
        Largest allowed camera move between two frames (default 0.1)
  -min-agreement float
        Share of frames that must frame the scripted speaker (default 0.95)
  -log string
        Also write logs to this file
  -verbose
        Log every session report
  -help
        Show this help message

Examples:
  # Replay over HTTP with defaults
  go run ./cmd/replay

  # Replay 16 sessions over WebSocket streams
  go run ./cmd/replay -mode ws -sessions 16 -url http://localhost:8080
`)
}
