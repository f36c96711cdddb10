package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/speakercam/internal/replay"
)

// defaultRunTimeout bounds a whole replay run.
const defaultRunTimeout = 10 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		mode         = flag.String("mode", replay.ModeHTTP, "Transport: http or ws")
		sessions     = flag.Int("sessions", replay.DefaultSessions, "Number of sessions to replay")
		frames       = flag.Int("frames", replay.DefaultFrames, "Frames per session")
		workers      = flag.Int("workers", 0, "Sessions replayed at once (default: all)")
		timeout      = flag.Duration("timeout", replay.DefaultTimeout, "HTTP request timeout")
		maxJump      = flag.Float64("max-jump", replay.DefaultMaxJump, "Largest allowed camera move between two frames")
		minAgreement = flag.Float64("min-agreement", replay.DefaultMinAgreement, "Share of frames that must frame the scripted speaker")
		logFile      = flag.String("log", "", "Also write logs to this file")
		verbose      = flag.Bool("verbose", false, "Log every session report")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		replay.ShowHelp()
		return 0
	}

	closeLog, err := replay.SetupLogging(*logFile, *verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &replay.Config{
		BaseURL:      *baseURL,
		Mode:         *mode,
		Sessions:     *sessions,
		Frames:       *frames,
		Workers:      *workers,
		Timeout:      *timeout,
		MaxJump:      *maxJump,
		MinAgreement: *minAgreement,
		Verbose:      *verbose,
	}

	if _, err := replay.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Replay failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}
