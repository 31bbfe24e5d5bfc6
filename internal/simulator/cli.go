package simulator

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/stackerlabs/stacker/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "sim_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulator tool.
func ShowHelp() {
	os.Stdout.WriteString(`Stacker Game Simulator
======================

A concurrent tool that plays full game sessions against a running stacker
service and verifies the run ledger and leaderboard afterwards.

Each simulated run mints a session via /api/start-session, waits out the
minimum session duration and submits a score via /api/submit. Once all
runs are played, per-wallet totals are checked against /api/history and
the standings against /api/leaderboard.

Usage:
  go run cmd/stacker-sim/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -wallets int
        Number of simulated players (default 20)
  -runs int
        Runs each player submits (default 5)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -max-score int
        Upper bound for generated run scores (default 150)
  -timeout duration
        HTTP request timeout (default 90s)
  -log string
        Log file for simulation output (default: sim_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/stacker-sim/main.go

  # Simulate with custom parameters
  go run cmd/stacker-sim/main.go -wallets 50 -runs 10 -url http://localhost:8080

  # Simulate with verbose output
  go run cmd/stacker-sim/main.go -verbose -wallets 5
`)
}
