package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/stackerlabs/stacker/internal/simulator"
)

// Default configuration constants.
const (
	defaultWallets    = 20
	defaultRuns       = 5
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultMaxScore   = 150
	defaultTimeout    = 90 * time.Second // submits wait for chain confirmation
	defaultSimTimeout = 30 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "Base URL of the service")
		wallets  = flag.Int("wallets", defaultWallets, "Number of simulated players")
		runs     = flag.Int("runs", defaultRuns, "Runs each player submits")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		maxScore = flag.Int64("max-score", defaultMaxScore, "Upper bound for generated run scores")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile  = flag.String("log", "", "Log file for simulation output (default: sim_log_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulator.ShowHelp()
		return
	}

	// Setup logging
	if err := simulator.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultSimTimeout)
	defer cancel()

	// Create simulation configuration
	config := &simulator.Config{
		BaseURL:       *baseURL,
		NumPlayers:    *wallets,
		RunsPerPlayer: *runs,
		Workers:       *workers,
		Timeout:       *timeout,
		MaxScore:      *maxScore,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	// Run the simulation
	if err := simulator.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
