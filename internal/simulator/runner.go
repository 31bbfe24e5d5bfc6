package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/stackerlabs/stacker/pkg/logger"
)

const (
	// settleDelay gives the service a moment to finish ledger writes
	// before verification reads them back.
	settleDelay = 2 * time.Second

	leaderboardLimit = 50
)

// Run executes the complete game simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting stacker simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("players", config.NumPlayers),
		logger.Int("runsPerPlayer", config.RunsPerPlayer),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Plan the runs
	jobs := planRuns(config, stats)

	// Step 3: Play the runs concurrently
	expected, err := playRuns(ctx, config, jobs, stats)
	if err != nil {
		return fmt.Errorf("run submission failed: %w", err)
	}

	// Step 4: Wait for ledger writes to settle
	logger.Get().Info(ctx, "waiting for runs to be recorded")
	time.Sleep(settleDelay)

	// Step 5: Verify totals against the ledger
	if err := verifyResults(ctx, config, expected, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// planRuns builds the run list: NumPlayers wallets, RunsPerPlayer runs
// each, scores drawn uniformly from [1, MaxScore].
func planRuns(config *Config, stats *Stats) []runJob {
	if config.MaxScore < 1 {
		config.MaxScore = 1
	}
	jobs := make([]runJob, 0, config.NumPlayers*config.RunsPerPlayer)
	for p := 0; p < config.NumPlayers; p++ {
		wallet := simWallet(p)
		for r := 0; r < config.RunsPerPlayer; r++ {
			jobs = append(jobs, runJob{
				Wallet: wallet,
				Score:  1 + rand.Int63n(config.MaxScore),
			})
		}
	}

	// Shuffle so a wallet's runs are spread across workers and the replay
	// and ordering paths get exercised under interleaving.
	rand.Shuffle(len(jobs), func(i, j int) {
		jobs[i], jobs[j] = jobs[j], jobs[i]
	})

	stats.RunsPlanned = len(jobs)
	return jobs
}

// simWallet derives a deterministic wallet address for player index i.
func simWallet(i int) string {
	return fmt.Sprintf("0x%040x", i+1)
}

// verifyResults checks every wallet's ledger history against the scores
// the simulation knows it submitted, then sanity-checks the leaderboard.
func verifyResults(ctx context.Context, config *Config, expected map[string]int64, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results", logger.Int("wallets", len(expected)))

	client := newHTTPClient(config.Timeout)

	verified := 0
	for wallet, want := range expected {
		hist, err := getHistory(ctx, client, config.BaseURL, wallet)
		if err != nil {
			return fmt.Errorf("history for %s: %w", wallet, err)
		}

		var got int64
		for _, run := range hist.Runs {
			got += run.Score
		}
		if got != want {
			return fmt.Errorf("wallet %s: ledger total %d does not match submitted total %d", wallet, got, want)
		}
		verified++

		if config.Verbose {
			logger.Get().Debug(ctx, "wallet verified",
				logger.String("wallet", wallet),
				logger.Int("runs", len(hist.Runs)),
				logger.Any("total", got))
		}
	}
	stats.WalletsVerified = verified

	board, err := getLeaderboard(ctx, client, config.BaseURL, leaderboardLimit)
	if err != nil {
		return err
	}

	// Standings must be ranked by descending total with contiguous ranks.
	for i, entry := range board.Top {
		if entry.Rank != i+1 {
			return fmt.Errorf("leaderboard rank %d found at position %d", entry.Rank, i+1)
		}
		if i > 0 && entry.TotalScore > board.Top[i-1].TotalScore {
			return fmt.Errorf("leaderboard not sorted at rank %d", entry.Rank)
		}
		if want, ok := expected[entry.Wallet]; ok && entry.TotalScore != want {
			return fmt.Errorf("leaderboard total %d for %s does not match submitted total %d",
				entry.TotalScore, entry.Wallet, want)
		}
	}

	logger.Get().Info(ctx, "verification passed",
		logger.Int("walletsVerified", verified),
		logger.Int("leaderboardEntries", len(board.Top)))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, runsPerSecond float64

	if stats.RunsSubmitted > 0 {
		successRate = float64(stats.RunsSuccessful) / float64(stats.RunsSubmitted) * 100
	}

	if stats.Duration > 0 {
		runsPerSecond = float64(stats.RunsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("runsPlanned", stats.RunsPlanned),
		logger.Int("runsSubmitted", stats.RunsSubmitted),
		logger.Int("runsSuccessful", stats.RunsSuccessful),
		logger.Int("runsRejected", stats.RunsRejected),
		logger.Int("runsFailed", stats.RunsFailed),
		logger.Int("walletsVerified", stats.WalletsVerified),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("runsPerSecond", runsPerSecond))
}
