package simulator

import "time"

// Config holds configuration for the game simulation.
type Config struct {
	BaseURL       string        // Base URL of the service
	NumPlayers    int           // Number of simulated players
	RunsPerPlayer int           // Runs each player submits
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	MaxScore      int64         // Upper bound for generated run scores
	LogFile       string        // Log file for simulation output
	Verbose       bool          // Enable verbose logging
}

// sessionResponse mirrors POST /api/start-session.
type sessionResponse struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
	StartTs   int64  `json:"startTs"`
	MinMs     int64  `json:"minMs"`
}

// submitResponse mirrors POST /api/submit.
type submitResponse struct {
	OK              bool   `json:"ok"`
	TxHash          string `json:"txHash"`
	LedgerPersisted bool   `json:"ledgerPersisted"`
}

// boardEntry mirrors one leaderboard row.
type boardEntry struct {
	Rank       int    `json:"rank"`
	Wallet     string `json:"wallet"`
	Username   string `json:"username"`
	TotalScore int64  `json:"totalScore"`
}

// boardResponse mirrors GET /api/leaderboard.
type boardResponse struct {
	UpdatedAt int64        `json:"updatedAt"`
	Top       []boardEntry `json:"top"`
}

// historyResponse mirrors GET /api/history.
type historyResponse struct {
	Wallet string `json:"wallet"`
	Runs   []struct {
		UnixMs int64  `json:"ts"`
		Score  int64  `json:"score"`
		TxHash string `json:"txHash"`
	} `json:"runs"`
}

// Stats holds simulation statistics.
type Stats struct {
	RunsPlanned     int
	RunsSubmitted   int
	RunsSuccessful  int
	RunsRejected    int
	RunsFailed      int
	WalletsVerified int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
