package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, rawURL string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// runJob is one run to be played by a worker.
type runJob struct {
	Wallet string
	Score  int64
}

// playRuns plays the planned runs concurrently using a worker pool. Each
// run mints a session, waits out the minimum session duration and submits
// the score. Returns the expected total per wallet, counting only runs the
// service accepted.
func playRuns(ctx context.Context, config *Config, jobs []runJob, stats *Stats) (map[string]int64, error) {
	log.Printf("📤 Playing %d runs with %d workers...", len(jobs), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Counters for statistics
	var (
		successful int64
		rejected   int64
		failed     int64
		submitted  int64
	)

	// Expected score per wallet, accepted runs only
	expected := make(map[string]int64, config.NumPlayers)
	var expectedMu sync.Mutex

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	jobChan := make(chan runJob, config.Workers*2)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for job := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := playSingleRun(ctx, client, config.BaseURL, job)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
						expectedMu.Lock()
						expected[job.Wallet] += job.Score
						expectedMu.Unlock()
					case "rejected":
						atomic.AddInt64(&rejected, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						rej := atomic.LoadInt64(&rejected)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d runs (success: %d, rejected: %d, failed: %d)",
								total, len(jobs), succ, rej, fail)
						} else {
							fmt.Printf("\r📤 Runs: %d/%d (success: %d, rejected: %d, failed: %d)",
								total, len(jobs), succ, rej, fail)
						}
					}
				}
			}
		}()
	}

	// Send runs to workers
	go func() {
		defer close(jobChan)
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return
			case jobChan <- job:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.RunsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RunsSuccessful = int(atomic.LoadInt64(&successful))
	stats.RunsRejected = int(atomic.LoadInt64(&rejected))
	stats.RunsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Run submission completed:
   Successful: %d
   Rejected: %d
   Failed: %d
`, stats.RunsSuccessful, stats.RunsRejected, stats.RunsFailed)

	return expected, nil
}

// playSingleRun plays one complete run and returns the result
func playSingleRun(ctx context.Context, client *HTTPClient, baseURL string, job runJob) string {
	// Mint a session for the wallet
	resp, err := client.Post(ctx, baseURL+"/api/start-session", map[string]string{
		"wallet": job.Wallet,
	})
	if err != nil {
		return "failed"
	}
	body, err := readResponseBody(resp)
	if err != nil || resp.StatusCode != http.StatusOK {
		return "failed"
	}

	var sess sessionResponse
	if err := json.Unmarshal(body, &sess); err != nil || sess.Token == "" {
		return "failed"
	}

	// A submit before minMs elapses is rejected, so sit out the minimum
	// plus a little jitter to spread the load.
	wait := time.Duration(sess.MinMs)*time.Millisecond + time.Duration(rand.Intn(250))*time.Millisecond
	select {
	case <-ctx.Done():
		return "failed"
	case <-time.After(wait):
	}

	resp, err = client.Post(ctx, baseURL+"/api/submit", map[string]any{
		"sessionId":  sess.SessionID,
		"token":      sess.Token,
		"wallet":     job.Wallet,
		"scoreDelta": job.Score,
		"txDelta":    1,
	})
	if err != nil {
		return "failed"
	}
	body, err = readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var ack submitResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.OK {
			return "success"
		}
		return "success" // Assume success for 200 even if parsing fails
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The service turned the run away (replay, guard, bad session)
		return "rejected"
	default:
		return "failed"
	}
}

// getLeaderboard fetches the current top standings.
func getLeaderboard(ctx context.Context, client *HTTPClient, baseURL string, limit int) (*boardResponse, error) {
	resp, err := client.Get(ctx, fmt.Sprintf("%s/api/leaderboard?limit=%d", baseURL, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leaderboard request failed with status: %d", resp.StatusCode)
	}

	var board boardResponse
	if err := json.Unmarshal(body, &board); err != nil {
		return nil, fmt.Errorf("failed to parse leaderboard: %w", err)
	}
	return &board, nil
}

// getHistory fetches the run history for one wallet.
func getHistory(ctx context.Context, client *HTTPClient, baseURL, wallet string) (*historyResponse, error) {
	resp, err := client.Get(ctx, baseURL+"/api/history?wallet="+url.QueryEscape(wallet))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read history response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history request failed with status: %d", resp.StatusCode)
	}

	var hist historyResponse
	if err := json.Unmarshal(body, &hist); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return &hist, nil
}
