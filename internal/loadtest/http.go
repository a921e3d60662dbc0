package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/pkg/logger"
)

// Client talks to the epochtal HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.client.Do(req)
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// Submit posts one run. The server answers 201 on acceptance.
func (c *Client) Submit(ctx context.Context, s Submission) error {
	resp, err := c.do(ctx, http.MethodPost, "/runs", s)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("submit rejected with status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// Leaderboard fetches GET /leaderboard.
func (c *Client) Leaderboard(ctx context.Context) (model.Leaderboard, error) {
	resp, err := c.do(ctx, http.MethodGet, "/leaderboard", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leaderboard failed with status: %d", resp.StatusCode)
	}
	var board model.Leaderboard
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	return board, nil
}

// submitAll submits runs on config.Workers goroutines and returns the ones
// the server accepted.
func submitAll(ctx context.Context, config *Config, client *Client, runs []Submission, stats *Stats) []Submission {
	log := logger.Get().Named("loadtest")
	log.Info(ctx, "submitting runs", logger.Int("runs", len(runs)), logger.Int("workers", config.Workers))

	var (
		submitted int64
		failed    int64
		mu        sync.Mutex
		accepted  = make([]Submission, 0, len(runs))
		lastMu    sync.Mutex
		last      time.Time
	)

	jobs := make(chan Submission, config.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				err := client.Submit(ctx, s)
				total := atomic.AddInt64(&submitted, 1)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Warn(ctx, "submission failed", logger.String("steamid", s.SteamID), logger.Error(err))
					}
				} else {
					mu.Lock()
					accepted = append(accepted, s)
					mu.Unlock()
				}

				lastMu.Lock()
				if time.Since(last) >= progressInterval {
					last = time.Now()
					log.Info(ctx, "progress",
						logger.Int("submitted", int(total)),
						logger.Int("of", len(runs)),
						logger.Int("failed", int(atomic.LoadInt64(&failed))))
				}
				lastMu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, s := range runs {
			select {
			case <-ctx.Done():
				return
			case jobs <- s:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.Accepted = len(accepted)
	return accepted
}
