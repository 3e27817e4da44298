package vatsim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yegors/vatsim-board/pkg/logger"
)

// Client fetches network snapshots from the VATSIM data feed
type Client struct {
	dataURL    string
	maxRetries int
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new data feed client
func NewClient(dataURL string, requestTimeout time.Duration, maxRetries int, log *logger.Logger) *Client {
	return &Client{
		dataURL:    dataURL,
		maxRetries: maxRetries,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: log.Named("vatsim-client"),
	}
}

// FetchSnapshot fetches and decodes the current network snapshot with retry
// and exponential backoff
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Info("Retrying network data fetch",
				logger.Int("attempt", attempt),
				logger.String("backoff", backoffDuration.String()))
			select {
			case <-time.After(backoffDuration):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		snapshot, err := c.fetchOnce(ctx)
		if err != nil {
			lastErr = err
			c.logger.Warn("Network data fetch failed, may retry",
				logger.Error(err),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.maxRetries+1))
			continue
		}

		if attempt > 0 {
			c.logger.Info("Successfully fetched network data after retries",
				logger.Int("attempts_needed", attempt+1))
		}
		return snapshot, nil
	}

	c.logger.Error("All attempts to fetch network data failed",
		logger.Error(lastErr),
		logger.Int("max_attempts", c.maxRetries+1))
	return nil, fmt.Errorf("fetching network data: %w", lastErr)
}

func (c *Client) fetchOnce(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request to data feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var snapshot Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("error decoding network data: %w", err)
	}

	return &snapshot, nil
}
