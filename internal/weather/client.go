package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yegors/vatsim-board/pkg/logger"
)

const userAgent = "vatsim-board/1.0"

// Client handles HTTP requests to the weather backends
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new weather backend client
func NewClient(config Config, log *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		},
		logger: log.Named("weather-client"),
	}
}

// FetchMETAR fetches raw METAR text for an airport from aviationweather.gov,
// falling back to the VATSIM METAR mirror when the primary returns nothing
func (c *Client) FetchMETAR(ctx context.Context, icao string) (string, error) {
	url := fmt.Sprintf("%s/metar?ids=%s&format=raw", c.config.METARBaseURL, icao)
	text, err := c.fetchTextWithRetry(ctx, url, icao)
	if err == nil && validMETAR(text) {
		return text, nil
	}

	if c.config.METARFallbackBaseURL != "" {
		fallbackURL := fmt.Sprintf("%s/%s", c.config.METARFallbackBaseURL, icao)
		text, fbErr := c.fetchTextWithRetry(ctx, fallbackURL, icao)
		if fbErr == nil && validMETAR(text) {
			return text, nil
		}
	}

	if err != nil {
		return "", err
	}
	return "", fmt.Errorf("no METAR data found for %s", icao)
}

func validMETAR(text string) bool {
	return text != "" && !strings.HasPrefix(text, "No METAR") && !strings.HasPrefix(text, "Error")
}

// observation mirrors the fields we use from an api.weather.gov observation
type observation struct {
	Properties observationProperties `json:"properties"`
}

type observationProperties struct {
	Timestamp          time.Time        `json:"timestamp"`
	WindDirection      observationValue `json:"windDirection"`
	WindSpeed          observationValue `json:"windSpeed"`
	WindGust           observationValue `json:"windGust"`
	BarometricPressure observationValue `json:"barometricPressure"`
}

type observationValue struct {
	Value *float64 `json:"value"`
}

type observationList struct {
	Features []observation `json:"features"`
}

// FetchMinuteWind fetches the latest surface observation for an airport from
// api.weather.gov and formats its wind group. When the latest observation has
// no wind data, the most recent of the last 30 observations with wind data is
// used instead.
func (c *Client) FetchMinuteWind(ctx context.Context, icao string) (string, time.Time, error) {
	url := fmt.Sprintf("%s/stations/%s/observations/latest", c.config.ObservationsBaseURL, icao)
	var latest observation
	if err := c.fetchJSONWithRetry(ctx, url, icao, &latest); err != nil {
		return "", time.Time{}, err
	}

	if wind, ok := formatObservationWind(latest.Properties); ok {
		return wind, latest.Properties.Timestamp, nil
	}

	listURL := fmt.Sprintf("%s/stations/%s/observations?limit=30", c.config.ObservationsBaseURL, icao)
	var list observationList
	if err := c.fetchJSONWithRetry(ctx, listURL, icao, &list); err != nil {
		return "", time.Time{}, err
	}
	for _, obs := range list.Features {
		if wind, ok := formatObservationWind(obs.Properties); ok {
			return wind, obs.Properties.Timestamp, nil
		}
	}

	return "", time.Time{}, fmt.Errorf("no observation with wind data for %s", icao)
}

// formatObservationWind converts an observation's wind fields (km/h) into a
// METAR-style wind group in knots
func formatObservationWind(props observationProperties) (string, bool) {
	if props.WindDirection.Value == nil || props.WindSpeed.Value == nil {
		return "", false
	}

	speedKt := int(*props.WindSpeed.Value/1.852 + 0.5)
	if speedKt == 0 {
		return "00000KT", true
	}

	wind := fmt.Sprintf("%03d%02d", int(*props.WindDirection.Value), speedKt)
	if props.WindGust.Value != nil && *props.WindGust.Value > 0 {
		gustKt := int(*props.WindGust.Value/1.852 + 0.5)
		if gustKt > speedKt {
			wind += fmt.Sprintf("G%02d", gustKt)
		}
	}
	return wind + "KT", true
}

func (c *Client) fetchTextWithRetry(ctx context.Context, url, icao string) (string, error) {
	var text string
	err := c.fetchWithRetry(ctx, url, icao, func(body io.Reader) error {
		raw, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(string(raw))
		return nil
	})
	return text, err
}

func (c *Client) fetchJSONWithRetry(ctx context.Context, url, icao string, target interface{}) error {
	return c.fetchWithRetry(ctx, url, icao, func(body io.Reader) error {
		if err := json.NewDecoder(body).Decode(target); err != nil {
			return fmt.Errorf("error decoding weather data: %w", err)
		}
		return nil
	})
}

// fetchWithRetry performs an HTTP request with retry and exponential backoff
func (c *Client) fetchWithRetry(ctx context.Context, url, icao string, decode func(io.Reader) error) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Debug("Retrying weather data fetch",
				logger.String("airport", icao),
				logger.Int("attempt", attempt),
				logger.String("backoff", backoffDuration.String()))
			select {
			case <-time.After(backoffDuration):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("error making request to weather API: %w", err)
			c.logger.Warn("Weather API request failed, may retry",
				logger.String("airport", icao),
				logger.Error(err),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.config.MaxRetries+1))
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			// Station does not exist, retrying will not help
			resp.Body.Close()
			return fmt.Errorf("weather station %s not found", icao)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			c.logger.Warn("Weather API returned non-OK status, may retry",
				logger.String("airport", icao),
				logger.Int("status_code", resp.StatusCode),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.config.MaxRetries+1))
			continue
		}

		err = decode(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return lastErr
}
