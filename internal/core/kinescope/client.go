package kinescope

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AsliddinWeb/online-course-platform/config"
)

// Client talks to the Kinescope video hosting API. The platform stores only
// video ids; duration and playback links are fetched from here.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	apiRequestsTotal   metric.Int64Counter
	apiRequestDuration metric.Float64Histogram
	apiRequestErrors   metric.Int64Counter
}

type Video struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration"`
	PlayLink string  `json:"play_link"`
	EmbedURL string  `json:"embed_link"`
}

type videoResponse struct {
	Data Video `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(cfg config.KinescopeConfig) *Client {
	meter := otel.Meter("kinescope_client")

	apiRequestsTotal, _ := meter.Int64Counter(
		"kinescope_api_requests_total",
		metric.WithDescription("Total number of Kinescope API requests"),
		metric.WithUnit("1"),
	)

	apiRequestDuration, _ := meter.Float64Histogram(
		"kinescope_api_duration_seconds",
		metric.WithDescription("Duration of Kinescope API requests"),
		metric.WithUnit("s"),
	)

	apiRequestErrors, _ := meter.Int64Counter(
		"kinescope_api_errors_total",
		metric.WithDescription("Total number of Kinescope API errors"),
		metric.WithUnit("1"),
	)

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},

		apiRequestsTotal:   apiRequestsTotal,
		apiRequestDuration: apiRequestDuration,
		apiRequestErrors:   apiRequestErrors,
	}
}

// Enabled reports whether an API key is configured. Without a key the
// platform serves lessons without video metadata sync.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// GetVideo fetches video metadata by its Kinescope id.
func (c *Client) GetVideo(ctx context.Context, videoID string) (*Video, error) {
	startTime := time.Now()
	attrs := []attribute.KeyValue{
		attribute.String("operation", "get_video"),
	}
	c.apiRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	url := fmt.Sprintf("%s/videos/%s", c.baseURL, videoID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.apiRequestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
		return nil, fmt.Errorf("kinescope request failed: %w", err)
	}
	defer resp.Body.Close()

	c.apiRequestDuration.Record(ctx, time.Since(startTime).Seconds(),
		metric.WithAttributes(append(attrs, attribute.Int("status_code", resp.StatusCode))...))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.apiRequestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("kinescope API error %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("kinescope API returned status %d", resp.StatusCode)
	}

	var parsed videoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse video response: %w", err)
	}

	return &parsed.Data, nil
}

// VideoDuration fetches a video and returns its duration in whole seconds.
func (c *Client) VideoDuration(ctx context.Context, videoID string) (int, error) {
	video, err := c.GetVideo(ctx, videoID)
	if err != nil {
		return 0, err
	}
	return int(video.Duration), nil
}

// EmbedURL builds the iframe playback URL for a video id.
func EmbedURL(videoID string) string {
	return fmt.Sprintf("https://kinescope.io/embed/%s", videoID)
}
