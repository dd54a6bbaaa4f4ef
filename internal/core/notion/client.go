package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AsliddinWeb/online-course-platform/config"
)

const (
	apiBaseURL = "https://api.notion.com/v1"

	// Page content changes rarely during a live lesson, 5 minutes keeps
	// the Notion rate limit comfortable.
	cacheTTL = 300 * time.Second
)

// Client fetches lesson text content from Notion pages. Responses are cached
// in Redis so repeated lesson opens do not hit the Notion API.
type Client struct {
	apiKey     string
	version    string
	baseURL    string
	httpClient *http.Client
	cache      *redis.Client
	logger     *slog.Logger

	apiRequestsTotal metric.Int64Counter
	cacheHitsTotal   metric.Int64Counter
	cacheMissesTotal metric.Int64Counter
}

// Block is a single content block of a Notion page, reduced to the fields
// the lesson view renders.
type Block struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	Children []*Block `json:"children,omitempty"`
}

// PageContent is the rendered content of one Notion page.
type PageContent struct {
	PageID    string    `json:"page_id"`
	Blocks    []*Block  `json:"blocks"`
	FetchedAt time.Time `json:"fetched_at"`
}

type richTextHolder struct {
	RichText []struct {
		PlainText string `json:"plain_text"`
	} `json:"rich_text"`
}

func NewClient(cfg config.NotionConfig, cache *redis.Client, logger *slog.Logger) *Client {
	meter := otel.Meter("notion_client")

	apiRequestsTotal, _ := meter.Int64Counter(
		"notion_api_requests_total",
		metric.WithDescription("Total number of Notion API requests"),
		metric.WithUnit("1"),
	)

	cacheHitsTotal, _ := meter.Int64Counter(
		"notion_cache_hits_total",
		metric.WithDescription("Total number of Notion content cache hits"),
		metric.WithUnit("1"),
	)

	cacheMissesTotal, _ := meter.Int64Counter(
		"notion_cache_misses_total",
		metric.WithDescription("Total number of Notion content cache misses"),
		metric.WithUnit("1"),
	)

	return &Client{
		apiKey:  cfg.APIKey,
		version: cfg.Version,
		baseURL: apiBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache:  cache,
		logger: logger,

		apiRequestsTotal: apiRequestsTotal,
		cacheHitsTotal:   cacheHitsTotal,
		cacheMissesTotal: cacheMissesTotal,
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

func cacheKey(pageID string) string {
	return fmt.Sprintf("notion_content_%s", pageID)
}

// GetPageContent returns the blocks of a Notion page, served from the Redis
// cache when fresh. A cache outage degrades to a direct API fetch.
func (c *Client) GetPageContent(ctx context.Context, pageID string) (*PageContent, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, cacheKey(pageID)).Result()
		if err == nil {
			var content PageContent
			if json.Unmarshal([]byte(cached), &content) == nil {
				c.cacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("page_id", pageID)))
				return &content, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Warn("notion cache read failed",
				slog.String("page_id", pageID),
				slog.String("error", err.Error()))
		}
		c.cacheMissesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("page_id", pageID)))
	}

	blocks, err := c.fetchBlocks(ctx, pageID)
	if err != nil {
		return nil, err
	}

	content := &PageContent{
		PageID:    pageID,
		Blocks:    blocks,
		FetchedAt: time.Now().UTC(),
	}

	if c.cache != nil {
		payload, err := json.Marshal(content)
		if err == nil {
			if err := c.cache.Set(ctx, cacheKey(pageID), payload, cacheTTL).Err(); err != nil {
				c.logger.Warn("notion cache write failed",
					slog.String("page_id", pageID),
					slog.String("error", err.Error()))
			}
		}
	}

	return content, nil
}

// InvalidateCache drops the cached content of a page, used after an admin
// edits the lesson material.
func (c *Client) InvalidateCache(ctx context.Context, pageID string) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Del(ctx, cacheKey(pageID)).Err()
}

func (c *Client) fetchBlocks(ctx context.Context, blockID string) ([]*Block, error) {
	var blocks []*Block
	cursor := ""

	for {
		url := fmt.Sprintf("%s/blocks/%s/children?page_size=100", c.baseURL, blockID)
		if cursor != "" {
			url += "&start_cursor=" + cursor
		}

		body, err := c.doRequest(ctx, url)
		if err != nil {
			return nil, err
		}

		var list struct {
			Results    []json.RawMessage `json:"results"`
			HasMore    bool              `json:"has_more"`
			NextCursor string            `json:"next_cursor"`
		}
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("failed to parse block list: %w", err)
		}

		for _, raw := range list.Results {
			block, err := c.parseBlock(ctx, raw)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)
		}

		if !list.HasMore {
			break
		}
		cursor = list.NextCursor
	}

	return blocks, nil
}

func (c *Client) parseBlock(ctx context.Context, raw json.RawMessage) (*Block, error) {
	var meta struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		HasChildren bool   `json:"has_children"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse block: %w", err)
	}

	block := &Block{ID: meta.ID, Type: meta.Type}

	// Every text-bearing block type keeps its rich_text under a key named
	// after the block type.
	var typed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &typed); err == nil {
		if payload, ok := typed[meta.Type]; ok {
			var holder richTextHolder
			if json.Unmarshal(payload, &holder) == nil {
				for _, rt := range holder.RichText {
					block.Text += rt.PlainText
				}
			}
		}
	}

	if meta.HasChildren {
		children, err := c.fetchBlocks(ctx, meta.ID)
		if err != nil {
			return nil, err
		}
		block.Children = children
	}

	return block, nil
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	c.apiRequestsTotal.Add(ctx, 1)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notion API returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
