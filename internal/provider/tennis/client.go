// Package tennis is the HTTP client for the upstream tennis data API.
//
// The API wraps every payload in {"data": ...} and authenticates with an
// X-API-Key header. Requests are rate limited with a token bucket and
// responses are kept in a short-lived TTL cache that callers bypass with
// the fresh flag.
package tennis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/albapepper/courtwatch/internal/cache"
	"github.com/albapepper/courtwatch/internal/provider"
	"github.com/albapepper/courtwatch/internal/rules"
)

// Config holds client settings.
type Config struct {
	BaseURL           string
	APIKey            string
	RequestsPerMinute int
	Timeout           time.Duration
	// CacheTTL overrides the per-endpoint TTLs when positive.
	CacheTTL time.Duration
}

// Client is the upstream tennis API client. It satisfies
// notifications.Source.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	cache      *cache.Cache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewClient creates a tennis API client with rate limiting and a response
// cache. Pass a nil cache to disable caching.
func NewClient(cfg Config, c *cache.Cache, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New(false)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(limit, 1),
		cache:      c,
		cacheTTL:   cfg.CacheTTL,
		logger:     logger,
	}
}

// --------------------------------------------------------------------------
// Feeds
// --------------------------------------------------------------------------

// Live returns matches currently in progress on tour.
func (c *Client) Live(ctx context.Context, tour rules.Tour, fresh bool) ([]provider.Match, error) {
	params := url.Values{"tour": {string(tour)}}
	var wire []wireMatch
	if err := c.get(ctx, "/matches/live", params, cache.TTLLive, fresh, &wire); err != nil {
		return nil, err
	}
	return toMatches(wire, tour), nil
}

// Upcoming returns matches scheduled to start within lookahead.
func (c *Client) Upcoming(ctx context.Context, tour rules.Tour, lookahead time.Duration, fresh bool) ([]provider.Match, error) {
	params := url.Values{
		"tour":  {string(tour)},
		"hours": {strconv.Itoa(int(lookahead.Hours()))},
	}
	var wire []wireMatch
	if err := c.get(ctx, "/matches/upcoming", params, cache.TTLSchedule, fresh, &wire); err != nil {
		return nil, err
	}
	return toMatches(wire, tour), nil
}

// Results returns matches finished since the given time.
func (c *Client) Results(ctx context.Context, tour rules.Tour, since time.Time, fresh bool) ([]provider.Match, error) {
	// since is truncated so consecutive polls share a cache key.
	params := url.Values{
		"tour":  {string(tour)},
		"since": {since.UTC().Truncate(time.Hour).Format(time.RFC3339)},
	}
	var wire []wireMatch
	if err := c.get(ctx, "/matches/results", params, cache.TTLSchedule, fresh, &wire); err != nil {
		return nil, err
	}
	return toMatches(wire, tour), nil
}

// Players returns the current ranking list for tour.
func (c *Client) Players(ctx context.Context, tour rules.Tour, fresh bool) ([]provider.Player, error) {
	params := url.Values{"tour": {string(tour)}}
	var wire []wirePlayer
	if err := c.get(ctx, "/players", params, cache.TTLRankings, fresh, &wire); err != nil {
		return nil, err
	}
	out := make([]provider.Player, 0, len(wire))
	for _, p := range wire {
		out = append(out, p.toPlayer(tour))
	}
	return out, nil
}

// HeadToHead returns the finished meetings between two players, oldest
// first. Players are given by id or name.
func (c *Client) HeadToHead(ctx context.Context, playerA, playerB string, fresh bool) ([]provider.Match, error) {
	params := url.Values{"player1": {playerA}, "player2": {playerB}}
	var wire []wireMatch
	if err := c.get(ctx, "/h2h", params, cache.TTLRankings, fresh, &wire); err != nil {
		return nil, err
	}
	matches := toMatches(wire, "")
	sortByStart(matches)
	return matches, nil
}

// --------------------------------------------------------------------------
// Transport
// --------------------------------------------------------------------------

// StatusError is a non-200 upstream response.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tennis api %s returned %d: %s", e.Path, e.Code, e.Body)
}

// Retryable reports whether the request may succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// envelope is the common response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// get performs a rate-limited, cached GET and decodes the data field into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, ttl time.Duration, fresh bool, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	if !fresh {
		if data, _, ok := c.cache.Get(u); ok {
			return decodeEnvelope(data, out)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Path: path, Code: resp.StatusCode, Body: truncate(body, 200)}
	}

	if err := decodeEnvelope(body, out); err != nil {
		return err
	}

	if c.cacheTTL > 0 {
		ttl = c.cacheTTL
	}
	c.cache.Set(u, body, ttl)
	c.logger.Debug("tennis api fetched", "path", path, "bytes", len(body), "elapsed", time.Since(start))
	return nil
}

func decodeEnvelope(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
