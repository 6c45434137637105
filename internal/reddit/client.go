package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"personaforge/internal/cache"
	"personaforge/internal/model"
)

// sleepFunc is the sleep used between retries (injectable for tests)
var sleepFunc = time.Sleep

// Record is one raw provider item before corpus normalization
type Record struct {
	NativeID   string
	Kind       model.ContentKind
	Title      string
	Body       string
	BodyHTML   string
	Subreddit  string
	Score      int
	CreatedUTC float64
	Permalink  string
}

// Client fetches a user's public posts and comments from the Reddit JSON
// listings. It rate-limits, honors robots.txt, retries transient failures,
// and caches listing responses.
type Client struct {
	baseURL    string
	userAgent  string
	limit      int
	maxRetries int
	maxBytes   int64
	httpClient *http.Client
	limiter    *rate.Limiter
	robots     *RobotsChecker // nil when robots checking is disabled
	cache      cache.Cache    // nil when caching is disabled
	cacheTTL   time.Duration
	log        *zap.Logger
}

// NewClient creates a provider client from configuration
func NewClient(cfg model.RedditConfig, rl model.RateLimitConfig, store cache.Cache, cacheTTL time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	var robots *RobotsChecker
	if cfg.RespectRobots {
		robots = NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}

	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := rl.Burst
	if burst <= 0 {
		burst = 1
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		limit:      cfg.Limit,
		maxRetries: maxRetries,
		maxBytes:   cfg.MaxBodyBytes,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		robots:   robots,
		cache:    store,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// FetchUserContent returns the user's newest posts and comments, posts first.
// Fails with ErrUserNotFound, ErrPrivateAccount, or ErrProviderRateLimit
// wrapped with request context.
func (c *Client) FetchUserContent(ctx context.Context, username string) ([]Record, error) {
	posts, err := c.fetchListing(ctx, username, "submitted")
	if err != nil {
		return nil, err
	}

	comments, err := c.fetchListing(ctx, username, "comments")
	if err != nil {
		return nil, err
	}

	c.log.Debug("fetched user content",
		zap.String("username", username),
		zap.Int("posts", len(posts)),
		zap.Int("comments", len(comments)))

	return append(posts, comments...), nil
}

func (c *Client) fetchListing(ctx context.Context, username, which string) ([]Record, error) {
	url := fmt.Sprintf("%s/user/%s/%s.json?limit=%d&raw_json=1", c.baseURL, username, which, c.limit)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s for %s: %w", which, username, err)
	}

	records, err := parseListing(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s listing for %s: %w", which, username, err)
	}

	return records, nil
}

// get performs a cached, rate-limited, retrying GET
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	key := cache.Key(url)
	if c.cache != nil {
		if body, found := c.cache.Get(ctx, key); found {
			c.log.Debug("cache hit", zap.String("url", url))
			return body, nil
		}
	}

	if c.robots != nil {
		allowed, err := c.robots.CanFetch(ctx, url)
		if err != nil {
			c.log.Warn("robots.txt check failed, proceeding", zap.Error(err))
		} else if !allowed {
			return nil, fmt.Errorf("robots.txt disallows %s", url)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			c.log.Debug("retrying provider request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff))
			sleepFunc(backoff)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.getOnce(ctx, url)
		if err == nil {
			if c.cache != nil {
				if cerr := c.cache.Set(ctx, key, body, c.cacheTTL); cerr != nil {
					c.log.Warn("cache write failed", zap.Error(cerr))
				}
			}
			return body, nil
		}

		lastErr = err
		if !model.IsRetryable(err) && !isTransient(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, model.ErrUserNotFound
	case resp.StatusCode == http.StatusForbidden:
		return nil, model.ErrPrivateAccount
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, model.ErrProviderRateLimit
	case resp.StatusCode >= 500:
		return nil, &transientError{fmt.Errorf("server error: %d", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, &transientError{fmt.Errorf("read body: %w", err)}
	}

	return body, nil
}

// transientError marks network/server failures worth retrying
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// Listing JSON shapes (only the fields we consume)

type listing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"` // t3 = post, t1 = comment
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Selftext     string  `json:"selftext"`
	SelftextHTML string  `json:"selftext_html"`
	Subreddit    string  `json:"subreddit"`
	Score        int     `json:"score"`
	CreatedUTC   float64 `json:"created_utc"`
	Permalink    string  `json:"permalink"`
}

type commentData struct {
	ID         string  `json:"id"`
	Body       string  `json:"body"`
	BodyHTML   string  `json:"body_html"`
	Subreddit  string  `json:"subreddit"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
}

func parseListing(body []byte) ([]Record, error) {
	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("unmarshal listing: %w", err)
	}

	var records []Record
	for _, child := range l.Data.Children {
		switch child.Kind {
		case "t3":
			var p postData
			if err := json.Unmarshal(child.Data, &p); err != nil {
				continue
			}
			records = append(records, Record{
				NativeID:   p.ID,
				Kind:       model.KindPost,
				Title:      p.Title,
				Body:       p.Selftext,
				BodyHTML:   p.SelftextHTML,
				Subreddit:  p.Subreddit,
				Score:      p.Score,
				CreatedUTC: p.CreatedUTC,
				Permalink:  p.Permalink,
			})
		case "t1":
			var cm commentData
			if err := json.Unmarshal(child.Data, &cm); err != nil {
				continue
			}
			records = append(records, Record{
				NativeID:   cm.ID,
				Kind:       model.KindComment,
				Body:       cm.Body,
				BodyHTML:   cm.BodyHTML,
				Subreddit:  cm.Subreddit,
				Score:      cm.Score,
				CreatedUTC: cm.CreatedUTC,
				Permalink:  cm.Permalink,
			})
		}
	}

	return records, nil
}
