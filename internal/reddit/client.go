// Package reddit is the transport client for the Reddit API.
//
// A Client owns the process-wide pieces: the OAuth2 client-credentials token
// source and the request rate limiter. Each fetch task opens its own Session,
// which carries a private HTTP connection pool. Sessions are cheap and never
// shared between tasks.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/dshills/evidencefetch/internal/metrics"
)

// API locations
const (
	DefaultBaseURL  = "https://oauth.reddit.com"
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	DefaultTimeout           = 10 * time.Second
	DefaultRequestsPerMinute = 60
	DefaultUserAgent         = "evidencefetch/1.0"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 512
)

// Errors
var (
	ErrMissingCredentials = errors.New("reddit client id and secret are required")
	ErrInvalidResponse    = errors.New("unexpected reddit response shape")
)

// Config configures a Client.
type Config struct {
	ClientID          string
	ClientSecret      string
	UserAgent         string
	Timeout           time.Duration // per request attempt
	RequestsPerMinute int
	Retry             RetryConfig

	// Overridable endpoints, mainly for tests
	BaseURL  string
	TokenURL string

	// Transport is the base round tripper cloned per session. Nil uses
	// http.DefaultTransport.
	Transport http.RoundTripper

	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Client is the shared, process-wide Reddit client.
type Client struct {
	cfg     Config
	base    *url.URL
	limiter *rate.Limiter
	tokens  oauth2.TokenSource
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New creates a Client. It does not contact the API.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenHTTP := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{agent: cfg.UserAgent, base: cfg.Transport},
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenHTTP)

	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	return &Client{
		cfg:     cfg,
		base:    base,
		limiter: rate.NewLimiter(perSecond, 1),
		tokens:  cc.TokenSource(tokenCtx),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// NewSession opens a session with its own connection pool.
func (c *Client) NewSession() *Session {
	base := c.cfg.Transport
	if t, ok := base.(*http.Transport); ok {
		base = t.Clone()
	}
	return &Session{
		client: c,
		http: &http.Client{
			Transport: &oauth2.Transport{
				Source: c.tokens,
				Base:   &userAgentTransport{agent: c.cfg.UserAgent, base: base},
			},
		},
	}
}

// Session performs API calls for a single fetch task.
type Session struct {
	client *Client
	http   *http.Client
}

// Close releases the session's idle connections.
func (s *Session) Close() {
	s.http.CloseIdleConnections()
}

// getJSON issues a GET with rate limiting, a per-attempt timeout and retries,
// decoding the response body into out.
func (s *Session) getJSON(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	c := s.client
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = params.Encode()
	target := u.String()

	lastStatus := 0
	onRetry := func(attempt int, err error, wait time.Duration) {
		c.metrics.ObserveRetry(endpoint)
		c.logger.Debug("retrying reddit request",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	_, attempts, err := retryWithBackoff(ctx, c.cfg.Retry, onRetry, func() (struct{}, error) {
		status, err := s.attempt(ctx, endpoint, target, out)
		lastStatus = status
		return struct{}{}, err
	})
	if err != nil {
		return &TransportError{Endpoint: endpoint, Status: lastStatus, Attempts: attempts, Err: err}
	}
	return nil
}

func (s *Session) attempt(ctx context.Context, endpoint, target string, out any) (int, error) {
	c := s.client
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return 0, &statusError{status: http.StatusBadRequest, body: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(endpoint, 0, time.Since(start))
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return re.Response.StatusCode, &statusError{status: re.Response.StatusCode, body: "token: " + truncate(string(re.Body))}
		}
		return 0, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.metrics.ObserveRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &statusError{
			status:     resp.StatusCode,
			body:       truncate(string(bodyBytes)),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A malformed body will not get better on retry
		return resp.StatusCode, &statusError{status: http.StatusUnprocessableEntity, body: fmt.Sprintf("decode response: %v", err)}
	}
	return resp.StatusCode, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}

type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(r)
}
