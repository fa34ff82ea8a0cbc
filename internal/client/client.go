package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

// Config configures the API client
type Config struct {
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"mindur=1ms"`
	RetryMax     int           `mapstructure:"retry_max" validate:"min=0,max=10"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
}

// Client talks to the spacesfeed API
type Client struct {
	http    *retryablehttp.Client
	baseURL *url.URL
	logger  *logger.Logger

	mu    sync.RWMutex
	token string
}

// envelope mirrors pkg/response.Response
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// New creates an API client
func New(cfg Config, log *logger.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("api-client")

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		httpClient.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		httpClient.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		httpClient.HTTPClient.Timeout = cfg.Timeout
	}
	httpClient.Logger = log
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		http:    httpClient,
		baseURL: base,
		logger:  log,
	}, nil
}

// HTTPClient exposes the underlying retrying client, e.g. for media loads
func (c *Client) HTTPClient() *retryablehttp.Client {
	return c.http
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Register creates an account
func (c *Client) Register(ctx context.Context, req *domain.UserRegisterRequest) (*domain.UserSummary, error) {
	var user domain.UserSummary
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and keeps the access token for later calls
func (c *Client) Login(ctx context.Context, handle, password string) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	body := &domain.UserLoginRequest{Handle: handle, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Tokens != nil {
		c.SetToken(resp.Tokens.AccessToken)
	}
	return &resp, nil
}

// PostReaction appends a reaction to a space
func (c *Client) PostReaction(ctx context.Context, spaceID string, req *domain.ReactionCreateRequest) (*domain.Reaction, error) {
	var reaction domain.Reaction
	path := "/api/v1/spaces/" + url.PathEscape(spaceID) + "/reactions"
	if err := c.do(ctx, http.MethodPost, path, nil, req, &reaction); err != nil {
		return nil, err
	}
	return &reaction, nil
}

// do sends a JSON request and decodes the envelope's data into out
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrFetchFailed, method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	// error bodies from proxies are not always JSON; the status decides
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(method, path, resp.StatusCode, env.Error)
	}
	if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		return fmt.Errorf("%w: %s %s: failed to decode response: %w", domain.ErrFetchFailed, method, path, decodeErr)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: %s %s: failed to decode data: %w", domain.ErrFetchFailed, method, path, err)
		}
	}
	return nil
}

// statusError wraps ErrFetchFailed and, where one applies, the domain
// sentinel matching the status code
func statusError(method, path string, code int, msg string) error {
	var kind error
	switch code {
	case http.StatusBadRequest:
		kind = domain.ErrInvalidInput
	case http.StatusUnauthorized:
		kind = domain.ErrUnauthorized
	case http.StatusNotFound:
		kind = domain.ErrNotFound
	case http.StatusConflict:
		kind = domain.ErrUserAlreadyExists
	}

	if msg == "" {
		msg = http.StatusText(code)
	}
	if kind != nil {
		return fmt.Errorf("%w: %w: %s %s: status %d: %s", domain.ErrFetchFailed, kind, method, path, code, msg)
	}
	return fmt.Errorf("%w: %s %s: status %d: %s", domain.ErrFetchFailed, method, path, code, msg)
}
