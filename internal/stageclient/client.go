package stageclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/Cheese-3DChess/pkg/stagedto"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// APIError is a non-2xx answer from the stage server.
type APIError struct {
	Status int
	Body   stagedto.Error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stage api error: status=%d code=%s message=%s", e.Status, e.Body.Code, e.Body.Message)
}

// Client talks to the stage HTTP API.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDialer replaces the TCP dialer, e.g. with an in-memory listener.
func WithDialer(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, fasthttp.MethodGet, "/healthz", nil, "", true)
	return err
}

func (c *Client) Themes(ctx context.Context) ([]stagedto.Palette, error) {
	var out []stagedto.Palette
	return out, c.doJSON(ctx, fasthttp.MethodGet, "/themes", nil, &out, true)
}

func (c *Client) CreateSession(ctx context.Context) (*stagedto.SessionState, error) {
	var out stagedto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/sessions", nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) State(ctx context.Context, id string) (*stagedto.SessionState, error) {
	var out stagedto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id, ""), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, sessionPath(id, ""), nil, nil, false)
}

func (c *Client) Tap(ctx context.Context, id, square string) (*stagedto.TapResponse, error) {
	var out stagedto.TapResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "tap"), stagedto.TapRequest{Square: square}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) NewGame(ctx context.Context, id string) (*stagedto.LoadResponse, error) {
	var out stagedto.LoadResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "new"), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Save(ctx context.Context, id, slot string) (*stagedto.SaveResponse, error) {
	var out stagedto.SaveResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "save"), stagedto.SaveRequest{Slot: slot}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Load(ctx context.Context, id, slot string) (*stagedto.LoadResponse, error) {
	var out stagedto.LoadResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "load"), stagedto.LoadRequest{Slot: slot}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Import restores the session from a raw save record.
func (c *Client) Import(ctx context.Context, id string, record []byte) (*stagedto.LoadResponse, error) {
	body, err := c.do(ctx, fasthttp.MethodPost, sessionPath(id, "import"), record, "application/json", false)
	if err != nil {
		return nil, err
	}
	var out stagedto.LoadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func (c *Client) Export(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodGet, sessionPath(id, "export"), nil, "", true)
}

func (c *Client) Slots(ctx context.Context, id string) ([]string, error) {
	var out stagedto.SlotList
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id, "slots"), nil, &out, true); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

func (c *Client) SetTheme(ctx context.Context, id, theme string) (*stagedto.Palette, error) {
	var out stagedto.Palette
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "theme"), stagedto.ThemeRequest{Theme: theme}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Flip(ctx context.Context, id string) (*stagedto.Camera, error) {
	var out stagedto.Camera
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "flip"), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Hover(ctx context.Context, id, square string) (*stagedto.HoverResponse, error) {
	var out stagedto.HoverResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id, "hover/"+square), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Preview(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodGet, sessionPath(id, "preview.png"), nil, "", true)
}

func (c *Client) Archive(ctx context.Context, limit int) ([]stagedto.ArchivedGame, error) {
	var out []stagedto.ArchivedGame
	return out, c.doJSON(ctx, fasthttp.MethodGet, "/archive?limit="+strconv.Itoa(limit), nil, &out, true)
}

func sessionPath(id, action string) string {
	if action == "" {
		return "/sessions/" + id
	}
	return "/sessions/" + id + "/" + action
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	body, err := c.do(ctx, method, path, payload, "application/json", retry)
	if err != nil {
		return err
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType string, retry bool) ([]byte, error) {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if payload != nil {
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts || !retry {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := &APIError{Status: status}
			if jerr := json.Unmarshal(resp.Body(), &apiErr.Body); jerr != nil {
				apiErr.Body.Message = truncate(string(resp.Body()), 512)
			}
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return nil, apiErr
			}
			lastErr = apiErr
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}
		return append([]byte(nil), resp.Body()...), nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Body.Code == code
}
