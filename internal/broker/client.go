package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the brokerage REST endpoint.
const DefaultBaseURL = "https://api.robinhood.com"

// defaultClientID is the public OAuth client id used by the brokerage web app.
const defaultClientID = "c82SH0WZOsabOXGP2sxqcj34FxkvfnWRZBKlBjFS"

// ErrNotAuthenticated is returned by data calls made before Login.
var ErrNotAuthenticated = errors.New("broker: not logged in")

// Options configures a Client.
type Options struct {
	BaseURL string
	// RequestsPerSecond bounds outgoing calls; zero means 5.
	RequestsPerSecond float64
	Proxy             string
	Timeout           time.Duration
}

// Client talks to the brokerage REST API. It is created once at startup and
// shared by the selector and the tracker.
type Client struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	log      *zap.SugaredLogger
	token    string
	clientID string
	now      func() time.Time
}

// NewClient creates an unauthenticated client with optional proxy support.
func NewClient(opts Options, log *zap.SugaredLogger) *Client {
	transport := &http.Transport{}
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     &http.Client{Timeout: opts.Timeout, Transport: transport},
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		log:      log,
		clientID: defaultClientID,
		now:      time.Now,
	}
}

// Login exchanges username, password and a one-time code derived from
// mfaSecret for a bearer token kept on the client.
func (c *Client) Login(ctx context.Context, username, password, mfaSecret string) error {
	code, err := totp.GenerateCode(mfaSecret, c.now())
	if err != nil {
		return fmt.Errorf("generate mfa code: %w", err)
	}

	payload := map[string]string{
		"client_id":  c.clientID,
		"expires_in": "86400",
		"grant_type": "password",
		"scope":      "internal",
		"username":   username,
		"password":   password,
		"mfa_code":   code,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal login: %w", err)
	}

	var tok tokenResponse
	if err := c.do(ctx, http.MethodPost, "/oauth2/token/", nil, bytes.NewReader(body), &tok); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("login: empty access token")
	}
	c.token = tok.AccessToken
	c.log.Infow("broker login succeeded", "user", username)
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if c.token == "" {
		return ErrNotAuthenticated
	}
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d, body: %s", method, path, resp.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// parsePrice converts a broker price string such as "1,040.25" to a float.
// An empty string reports ok=false.
func parsePrice(s string) (float64, bool, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse price %q: %w", s, err)
	}
	return v, true, nil
}
