// Package prowl sends notifications through the Prowl public API.
package prowl

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/eqpush/eqpush-go/pkg/eqpush"
)

// DefaultEndpoint is the Prowl "add" call.
const DefaultEndpoint = "https://api.prowlapp.com/publicapi/add"

// Field limits documented by the Prowl API.
const (
	maxApplication = 256
	maxEvent       = 1024
	maxDescription = 10000
)

// Prowl allows 1000 calls per hour per key.
var defaultRate = rate.Every(time.Hour / 1000)

const defaultBurst = 10

// APIError is an error response from Prowl.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("prowl: http %d", e.Code)
	}
	return fmt.Sprintf("prowl: %s (code %d)", e.Message, e.Code)
}

// Client is a Prowl API client. It implements eqpush.Notifier.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API URL.
func WithEndpoint(u string) Option {
	return func(c *Client) { c.endpoint = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit overrides the outbound rate limit.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// New returns a Client with Prowl's default endpoint and rate limit.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(defaultRate, defaultBurst),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var _ eqpush.Notifier = (*Client)(nil)

// Notify posts n. It waits for the rate limiter within ctx.
func (c *Client) Notify(ctx context.Context, n eqpush.Notification) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("prowl rate limit: %w", err)
	}

	form := url.Values{
		"apikey":      {n.APIKey},
		"application": {truncate(n.AppName, maxApplication)},
		"event":       {truncate(n.Event, maxEvent)},
		"description": {truncate(n.Description, maxDescription)},
		"priority":    {strconv.Itoa(clampPriority(n.Priority))},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode/100 == 2 {
		return nil
	}
	return parseError(resp.StatusCode, body)
}

// response is the XML body Prowl returns.
type response struct {
	XMLName xml.Name `xml:"prowl"`
	Error   *struct {
		Code    int    `xml:"code,attr"`
		Message string `xml:",chardata"`
	} `xml:"error"`
}

func parseError(status int, body []byte) error {
	var r response
	if err := xml.Unmarshal(body, &r); err == nil && r.Error != nil {
		code := r.Error.Code
		if code == 0 {
			code = status
		}
		return &APIError{Code: code, Message: strings.TrimSpace(r.Error.Message)}
	}
	return &APIError{Code: status}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary.
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}

func clampPriority(p int) int {
	return max(-2, min(2, p))
}
