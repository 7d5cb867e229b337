// Package feed is the C1fApp API client used by the relay.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"c1fapp/internal/mapping"
	"c1fapp/internal/metrics"
)

const (
	DefaultAPIURL    = "https://www.c1fapp.com/cifapp/api/"
	DefaultUserAgent = "Cisco Threat Response Integrations <tr-integrations-support@cisco.com>"
)

// DefaultNoDataSentinels are bodies C1fApp returns when it simply has no matches.
var DefaultNoDataSentinels = []string{"No results found", "No records found"}

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 16 << 20

// Config holds client configuration.
type Config struct {
	APIURL          string
	UserAgent       string
	Timeout         time.Duration
	MaxRetries      uint64
	NoDataSentinels []string
}

// Client queries the C1fApp lookup API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	// newBackOff is swapped in tests to avoid sleeping.
	newBackOff func() backoff.BackOff
}

// NewClient creates a client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.NoDataSentinels == nil {
		cfg.NoDataSentinels = DefaultNoDataSentinels
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = cfg.Timeout
			return b
		},
	}
}

// Name identifies the feed in logs and metrics.
func (c *Client) Name() string { return "c1fapp" }

type lookupRequest struct {
	Format  string `json:"format"`
	Backend string `json:"backend"`
	Key     string `json:"key"`
	Request string `json:"request"`
}

// Lookup returns the raw records C1fApp holds for value. A recognized
// "no data" answer yields an empty slice and no error.
func (c *Client) Lookup(ctx context.Context, apiKey, value string) ([]mapping.Record, error) {
	body, err := json.Marshal(lookupRequest{Format: "json", Backend: "es", Key: apiKey, Request: value})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var records []mapping.Record
	op := func() error {
		recs, err := c.do(ctx, body)
		if err != nil {
			return err
		}
		records = recs
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("c1fapp lookup retry", "value", value, "wait", wait, "err", err)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.cfg.MaxRetries), ctx)
	err = backoff.RetryNotify(op, b, notify)
	metrics.FeedLatency.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FeedLookups.WithLabelValues(c.Name(), outcome(err)).Inc()
		return nil, err
	}
	metrics.FeedLookups.WithLabelValues(c.Name(), "ok").Inc()
	return records, nil
}

func outcome(err error) string {
	switch {
	case IsTransportSecurity(err):
		return "tls_error"
	case IsUnexpected(err):
		return "unexpected"
	default:
		return "error"
	}
}

// do performs one attempt. Errors that retrying cannot fix are wrapped as permanent.
func (c *Client) do(ctx context.Context, body []byte) ([]mapping.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if tse, ok := asTransportSecurity(err); ok {
			return nil, backoff.Permanent(tse)
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("c1fapp request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("c1fapp read body: %w", err)
	}
	text := strings.TrimSpace(string(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if c.isNoData(text) {
			return []mapping.Record{}, nil
		}
		uerr := &UnexpectedError{StatusCode: resp.StatusCode, Body: text}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, uerr
		}
		return nil, backoff.Permanent(uerr)
	}

	if text == "" {
		return []mapping.Record{}, nil
	}
	var records []mapping.Record
	if err := json.Unmarshal([]byte(text), &records); err != nil {
		if c.isNoData(text) {
			return []mapping.Record{}, nil
		}
		var dse *mapping.DataShapeError
		if errors.As(err, &dse) {
			return nil, backoff.Permanent(dse)
		}
		return nil, backoff.Permanent(&UnexpectedError{StatusCode: resp.StatusCode, Body: text})
	}
	if records == nil {
		records = []mapping.Record{}
	}
	return records, nil
}

func (c *Client) isNoData(body string) bool {
	lower := strings.ToLower(body)
	for _, s := range c.cfg.NoDataSentinels {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
