// Package wallet implements a thin client for the Wallet by BudgetBakers REST
// API. It translates domain requests into authenticated HTTP calls and maps
// failures to typed errors; retry policy belongs to the caller.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultBaseURL   = "https://rest.budgetbakers.com/wallet"
	DefaultPageLimit = 100
	DefaultTimeout   = 30 * time.Second

	accountsEndpoint = "/v1/api/accounts"
	recordsEndpoint  = "/v1/api/records"

	// maxPages bounds any pagination loop so a misbehaving server cannot
	// drive the request count unbounded.
	maxPages = 1000
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string

	// Token is the bearer token used on every request.
	Token string

	// PageLimit is the page size requested from paged endpoints.
	PageLimit int

	// Timeout applies per request. Ignored when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client is a stateless wrapper around the Wallet REST API. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	token      string
	pageLimit  int
	httpClient *http.Client
}

// NewClient creates a Wallet API client from cfg, applying defaults for any
// zero fields except Token.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		pageLimit:  cfg.PageLimit,
		httpClient: httpClient,
	}
}

type accountsPage struct {
	Accounts   []Account `json:"accounts"`
	NextOffset *int      `json:"nextOffset"`
}

type recordsPage struct {
	Records    []Record `json:"records"`
	NextOffset *int     `json:"nextOffset"`
}

// ValidateToken probes the accounts endpoint with a minimal page to verify the
// configured token without fetching real data.
func (c *Client) ValidateToken(ctx context.Context) error {
	params := url.Values{}
	params.Set("limit", "1")
	params.Set("offset", "0")

	var page accountsPage
	return c.getJSON(ctx, accountsEndpoint, params, &page)
}

// ListAccounts fetches every account, following pagination until the server
// stops returning a next offset. The second return value is the number of
// HTTP requests made.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, int, error) {
	var (
		accounts []Account
		requests int
		offset   int
	)

	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(c.pageLimit))
		params.Set("offset", strconv.Itoa(offset))

		var body accountsPage
		if err := c.getJSON(ctx, accountsEndpoint, params, &body); err != nil {
			return nil, requests, err
		}
		requests++

		accounts = append(accounts, body.Accounts...)
		if body.NextOffset == nil {
			return accounts, requests, nil
		}
		offset = *body.NextOffset
	}

	return nil, requests, &ProtocolError{Err: fmt.Errorf("accounts pagination did not terminate within %d pages", maxPages)}
}

// ListRecords fetches every transaction record with since <= recordDate < until,
// following pagination. A failure on any page aborts the whole call; partial
// pages are never returned. The second return value is the number of HTTP
// requests made.
func (c *Client) ListRecords(ctx context.Context, since, until time.Time) ([]Record, int, error) {
	var (
		records  []Record
		requests int
		offset   int
	)

	sinceVal := since.UTC().Truncate(time.Second).Format(time.RFC3339)
	untilVal := until.UTC().Truncate(time.Second).Format(time.RFC3339)

	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Add("recordDate", "gte."+sinceVal)
		params.Add("recordDate", "lt."+untilVal)
		params.Set("limit", strconv.Itoa(c.pageLimit))
		params.Set("offset", strconv.Itoa(offset))

		var body recordsPage
		if err := c.getJSON(ctx, recordsEndpoint, params, &body); err != nil {
			return nil, requests, err
		}
		requests++

		records = append(records, body.Records...)
		if body.NextOffset == nil {
			return records, requests, nil
		}
		offset = *body.NextOffset
	}

	return nil, requests, &ProtocolError{Err: fmt.Errorf("records pagination did not terminate within %d pages", maxPages)}
}

// getJSON performs one authenticated GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	uri := c.baseURL + endpoint
	if len(params) > 0 {
		uri += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 0
		if v := resp.Header.Get("Retry-After"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				retryAfter = n
			}
		}
		return &RateLimitError{RetryAfter: retryAfter}
	case resp.StatusCode != http.StatusOK:
		return &TransportError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProtocolError{Err: fmt.Errorf("decode body: %w", err)}
	}

	return nil
}
