package eutils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/medline-ingest-service/internal/domain"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRequestInterval is the spacing NCBI asks bulk jobs to keep
	// between requests.
	DefaultRequestInterval = 3 * time.Second

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 60 * time.Second

	// FetchSize is the maximum number of PMIDs per efetch request.
	FetchSize = 100

	// sourceName is the human-readable name for this source.
	sourceName = "eUtils"
)

// Config holds the configuration for the eUtils client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	// Optional but recommended for production use.
	APIKey string

	// Tool identifies the calling application to NCBI.
	Tool string

	// Timeout is the request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RequestInterval is the minimum spacing between requests.
	// Defaults to DefaultRequestInterval if zero.
	RequestInterval time.Duration

	// FetchSize caps the number of PMIDs per request.
	// Defaults to FetchSize if zero; values above FetchSize are clamped.
	FetchSize int

	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration
}

// applyDefaults applies default values to the config.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Tool == "" {
		c.Tool = "medline-ingest"
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestInterval == 0 {
		c.RequestInterval = DefaultRequestInterval
	}
	if c.FetchSize <= 0 || c.FetchSize > FetchSize {
		c.FetchSize = FetchSize
	}
}

// Client fetches MEDLINE citation XML from the E-utilities efetch endpoint.
// The returned streams are consumable by the medline record reader.
type Client struct {
	config     Config
	httpClient *HTTPClient
}

// New creates a new eUtils client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpCfg := HTTPClientConfig{
		Timeout:         cfg.Timeout,
		RequestInterval: cfg.RequestInterval,
		MaxRetries:      cfg.MaxRetries,
		RetryDelay:      cfg.RetryDelay,
	}

	return &Client{
		config:     cfg,
		httpClient: NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new eUtils client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// FetchSize returns the effective batch cap for this client.
func (c *Client) FetchSize() int {
	return c.config.FetchSize
}

// Fetch retrieves the MEDLINE XML for up to FetchSize PMIDs and returns the
// response body as a stream. The caller owns the stream and must close it;
// closing early is safe and releases the connection.
func (c *Client) Fetch(ctx context.Context, pmids []string) (io.ReadCloser, error) {
	if len(pmids) == 0 {
		return nil, fmt.Errorf("%w: no PMIDs given", domain.ErrInvalidInput)
	}
	if len(pmids) > c.config.FetchSize {
		return nil, fmt.Errorf("%w: %d PMIDs exceeds batch cap %d", domain.ErrInvalidInput, len(pmids), c.config.FetchSize)
	}

	u, err := url.Parse(c.config.BaseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("tool", c.config.Tool)
	q.Set("db", "pubmed")
	q.Set("retmode", "xml")
	q.Set("rettype", "medline")
	q.Set("id", strings.Join(pmids, ","))
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	return resp.Body, nil
}

// Batches splits a PMID list into efetch-sized chunks, preserving order.
func (c *Client) Batches(pmids []string) [][]string {
	if len(pmids) == 0 {
		return nil
	}
	size := c.config.FetchSize
	batches := make([][]string, 0, (len(pmids)+size-1)/size)
	for start := 0; start < len(pmids); start += size {
		end := start + size
		if end > len(pmids) {
			end = len(pmids)
		}
		batches = append(batches, pmids[start:end])
	}
	return batches
}
