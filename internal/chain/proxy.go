package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// ProxyReader reads contract values through per-source HTTP read proxies
// instead of a chain RPC. A proxy exposes GET /v1/read?address=..&selector=..
// and returns the raw word as a decimal or 0x-prefixed string.
type ProxyReader struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewProxyReader creates a reader shared by all API-backed sources.
func NewProxyReader(timeout time.Duration) *ProxyReader {
	return &ProxyReader{
		httpClient: newRetryClient(),
		timeout:    timeout,
	}
}

// CallEndpoint fetches a single raw value from the read proxy at baseURL.
func (r *ProxyReader) CallEndpoint(ctx context.Context, baseURL, address, selector string) (*big.Int, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("no read proxy endpoint configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("address", address)
	q.Set("selector", selector)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/read?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logrus.WithFields(logrus.Fields{
		"endpoint": baseURL,
		"address":  address,
		"selector": selector,
	}).Debug("Reading value via proxy")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read proxy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("read proxy error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	value, ok := parseWord(response.Value)
	if !ok {
		return nil, fmt.Errorf("read proxy returned unparseable value %q", response.Value)
	}
	return value, nil
}

// parseWord accepts decimal or 0x-prefixed hex encodings of a raw value.
func parseWord(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

// newRetryClient creates an HTTP client with retry logic.
func newRetryClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 3 * time.Second
	retryClient.Logger = nil
	return retryClient.StandardClient()
}
