// Package countries reads the country dial-code directory used by the
// phone login form.
package countries

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	// DefaultURL is the public REST Countries endpoint, trimmed to the fields the form needs
	DefaultURL     = "https://restcountries.com/v3.1/all?fields=name,idd,flags,cca2"
	defaultTimeout = 10 * time.Second
	flightKey      = "countries"
)

// Country is one entry of the directory
type Country struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	IDD struct {
		Root     string   `json:"root"`
		Suffixes []string `json:"suffixes"`
	} `json:"idd"`
	Flags struct {
		SVG string `json:"svg"`
	} `json:"flags"`
	CCA2 string `json:"cca2"`
}

// DialCode returns the root plus the first suffix, e.g. "+1" + "242"
func (c Country) DialCode() string {
	code := c.IDD.Root
	if len(c.IDD.Suffixes) > 0 {
		code += c.IDD.Suffixes[0]
	}
	return code
}

// Selectable drops entries without a dial code
func Selectable(list []Country) []Country {
	out := make([]Country, 0, len(list))
	for _, c := range list {
		if c.DialCode() != "" {
			out = append(out, c)
		}
	}
	return out
}

// Client fetches the directory once and serves it from memory afterwards
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	cached []Country
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithURL sets the directory endpoint
func WithURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new directory client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		url: DefaultURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("countries")

	return c
}

// Countries returns the directory sorted by common name. Concurrent callers
// share a single fetch; a successful result is cached, a failure is not.
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	c.mu.RLock()
	cached := c.cached
	c.mu.RUnlock()
	if cached != nil {
		return slices.Clone(cached), nil
	}

	// detached so one caller going away does not fail the callers sharing the fetch
	fetchCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(flightKey, func() (any, error) {
		list, err := c.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cached = list
		c.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Countries served", zap.Bool("shared_fetch", shared))
	return slices.Clone(v.([]Country)), nil
}

func (c *Client) fetch(ctx context.Context) ([]Country, error) {
	c.logger.Info("Fetching country directory", zap.String("url", c.url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Country fetch failed", zap.Error(err))
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Country fetch failed", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("country directory returned status %d", resp.StatusCode)
	}

	var list []Country
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	sortByName(list)
	c.logger.Info("Country directory loaded", zap.Int("count", len(list)))
	return list, nil
}

// sortByName orders entries by common name using English collation
func sortByName(list []Country) {
	col := collate.New(language.English)
	slices.SortStableFunc(list, func(a, b Country) int {
		return col.CompareString(a.Name.Common, b.Name.Common)
	})
}
