package inference

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.BaseURL = baseURL }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.HTTPClient = client }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.HTTPClient.Timeout = timeout
		}
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithCache memoises /api/show lookups. ttlSeconds <= 0 keeps entries until evicted.
func WithCache(cache Cache, ttlSeconds int) ClientOption {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttlSeconds
	}
}

// WithDefaults overrides the sampling defaults applied by NormalizeOptions.
func WithDefaults(defaults Defaults) ClientOption {
	return func(c *Client) { c.defaults = defaults }
}
