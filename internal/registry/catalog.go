package registry

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ajitpratap0/groupmapper/internal/config"
	"github.com/ajitpratap0/groupmapper/internal/ratelimit"
)

// Catalog is the set of queryable sources, in preference order.
type Catalog struct {
	order   []string
	sources map[string]Source
}

// NewCatalog creates a catalog. The first source is the default.
func NewCatalog(sources ...Source) *Catalog {
	c := &Catalog{sources: make(map[string]Source)}
	for _, s := range sources {
		if s == nil {
			continue
		}
		if _, dup := c.sources[s.Name()]; dup {
			continue
		}
		c.order = append(c.order, s.Name())
		c.sources[s.Name()] = s
	}
	return c
}

// FromConfig builds the catalog of sources whose API key is configured.
// Limiters come from pool so every caller sharing a credential shares its pace.
func FromConfig(cfg *config.Config, pool *ratelimit.Pool, client *http.Client, logger *slog.Logger) *Catalog {
	retry := RetryPolicy{
		TransientRetries: cfg.Retry.TransientRetries,
		TransientDelay:   cfg.Retry.TransientDelay,
		RateLimitWindow:  cfg.Retry.RateLimitWindow,
		MaxRateLimitWait: cfg.Retry.MaxRateLimitWait,
	}
	var sources []Source
	if sc := cfg.CompaniesHouse; sc.Enabled() {
		sources = append(sources, NewCompaniesHouse(sc.APIKey, Options{
			BaseURL:    sc.BaseURL,
			Limiter:    pool.For(CompaniesHouseName, sc.APIKey, sc.RateInterval),
			Retry:      retry,
			HTTPClient: client,
			Logger:     logger,
		}))
	}
	if sc := cfg.OpenCorporates; sc.Enabled() {
		sources = append(sources, NewOpenCorporates(sc.APIKey, Options{
			BaseURL:    sc.BaseURL,
			Limiter:    pool.For(OpenCorporatesName, sc.APIKey, sc.RateInterval),
			Retry:      retry,
			HTTPClient: client,
			Logger:     logger,
		}))
	}
	return NewCatalog(sources...)
}

// Get returns the named source, or the default when name is empty.
func (c *Catalog) Get(name string) (Source, error) {
	if name == "" {
		return c.Default()
	}
	s, ok := c.sources[name]
	if !ok {
		return nil, fmt.Errorf("source %q: %w", name, ErrNoSource)
	}
	return s, nil
}

// Default returns the preferred source.
func (c *Catalog) Default() (Source, error) {
	if len(c.order) == 0 {
		return nil, ErrNoSource
	}
	return c.sources[c.order[0]], nil
}

// Names lists configured sources in preference order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of configured sources.
func (c *Catalog) Len() int {
	return len(c.order)
}
