package main

import (
	"context"

	"github.com/FocuswithJustin/versefinder/internal/config"
	"github.com/FocuswithJustin/versefinder/internal/content"
)

// newResolver builds the configured provider, wrapped in the lookup cache
// when one is enabled. It returns a nil resolver for provider kind "none".
// The returned close function is never nil.
func newResolver(ctx context.Context, cfg *config.Config) (*content.Resolver, func() error, error) {
	noop := func() error { return nil }

	var (
		p       content.Provider
		closeFn = noop
	)
	switch cfg.Provider.Kind {
	case config.ProviderSQLite:
		store, err := content.OpenStoreReadOnly(ctx, cfg.Provider.Database)
		if err != nil {
			return nil, noop, err
		}
		p, closeFn = store, store.Close
	case config.ProviderHTTP:
		hp, err := content.NewHTTPProvider(content.HTTPConfig{
			URLTemplate: cfg.Provider.URL,
			XPath:       cfg.Provider.XPath,
			Timeout:     cfg.Provider.Timeout,
			Attempts:    cfg.Provider.Attempts,
		})
		if err != nil {
			return nil, noop, err
		}
		p = hp
	default:
		return nil, noop, nil
	}

	if cfg.Cache.TTL > 0 {
		p = content.NewCached(p, cfg.Cache.TTL, cfg.Cache.MaxEntries)
	}
	return content.NewResolver(p, cfg.Provider.Concurrency), closeFn, nil
}
