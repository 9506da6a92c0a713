package sources

import (
	"sort"
	"strings"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/config"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
)

// Registry resolves which fetcher serves a configured Source
type Registry struct {
	platforms map[string]Source
	fallbacks []Source
}

// NewRegistry wires the platform scrapers, the search provider and the
// synthetic generator from configuration. SCRAPE_API_KEY only gates the
// search provider; the Hacker News and Stack Overflow scrapers use public
// APIs and stay enabled without it.
func NewRegistry(cfg *config.Config) *Registry {
	return NewRegistryFromSources(
		[]Source{
			NewHackerNewsSource(cfg.HTTPTimeout),
			NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, cfg.HTTPTimeout),
			NewStackOverflowSource(cfg.HTTPTimeout),
		},
		NewSearchSource(cfg.ScrapeAPIKey, cfg.ScrapeBaseURL, cfg.HTTPTimeout),
		NewSyntheticSource(cfg.EnableSyntheticSources),
	)
}

// NewRegistryFromSources builds a registry from explicit fetchers. Platform
// scrapers are keyed by GetName; fallbacks are tried in order.
func NewRegistryFromSources(platformScrapers []Source, fallbacks ...Source) *Registry {
	r := &Registry{platforms: make(map[string]Source)}
	for _, s := range platformScrapers {
		r.platforms[s.GetName()] = s
	}
	r.fallbacks = fallbacks
	return r
}

// For returns the fetcher for target, or nil when no enabled fetcher can serve it
func (r *Registry) For(target models.Source) Source {
	if s, ok := r.platforms[strings.ToLower(target.Platform)]; ok && s.IsEnabled() {
		return s
	}

	for _, s := range r.fallbacks {
		if s != nil && s.IsEnabled() {
			return s
		}
	}

	return nil
}

// Enabled lists the names of fetchers that are currently usable
func (r *Registry) Enabled() []string {
	var names []string
	for _, s := range r.platforms {
		if s.IsEnabled() {
			names = append(names, s.GetName())
		}
	}
	sort.Strings(names)
	for _, s := range r.fallbacks {
		if s != nil && s.IsEnabled() {
			names = append(names, s.GetName())
		}
	}
	return names
}
