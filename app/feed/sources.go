package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

var defaultSourceURLs = []string{
	"https://securityonline.info/category/news/vulnerability/feed/",
	"https://www.bleepingcomputer.com/feed/",
	"https://www.securityweek.com/feed/",
	"https://thehackernews.com/feeds/posts/default",
	"https://www.darkreading.com/rss.xml",
	"https://threatpost.com/feed/",
	"https://www.zero-day.cz/feed/",
	"https://www.zerodayinitiative.com/rss/upcoming/",
	"https://www.cisa.gov/known-exploited-vulnerabilities-catalog.xml",
}

// DefaultSources returns the built-in source list in its fixed order.
func DefaultSources() []Source {
	sources := make([]Source, 0, len(defaultSourceURLs))
	for _, u := range defaultSourceURLs {
		sources = append(sources, Source{Name: SourceFromLink(u), URL: u})
	}
	return sources
}

// LoadSources returns the built-in list when path is empty, otherwise the
// sources declared in the YAML file at path, in file order.
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		return DefaultSources(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var sourcesConfig SourcesConfig
	if err := yaml.Unmarshal(data, &sourcesConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSources(sourcesConfig.Sources); err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	for i := range sourcesConfig.Sources {
		if sourcesConfig.Sources[i].Name == "" {
			sourcesConfig.Sources[i].Name = SourceFromLink(sourcesConfig.Sources[i].URL)
		}
	}

	slog.Debug("Sources loaded", "file", path, "count", len(sourcesConfig.Sources))

	return sourcesConfig.Sources, nil
}

func validateSources(sources []Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}

	seen := make(map[string]bool, len(sources))
	for i, source := range sources {
		if source.URL == "" {
			return fmt.Errorf("source URL is required at index %d", i)
		}

		u, err := url.Parse(source.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid source URL at index %d: %s", i, source.URL)
		}

		if seen[source.URL] {
			return fmt.Errorf("duplicate source URL at index %d: %s", i, source.URL)
		}
		seen[source.URL] = true
	}

	return nil
}
