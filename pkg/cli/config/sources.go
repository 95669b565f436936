package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/newsweave-lab/clotho/pkg/service/feed"
)

// Sources holds the path to the TOML source configuration, which lists
// the feeds to ingest and extra canonical entity mappings. Example:
//
//	[[feed]]
//	name = "coindesk"
//	url = "https://www.coindesk.com/arc/outboundfeeds/rss/"
//
//	[entities]
//	"gbtc" = "Grayscale Bitcoin Trust"
type Sources struct {
	path string
}

type sourcesFile struct {
	Feeds    []feed.Source     `toml:"feed"`
	Entities map[string]string `toml:"entities"`
}

// Flags returns CLI flags for source configuration
func (s *Sources) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sources",
			Usage:       "Path to TOML file listing feeds and entity mappings",
			Sources:     cli.EnvVars("CLOTHO_SOURCES"),
			Destination: &s.path,
		},
	}
}

// Path returns the configured file path
func (s *Sources) Path() string {
	return s.path
}

// Load parses the source configuration. Returns empty values when no
// path is configured.
func (s *Sources) Load() ([]feed.Source, map[string]string, error) {
	if s.path == "" {
		return nil, nil, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to read source config", goerr.V("path", s.path))
	}

	var parsed sourcesFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to parse source config", goerr.V("path", s.path))
	}

	for _, src := range parsed.Feeds {
		if src.Name == "" || src.URL == "" {
			return nil, nil, goerr.New("feed entries require both name and url",
				goerr.V("name", src.Name),
				goerr.V("url", src.URL),
			)
		}
	}

	return parsed.Feeds, parsed.Entities, nil
}
