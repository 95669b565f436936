package feed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mmcdole/gofeed"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"golang.org/x/time/rate"
)

// Source is one configured RSS/Atom feed.
type Source struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// Fetcher retrieves documents from RSS/Atom feeds. Fetches are
// rate-limited across sources to stay polite to upstream servers.
type Fetcher struct {
	parser  *gofeed.Parser
	limiter *rate.Limiter
	clock   func() time.Time
}

// Option is a functional option for Fetcher configuration
type Option func(*Fetcher)

// WithRateLimit overrides the default of one fetch per 2 seconds.
func WithRateLimit(limiter *rate.Limiter) Option {
	return func(f *Fetcher) {
		f.limiter = limiter
	}
}

// WithClock injects the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(f *Fetcher) {
		f.clock = clock
	}
}

// NewFetcher creates a feed fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		parser:  gofeed.NewParser(),
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		clock:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves one feed and converts its entries to documents.
// Document IDs are stable hashes of the entry link so re-ingestion is
// an idempotent upsert.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]*model.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, goerr.Wrap(err, "feed rate limit wait interrupted")
	}

	parsed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch feed",
			goerr.V("name", src.Name),
			goerr.V("url", src.URL),
		)
	}

	now := f.clock()
	docs := make([]*model.Document, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry.Link == "" && entry.Title == "" {
			continue
		}

		published := now
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		body := strings.TrimSpace(entry.Description)
		if body == "" {
			body = strings.TrimSpace(entry.Content)
		}

		docs = append(docs, &model.Document{
			ID:          documentID(entry.Link, entry.Title),
			Title:       strings.TrimSpace(entry.Title),
			Body:        body,
			Source:      src.Name,
			URL:         entry.Link,
			PublishedAt: published,
		})
	}
	return docs, nil
}

func documentID(link, title string) string {
	seed := link
	if seed == "" {
		seed = title
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(seed)))[:16]
}
