package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"golang.org/x/time/rate"

	"github.com/newsweave-lab/clotho/pkg/service/feed"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Crypto News</title>
    <item>
      <title>SEC sues Binance</title>
      <link>https://example.com/sec-binance</link>
      <description>The SEC filed a lawsuit against Binance.</description>
      <pubDate>Mon, 09 Mar 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Bitcoin ETF inflows surge</title>
      <link>https://example.com/btc-etf</link>
      <description>Spot ETF inflows hit a record.</description>
    </item>
  </channel>
</rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	srv := newFeedServer(t)

	fetcher := feed.NewFetcher(
		feed.WithRateLimit(rate.NewLimiter(rate.Inf, 1)),
		feed.WithClock(func() time.Time { return now }),
	)

	docs, err := fetcher.Fetch(context.Background(), feed.Source{Name: "example", URL: srv.URL})
	gt.NoError(t, err).Required()
	gt.Array(t, docs).Length(2).Required()

	gt.Value(t, docs[0].Title).Equal("SEC sues Binance")
	gt.Value(t, docs[0].Source).Equal("example")
	gt.Value(t, docs[0].URL).Equal("https://example.com/sec-binance")
	gt.Value(t, docs[0].Body).Equal("The SEC filed a lawsuit against Binance.")
	gt.Value(t, docs[0].PublishedAt).Equal(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC))

	// Entries without a publication date fall back to fetch time.
	gt.Value(t, docs[1].PublishedAt).Equal(now)

	// IDs are stable across fetches.
	again, err := fetcher.Fetch(context.Background(), feed.Source{Name: "example", URL: srv.URL})
	gt.NoError(t, err).Required()
	gt.Value(t, again[0].ID).Equal(docs[0].ID)
	gt.Value(t, again[1].ID).Equal(docs[1].ID)
	gt.Value(t, docs[0].ID).NotEqual(docs[1].ID)
}

func TestFetchBadFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	fetcher := feed.NewFetcher(feed.WithRateLimit(rate.NewLimiter(rate.Inf, 1)))
	_, err := fetcher.Fetch(context.Background(), feed.Source{Name: "broken", URL: srv.URL})
	gt.Error(t, err)
}
