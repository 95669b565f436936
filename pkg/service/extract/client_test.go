package extract_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/repository/memory"
	"github.com/newsweave-lab/clotho/pkg/service/extract"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const validResponse = `{
	"nucleus_entity": "SEC",
	"actors": [
		{"name": "SEC", "salience": 5},
		{"name": "Binance", "salience": 4},
		{"name": "btc", "salience": 2}
	],
	"actions": ["files lawsuit"],
	"tensions": ["regulation vs innovation"],
	"narrative_summary": "The SEC sues Binance over unregistered securities."
}`

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	if s.generateContentFn != nil {
		return s.generateContentFn(ctx, input...)
	}
	return &gollem.Response{Texts: []string{validResponse}}, nil
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.GenerateContent(ctx, input...)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	calls             atomic.Int64
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return &mockLLMSession{
		generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
			c.calls.Add(1)
			if c.generateContentFn != nil {
				return c.generateContentFn(ctx, input...)
			}
			return &gollem.Response{Texts: []string{validResponse}}, nil
		},
	}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func newClient(t *testing.T, llm *mockLLMClient, repo *memory.Memory) *extract.Client {
	t.Helper()
	client, err := extract.New(llm, repo,
		extract.WithClock(func() time.Time { return now }),
		extract.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
	)
	gt.NoError(t, err).Required()
	return client
}

func testDocument() *model.Document {
	return &model.Document{
		ID:          "d1",
		Title:       "SEC sues Binance",
		Body:        "The SEC filed a lawsuit against Binance on Monday.",
		Source:      "reuters",
		PublishedAt: now.Add(-time.Hour),
	}
}

func TestExtract(t *testing.T) {
	t.Run("populates document and records cache and cost", func(t *testing.T) {
		repo := memory.New()
		llm := &mockLLMClient{}
		client := newClient(t, llm, repo)
		doc := testDocument()

		gt.NoError(t, client.Extract(context.Background(), doc)).Required()

		gt.Value(t, doc.NucleusEntity).Equal("SEC")
		gt.Array(t, doc.Actors).Equal([]string{"SEC", "Binance", "Bitcoin"}) // btc canonicalized
		gt.Value(t, doc.ActorSalience["SEC"]).Equal(5)
		gt.Array(t, doc.Actions).Equal([]string{"files lawsuit"})
		gt.Value(t, doc.NarrativeSummary).NotEqual("")
		gt.Value(t, doc.ExtractionHash).Equal(extract.ContentHash(doc))
		gt.Value(t, doc.ExtractedAt).Equal(now)
		gt.Value(t, llm.calls.Load()).Equal(int64(1))

		costs, err := repo.Cost().ListSince(context.Background(), now.Add(-time.Minute))
		gt.NoError(t, err).Required()
		gt.Array(t, costs).Length(1)
		gt.Value(t, costs[0].Operation).Equal(extract.OperationExtract)
	})

	t.Run("unchanged document skips the service entirely", func(t *testing.T) {
		repo := memory.New()
		llm := &mockLLMClient{}
		client := newClient(t, llm, repo)
		doc := testDocument()

		gt.NoError(t, client.Extract(context.Background(), doc)).Required()
		before := *doc

		gt.NoError(t, client.Extract(context.Background(), doc)).Required()
		gt.Value(t, llm.calls.Load()).Equal(int64(1))
		gt.Value(t, doc.ExtractionHash).Equal(before.ExtractionHash)
		gt.Value(t, doc.NucleusEntity).Equal(before.NucleusEntity)
	})

	t.Run("cached response avoids a second service call", func(t *testing.T) {
		repo := memory.New()
		llm := &mockLLMClient{}
		client := newClient(t, llm, repo)

		first := testDocument()
		gt.NoError(t, client.Extract(context.Background(), first)).Required()

		// Same content under a different document ID hits the cache.
		second := testDocument()
		second.ID = "d2"
		gt.NoError(t, client.Extract(context.Background(), second)).Required()

		gt.Value(t, llm.calls.Load()).Equal(int64(1))
		gt.Value(t, second.NucleusEntity).Equal("SEC")
	})

	t.Run("salvages JSON wrapped in prose", func(t *testing.T) {
		repo := memory.New()
		llm := &mockLLMClient{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				return &gollem.Response{Texts: []string{"Here is the analysis:\n" + validResponse + "\nHope this helps!"}}, nil
			},
		}
		client := newClient(t, llm, repo)
		doc := testDocument()

		gt.NoError(t, client.Extract(context.Background(), doc)).Required()
		gt.Value(t, doc.NucleusEntity).Equal("SEC")
	})

	t.Run("empty document is a typed missing-data failure", func(t *testing.T) {
		repo := memory.New()
		llm := &mockLLMClient{}
		client := newClient(t, llm, repo)

		err := client.Extract(context.Background(), &model.Document{ID: "empty"})
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, extract.ErrMissingData)).True()
		gt.Value(t, llm.calls.Load()).Equal(int64(0))
	})

	t.Run("malformed response is a typed failure", func(t *testing.T) {
		repo := memory.New()
		llm := &mockLLMClient{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				return &gollem.Response{Texts: []string{"I cannot analyze this document."}}, nil
			},
		}
		client := newClient(t, llm, repo)

		err := client.Extract(context.Background(), testDocument())
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, extract.ErrMalformedResponse)).True()
	})

	t.Run("rate limit retries then succeeds", func(t *testing.T) {
		repo := memory.New()
		var delays []time.Duration
		failures := 2
		llm := &mockLLMClient{}
		llm.generateContentFn = func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
			if int(llm.calls.Load()) <= failures {
				return nil, errors.New("googleapi: Error 429: rate limit exceeded")
			}
			return &gollem.Response{Texts: []string{validResponse}}, nil
		}

		client, err := extract.New(llm, repo,
			extract.WithClock(func() time.Time { return now }),
			extract.WithSleep(func(ctx context.Context, d time.Duration) error {
				delays = append(delays, d)
				return nil
			}),
			extract.WithBackoff(4, 2*time.Second, 5*time.Second),
		)
		gt.NoError(t, err).Required()

		doc := testDocument()
		gt.NoError(t, client.Extract(context.Background(), doc)).Required()
		gt.Value(t, doc.NucleusEntity).Equal("SEC")
		gt.Array(t, delays).Equal([]time.Duration{2 * time.Second, 4 * time.Second})
	})

	t.Run("rate limit retries exhausted", func(t *testing.T) {
		repo := memory.New()
		llm := &mockLLMClient{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				return nil, errors.New("googleapi: Error 429: rate limit exceeded")
			},
		}
		client := newClient(t, llm, repo)

		err := client.Extract(context.Background(), testDocument())
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, extract.ErrRateLimited)).True()
	})

	t.Run("unexpected errors are not retried", func(t *testing.T) {
		repo := memory.New()
		llm := &mockLLMClient{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				return nil, errors.New("invalid argument")
			},
		}
		client := newClient(t, llm, repo)

		err := client.Extract(context.Background(), testDocument())
		gt.Error(t, err)
		gt.Value(t, llm.calls.Load()).Equal(int64(1))
	})
}
