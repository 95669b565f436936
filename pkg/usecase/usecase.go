package usecase

import (
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/service/canonical"
	"github.com/newsweave-lab/clotho/pkg/service/cluster"
	"github.com/newsweave-lab/clotho/pkg/service/extract"
	"github.com/newsweave-lab/clotho/pkg/service/feed"
	"github.com/newsweave-lab/clotho/pkg/service/matcher"
	"github.com/newsweave-lab/clotho/pkg/service/signal"
)

// UseCases bundles the periodic pipeline operations over one
// repository.
type UseCases struct {
	Detect      *DetectUseCase
	Dedup       *DedupUseCase
	Signal      *SignalUseCase
	Ingest      *IngestUseCase
	Backfill    *BackfillUseCase
	Maintenance *MaintenanceUseCase
}

type options struct {
	clusterCfg    cluster.Config
	matcherCfg    matcher.Config
	signalCfg     signal.Config
	dedupCfg      DedupConfig
	detectCfg     DetectConfig
	canonicalizer *canonical.Canonicalizer
	fetcher       *feed.Fetcher
	sources       []feed.Source
}

type Option func(*options)

// WithClusterConfig overrides clustering thresholds
func WithClusterConfig(cfg cluster.Config) Option {
	return func(o *options) {
		o.clusterCfg = cfg
	}
}

// WithMatcherConfig overrides narrative matching thresholds
func WithMatcherConfig(cfg matcher.Config) Option {
	return func(o *options) {
		o.matcherCfg = cfg
	}
}

// WithSignalConfig overrides signal scoring parameters
func WithSignalConfig(cfg signal.Config) Option {
	return func(o *options) {
		o.signalCfg = cfg
	}
}

// WithDedupConfig overrides deduplication thresholds
func WithDedupConfig(cfg DedupConfig) Option {
	return func(o *options) {
		o.dedupCfg = cfg
	}
}

// WithDetectConfig overrides detection batch pacing
func WithDetectConfig(cfg DetectConfig) Option {
	return func(o *options) {
		o.detectCfg = cfg
	}
}

// WithCanonicalizer sets the entity canonicalizer used by backfill and
// signal scoring
func WithCanonicalizer(canon *canonical.Canonicalizer) Option {
	return func(o *options) {
		o.canonicalizer = canon
	}
}

// WithFeeds enables feed ingestion from the given sources
func WithFeeds(fetcher *feed.Fetcher, sources []feed.Source) Option {
	return func(o *options) {
		o.fetcher = fetcher
		o.sources = sources
	}
}

// New creates the use case bundle. The extractor may be nil when no
// LLM is configured; detection then fails fast with a clear error.
func New(repo interfaces.Repository, extractor *extract.Client, opts ...Option) *UseCases {
	o := &options{
		clusterCfg:    cluster.DefaultConfig(),
		matcherCfg:    matcher.DefaultConfig(),
		signalCfg:     signal.DefaultConfig(),
		dedupCfg:      DefaultDedupConfig(),
		detectCfg:     DefaultDetectConfig(),
		canonicalizer: canonical.New(nil),
	}
	for _, opt := range opts {
		opt(o)
	}

	return &UseCases{
		Detect:      NewDetectUseCase(repo, extractor, o.clusterCfg, o.matcherCfg, o.detectCfg),
		Dedup:       NewDedupUseCase(repo, o.dedupCfg),
		Signal:      NewSignalUseCase(repo, o.canonicalizer, o.signalCfg),
		Ingest:      NewIngestUseCase(repo, o.fetcher, o.sources),
		Backfill:    NewBackfillUseCase(repo, o.canonicalizer),
		Maintenance: NewMaintenanceUseCase(repo),
	}
}
