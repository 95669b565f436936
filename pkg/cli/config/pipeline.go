package config

import (
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/newsweave-lab/clotho/pkg/service/cluster"
	"github.com/newsweave-lab/clotho/pkg/service/matcher"
	"github.com/newsweave-lab/clotho/pkg/usecase"
)

// Pipeline holds CLI flags for detection pipeline tuning. Defaults
// match the service-level defaults; the flags exist for threshold
// experiments without a rebuild.
type Pipeline struct {
	linkThreshold  float64
	minClusterSize int

	matchLookback        time.Duration
	matchRecentThreshold float64
	matchStaleThreshold  float64

	mergeThreshold float64

	batchSize      int
	batchDelay     time.Duration
	maxConsecutive int

	detectInterval     time.Duration
	dedupInterval      time.Duration
	signalInterval     time.Duration
	ingestInterval     time.Duration
	cachePruneInterval time.Duration
}

// Flags returns CLI flags for pipeline tuning
func (p *Pipeline) Flags() []cli.Flag {
	clusterDef := cluster.DefaultConfig()
	matcherDef := matcher.DefaultConfig()
	dedupDef := usecase.DefaultDedupConfig()
	detectDef := usecase.DefaultDetectConfig()

	return []cli.Flag{
		&cli.FloatFlag{
			Name:        "cluster-link-threshold",
			Usage:       "Minimum link strength for a document to join a cluster",
			Value:       clusterDef.LinkThreshold,
			Sources:     cli.EnvVars("CLOTHO_CLUSTER_LINK_THRESHOLD"),
			Destination: &p.linkThreshold,
		},
		&cli.IntFlag{
			Name:        "cluster-min-size",
			Usage:       "Minimum documents per output cluster",
			Value:       clusterDef.MinClusterSize,
			Sources:     cli.EnvVars("CLOTHO_CLUSTER_MIN_SIZE"),
			Destination: &p.minClusterSize,
		},
		&cli.DurationFlag{
			Name:        "match-lookback",
			Usage:       "How far back to search candidate narratives",
			Value:       matcherDef.Lookback,
			Sources:     cli.EnvVars("CLOTHO_MATCH_LOOKBACK"),
			Destination: &p.matchLookback,
		},
		&cli.FloatFlag{
			Name:        "match-recent-threshold",
			Usage:       "Similarity threshold for recently updated narratives",
			Value:       matcherDef.RecentThreshold,
			Sources:     cli.EnvVars("CLOTHO_MATCH_RECENT_THRESHOLD"),
			Destination: &p.matchRecentThreshold,
		},
		&cli.FloatFlag{
			Name:        "match-stale-threshold",
			Usage:       "Similarity threshold for stale narratives",
			Value:       matcherDef.StaleThreshold,
			Sources:     cli.EnvVars("CLOTHO_MATCH_STALE_THRESHOLD"),
			Destination: &p.matchStaleThreshold,
		},
		&cli.FloatFlag{
			Name:        "dedup-merge-threshold",
			Usage:       "Entity-set Jaccard similarity above which narratives merge",
			Value:       dedupDef.MergeThreshold,
			Sources:     cli.EnvVars("CLOTHO_DEDUP_MERGE_THRESHOLD"),
			Destination: &p.mergeThreshold,
		},
		&cli.IntFlag{
			Name:        "extract-batch-size",
			Usage:       "Documents per extraction batch",
			Value:       detectDef.BatchSize,
			Sources:     cli.EnvVars("CLOTHO_EXTRACT_BATCH_SIZE"),
			Destination: &p.batchSize,
		},
		&cli.DurationFlag{
			Name:        "extract-batch-delay",
			Usage:       "Pause between extraction batches",
			Value:       detectDef.BatchDelay,
			Sources:     cli.EnvVars("CLOTHO_EXTRACT_BATCH_DELAY"),
			Destination: &p.batchDelay,
		},
		&cli.IntFlag{
			Name:        "extract-max-consecutive-failures",
			Usage:       "Consecutive extraction failures before aborting a cycle",
			Value:       detectDef.MaxConsecutiveFailures,
			Sources:     cli.EnvVars("CLOTHO_EXTRACT_MAX_CONSECUTIVE_FAILURES"),
			Destination: &p.maxConsecutive,
		},
		&cli.DurationFlag{
			Name:        "detect-interval",
			Usage:       "Cadence of the detection worker",
			Value:       15 * time.Minute,
			Sources:     cli.EnvVars("CLOTHO_DETECT_INTERVAL"),
			Destination: &p.detectInterval,
		},
		&cli.DurationFlag{
			Name:        "dedup-interval",
			Usage:       "Cadence of the dedup worker",
			Value:       6 * time.Hour,
			Sources:     cli.EnvVars("CLOTHO_DEDUP_INTERVAL"),
			Destination: &p.dedupInterval,
		},
		&cli.DurationFlag{
			Name:        "signal-interval",
			Usage:       "Cadence of the signal scoring worker",
			Value:       time.Hour,
			Sources:     cli.EnvVars("CLOTHO_SIGNAL_INTERVAL"),
			Destination: &p.signalInterval,
		},
		&cli.DurationFlag{
			Name:        "ingest-interval",
			Usage:       "Cadence of the feed ingestion worker",
			Value:       30 * time.Minute,
			Sources:     cli.EnvVars("CLOTHO_INGEST_INTERVAL"),
			Destination: &p.ingestInterval,
		},
		&cli.DurationFlag{
			Name:        "cache-prune-interval",
			Usage:       "Cadence of the expired cache entry pruning worker",
			Value:       24 * time.Hour,
			Sources:     cli.EnvVars("CLOTHO_CACHE_PRUNE_INTERVAL"),
			Destination: &p.cachePruneInterval,
		},
	}
}

// LogValue returns the pipeline configuration as a structured log value
func (p Pipeline) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("cluster_link_threshold", p.linkThreshold),
		slog.Int("cluster_min_size", p.minClusterSize),
		slog.Duration("match_lookback", p.matchLookback),
		slog.Float64("match_recent_threshold", p.matchRecentThreshold),
		slog.Float64("match_stale_threshold", p.matchStaleThreshold),
		slog.Float64("dedup_merge_threshold", p.mergeThreshold),
		slog.Int("extract_batch_size", p.batchSize),
		slog.Duration("detect_interval", p.detectInterval),
	)
}

// UseCaseOptions converts the flags into use case options.
func (p *Pipeline) UseCaseOptions() []usecase.Option {
	clusterCfg := cluster.DefaultConfig()
	clusterCfg.LinkThreshold = p.linkThreshold
	clusterCfg.MinClusterSize = p.minClusterSize

	matcherCfg := matcher.DefaultConfig()
	matcherCfg.Lookback = p.matchLookback
	matcherCfg.RecentThreshold = p.matchRecentThreshold
	matcherCfg.StaleThreshold = p.matchStaleThreshold

	dedupCfg := usecase.DefaultDedupConfig()
	dedupCfg.MergeThreshold = p.mergeThreshold

	detectCfg := usecase.DefaultDetectConfig()
	detectCfg.BatchSize = p.batchSize
	detectCfg.BatchDelay = p.batchDelay
	detectCfg.MaxConsecutiveFailures = p.maxConsecutive

	return []usecase.Option{
		usecase.WithClusterConfig(clusterCfg),
		usecase.WithMatcherConfig(matcherCfg),
		usecase.WithDedupConfig(dedupCfg),
		usecase.WithDetectConfig(detectCfg),
	}
}

// DetectInterval returns the detection worker cadence
func (p *Pipeline) DetectInterval() time.Duration { return p.detectInterval }

// DedupInterval returns the dedup worker cadence
func (p *Pipeline) DedupInterval() time.Duration { return p.dedupInterval }

// SignalInterval returns the signal scoring worker cadence
func (p *Pipeline) SignalInterval() time.Duration { return p.signalInterval }

// IngestInterval returns the feed ingestion worker cadence
func (p *Pipeline) IngestInterval() time.Duration { return p.ingestInterval }

// CachePruneInterval returns the cache pruning worker cadence
func (p *Pipeline) CachePruneInterval() time.Duration { return p.cachePruneInterval }
