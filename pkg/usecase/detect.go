package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/service/cluster"
	"github.com/newsweave-lab/clotho/pkg/service/extract"
	"github.com/newsweave-lab/clotho/pkg/service/lifecycle"
	"github.com/newsweave-lab/clotho/pkg/service/matcher"
	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

// DetectConfig holds pacing for one detection cycle. Batch size and
// cadence are chosen conservatively against the completion service's
// request and token ceilings; the inter-batch delay is a hard sleep,
// not a token bucket.
type DetectConfig struct {
	PullLimit              int
	BatchSize              int
	BatchConcurrency       int
	DocumentDelay          time.Duration
	BatchDelay             time.Duration
	MaxConsecutiveFailures int
}

// DefaultDetectConfig returns the standard detection pacing.
func DefaultDetectConfig() DetectConfig {
	return DetectConfig{
		PullLimit:              100,
		BatchSize:              15,
		BatchConcurrency:       4,
		DocumentDelay:          500 * time.Millisecond,
		BatchDelay:             10 * time.Second,
		MaxConsecutiveFailures: 3,
	}
}

// DetectReport summarizes one detection cycle. The run is always
// safely resumable: extraction is idempotent on the content hash, and
// failed documents stay unprocessed for the next cycle.
type DetectReport struct {
	Attempted int
	Succeeded int
	Skipped   int
	Failed    int

	Clusters          int
	NarrativesCreated int
	NarrativesUpdated int
	Reawakened        int
}

// DetectUseCase drives one extraction, clustering, matching and
// lifecycle cycle.
type DetectUseCase struct {
	repo       interfaces.Repository
	extractor  *extract.Client
	clusterer  *cluster.Engine
	matcher    *matcher.Matcher
	matcherCfg matcher.Config
	cfg        DetectConfig

	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDetectUseCase creates a DetectUseCase.
func NewDetectUseCase(repo interfaces.Repository, extractor *extract.Client, clusterCfg cluster.Config, matcherCfg matcher.Config, cfg DetectConfig) *DetectUseCase {
	return &DetectUseCase{
		repo:       repo,
		extractor:  extractor,
		clusterer:  cluster.New(clusterCfg),
		matcher:    matcher.New(repo, matcherCfg),
		matcherCfg: matcherCfg,
		cfg:        cfg,
		clock:     func() time.Time { return time.Now().UTC() },
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
}

// SetClock injects the time source, for tests.
func (uc *DetectUseCase) SetClock(clock func() time.Time) {
	uc.clock = clock
	uc.matcher = matcher.New(uc.repo, uc.matcherCfg, matcher.WithClock(clock))
}

// SetSleep injects the sleep function, for tests.
func (uc *DetectUseCase) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	uc.sleep = sleep
}

// Configured reports whether an extraction client is available.
func (uc *DetectUseCase) Configured() bool {
	return uc.extractor != nil
}

// Run executes one full detection cycle: pull unprocessed documents,
// extract in bounded batches, cluster, match against existing
// narratives, stamp lifecycle state, and persist.
func (uc *DetectUseCase) Run(ctx context.Context) (*DetectReport, error) {
	logger := logging.From(ctx)
	report := &DetectReport{}

	if uc.extractor == nil {
		return nil, goerr.New("detection requires a configured LLM client")
	}

	docs, err := uc.repo.Document().ListUnprocessed(ctx, uc.cfg.PullLimit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list unprocessed documents")
	}
	if len(docs) == 0 {
		logger.Info("no unprocessed documents")
		return report, nil
	}

	logger.Info("detection cycle starting", "documents", len(docs))

	extracted, err := uc.extractBatches(ctx, docs, report)
	if err != nil {
		return report, err
	}

	if err := uc.recordMentions(ctx, extracted); err != nil {
		// Mentions feed signal scoring only; a partial write does not
		// invalidate the narratives themselves.
		logger.Warn("failed to record entity mentions", "error", err.Error())
	}

	clusters := uc.clusterer.Cluster(ctx, extracted)
	report.Clusters = len(clusters)
	logger.Info("clustering finished",
		"clusterable_documents", len(extracted),
		"clusters", len(clusters),
	)

	for _, c := range clusters {
		if err := uc.commitCluster(ctx, c, report); err != nil {
			logger.Error("failed to commit cluster",
				"nucleus", c.Nucleus(),
				"documents", len(c.Documents),
				"error", err.Error(),
			)
			// Remaining clusters still commit; their documents stay
			// unprocessed only if extraction failed, so this cluster's
			// documents are not retried. Accept the loss for this cycle.
		}
	}

	var processedIDs []string
	for _, doc := range extracted {
		processedIDs = append(processedIDs, doc.ID)
	}
	if err := uc.repo.Document().MarkProcessed(ctx, processedIDs); err != nil {
		return report, goerr.Wrap(err, "failed to mark documents processed")
	}

	logger.Info("detection cycle finished",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"clusters", report.Clusters,
		"created", report.NarrativesCreated,
		"updated", report.NarrativesUpdated,
	)
	return report, nil
}

// extractBatches runs extraction over bounded batches with bounded
// in-batch concurrency and a hard sleep between batches. A single
// document's failure never aborts the batch; a run of consecutive
// failures across batches aborts the whole cycle to avoid burning
// quota against a systemically broken upstream.
func (uc *DetectUseCase) extractBatches(ctx context.Context, docs []*model.Document, report *DetectReport) ([]*model.Document, error) {
	logger := logging.From(ctx)

	var extracted []*model.Document
	consecutiveFailures := 0

	for start := 0; start < len(docs); start += uc.cfg.BatchSize {
		end := min(start+uc.cfg.BatchSize, len(docs))
		batch := docs[start:end]

		if start > 0 {
			if err := uc.sleep(ctx, uc.cfg.BatchDelay); err != nil {
				return extracted, goerr.Wrap(err, "inter-batch delay interrupted")
			}
		}

		results := make([]error, len(batch))
		preExtracted := make([]bool, len(batch))
		for i, doc := range batch {
			preExtracted[i] = doc.Extracted(extract.ContentHash(doc))
		}
		limiter := rate.NewLimiter(rate.Every(uc.cfg.DocumentDelay), 1)

		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(uc.cfg.BatchConcurrency)
		for i, doc := range batch {
			eg.Go(func() error {
				if err := limiter.Wait(egCtx); err != nil {
					results[i] = err
					return nil
				}
				results[i] = uc.extractor.Extract(egCtx, doc)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return extracted, goerr.Wrap(err, "extraction batch failed")
		}

		// Tally in input order so the consecutive-failure counter is
		// deterministic regardless of goroutine scheduling.
		for i, doc := range batch {
			report.Attempted++
			err := results[i]

			switch {
			case err == nil:
				consecutiveFailures = 0
				if preExtracted[i] {
					report.Skipped++
				} else {
					report.Succeeded++
				}
				if err := uc.repo.Document().Put(ctx, doc); err != nil {
					return extracted, goerr.Wrap(err, "failed to persist extracted document", goerr.V("id", doc.ID))
				}
				if doc.Clusterable() {
					extracted = append(extracted, doc)
				}

			case errors.Is(err, extract.ErrMalformedResponse), errors.Is(err, extract.ErrMissingData):
				// Malformed responses and empty documents are skips:
				// retrying the same input reproduces the same answer.
				consecutiveFailures = 0
				report.Skipped++
				logger.Warn("malformed extraction response, skipping document",
					"document_id", doc.ID,
					"error", err.Error(),
				)
				if doc.Clusterable() {
					extracted = append(extracted, doc)
				}

			default:
				consecutiveFailures++
				report.Failed++
				logger.Error("document extraction failed",
					"document_id", doc.ID,
					"consecutive_failures", consecutiveFailures,
					"error", err.Error(),
				)
				if consecutiveFailures >= uc.cfg.MaxConsecutiveFailures {
					return extracted, goerr.New("aborting run after consecutive extraction failures",
						goerr.V("consecutive", consecutiveFailures),
						goerr.V("attempted", report.Attempted),
					)
				}
			}
		}
	}

	return extracted, nil
}

// commitCluster matches one cluster against existing narratives and
// either merges into the match or creates a new narrative. Creation
// goes through an atomic claim on the fingerprint hash so concurrent
// cycles cannot both create a narrative for the same story.
func (uc *DetectUseCase) commitCluster(ctx context.Context, c *cluster.Cluster, report *DetectReport) error {
	now := uc.clock()
	fp := model.NewFingerprint(c.Nucleus(), c.ActorSalience(), c.Actions(), now)

	matched, err := uc.matcher.Match(ctx, fp)
	if err != nil {
		return err
	}

	if matched != nil {
		return uc.mergeIntoNarrative(ctx, matched, c, report)
	}

	narrative := uc.newNarrative(c, fp, now)

	winnerID, err := uc.repo.Narrative().Claim(ctx, fp.ClaimKey(), narrative.ID)
	if err != nil {
		return err
	}
	if winnerID != narrative.ID {
		// Another cycle claimed this story between our search and
		// create. Merge into the winner instead.
		winner, err := uc.repo.Narrative().Get(ctx, winnerID)
		if err != nil {
			return goerr.Wrap(err, "failed to load claimed narrative", goerr.V("id", winnerID))
		}
		return uc.mergeIntoNarrative(ctx, winner, c, report)
	}

	uc.assessLifecycle(narrative, documentTimes(c.Documents), now)
	if _, err := uc.repo.Narrative().Create(ctx, narrative); err != nil {
		return err
	}
	report.NarrativesCreated++
	return nil
}

func (uc *DetectUseCase) newNarrative(c *cluster.Cluster, fp model.Fingerprint, now time.Time) *model.Narrative {
	n := &model.Narrative{
		ID:            uuid.NewString(),
		Title:         narrativeTitle(c),
		Summary:       narrativeSummary(c),
		NucleusEntity: c.Nucleus(),
		Fingerprint:   fp,
		FirstSeen:     now,
		LastUpdated:   now,
	}
	n.AddEntities(c.Entities())
	for _, doc := range c.Documents {
		n.AddDocument(doc.ID)
	}
	return n
}

func (uc *DetectUseCase) mergeIntoNarrative(ctx context.Context, narrative *model.Narrative, c *cluster.Cluster, report *DetectReport) error {
	now := uc.clock()

	grew := false
	for _, doc := range c.Documents {
		if !narrative.HasDocument(doc.ID) {
			narrative.AddDocument(doc.ID)
			grew = true
		}
	}
	narrative.AddEntities(c.Entities())

	if narrative.LifecycleStage == types.StageDormant && grew {
		narrative.ReawakeningCount++
		report.Reawakened++
		// FirstSeen is preserved across reawakening.
	}

	if grew {
		nucleus := narrative.NucleusEntity
		if nucleus == "" {
			nucleus = c.Nucleus()
			narrative.NucleusEntity = nucleus
		}
		narrative.Fingerprint = model.NewFingerprint(nucleus, c.ActorSalience(), c.Actions(), now)
		narrative.LastUpdated = now
	}

	members, err := uc.repo.Document().GetByIDs(ctx, narrative.DocumentIDs)
	if err != nil {
		return goerr.Wrap(err, "failed to load narrative documents", goerr.V("narrative_id", narrative.ID))
	}
	uc.assessLifecycle(narrative, documentTimes(members), now)

	if _, err := uc.repo.Narrative().Update(ctx, narrative); err != nil {
		return err
	}
	report.NarrativesUpdated++
	return nil
}

func (uc *DetectUseCase) assessLifecycle(n *model.Narrative, timestamps []time.Time, now time.Time) {
	metrics := lifecycle.Assess(timestamps, now)
	n.Velocity = metrics.Velocity
	n.Momentum = metrics.Momentum
	n.RecencyScore = metrics.RecencyScore
	n.LifecycleStage = metrics.Stage
}

// recordMentions appends one mention event per document and actor,
// with deterministic IDs so re-runs upsert instead of duplicating.
func (uc *DetectUseCase) recordMentions(ctx context.Context, docs []*model.Document) error {
	var mentions []*model.EntityMention
	for _, doc := range docs {
		for _, actor := range doc.Actors {
			mentions = append(mentions, &model.EntityMention{
				ID:          fmt.Sprintf("%s_%s", doc.ID, strings.ToLower(strings.ReplaceAll(actor, " ", "_"))),
				Entity:      actor,
				DocumentID:  doc.ID,
				Source:      doc.Source,
				MentionedAt: doc.PublishedAt,
			})
		}
	}
	if len(mentions) == 0 {
		return nil
	}
	return uc.repo.Mention().Add(ctx, mentions...)
}

func documentTimes(docs []*model.Document) []time.Time {
	times := make([]time.Time, 0, len(docs))
	for _, doc := range docs {
		times = append(times, doc.PublishedAt)
	}
	return times
}

func narrativeTitle(c *cluster.Cluster) string {
	nucleus := c.Nucleus()
	if nucleus == "" {
		entities := c.Entities()
		if len(entities) > 0 {
			nucleus = entities[0]
		}
	}
	if actions := c.Actions(); len(actions) > 0 && nucleus != "" {
		return fmt.Sprintf("%s: %s", nucleus, actions[0])
	}
	if nucleus != "" {
		return nucleus
	}
	if len(c.Documents) > 0 {
		return c.Documents[0].Title
	}
	return "Untitled narrative"
}

func narrativeSummary(c *cluster.Cluster) string {
	for _, doc := range c.Documents {
		if doc.NarrativeSummary != "" {
			return doc.NarrativeSummary
		}
	}
	return ""
}
