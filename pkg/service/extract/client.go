package extract

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/service/canonical"
	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

//go:embed prompt/extract_system.md
var extractSystemPrompt string

// OperationExtract is the cache/ledger operation name for narrative
// element extraction.
const OperationExtract = "extract_narrative_elements"

const (
	// Extraction responses are long-lived: published text does not
	// change, so entries stay valid for a week.
	extractCacheTTL = 7 * 24 * time.Hour

	defaultMaxAttempts = 4
	defaultBaseDelay   = 2 * time.Second
	defaultLinearStep  = 5 * time.Second

	// Costs are derived from byte sizes; precise token accounting is
	// the billing system's job, the ledger only needs relative scale.
	costPerInputKB  = 0.0003
	costPerOutputKB = 0.0015
)

// Failure sentinels, tagged with the pipeline failure taxonomy.
var (
	ErrMalformedResponse = goerr.New("malformed extraction response", goerr.T(types.TagMalformedResponse))
	ErrRateLimited       = goerr.New("completion service rate limited", goerr.T(types.TagRateLimited))
	ErrOverloaded        = goerr.New("completion service overloaded", goerr.T(types.TagOverloaded))
	ErrMissingData       = goerr.New("document missing required content", goerr.T(types.TagMissingData))
)

// Client extracts narrative elements from documents via the external
// completion service, with a content-addressed response cache, a cost
// ledger, and class-specific retry policies.
type Client struct {
	llm       gollem.LLMClient
	repo      interfaces.Repository
	canon     *canonical.Canonicalizer
	modelName string

	maxAttempts int
	baseDelay   time.Duration
	linearStep  time.Duration

	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithModelName sets the model identifier recorded in cache keys and
// the cost ledger.
func WithModelName(name string) Option {
	return func(c *Client) {
		c.modelName = name
	}
}

// WithCanonicalizer sets the entity canonicalizer applied to extracted
// entities.
func WithCanonicalizer(canon *canonical.Canonicalizer) Option {
	return func(c *Client) {
		c.canon = canon
	}
}

// WithBackoff overrides retry pacing.
func WithBackoff(maxAttempts int, baseDelay, linearStep time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
		c.linearStep = linearStep
	}
}

// WithClock injects the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithSleep injects the sleep function, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// New creates an extraction client.
func New(llm gollem.LLMClient, repo interfaces.Repository, opts ...Option) (*Client, error) {
	if llm == nil {
		return nil, goerr.New("LLM client is required")
	}
	if repo == nil {
		return nil, goerr.New("repository is required")
	}

	c := &Client{
		llm:         llm,
		repo:        repo,
		canon:       canonical.New(nil),
		modelName:   "gemini-2.0-flash",
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		linearStep:  defaultLinearStep,
		clock:       func() time.Time { return time.Now().UTC() },
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

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// elementsPayload is the JSON structure returned by the completion
// service.
type elementsPayload struct {
	NucleusEntity    string         `json:"nucleus_entity"`
	Actors           []actorPayload `json:"actors"`
	Actions          []string       `json:"actions"`
	Tensions         []string       `json:"tensions"`
	NarrativeSummary string         `json:"narrative_summary"`
}

type actorPayload struct {
	Name     string `json:"name"`
	Salience int    `json:"salience"`
}

// Extract populates the document's narrative elements. A document
// whose ExtractionHash already matches its content (with non-empty
// results) is skipped without touching the cache or the service. The
// response cache is consulted next; only then is the service called.
func (c *Client) Extract(ctx context.Context, doc *model.Document) error {
	logger := logging.From(ctx)

	if doc.Title == "" && doc.Body == "" {
		return goerr.Wrap(ErrMissingData, "document has no content", goerr.V("id", doc.ID))
	}

	hash := ContentHash(doc)
	if doc.Extracted(hash) {
		logger.Debug("document already extracted, skipping", "document_id", doc.ID)
		return nil
	}

	input := c.buildPrompt(doc)
	cacheKey := CacheKey(OperationExtract, c.modelName, input)

	if raw, ok := c.lookupCache(ctx, cacheKey); ok {
		if err := c.apply(doc, raw, hash); err != nil {
			return err
		}
		logger.Debug("extraction cache hit", "document_id", doc.ID, "key", cacheKey)
		return nil
	}

	raw, err := c.generate(ctx, input)
	if err != nil {
		return err
	}

	if err := c.apply(doc, raw, hash); err != nil {
		return err
	}

	now := c.clock()
	if err := c.repo.Cache().Put(ctx, &model.CacheEntry{
		Key:       cacheKey,
		Operation: OperationExtract,
		Model:     c.modelName,
		Response:  raw,
		CreatedAt: now,
		ExpiresAt: now.Add(extractCacheTTL),
	}); err != nil {
		// Cache write failure is not fatal: the same key recomputes to
		// the same value next time.
		logger.Warn("failed to store extraction cache entry", "error", err.Error())
	}

	if err := c.repo.Cost().Append(ctx, &model.CostRecord{
		Operation:  OperationExtract,
		Model:      c.modelName,
		InputSize:  len(input),
		OutputSize: len(raw),
		Cost:       deriveCost(len(input), len(raw)),
		CreatedAt:  now,
	}); err != nil {
		logger.Warn("failed to append cost record", "error", err.Error())
	}

	return nil
}

func (c *Client) lookupCache(ctx context.Context, key string) (string, bool) {
	entry, err := c.repo.Cache().Get(ctx, key)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			logging.From(ctx).Warn("extraction cache lookup failed", "error", err.Error())
		}
		return "", false
	}
	if entry.Expired(c.clock()) {
		return "", false
	}

	if err := c.repo.Cache().IncrementHit(ctx, key); err != nil {
		logging.From(ctx).Warn("failed to increment cache hit count", "error", err.Error())
	}
	return entry.Response, true
}

// generate calls the completion service with class-specific retry:
// exponential backoff on rate limits, linear backoff on overload, no
// retry on anything else.
func (c *Client) generate(ctx context.Context, input string) (string, error) {
	logger := logging.From(ctx)

	var state *retryState
	for {
		raw, err := c.callOnce(ctx, input)
		if err == nil {
			return raw, nil
		}

		kind := classifyFailure(err)
		if kind == failureUnexpected {
			return "", goerr.Wrap(err, "completion service call failed")
		}

		if state == nil {
			state = newRetryState(kind, c.maxAttempts, c.baseDelay, c.linearStep)
		} else if state.kind != kind {
			// Error class changed mid-retry; restart the policy with
			// the attempt count carried over.
			state.kind = kind
		}

		delay, retry := state.Next()
		if !retry {
			switch kind {
			case failureRateLimited:
				return "", goerr.Wrap(ErrRateLimited, "retries exhausted", goerr.V("attempts", state.attempt))
			default:
				return "", goerr.Wrap(ErrOverloaded, "retries exhausted", goerr.V("attempts", state.attempt))
			}
		}

		logger.Warn("completion service backoff",
			"kind", kind.String(),
			"attempt", state.attempt,
			"delay", delay.String(),
			"error", err.Error(),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return "", goerr.Wrap(err, "backoff interrupted")
		}
	}
}

func (c *Client) callOnce(ctx context.Context, input string) (string, error) {
	session, err := c.llm.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(buildResponseSchema()),
		gollem.WithSessionSystemPrompt(extractSystemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(input))
	if err != nil {
		return "", err
	}
	if len(resp.Texts) == 0 {
		return "", goerr.Wrap(ErrMalformedResponse, "empty completion response")
	}

	return resp.Texts[0], nil
}

// apply parses a raw response and writes the elements into the
// document. Parse failures are malformed responses: skipped, never
// retried, because re-sending the same input would burn quota on the
// same answer.
func (c *Client) apply(doc *model.Document, raw, hash string) error {
	payload, err := parseElements(raw)
	if err != nil {
		return err
	}

	doc.NucleusEntity = c.canon.Canonical(strings.TrimSpace(payload.NucleusEntity))
	doc.Actors = doc.Actors[:0]
	doc.ActorSalience = make(map[string]int, len(payload.Actors))
	for _, actor := range payload.Actors {
		name := c.canon.Canonical(strings.TrimSpace(actor.Name))
		if name == "" {
			continue
		}
		if _, ok := doc.ActorSalience[name]; ok {
			continue
		}
		salience := actor.Salience
		if salience < 1 {
			salience = 1
		}
		if salience > 5 {
			salience = 5
		}
		doc.Actors = append(doc.Actors, name)
		doc.ActorSalience[name] = salience
	}
	doc.Actions = payload.Actions
	doc.Tensions = payload.Tensions
	doc.NarrativeSummary = strings.TrimSpace(payload.NarrativeSummary)
	doc.ExtractionHash = hash
	doc.ExtractedAt = c.clock()

	return nil
}

// parseElements decodes the completion response. Responses wrapped in
// leading/trailing prose are salvaged by taking the substring between
// the first '{' and the last '}'.
func parseElements(raw string) (*elementsPayload, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, goerr.Wrap(ErrMalformedResponse, "no JSON object in response",
			goerr.V("response", truncateForLog(raw)),
		)
	}

	var payload elementsPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, goerr.Wrap(ErrMalformedResponse, "failed to parse extraction JSON",
			goerr.V("response", truncateForLog(raw)),
			goerr.V("parse_error", err.Error()),
		)
	}
	return &payload, nil
}

func (c *Client) buildPrompt(doc *model.Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Document\n\n")
	fmt.Fprintf(&sb, "**Title:** %s\n\n", doc.Title)
	if !doc.PublishedAt.IsZero() {
		fmt.Fprintf(&sb, "**Published:** %s\n\n", doc.PublishedAt.Format(time.RFC3339))
	}
	sb.WriteString(doc.Body)
	sb.WriteString("\n")
	return sb.String()
}

// buildResponseSchema creates the JSON schema for structured output.
// The schema keeps the response compact; the token budget must still
// be generous, truncated JSON is indistinguishable from a malformed
// response.
func buildResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "NarrativeElements",
		Description: "Structural elements of the story told by one news document",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"nucleus_entity": {
				Type:        gollem.TypeString,
				Description: "The single entity the story is fundamentally about",
				Required:    true,
			},
			"actors": {
				Type:        gollem.TypeArray,
				Description: "Entities playing a role in the story, including the nucleus entity",
				Required:    true,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"name": {
							Type:        gollem.TypeString,
							Description: "Canonical name of the actor",
							Required:    true,
						},
						"salience": {
							Type:        gollem.TypeInteger,
							Description: "How central the actor is in this document, 1 (passing mention) to 5 (the story is about them)",
							Required:    true,
						},
					},
				},
			},
			"actions": {
				Type:        gollem.TypeArray,
				Description: "Short verb phrases describing what is happening, at most 5",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
				Required:    true,
			},
			"tensions": {
				Type:        gollem.TypeArray,
				Description: "Short phrases naming the underlying conflicts or themes, at most 3",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
				Required:    true,
			},
			"narrative_summary": {
				Type:        gollem.TypeString,
				Description: "One or two sentences describing the story in plain language",
				Required:    true,
			},
		},
	}
}

func deriveCost(inputSize, outputSize int) float64 {
	return float64(inputSize)/1024*costPerInputKB + float64(outputSize)/1024*costPerOutputKB
}

func truncateForLog(s string) string {
	const limit = 512
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
