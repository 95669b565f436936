package types

import "github.com/m-mizutani/goerr/v2"

// Failure taxonomy for the extraction pipeline. Tags are attached to
// goerr errors so callers can classify failures without string matching.
var (
	// TagMalformedResponse marks a non-JSON or truncated completion
	// response. Skipped, never retried.
	TagMalformedResponse = goerr.NewTag("malformed_response")

	// TagRateLimited marks a rate-limit signal from the completion
	// service. Retried with exponential backoff.
	TagRateLimited = goerr.NewTag("rate_limited")

	// TagOverloaded marks an overload signal from the completion
	// service. Retried with linear backoff.
	TagOverloaded = goerr.NewTag("overloaded")

	// TagMissingData marks a document or narrative lacking required
	// fields. Skipped with a warning.
	TagMissingData = goerr.NewTag("missing_data")
)
