package extract

import (
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
)

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want failureKind
	}{
		{"nil error", nil, failureNone},
		{"http 429", errors.New("googleapi: Error 429: too many requests"), failureRateLimited},
		{"rate limit text", errors.New("rate limit exceeded for model"), failureRateLimited},
		{"grpc resource exhausted", errors.New("rpc error: code = RESOURCE_EXHAUSTED desc = quota"), failureRateLimited},
		{"http 529", errors.New("API returned 529"), failureOverloaded},
		{"http 503", errors.New("503 service unavailable"), failureOverloaded},
		{"overloaded text", errors.New("model is overloaded, try again"), failureOverloaded},
		{"anything else", errors.New("invalid argument: bad request"), failureUnexpected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, classifyFailure(tc.err)).Equal(tc.want)
		})
	}
}

func TestRetryStateExponential(t *testing.T) {
	s := newRetryState(failureRateLimited, 4, 2*time.Second, 5*time.Second)

	d, ok := s.Next()
	gt.Bool(t, ok).True()
	gt.Value(t, d).Equal(2 * time.Second)

	d, ok = s.Next()
	gt.Bool(t, ok).True()
	gt.Value(t, d).Equal(4 * time.Second)

	d, ok = s.Next()
	gt.Bool(t, ok).True()
	gt.Value(t, d).Equal(8 * time.Second)

	_, ok = s.Next()
	gt.Bool(t, ok).False()
}

func TestRetryStateLinear(t *testing.T) {
	s := newRetryState(failureOverloaded, 4, 2*time.Second, 5*time.Second)

	d, ok := s.Next()
	gt.Bool(t, ok).True()
	gt.Value(t, d).Equal(5 * time.Second)

	d, ok = s.Next()
	gt.Bool(t, ok).True()
	gt.Value(t, d).Equal(10 * time.Second)

	d, ok = s.Next()
	gt.Bool(t, ok).True()
	gt.Value(t, d).Equal(15 * time.Second)

	_, ok = s.Next()
	gt.Bool(t, ok).False()
}

func TestRetryStateUnexpectedNeverRetries(t *testing.T) {
	s := newRetryState(failureUnexpected, 4, time.Second, time.Second)
	_, ok := s.Next()
	gt.Bool(t, ok).False()
}
