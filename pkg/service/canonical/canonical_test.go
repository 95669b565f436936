package canonical_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/newsweave-lab/clotho/pkg/service/canonical"
)

func TestCanonical(t *testing.T) {
	c := canonical.New(nil)

	t.Run("ticker symbols map to canonical names", func(t *testing.T) {
		gt.Value(t, c.Canonical("BTC")).Equal("Bitcoin")
		gt.Value(t, c.Canonical("$BTC")).Equal("Bitcoin")
		gt.Value(t, c.Canonical("eth")).Equal("Ethereum")
		gt.Value(t, c.Canonical("the Fed")).Equal("Federal Reserve")
	})

	t.Run("unknown entities pass through unchanged", func(t *testing.T) {
		gt.Value(t, c.Canonical("MicroStrategy")).Equal("MicroStrategy")
		gt.Value(t, c.Canonical("")).Equal("")
	})

	t.Run("idempotent", func(t *testing.T) {
		for _, in := range []string{"BTC", "Bitcoin", "$eth", "the SEC", "Unknown Corp"} {
			once := c.Canonical(in)
			gt.Value(t, c.Canonical(once)).Equal(once)
		}
	})

	t.Run("whitespace is collapsed before lookup", func(t *testing.T) {
		gt.Value(t, c.Canonical("  the   fed ")).Equal("Federal Reserve")
	})
}

func TestCanonicalWithOverrides(t *testing.T) {
	c := canonical.New(map[string]string{
		"gbtc": "Grayscale Bitcoin Trust",
		"btc":  "BTC Coin", // overrides the default
	})

	gt.Value(t, c.Canonical("GBTC")).Equal("Grayscale Bitcoin Trust")
	gt.Value(t, c.Canonical("btc")).Equal("BTC Coin")
	gt.Value(t, c.Canonical("Grayscale Bitcoin Trust")).Equal("Grayscale Bitcoin Trust")
}

func TestTypeOf(t *testing.T) {
	c := canonical.New(nil)

	t.Run("classifies through the canonical name", func(t *testing.T) {
		gt.Value(t, c.TypeOf("BTC")).Equal(canonical.TypeAsset)
		gt.Value(t, c.TypeOf("$sol")).Equal(canonical.TypeAsset)
		gt.Value(t, c.TypeOf("the Fed")).Equal(canonical.TypeOrganization)
		gt.Value(t, c.TypeOf("SEC")).Equal(canonical.TypeOrganization)
	})

	t.Run("unknown entities are unclassified", func(t *testing.T) {
		gt.Value(t, c.TypeOf("MicroStrategy")).Equal("")
		gt.Value(t, c.TypeOf("")).Equal("")
	})
}

func TestCanonicalAll(t *testing.T) {
	c := canonical.New(nil)

	t.Run("collapses duplicates preserving first appearance", func(t *testing.T) {
		got := c.CanonicalAll([]string{"BTC", "SEC", "Bitcoin", "$btc", "Coinbase"})
		gt.Array(t, got).Equal([]string{"Bitcoin", "SEC", "Coinbase"})
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		gt.Array(t, c.CanonicalAll(nil)).Length(0)
	})
}
