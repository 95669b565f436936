package canonical

import (
	"strings"
)

// Canonicalizer maps surface-form entity mentions (ticker symbols,
// casing variants, symbol-prefixed forms) to a single canonical name.
// It is deterministic and side-effect-free so it can run both at
// ingestion time and as a backfill over historical records.
type Canonicalizer struct {
	byKey map[string]string
}

// defaultMappings covers common financial-news surface forms. Loaded
// mappings from configuration are layered on top.
var defaultMappings = map[string]string{
	"btc":      "Bitcoin",
	"xbt":      "Bitcoin",
	"eth":      "Ethereum",
	"ether":    "Ethereum",
	"sol":      "Solana",
	"xrp":      "XRP",
	"ripple":   "XRP",
	"doge":     "Dogecoin",
	"ada":      "Cardano",
	"usdt":     "Tether",
	"usdc":     "USD Coin",
	"bnb":      "BNB",
	"the sec":  "SEC",
	"u.s. sec": "SEC",
	"the fed":  "Federal Reserve",
	"fed":      "Federal Reserve",
	"cftc":     "CFTC",
	"doj":      "Department of Justice",
}

// New builds a canonicalizer from the default mappings plus the given
// overrides (surface form -> canonical name). Every canonical name is
// also registered as a key to itself, which makes canonicalization
// idempotent.
func New(mappings map[string]string) *Canonicalizer {
	byKey := make(map[string]string, 2*(len(defaultMappings)+len(mappings)))

	register := func(surface, name string) {
		key := normalize(surface)
		if key == "" {
			return
		}
		byKey[key] = name
		byKey[normalize(name)] = name
	}

	for surface, name := range defaultMappings {
		register(surface, name)
	}
	for surface, name := range mappings {
		register(surface, name)
	}

	return &Canonicalizer{byKey: byKey}
}

// Entity type labels returned by TypeOf.
const (
	TypeAsset        = "asset"
	TypeOrganization = "organization"
)

// defaultTypes classifies the canonical names of defaultMappings.
// Entities outside this set get an empty type, meaning unclassified.
var defaultTypes = map[string]string{
	"Bitcoin":               TypeAsset,
	"Ethereum":              TypeAsset,
	"Solana":                TypeAsset,
	"XRP":                   TypeAsset,
	"Dogecoin":              TypeAsset,
	"Cardano":               TypeAsset,
	"Tether":                TypeAsset,
	"USD Coin":              TypeAsset,
	"BNB":                   TypeAsset,
	"SEC":                   TypeOrganization,
	"Federal Reserve":       TypeOrganization,
	"CFTC":                  TypeOrganization,
	"Department of Justice": TypeOrganization,
}

// TypeOf returns the entity type for a mention, resolving it to its
// canonical name first. Unknown entities return an empty string.
func (c *Canonicalizer) TypeOf(entity string) string {
	return defaultTypes[c.Canonical(entity)]
}

// Canonical returns the canonical name for an entity mention, or the
// input unchanged if no mapping exists. Empty input returns the input
// unchanged; this never fails.
func (c *Canonicalizer) Canonical(entity string) string {
	key := normalize(entity)
	if key == "" {
		return entity
	}
	if name, ok := c.byKey[key]; ok {
		return name
	}
	return entity
}

// CanonicalAll maps a slice of entity mentions, dropping duplicates
// that collapse to the same canonical name (case-insensitive) while
// preserving order of first appearance.
func (c *Canonicalizer) CanonicalAll(entities []string) []string {
	seen := make(map[string]struct{}, len(entities))
	result := make([]string, 0, len(entities))
	for _, e := range entities {
		name := c.Canonical(e)
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, name)
	}
	return result
}

// normalize reduces a surface form to its lookup key: trimmed,
// leading currency/ticker marker stripped, internal whitespace
// collapsed, lowercased.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}
