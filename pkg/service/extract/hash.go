package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/newsweave-lab/clotho/pkg/domain/model"
)

// ContentHash computes the extraction hash of a document over its
// normalized text. Extraction is idempotent on this hash: a document
// whose hash matches its stored ExtractionHash is never re-extracted.
func ContentHash(doc *model.Document) string {
	normalized := normalizeText(doc.Title) + "\n" + normalizeText(doc.Body)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// CacheKey computes the content-addressed response cache key from the
// operation, model and input text.
func CacheKey(operation, modelName, input string) string {
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write([]byte(modelName))
	h.Write([]byte{0})
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeText collapses whitespace so formatting-only changes do not
// change the hash.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
