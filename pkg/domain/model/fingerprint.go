package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Fingerprint weights and limits for structural narrative matching.
const (
	FingerprintMaxActors  = 5
	FingerprintMaxActions = 3

	similarityActorWeight   = 0.5
	similarityNucleusWeight = 0.3
	similarityActionWeight  = 0.2
)

// Fingerprint is the compact structural signature of a narrative:
// the nucleus entity, the top actors by salience, and the key actions.
// It is pure derived data, recomputed on every narrative update.
type Fingerprint struct {
	NucleusEntity string
	TopActors     []string
	KeyActions    []string
	Timestamp     time.Time
}

// IsZero reports whether the fingerprint has never been computed.
// Legacy narratives stored before fingerprinting have zero fingerprints
// and are reconstructed on the fly during matching.
func (f Fingerprint) IsZero() bool {
	return f.NucleusEntity == "" && len(f.TopActors) == 0 && len(f.KeyActions) == 0
}

// NewFingerprint computes a fingerprint from extracted narrative
// elements. Actors are ranked by descending salience (ties broken by
// name for determinism) and capped at FingerprintMaxActors; actions are
// taken in order and capped at FingerprintMaxActions.
func NewFingerprint(nucleus string, salience map[string]int, actions []string, now time.Time) Fingerprint {
	actors := make([]string, 0, len(salience))
	for actor := range salience {
		actors = append(actors, actor)
	}
	sort.Slice(actors, func(i, j int) bool {
		if salience[actors[i]] != salience[actors[j]] {
			return salience[actors[i]] > salience[actors[j]]
		}
		return actors[i] < actors[j]
	})
	if len(actors) > FingerprintMaxActors {
		actors = actors[:FingerprintMaxActors]
	}

	keyActions := actions
	if len(keyActions) > FingerprintMaxActions {
		keyActions = keyActions[:FingerprintMaxActions]
	}

	return Fingerprint{
		NucleusEntity: nucleus,
		TopActors:     actors,
		KeyActions:    append([]string(nil), keyActions...),
		Timestamp:     now,
	}
}

// Similarity computes the weighted structural similarity between two
// fingerprints: actor-set Jaccard x0.5 + exact nucleus match x0.3 +
// action-set Jaccard x0.2. Symmetric and bounded in [0,1].
func (f Fingerprint) Similarity(other Fingerprint) float64 {
	score := Jaccard(f.TopActors, other.TopActors) * similarityActorWeight

	if f.NucleusEntity != "" && strings.EqualFold(f.NucleusEntity, other.NucleusEntity) {
		score += similarityNucleusWeight
	}

	score += Jaccard(f.KeyActions, other.KeyActions) * similarityActionWeight

	return score
}

// ClaimKey derives a stable hash of the fingerprint's identifying
// structure (nucleus + sorted actors). Used as the atomic claim key
// when committing a new narrative so two concurrent cycles cannot both
// create a narrative for the same emerging story.
func (f Fingerprint) ClaimKey() string {
	actors := make([]string, len(f.TopActors))
	for i, a := range f.TopActors {
		actors[i] = strings.ToLower(a)
	}
	sort.Strings(actors)

	h := sha256.New()
	h.Write([]byte(strings.ToLower(f.NucleusEntity)))
	for _, a := range actors {
		h.Write([]byte{0})
		h.Write([]byte(a))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Jaccard computes case-insensitive Jaccard similarity of two string
// sets. Two empty sets yield 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[strings.ToLower(s)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[strings.ToLower(s)] = struct{}{}
	}

	intersection := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
