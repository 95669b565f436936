package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/utils/errutil"
)

const defaultSignalLimit = 50

type signalResponse struct {
	Entity        string    `json:"entity"`
	EntityType    string    `json:"entity_type,omitempty"`
	Timeframe     string    `json:"timeframe"`
	MentionCount  int       `json:"mention_count"`
	Velocity      float64   `json:"velocity"`
	RecencyFactor float64   `json:"recency_factor"`
	Score         float64   `json:"score"`
	NarrativeIDs  []string  `json:"narrative_ids,omitempty"`
	IsEmerging    bool      `json:"is_emerging"`
	ComputedAt    time.Time `json:"computed_at"`
}

// signalsHandler serves ranked entity signals for one timeframe
// (?timeframe=7d, default 24h), capped (?limit=20).
func signalsHandler(repo interfaces.Repository) http.HandlerFunc {
	type response struct {
		Signals []signalResponse `json:"signals"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		timeframe := types.Timeframe24h
		if raw := r.URL.Query().Get("timeframe"); raw != "" {
			parsed, err := types.ParseTimeframe(raw)
			if err != nil {
				errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
				return
			}
			timeframe = parsed
		}

		limit := defaultSignalLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				errutil.HandleHTTP(r.Context(), w, goerr.New("limit must be a positive integer", goerr.V("value", raw)), http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		signals, err := repo.Signal().List(r.Context(), timeframe, limit)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		resp := response{Signals: make([]signalResponse, len(signals))}
		for i, s := range signals {
			resp.Signals[i] = signalResponse{
				Entity:        s.Entity,
				EntityType:    s.EntityType,
				Timeframe:     s.Timeframe.String(),
				MentionCount:  s.MentionCount,
				Velocity:      s.Velocity,
				RecencyFactor: s.RecencyFactor,
				Score:         s.Score,
				NarrativeIDs:  s.NarrativeIDs,
				IsEmerging:    s.IsEmerging,
				ComputedAt:    s.ComputedAt,
			}
		}
		writeJSON(w, r, resp)
	}
}
