package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/domain/model"
	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/utils/errutil"
)

const defaultNarrativeLimit = 50

type narrativeResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Summary          string    `json:"summary,omitempty"`
	NucleusEntity    string    `json:"nucleus_entity,omitempty"`
	Entities         []string  `json:"entities"`
	DocumentCount    int       `json:"document_count"`
	FirstSeen        time.Time `json:"first_seen"`
	LastUpdated      time.Time `json:"last_updated"`
	Velocity         float64   `json:"velocity"`
	Momentum         string    `json:"momentum"`
	RecencyScore     float64   `json:"recency_score"`
	LifecycleStage   string    `json:"lifecycle_stage"`
	ReawakeningCount int       `json:"reawakening_count,omitempty"`
	MergedInto       string    `json:"merged_into,omitempty"`
}

func toNarrativeResponse(n *model.Narrative) narrativeResponse {
	return narrativeResponse{
		ID:               n.ID,
		Title:            n.Title,
		Summary:          n.Summary,
		NucleusEntity:    n.NucleusEntity,
		Entities:         n.Entities,
		DocumentCount:    n.DocumentCount,
		FirstSeen:        n.FirstSeen,
		LastUpdated:      n.LastUpdated,
		Velocity:         n.Velocity,
		Momentum:         n.Momentum.String(),
		RecencyScore:     n.RecencyScore,
		LifecycleStage:   n.LifecycleStage.String(),
		ReawakeningCount: n.ReawakeningCount,
		MergedInto:       n.MergedInto,
	}
}

// narrativesHandler serves the narrative list, optionally filtered by
// lifecycle stage (?stage=hot) and capped (?limit=20).
func narrativesHandler(repo interfaces.Repository) http.HandlerFunc {
	type response struct {
		Narratives []narrativeResponse `json:"narratives"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var opts []interfaces.ListNarrativeOption

		if raw := r.URL.Query().Get("stage"); raw != "" {
			stage, err := types.ParseLifecycleStage(raw)
			if err != nil {
				errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
				return
			}
			opts = append(opts, interfaces.WithStage(stage))
		}

		limit := defaultNarrativeLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				errutil.HandleHTTP(r.Context(), w, goerr.New("limit must be a positive integer", goerr.V("value", raw)), http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		opts = append(opts, interfaces.WithLimit(limit))

		narratives, err := repo.Narrative().List(r.Context(), opts...)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		resp := response{Narratives: make([]narrativeResponse, len(narratives))}
		for i, n := range narratives {
			resp.Narratives[i] = toNarrativeResponse(n)
		}
		writeJSON(w, r, resp)
	}
}

// narrativeHandler serves a single narrative by ID.
func narrativeHandler(repo interfaces.Repository) http.HandlerFunc {
	type response struct {
		Narrative   narrativeResponse `json:"narrative"`
		DocumentIDs []string          `json:"document_ids"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		narrative, err := repo.Narrative().Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				errutil.HandleHTTP(r.Context(), w, err, http.StatusNotFound)
				return
			}
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		writeJSON(w, r, response{
			Narrative:   toNarrativeResponse(narrative),
			DocumentIDs: narrative.DocumentIDs,
		})
	}
}
