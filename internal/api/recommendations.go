package api

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/readmaster/read-master/internal/recommendations"
)

// Recommend asks for recommendations once per genre in parallel and merges
// the results. Genres that fail are skipped unless all of them fail.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) error {
	var in recommendations.Input
	if !decode(w, r, &in) {
		return nil
	}
	if res := recommendations.ValidateInput(in); !res.Valid {
		return invalid(w, res)
	}

	reqs := recommendations.BuildRequests(in)
	responses := make([]recommendations.Response, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(recommendations.MaxGenres)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			errs[i] = h.call(r, "/api/ai/recommendations", req, nil, &responses[i])
			return nil
		})
	}
	_ = g.Wait()

	var merged []recommendations.Recommendation
	failed := 0
	for i, resp := range responses {
		if errs[i] != nil {
			failed++
			slog.Warn("Recommendation request failed", "user_id", userIDFrom(r), "genre", reqs[i].Genre, "error", errs[i])
			continue
		}
		merged = append(merged, resp.Recommendations...)
	}
	if failed == len(reqs) {
		return fail(w, errs[0])
	}

	JSON(w, http.StatusOK, recommendations.Response{
		Recommendations: recommendations.Filter(merged, in.ReadBookIDs, in.Limit),
	})
	return nil
}
