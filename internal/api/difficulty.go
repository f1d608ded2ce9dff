package api

import (
	"log/slog"
	"net/http"

	"github.com/readmaster/read-master/internal/difficulty"
)

// AssessDifficulty rates a text sample. When the AI service cannot answer
// the local readability estimate is returned instead.
func (h *Handler) AssessDifficulty(w http.ResponseWriter, r *http.Request) error {
	var in difficulty.Input
	if !decode(w, r, &in) {
		return nil
	}
	if res := difficulty.ValidateInput(in); !res.Valid {
		return invalid(w, res)
	}

	req := difficulty.BuildRequest(in)
	local := difficulty.Analyze(req.Text)
	out := difficulty.Assessment{Estimate: local}

	var ai difficulty.AIResult
	if err := h.call(r, "/api/ai/difficulty", req, nil, &ai); err != nil {
		if !difficulty.ShouldFallBack(err) {
			return fail(w, err)
		}
		slog.Info("Difficulty falling back to local estimate", "user_id", userIDFrom(r), "error", err)
	} else {
		out.Estimate = difficulty.FromAI(local, ai)
		out.Factors = ai.Factors
	}

	if in.ReaderLevel != "" {
		out.Fit = difficulty.Match(out.Level, in.ReaderLevel)
	}
	JSON(w, http.StatusOK, out)
	return nil
}
