package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/explain"
)

type explainOutput struct {
	explain.Response
	FollowUps          []explain.FollowUp `json:"followUps"`
	FollowUpsRemaining int                `json:"followUpsRemaining"`
}

// Explain explains a selection or answers a follow-up about it.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) error {
	var in explain.Input
	if !decode(w, r, &in) {
		return nil
	}
	maxFollowUps := h.cfg.Policy.MaxFollowUps
	if res := explain.ValidateInput(in, maxFollowUps); !res.Valid {
		return invalid(w, res)
	}

	req := explain.BuildRequest(in, h.resolveModel(r.Context(), userIDFrom(r)))
	var resp explain.Response
	if err := h.call(r, "/api/ai/explain", req, explain.ErrorMessages, &resp); err != nil {
		return fail(w, err)
	}

	state := explain.NewState(resp.Explanation, maxFollowUps)
	var err error
	for _, f := range in.FollowUps {
		if state, err = state.AddFollowUp(f); err != nil {
			break
		}
	}
	if err == nil && strings.TrimSpace(in.Question) != "" {
		state, err = state.AddFollowUp(explain.FollowUp{Question: strings.TrimSpace(in.Question), Answer: resp.Explanation})
	}
	if err != nil && !errors.Is(err, explain.ErrFollowUpLimit) {
		return fail(w, aierr.Newf(aierr.KindUnknown, "%v", err))
	}

	JSON(w, http.StatusOK, explainOutput{
		Response:           resp,
		FollowUps:          state.FollowUps,
		FollowUpsRemaining: state.Remaining(),
	})
	return nil
}
