package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/readmaster/read-master/internal/checkin"
	"github.com/readmaster/read-master/internal/clientstate"
	"github.com/readmaster/read-master/internal/validate"
)

type frequencyBody struct {
	Frequency  checkin.Frequency `json:"frequency"`
	Milestones []int             `json:"milestones"`
}

type checkinStatus struct {
	Progress      checkin.Progress  `json:"progress"`
	Frequency     checkin.Frequency `json:"frequency"`
	Milestone     int               `json:"milestone,omitempty"`
	ShouldTrigger bool              `json:"shouldTrigger"`
}

func (h *Handler) checkinFrequency(ctx context.Context, userID string) checkin.Frequency {
	return clientstate.Load(ctx, h.state, userID, clientstate.KeyCheckinFrequency, checkin.DefaultFrequency, func(f *checkin.Frequency) bool {
		parsed, ok := checkin.ParseFrequency(string(*f))
		*f = parsed
		return ok
	})
}

func (h *Handler) checkinProgress(ctx context.Context, userID string) checkin.ProgressMap {
	return clientstate.Load(ctx, h.state, userID, clientstate.KeyCheckins, checkin.ProgressMap{}, (*checkin.ProgressMap).Normalize)
}

// GetCheckinFrequency returns the reader's check-in frequency.
func (h *Handler) GetCheckinFrequency(w http.ResponseWriter, r *http.Request) error {
	f := h.checkinFrequency(r.Context(), userIDFrom(r))
	JSON(w, http.StatusOK, frequencyBody{Frequency: f, Milestones: checkin.Milestones(f)})
	return nil
}

// PutCheckinFrequency stores a new check-in frequency.
func (h *Handler) PutCheckinFrequency(w http.ResponseWriter, r *http.Request) error {
	var in frequencyBody
	if !decode(w, r, &in) {
		return nil
	}
	f, ok := checkin.ParseFrequency(string(in.Frequency))
	if !ok {
		return invalid(w, validate.Failf("Unknown check-in frequency %q", in.Frequency))
	}
	if err := h.state.Save(r.Context(), userIDFrom(r), clientstate.KeyCheckinFrequency, f, 0); err != nil {
		return internal(w, "save checkin frequency", err)
	}
	JSON(w, http.StatusOK, frequencyBody{Frequency: f, Milestones: checkin.Milestones(f)})
	return nil
}

// GetCheckins reports a book's completed milestones and, given
// ?progress=<percent>, whether a check-in is due.
func (h *Handler) GetCheckins(w http.ResponseWriter, r *http.Request) error {
	userID := userIDFrom(r)
	bookID := chi.URLParam(r, "bookID")
	f := h.checkinFrequency(r.Context(), userID)
	status := checkinStatus{
		Progress:  h.checkinProgress(r.Context(), userID).For(bookID),
		Frequency: f,
	}

	if raw := r.URL.Query().Get("progress"); raw != "" {
		percent, err := strconv.ParseFloat(raw, 64)
		if err != nil || percent < 0 || percent > 100 {
			return invalid(w, validate.Fail("Progress must be a percentage between 0 and 100"))
		}
		status.Milestone, status.ShouldTrigger = checkin.ShouldTrigger(percent, f, status.Progress)
	}
	JSON(w, http.StatusOK, status)
	return nil
}

// CompleteCheckin marks a milestone done for a book.
func (h *Handler) CompleteCheckin(w http.ResponseWriter, r *http.Request) error {
	userID := userIDFrom(r)
	bookID := chi.URLParam(r, "bookID")
	var in struct {
		Milestone int `json:"milestone"`
	}
	if !decode(w, r, &in) {
		return nil
	}
	if res := validate.IntRange(in.Milestone, 1, 100, "Milestone"); !res.Valid {
		return invalid(w, res)
	}

	var progress checkin.Progress
	_, err := clientstate.Update(r.Context(), h.state, userID, clientstate.KeyCheckins, checkin.ProgressMap{}, (*checkin.ProgressMap).Normalize, 0,
		func(all checkin.ProgressMap) (checkin.ProgressMap, error) {
			progress = all.For(bookID).MarkMilestoneComplete(in.Milestone, h.now())
			return all.With(progress), nil
		})
	if err != nil {
		return internal(w, "save checkins", err)
	}
	JSON(w, http.StatusOK, progress)
	return nil
}

// ComprehensionCheck generates questions for a passage or evaluates answers.
func (h *Handler) ComprehensionCheck(w http.ResponseWriter, r *http.Request) error {
	var in checkin.Input
	if !decode(w, r, &in) {
		return nil
	}
	if res := checkin.ValidateInput(in); !res.Valid {
		return invalid(w, res)
	}

	var resp checkin.Response
	if err := h.call(r, "/api/ai/comprehension-check", checkin.BuildRequest(in), checkin.ErrorMessages, &resp); err != nil {
		return fail(w, err)
	}
	JSON(w, http.StatusOK, resp)
	return nil
}
