package api

import (
	"net/http"

	"github.com/readmaster/read-master/internal/discussion"
	"github.com/readmaster/read-master/internal/notes"
)

// SummarizeNotes condenses a reader's notes for a book.
func (h *Handler) SummarizeNotes(w http.ResponseWriter, r *http.Request) error {
	var in notes.Input
	if !decode(w, r, &in) {
		return nil
	}
	if res := notes.ValidateInput(in); !res.Valid {
		return invalid(w, res)
	}

	var resp notes.Response
	if err := h.call(r, "/api/ai/summarize-notes", notes.BuildRequest(in), nil, &resp); err != nil {
		return fail(w, err)
	}
	JSON(w, http.StatusOK, resp)
	return nil
}

// DiscussionQuestions generates discussion prompts for a book or chapter.
func (h *Handler) DiscussionQuestions(w http.ResponseWriter, r *http.Request) error {
	var in discussion.Input
	if !decode(w, r, &in) {
		return nil
	}
	if res := discussion.ValidateInput(in); !res.Valid {
		return invalid(w, res)
	}

	var resp discussion.Response
	if err := h.call(r, "/api/ai/discussion-questions", discussion.BuildRequest(in), nil, &resp); err != nil {
		return fail(w, err)
	}
	JSON(w, http.StatusOK, resp)
	return nil
}
