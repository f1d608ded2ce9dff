package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/assessment"
	"github.com/readmaster/read-master/internal/clientstate"
	"github.com/readmaster/read-master/internal/domain"
)

type gradeOutput struct {
	Result  assessment.GradeResult `json:"result"`
	Summary assessment.Summary     `json:"summary"`
}

// GenerateAssessment creates an assessment and starts its progress record.
func (h *Handler) GenerateAssessment(w http.ResponseWriter, r *http.Request) error {
	var in assessment.GenerateInput
	if !decode(w, r, &in) {
		return nil
	}
	if res := assessment.ValidateGenerate(in); !res.Valid {
		return invalid(w, res)
	}

	var a assessment.Assessment
	if err := h.call(r, "/api/ai/assessments/generate", assessment.BuildGenerateRequest(in), assessment.ErrorMessages, &a); err != nil {
		return fail(w, err)
	}
	if a.ID != "" {
		p := assessment.NewProgress(a.ID, len(a.Questions))
		p.SavedAt = h.now()
		_ = h.state.Save(r.Context(), userIDFrom(r), clientstate.AssessmentKey(a.ID), p, h.cfg.Policy.AssessmentProgressTTL)
	}
	JSON(w, http.StatusOK, a)
	return nil
}

// GradeAssessment grades a submission, records the score and clears the
// in-progress answers.
func (h *Handler) GradeAssessment(w http.ResponseWriter, r *http.Request) error {
	userID := userIDFrom(r)
	id := chi.URLParam(r, "id")
	var in assessment.GradeInput
	if !decode(w, r, &in) {
		return nil
	}
	if res := assessment.ValidateGrade(in); !res.Valid {
		return invalid(w, res)
	}

	var result assessment.GradeResult
	if err := h.call(r, "/api/ai/assessments/"+url.PathEscape(id)+"/grade", in, assessment.ErrorMessages, &result); err != nil {
		return fail(w, err)
	}

	bookID := strings.TrimSpace(in.BookID)
	if err := h.repo.AddAssessmentResult(r.Context(), result.Record(userID, bookID, id, h.now())); err != nil {
		return internal(w, "record assessment result", err)
	}
	if err := h.state.Delete(r.Context(), userID, clientstate.AssessmentKey(id)); err != nil {
		slog.Warn("Failed to clear assessment progress", "user_id", userID, "assessment_id", id, "error", err)
	}

	results, err := h.repo.ListAssessmentResults(r.Context(), userID, bookID)
	if err != nil {
		return internal(w, "list assessment results", err)
	}
	JSON(w, http.StatusOK, gradeOutput{Result: result, Summary: assessment.Summarize(results)})
	return nil
}

// ListAssessments returns a book's graded assessments and their trend.
func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) error {
	results, err := h.repo.ListAssessmentResults(r.Context(), userIDFrom(r), chi.URLParam(r, "bookID"))
	if err != nil {
		return internal(w, "list assessment results", err)
	}
	if results == nil {
		results = []*domain.AssessmentResult{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"summary": assessment.Summarize(results),
	})
	return nil
}

// GetAssessmentProgress returns saved in-progress answers.
func (h *Handler) GetAssessmentProgress(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	p := clientstate.Load(r.Context(), h.state, userIDFrom(r), clientstate.AssessmentKey(id), assessment.Progress{}, func(p *assessment.Progress) bool {
		return p.Valid(id)
	})
	if p.AssessmentID == "" {
		Error(w, aierr.KindNotFound, "No saved progress for this assessment")
		return nil
	}
	JSON(w, http.StatusOK, p)
	return nil
}

// PutAssessmentProgress saves in-progress answers with an expiry.
func (h *Handler) PutAssessmentProgress(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	var p assessment.Progress
	if !decode(w, r, &p) {
		return nil
	}
	if p.AssessmentID == "" {
		p.AssessmentID = id
	}
	if !p.Valid(id) {
		Error(w, aierr.KindValidation, "Invalid assessment progress")
		return nil
	}
	p.SavedAt = h.now()
	if err := h.state.Save(r.Context(), userIDFrom(r), clientstate.AssessmentKey(id), p, h.cfg.Policy.AssessmentProgressTTL); err != nil {
		return internal(w, "save assessment progress", err)
	}
	JSON(w, http.StatusOK, p)
	return nil
}

// DeleteAssessmentProgress discards in-progress answers.
func (h *Handler) DeleteAssessmentProgress(w http.ResponseWriter, r *http.Request) error {
	if err := h.state.Delete(r.Context(), userIDFrom(r), clientstate.AssessmentKey(chi.URLParam(r, "id"))); err != nil {
		return internal(w, "delete assessment progress", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
