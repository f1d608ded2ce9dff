package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/readmaster/read-master/internal/auth"
)

// Middleware is an HTTP middleware constructor.
type Middleware = func(http.Handler) http.Handler

// RegisterRoutes mounts every endpoint on r. authenticate guards all routes
// except health and the webhook; limit additionally guards /api/ai.
func (h *Handler) RegisterRoutes(r chi.Router, authenticate, limit Middleware) {
	r.Get("/health", h.wrap(h.Health))
	r.Post("/api/webhooks/clerk", h.wrap(h.ClerkWebhook))

	r.With(auth.TokenFromQuery("token"), authenticate).Get("/api/voice/ws", h.wrap(func(w http.ResponseWriter, r *http.Request) error {
		h.voice.ServeHTTP(w, r)
		return nil
	}))

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/api/me", h.wrap(h.GetMe))

		r.Route("/api/books/{bookID}", func(r chi.Router) {
			r.Get("/chat", h.wrap(h.GetChat))
			r.Delete("/chat", h.wrap(h.ClearChat))
			r.Get("/checkins", h.wrap(h.GetCheckins))
			r.Post("/checkins/complete", h.wrap(h.CompleteCheckin))
			r.Get("/flashcards", h.wrap(h.ListFlashcards))
			r.Get("/assessments", h.wrap(h.ListAssessments))
		})

		r.Get("/api/checkins/frequency", h.wrap(h.GetCheckinFrequency))
		r.Put("/api/checkins/frequency", h.wrap(h.PutCheckinFrequency))
		r.Get("/api/flashcards/preferences", h.wrap(h.GetFlashcardPreferences))
		r.Put("/api/flashcards/preferences", h.wrap(h.PutFlashcardPreferences))
		r.Get("/api/preferences/model", h.wrap(h.GetModelPreference))
		r.Put("/api/preferences/model", h.wrap(h.PutModelPreference))

		r.Get("/api/assessments/{id}/progress", h.wrap(h.GetAssessmentProgress))
		r.Put("/api/assessments/{id}/progress", h.wrap(h.PutAssessmentProgress))
		r.Delete("/api/assessments/{id}/progress", h.wrap(h.DeleteAssessmentProgress))

		r.Route("/api/ai", func(r chi.Router) {
			r.Use(limit)
			r.Post("/ask", h.wrap(h.Ask))
			r.Post("/explain", h.wrap(h.Explain))
			r.Post("/comprehension-check", h.wrap(h.ComprehensionCheck))
			r.Post("/generate-flashcards", h.wrap(h.GenerateFlashcards))
			r.Post("/assessments/generate", h.wrap(h.GenerateAssessment))
			r.Post("/assessments/{id}/grade", h.wrap(h.GradeAssessment))
			r.Get("/pre-reading-guide", h.wrap(h.GetPreReadingGuide))
			r.Post("/pre-reading-guide", h.wrap(h.GeneratePreReadingGuide))
			r.Get("/models", h.wrap(h.ListModels))
			r.Post("/recommendations", h.wrap(h.Recommend))
			r.Post("/difficulty", h.wrap(h.AssessDifficulty))
			r.Post("/summarize-notes", h.wrap(h.SummarizeNotes))
			r.Post("/discussion-questions", h.wrap(h.DiscussionQuestions))
		})
	})
}
