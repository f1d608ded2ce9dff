// Package recommendations builds book recommendation requests and filters
// what comes back.
package recommendations

import (
	"strings"

	"github.com/readmaster/read-master/internal/validate"
)

// Limits.
const (
	MinLimit     = 1
	MaxLimit     = 20
	DefaultLimit = 5
	MaxGenres    = 3
)

// Input is what the client sends.
type Input struct {
	ReadBookIDs  []string `json:"readBookIds,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	ReadingLevel string   `json:"readingLevel,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

// Request is the body sent to the AI recommendations endpoint.
type Request struct {
	ReadBookIDs  []string `json:"readBookIds"`
	Genre        string   `json:"genre,omitempty"`
	ReadingLevel string   `json:"readingLevel,omitempty"`
	Limit        int      `json:"limit"`
}

// Recommendation is one suggested book.
type Recommendation struct {
	BookID string   `json:"bookId"`
	Title  string   `json:"title"`
	Author string   `json:"author,omitempty"`
	Reason string   `json:"reason,omitempty"`
	Genres []string `json:"genres,omitempty"`
	Score  float64  `json:"score,omitempty"`
}

// Response is the AI result.
type Response struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// ValidateInput checks in. A zero limit means the default.
func ValidateInput(in Input) validate.Result {
	if in.Limit != 0 {
		if r := validate.IntRange(in.Limit, MinLimit, MaxLimit, "Limit"); !r.Valid {
			return r
		}
	}
	if len(in.Genres) > MaxGenres {
		return validate.Failf("Choose at most %d genres", MaxGenres)
	}
	return validate.OK()
}

// NormalizeLimit applies the default.
func NormalizeLimit(limit int) int {
	if limit == 0 {
		return DefaultLimit
	}
	return limit
}

// BuildRequests returns one request per genre, or a single request when no
// genre is given. Blank and repeated genres are dropped.
func BuildRequests(in Input) []Request {
	base := Request{
		ReadBookIDs:  dedupe(in.ReadBookIDs),
		ReadingLevel: in.ReadingLevel,
		Limit:        NormalizeLimit(in.Limit),
	}
	genres := dedupe(in.Genres)
	if len(genres) == 0 {
		return []Request{base}
	}
	reqs := make([]Request, 0, len(genres))
	for _, g := range genres {
		r := base
		r.Genre = g
		reqs = append(reqs, r)
	}
	return reqs
}

// Filter drops books already read, repeats and entries without an id, and
// caps the result at limit.
func Filter(recs []Recommendation, readBookIDs []string, limit int) []Recommendation {
	read := make(map[string]bool, len(readBookIDs))
	for _, id := range readBookIDs {
		read[id] = true
	}
	limit = NormalizeLimit(limit)

	out := make([]Recommendation, 0, limit)
	seen := make(map[string]bool)
	for _, r := range recs {
		if r.BookID == "" || read[r.BookID] || seen[r.BookID] {
			continue
		}
		seen[r.BookID] = true
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
