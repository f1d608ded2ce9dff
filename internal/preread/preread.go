// Package preread shapes pre-reading guides and their collapsible view.
package preread

import (
	"strconv"
	"strings"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/validate"
)

// SectionKind groups guide content.
type SectionKind string

const (
	SectionOverview   SectionKind = "overview"
	SectionVocabulary SectionKind = "vocabulary"
	SectionConcepts   SectionKind = "concepts"
	SectionContext    SectionKind = "context"
	SectionQuestions  SectionKind = "questions"
)

// Term is a vocabulary entry.
type Term struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Example    string `json:"example,omitempty"`
}

// Section is one collapsible part of a guide.
type Section struct {
	ID      string      `json:"id"`
	Kind    SectionKind `json:"kind"`
	Title   string      `json:"title"`
	Content string      `json:"content,omitempty"`
	Items   []string    `json:"items,omitempty"`
	Terms   []Term      `json:"terms,omitempty"`
}

// Guide is a generated pre-reading guide.
type Guide struct {
	BookID    string    `json:"bookId"`
	ChapterID string    `json:"chapterId,omitempty"`
	Sections  []Section `json:"sections"`
}

// ErrorMessages overrides failure text for guides.
var ErrorMessages = aierr.Messages{
	aierr.KindNotFound:         "No pre-reading guide exists for this book yet.",
	aierr.KindGenerationFailed: "We couldn't prepare a reading guide. Please try again.",
}

// Input asks for a guide.
type Input struct {
	BookID       string `json:"bookId"`
	ChapterID    string `json:"chapterId,omitempty"`
	ReadingLevel string `json:"readingLevel,omitempty"`
	Regenerate   bool   `json:"regenerate,omitempty"`
}

// ValidateInput checks a guide request.
func ValidateInput(in Input) validate.Result {
	if strings.TrimSpace(in.BookID) == "" {
		return validate.Fail("Book ID is required")
	}
	return validate.OK()
}

// Normalize drops empty sections and assigns missing ids from the kind and
// position, so view state can address every section.
func (g Guide) Normalize() Guide {
	out := make([]Section, 0, len(g.Sections))
	seen := make(map[string]bool)
	for _, s := range g.Sections {
		if strings.TrimSpace(s.Content) == "" && len(s.Items) == 0 && len(s.Terms) == 0 {
			continue
		}
		if s.ID == "" || seen[s.ID] {
			s.ID = string(s.Kind) + "-" + strconv.Itoa(len(out))
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	g.Sections = out
	return g
}

// View is which sections are expanded.
type View struct {
	Expanded map[string]bool `json:"expanded"`
}

// DefaultView expands the first section only.
func DefaultView(g Guide) View {
	v := View{Expanded: map[string]bool{}}
	if len(g.Sections) > 0 {
		v.Expanded[g.Sections[0].ID] = true
	}
	return v
}

func (v View) clone() map[string]bool {
	out := make(map[string]bool, len(v.Expanded))
	for k, e := range v.Expanded {
		if e {
			out[k] = true
		}
	}
	return out
}

// ToggleSection flips one section.
func (v View) ToggleSection(id string) View {
	next := v.clone()
	if next[id] {
		delete(next, id)
	} else {
		next[id] = true
	}
	return View{Expanded: next}
}

// ExpandAll expands every section of g.
func ExpandAll(g Guide) View {
	next := make(map[string]bool, len(g.Sections))
	for _, s := range g.Sections {
		next[s.ID] = true
	}
	return View{Expanded: next}
}

// CollapseAll collapses everything.
func CollapseAll() View {
	return View{Expanded: map[string]bool{}}
}

// IsExpanded reports whether id is expanded.
func (v View) IsExpanded(id string) bool { return v.Expanded[id] }
