// Package models resolves the reader's AI model choice against the catalog
// offered by the AI service.
package models

import (
	"strings"

	"github.com/readmaster/read-master/internal/validate"
)

// Tier is a speed/quality class.
type Tier string

const (
	TierFast     Tier = "fast"
	TierBalanced Tier = "balanced"
	TierPowerful Tier = "powerful"
)

// Valid reports whether t is known.
func (t Tier) Valid() bool {
	switch t {
	case TierFast, TierBalanced, TierPowerful:
		return true
	}
	return false
}

// Model is one selectable model.
type Model struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Provider    string  `json:"provider,omitempty"`
	Tier        Tier    `json:"tier"`
	Description string  `json:"description,omitempty"`
	Available   bool    `json:"available"`
	CostPer1K   float64 `json:"costPer1k,omitempty"`
}

// Catalog is the list served by the AI service.
type Catalog struct {
	Models    []Model `json:"models"`
	DefaultID string  `json:"defaultModelId"`
}

// Preference is the stored selection. Either field may be empty.
type Preference struct {
	ModelID string `json:"modelId,omitempty"`
	Tier    Tier   `json:"tier,omitempty"`
}

// Valid reports whether a loaded preference is well formed.
func (p *Preference) Valid() bool {
	return p.Tier == "" || p.Tier.Valid()
}

// Find returns the model with id.
func (c Catalog) Find(id string) (Model, bool) {
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// Default returns the catalog default, or the first available model.
func (c Catalog) Default() (Model, bool) {
	if m, ok := c.Find(c.DefaultID); ok && m.Available {
		return m, true
	}
	for _, m := range c.Models {
		if m.Available {
			return m, true
		}
	}
	return Model{}, false
}

// ValidateSelection checks that p names an available model or a known tier.
func ValidateSelection(p Preference, c Catalog) validate.Result {
	if p.ModelID == "" && p.Tier == "" {
		return validate.Fail("Select a model or tier")
	}
	if p.Tier != "" && !p.Tier.Valid() {
		return validate.Failf("Unknown tier %q", p.Tier)
	}
	if p.ModelID != "" {
		m, ok := c.Find(strings.TrimSpace(p.ModelID))
		if !ok {
			return validate.Failf("Unknown model %q", p.ModelID)
		}
		if !m.Available {
			return validate.Failf("Model %q is not available", m.Name)
		}
	}
	return validate.OK()
}

// Resolve picks the model id to use: the preferred model when available,
// else the first available model of the preferred tier, else the catalog
// default. It returns "" when nothing is available.
func Resolve(p Preference, c Catalog) string {
	if m, ok := c.Find(p.ModelID); ok && m.Available {
		return m.ID
	}
	if p.Tier != "" {
		for _, m := range c.Models {
			if m.Tier == p.Tier && m.Available {
				return m.ID
			}
		}
	}
	if m, ok := c.Default(); ok {
		return m.ID
	}
	return ""
}

// ByTier groups available models for display.
func (c Catalog) ByTier() map[Tier][]Model {
	out := make(map[Tier][]Model)
	for _, m := range c.Models {
		if m.Available {
			out[m.Tier] = append(out[m.Tier], m)
		}
	}
	return out
}
