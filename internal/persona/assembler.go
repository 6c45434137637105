// Package persona merges grounded attributes into the final persona record.
// Assembly never fails: the worst case is a persona made entirely of
// insufficient-evidence markers, which is itself a valid outcome.
package persona

import (
	"time"

	"personaforge/internal/model"
)

// Assembler builds immutable personas from grounded attributes
type Assembler struct{}

// NewAssembler creates an assembler
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble groups attributes by category in the stable output order, marks
// empty categories as insufficient evidence, selects the representative
// quote, and derives archetype and tier. The attributes are consumed, never
// mutated. runID and generatedAt are supplied by the caller so identical
// inputs assemble identically.
func (a *Assembler) Assemble(username string, attrs []model.Attribute, diag model.Diagnostics, runID string, provider, mdl string, generatedAt time.Time) *model.Persona {
	byCategory := make(map[model.Category][]model.Attribute)
	for _, attr := range attrs {
		byCategory[attr.Category] = append(byCategory[attr.Category], attr)
	}

	var groups []model.CategoryGroup
	for _, cat := range model.Categories() {
		if cat == model.CategoryQuote {
			continue // Rendered as the key quote, not a section of its own
		}
		group := model.CategoryGroup{
			Category:   cat,
			Attributes: byCategory[cat],
		}
		if len(group.Attributes) == 0 {
			group.Insufficient = true
		}
		groups = append(groups, group)
	}

	diag.Grounded = len(attrs)

	return &model.Persona{
		Username:    username,
		RunID:       runID,
		GeneratedAt: generatedAt,
		Provider:    provider,
		Model:       mdl,
		Groups:      groups,
		KeyQuote:    selectKeyQuote(byCategory[model.CategoryQuote], attrs),
		Archetype:   deriveArchetype(attrs),
		Tier:        deriveTier(attrs),
		Diagnostics: diag,
	}
}

// selectKeyQuote prefers a grounded quote-category attribute (a direct
// quote) over any paraphrase; with none, the best-grounded attribute
// overall stands in; with nothing grounded at all, there is no quote.
func selectKeyQuote(quotes []model.Attribute, attrs []model.Attribute) *model.Attribute {
	if best := bestGrounded(quotes); best != nil {
		return best
	}
	return bestGrounded(attrs)
}

func bestGrounded(attrs []model.Attribute) *model.Attribute {
	var best *model.Attribute
	for i := range attrs {
		attr := attrs[i]
		if len(attr.Citations) == 0 {
			continue
		}
		if best == nil || stronger(attr, *best) {
			best = &attrs[i]
		}
	}
	if best == nil {
		return nil
	}
	// Copy so the persona does not alias the caller's slice.
	out := *best
	return &out
}

func stronger(a, b model.Attribute) bool {
	if a.Strength() != b.Strength() {
		return a.Strength() > b.Strength()
	}
	return a.NewestCitation().After(b.NewestCitation())
}
