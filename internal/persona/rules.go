package persona

import (
	"sort"

	"personaforge/internal/model"
)

// Archetype and tier are derived from validated attributes by a fixed rule
// table, never by a second model call, so regeneration from the same inputs
// is reproducible offline.

var motivationArchetypes = map[string]string{
	"convenience":   "The Pragmatist",
	"wellness":      "The Caregiver",
	"speed":         "The Go-Getter",
	"preferences":   "The Connoisseur",
	"comfort":       "The Homebody",
	"dietary_needs": "The Mindful Eater",
}

// deriveArchetype picks the archetype from the strongest grounded
// motivation, falling back to the extroversion scale.
func deriveArchetype(attrs []model.Attribute) string {
	var motivations []model.Attribute
	for _, a := range attrs {
		if a.Category == model.CategoryMotivation && a.Scale > 0 {
			if _, known := motivationArchetypes[a.Key]; known {
				motivations = append(motivations, a)
			}
		}
	}

	if len(motivations) > 0 {
		// Highest scale wins; alphabetical key order settles ties.
		sort.Slice(motivations, func(i, j int) bool {
			if motivations[i].Scale != motivations[j].Scale {
				return motivations[i].Scale > motivations[j].Scale
			}
			return motivations[i].Key < motivations[j].Key
		})
		return motivationArchetypes[motivations[0].Key]
	}

	for _, a := range attrs {
		if a.Category == model.CategoryPersonality && a.Key == "introvert_extrovert" && a.Scale > 0 {
			if a.Scale > 5 {
				return "The Socializer"
			}
			return "The Observer"
		}
	}

	return model.InsufficientEvidence
}

// deriveTier maps grounded category coverage onto an adoption tier
func deriveTier(attrs []model.Attribute) string {
	covered := make(map[model.Category]bool)
	for _, a := range attrs {
		if a.Category != model.CategoryQuote {
			covered[a.Category] = true
		}
	}

	switch n := len(covered); {
	case n >= 5:
		return "Early Adopter"
	case n >= 3:
		return "Mainstream"
	case n >= 1:
		return "Laggard"
	default:
		return model.InsufficientEvidence
	}
}
