package model

import "time"

// Category groups persona attributes
type Category string

const (
	CategoryDemographic Category = "demographic"
	CategoryPersonality Category = "personality"
	CategoryMotivation  Category = "motivation"
	CategoryBehavior    Category = "behavior"
	CategoryFrustration Category = "frustration"
	CategoryGoal        Category = "goal"
	CategoryQuote       Category = "quote"
)

// Categories lists all persona categories in their stable output order.
func Categories() []Category {
	return []Category{
		CategoryDemographic,
		CategoryPersonality,
		CategoryMotivation,
		CategoryBehavior,
		CategoryFrustration,
		CategoryGoal,
		CategoryQuote,
	}
}

// MatchStrength classifies how a citation's excerpt was located in the
// cited item's body
type MatchStrength int

const (
	MatchNone  MatchStrength = 0 // Not verified
	MatchFuzzy MatchStrength = 1 // Token overlap above threshold
	MatchExact MatchStrength = 2 // Normalized substring match
)

func (m MatchStrength) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Citation points a persona claim back to a specific content item plus the
// excerpt proving the claim's source.
type Citation struct {
	ItemID    string        `json:"item_id"`
	Kind      ContentKind   `json:"kind"`
	Subreddit string        `json:"subreddit"`
	Timestamp time.Time     `json:"timestamp"`
	URL       string        `json:"url"`
	Excerpt   string        `json:"excerpt"`
	Strength  MatchStrength `json:"strength"`
}

// Attribute is a single persona fact. In a final persona it always carries
// at least one grounded citation.
type Attribute struct {
	Category  Category   `json:"category"`
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	Scale     int        `json:"scale,omitempty"` // 1-10 for personality/motivation keys, 0 otherwise
	Citations []Citation `json:"citations"`
}

// Strength returns the strongest citation match backing the attribute.
func (a Attribute) Strength() MatchStrength {
	best := MatchNone
	for _, c := range a.Citations {
		if c.Strength > best {
			best = c.Strength
		}
	}
	return best
}

// NewestCitation returns the most recent citation timestamp, zero if none.
func (a Attribute) NewestCitation() time.Time {
	var newest time.Time
	for _, c := range a.Citations {
		if c.Timestamp.After(newest) {
			newest = c.Timestamp
		}
	}
	return newest
}

// InsufficientEvidence is the marker value assigned to categories where no
// grounded attribute survived validation. It replaces any form of
// placeholder fabrication.
const InsufficientEvidence = "insufficient evidence"

// CategoryGroup holds the grounded attributes for one category.
type CategoryGroup struct {
	Category   Category    `json:"category"`
	Attributes []Attribute `json:"attributes"`
	// Insufficient is set when no grounded attribute exists for the category.
	Insufficient bool `json:"insufficient"`
}

// Persona is the final structured, citation-backed profile for one user.
// Immutable once assembled; regeneration creates a new Persona.
type Persona struct {
	Username    string          `json:"username"`
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Provider    string          `json:"provider,omitempty"`
	Model       string          `json:"model,omitempty"`
	Groups      []CategoryGroup `json:"groups"`
	KeyQuote    *Attribute      `json:"key_quote,omitempty"`
	Archetype   string          `json:"archetype"`
	Tier        string          `json:"tier"`
	Diagnostics Diagnostics     `json:"diagnostics"`
}

// Group returns the category group for the given category.
func (p *Persona) Group(cat Category) (CategoryGroup, bool) {
	for _, g := range p.Groups {
		if g.Category == cat {
			return g, true
		}
	}
	return CategoryGroup{}, false
}

// Diagnostics records non-fatal filtering outcomes for one run.
type Diagnostics struct {
	CorpusSize     int      `json:"corpus_size"`
	CompiledItems  int      `json:"compiled_items"`
	Candidates     int      `json:"candidates"`
	Grounded       int      `json:"grounded"`
	Rejected       int      `json:"rejected"`
	RejectReasons  []string `json:"reject_reasons,omitempty"`
	ParserFallback bool     `json:"parser_fallback"` // Lenient pass was used
}
