// Package ground enforces the grounding invariant: no attribute survives
// unless every kept citation resolves to a real corpus item and its excerpt
// is verifiably present in that item's body.
package ground

import (
	"fmt"
	"sort"
	"strings"

	"personaforge/internal/model"
	"personaforge/internal/parse"
)

// Rejection records one candidate filtered out during validation.
// Rejections are normal outcomes, kept for diagnostics, never fatal.
type Rejection struct {
	Candidate parse.Candidate
	Reason    string
}

// Outcome is the validator output: grounded, deduplicated attributes plus
// the rejected candidates.
type Outcome struct {
	Attributes []model.Attribute
	Rejected   []Rejection
}

// Validator cross-checks candidate citations against the corpus
type Validator struct {
	threshold float64
}

// NewValidator creates a validator with the configured fuzzy threshold
func NewValidator(cfg model.GroundingConfig) *Validator {
	threshold := cfg.FuzzyThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.6
	}
	return &Validator{threshold: threshold}
}

// Validate filters candidates down to grounded attributes. corpus must be
// the compiled subset exposed to the model: IDs outside it never resolve.
// The only hard error is structurally missing input.
func (v *Validator) Validate(corpus *model.Corpus, candidates []parse.Candidate) (Outcome, error) {
	if corpus == nil {
		return Outcome{}, fmt.Errorf("nil corpus")
	}

	var outcome Outcome
	for _, candidate := range candidates {
		attr, reason := v.groundCandidate(corpus, candidate)
		if reason != "" {
			outcome.Rejected = append(outcome.Rejected, Rejection{Candidate: candidate, Reason: reason})
			continue
		}
		outcome.Attributes = append(outcome.Attributes, attr)
	}

	outcome.Attributes = dedupe(outcome.Attributes)
	return outcome, nil
}

// groundCandidate verifies every citation; returns a non-empty reason when
// the candidate must be rejected.
func (v *Validator) groundCandidate(corpus *model.Corpus, candidate parse.Candidate) (model.Attribute, string) {
	if len(candidate.Citations) == 0 {
		return model.Attribute{}, "no citations provided"
	}

	var grounded []model.Citation
	var lastFailure string

	for _, cc := range candidate.Citations {
		item, ok := corpus.Lookup(strings.TrimSpace(cc.ItemID))
		if !ok {
			lastFailure = fmt.Sprintf("cited id %q not in corpus", cc.ItemID)
			continue
		}

		excerpt := strings.TrimSpace(cc.Excerpt)
		if excerpt == "" {
			// Fall back to the value itself; a bare number is unverifiable.
			if isNumeric(candidate.Value) {
				lastFailure = "citation has no excerpt and value is numeric"
				continue
			}
			excerpt = candidate.Value
		}

		strength := v.match(excerpt, item.Body)
		if strength == model.MatchNone {
			lastFailure = fmt.Sprintf("excerpt not found in %s", item.ID)
			continue
		}

		grounded = append(grounded, model.Citation{
			ItemID:    item.ID,
			Kind:      item.Kind,
			Subreddit: item.Subreddit,
			Timestamp: item.Timestamp,
			URL:       item.URL,
			Excerpt:   excerpt,
			Strength:  strength,
		})
	}

	if len(grounded) == 0 {
		if lastFailure == "" {
			lastFailure = "no verifiable citation"
		}
		return model.Attribute{}, lastFailure
	}

	return model.Attribute{
		Category:  candidate.Category,
		Key:       candidate.Key,
		Value:     candidate.Value,
		Scale:     candidate.Scale,
		Citations: grounded,
	}, ""
}

// match locates the excerpt in the body: exact normalized containment
// first, then token overlap against the threshold.
func (v *Validator) match(excerpt, body string) model.MatchStrength {
	normExcerpt := Normalize(excerpt)
	normBody := Normalize(body)
	if normExcerpt == "" {
		return model.MatchNone
	}

	if strings.Contains(normBody, normExcerpt) {
		return model.MatchExact
	}

	if v.tokenOverlap(normExcerpt, normBody) >= v.threshold {
		return model.MatchFuzzy
	}

	return model.MatchNone
}

// tokenOverlap returns the fraction of excerpt tokens present in the body
func (v *Validator) tokenOverlap(normExcerpt, normBody string) float64 {
	excerptTokens := tokens(normExcerpt)
	if len(excerptTokens) == 0 {
		return 0
	}

	bodyTokens := make(map[string]bool)
	for _, t := range tokens(normBody) {
		bodyTokens[t] = true
	}

	hits := 0
	for _, t := range excerptTokens {
		if bodyTokens[t] {
			hits++
		}
	}

	return float64(hits) / float64(len(excerptTokens))
}

// Normalize lowercases text and collapses runs of whitespace so excerpt
// containment ignores case and formatting differences.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func tokens(norm string) []string {
	fields := strings.FieldsFunc(norm, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// dedupe keeps at most one attribute per category+key: strongest grounding
// wins, newest citation timestamp breaks ties. Input order is preserved
// for the winners.
func dedupe(attrs []model.Attribute) []model.Attribute {
	type slot struct {
		attr  model.Attribute
		order int
	}

	best := make(map[string]slot)
	for i, attr := range attrs {
		key := string(attr.Category) + "\x00" + attr.Key
		existing, ok := best[key]
		if !ok {
			best[key] = slot{attr: attr, order: i}
			continue
		}
		if beats(attr, existing.attr) {
			best[key] = slot{attr: attr, order: existing.order}
		}
	}

	slots := make([]slot, 0, len(best))
	for _, s := range best {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].order < slots[j].order })

	out := make([]model.Attribute, len(slots))
	for i, s := range slots {
		out[i] = s.attr
	}
	return out
}

func beats(a, b model.Attribute) bool {
	if a.Strength() != b.Strength() {
		return a.Strength() > b.Strength()
	}
	return a.NewestCitation().After(b.NewestCitation())
}
