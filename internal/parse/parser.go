// Package parse turns the model's untrusted reply into candidate
// attribute/citation pairs. It never fails on malformed input: a strict
// JSON pass runs first, a lenient line-oriented pass second, and a reply
// with nothing extractable yields an empty candidate set.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"personaforge/internal/model"
)

// CandidateCitation is an unvalidated citation as the model provided it
type CandidateCitation struct {
	ItemID  string // Verbatim id from the reply, unresolved at this stage
	Excerpt string
}

// Candidate is an unvalidated persona fact proposed by the model
type Candidate struct {
	Category  model.Category
	Key       string
	Value     string
	Scale     int // 1-10 for scale keys, 0 otherwise
	Citations []CandidateCitation
	Heuristic string // Which extraction pass produced it
}

// Result is the parser output
type Result struct {
	Candidates []Candidate
	// UsedFallback is set when the strict pass failed and the lenient
	// line-oriented pass ran instead.
	UsedFallback bool
}

// Parser extracts candidates from raw model replies
type Parser struct{}

// NewParser creates a parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts candidates from the raw reply. Absence of extractable
// content is a normal outcome, not an error.
func (p *Parser) Parse(raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}
	}

	if candidates, ok := p.parseStrict(raw); ok {
		return Result{Candidates: candidates}
	}

	return Result{
		Candidates:   p.parseLenient(raw),
		UsedFallback: true,
	}
}

// Strict pass: clean the reply into parseable JSON and decode the expected
// analysis shape.

type strictAnalysis struct {
	Demographics   map[string]flexString     `json:"demographics"`
	Personality    map[string]flexInt        `json:"personality"`
	Motivations    map[string]flexInt        `json:"motivations"`
	BehaviorHabits []string                  `json:"behavior_habits"`
	Frustrations   []string                  `json:"frustrations"`
	GoalsNeeds     []string                  `json:"goals_needs"`
	KeyQuote       string                    `json:"key_quote"`
	Citations      map[string][]flexCitation `json:"citations"`
}

// flexString tolerates string or numeric JSON values
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
		return nil
	}
	*f = ""
	return nil
}

// flexInt tolerates numeric or numeric-string JSON values
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(s, "/10"))); err == nil {
			*f = flexInt(v)
			return nil
		}
	}
	*f = 0
	return nil
}

// flexCitation tolerates {"id": ..., "excerpt": ...} objects or bare id strings
type flexCitation struct {
	ID      string `json:"id"`
	Excerpt string `json:"excerpt"`
}

func (f *flexCitation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.ID = s
		return nil
	}
	type alias flexCitation
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*f = flexCitation(a)
	return nil
}

func (p *Parser) parseStrict(raw string) ([]Candidate, bool) {
	cleaned := CleanJSON(raw)
	if cleaned == "" {
		return nil, false
	}

	var analysis strictAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, false
	}

	citations := func(field string) []CandidateCitation {
		var out []CandidateCitation
		for _, c := range analysis.Citations[field] {
			if c.ID == "" {
				continue
			}
			out = append(out, CandidateCitation{ItemID: c.ID, Excerpt: c.Excerpt})
		}
		return out
	}

	var candidates []Candidate

	for _, key := range []string{"age", "occupation", "location", "status"} {
		value := strings.TrimSpace(string(analysis.Demographics[key]))
		if value == "" || isNonAnswer(value) {
			continue
		}
		candidates = append(candidates, Candidate{
			Category:  model.CategoryDemographic,
			Key:       key,
			Value:     value,
			Citations: citations(key),
			Heuristic: "strict:demographics",
		})
	}

	for _, key := range []string{"introvert_extrovert", "intuition_sensing", "feeling_thinking", "perceiving_judging"} {
		scale := int(analysis.Personality[key])
		if scale < 1 || scale > 10 {
			continue
		}
		candidates = append(candidates, Candidate{
			Category:  model.CategoryPersonality,
			Key:       key,
			Value:     strconv.Itoa(scale),
			Scale:     scale,
			Citations: citations(key),
			Heuristic: "strict:personality",
		})
	}

	for _, key := range []string{"convenience", "wellness", "speed", "preferences", "comfort", "dietary_needs"} {
		scale := int(analysis.Motivations[key])
		if scale < 1 || scale > 10 {
			continue
		}
		candidates = append(candidates, Candidate{
			Category:  model.CategoryMotivation,
			Key:       key,
			Value:     strconv.Itoa(scale),
			Scale:     scale,
			Citations: citations(key),
			Heuristic: "strict:motivations",
		})
	}

	lists := []struct {
		category model.Category
		field    string
		values   []string
	}{
		{model.CategoryBehavior, "behavior_habits", analysis.BehaviorHabits},
		{model.CategoryFrustration, "frustrations", analysis.Frustrations},
		{model.CategoryGoal, "goals_needs", analysis.GoalsNeeds},
	}
	for _, list := range lists {
		listCitations := citations(list.field)
		for _, value := range list.values {
			value = strings.TrimSpace(value)
			if value == "" || isNonAnswer(value) {
				continue
			}
			candidates = append(candidates, Candidate{
				Category:  list.category,
				Key:       SlugKey(value),
				Value:     value,
				Citations: listCitations,
				Heuristic: "strict:" + list.field,
			})
		}
	}

	if quote := strings.TrimSpace(analysis.KeyQuote); quote != "" && !isNonAnswer(quote) {
		quoteCitations := citations("key_quote")
		// A quote with no excerpt is still verifiable against itself.
		for i := range quoteCitations {
			if quoteCitations[i].Excerpt == "" {
				quoteCitations[i].Excerpt = quote
			}
		}
		candidates = append(candidates, Candidate{
			Category:  model.CategoryQuote,
			Key:       "key_quote",
			Value:     quote,
			Citations: quoteCitations,
			Heuristic: "strict:key_quote",
		})
	}

	return candidates, true
}

var (
	fenceOpenRe     = regexp.MustCompile("```(?:json)?\\s*")
	bareTokenRe     = regexp.MustCompile(`(?i)(:\s*)(Not mentioned|Not specified|None|N/A|Unknown)(\s*[,\}\]])`)
	trailingCommaRe = regexp.MustCompile(`,\s*([\}\]])`)
	parentheticalRe = regexp.MustCompile(`(:\s*(?:"[^"]*"|\d+))\s*\([^)]*\)`)
)

// CleanJSON repairs the common ways models mangle a JSON reply: markdown
// fences, unquoted placeholder tokens, parenthetical asides after values,
// trailing commas, and prose around the object. Returns the first balanced
// object, or "" when none exists.
func CleanJSON(raw string) string {
	s := fenceOpenRe.ReplaceAllString(raw, "")
	s = bareTokenRe.ReplaceAllString(s, `$1"$2"$3`)
	s = parentheticalRe.ReplaceAllString(s, "$1")
	s = trailingCommaRe.ReplaceAllString(s, "$1")

	depth := 0
	start := -1
	for i, ch := range s {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return s[start : i+1]
				}
			}
		}
	}

	return ""
}

// Lenient pass: locate per-category sections and extract
// `key: value (citation ids)` patterns line by line.

var (
	lenientLineRe = regexp.MustCompile(`^\s*[-*•]?\s*"?([A-Za-z_][A-Za-z0-9_ /]{0,40}?)"?\s*[:=]\s*(.+?)\s*\(([^)]*)\)\s*[,.]?\s*$`)
	citationIDRe  = regexp.MustCompile(`(?:post|comment):[A-Za-z0-9_]+`)
	scaleValueRe  = regexp.MustCompile(`^(\d{1,2})(?:\s*/\s*10)?$`)
)

var sectionMarkers = []struct {
	marker   string
	category model.Category
}{
	{"demographic", model.CategoryDemographic},
	{"personality", model.CategoryPersonality},
	{"motivation", model.CategoryMotivation},
	{"behavior", model.CategoryBehavior},
	{"habit", model.CategoryBehavior},
	{"frustration", model.CategoryFrustration},
	{"pain point", model.CategoryFrustration},
	{"goal", model.CategoryGoal},
	{"need", model.CategoryGoal},
	{"quote", model.CategoryQuote},
}

func (p *Parser) parseLenient(raw string) []Candidate {
	var candidates []Candidate
	current := model.Category("")

	for _, line := range strings.Split(raw, "\n") {
		if cat, ok := sectionHeading(line); ok {
			current = cat
			continue
		}
		if current == "" {
			continue
		}

		m := lenientLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		key, value, tail := m[1], strings.Trim(m[2], `"' `), m[3]
		ids := citationIDRe.FindAllString(tail, -1)
		if len(ids) == 0 || value == "" || isNonAnswer(value) {
			continue
		}

		candidate := Candidate{
			Category:  current,
			Key:       SlugKey(key),
			Value:     value,
			Heuristic: "lenient:line",
		}
		if sm := scaleValueRe.FindStringSubmatch(value); sm != nil {
			if v, err := strconv.Atoi(sm[1]); err == nil && v >= 1 && v <= 10 {
				candidate.Scale = v
				candidate.Value = strconv.Itoa(v)
			}
		}
		for _, id := range ids {
			candidate.Citations = append(candidate.Citations, CandidateCitation{ItemID: id})
		}
		if current == model.CategoryQuote {
			candidate.Key = "key_quote"
			for i := range candidate.Citations {
				candidate.Citations[i].Excerpt = value
			}
		}

		candidates = append(candidates, candidate)
	}

	return candidates
}

// sectionHeading reports whether the line looks like a category heading
// rather than a key/value entry.
func sectionHeading(line string) (model.Category, bool) {
	trimmed := strings.ToLower(strings.Trim(line, " \t#*-=:0123456789."))
	if trimmed == "" || len(trimmed) > 60 || strings.Contains(trimmed, "(") {
		return "", false
	}
	for _, s := range sectionMarkers {
		if strings.Contains(trimmed, s.marker) {
			return s.category, true
		}
	}
	return "", false
}

// SlugKey normalizes free-text keys/values into stable attribute keys
func SlugKey(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) > 4 {
		words = words[:4]
	}
	slug := strings.Join(words, "_")
	cleaned := make([]rune, 0, len(slug))
	for _, r := range slug {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cleaned = append(cleaned, r)
		}
	}
	out := strings.Trim(string(cleaned), "_")
	if len(out) > 40 {
		out = out[:40]
	}
	return out
}

// isNonAnswer filters placeholder values the model emits instead of
// omitting a field.
func isNonAnswer(value string) bool {
	switch strings.ToLower(strings.Trim(value, `". `)) {
	case "not mentioned", "not specified", "none", "n/a", "unknown", "null", "insufficient evidence":
		return true
	}
	return false
}

// String implements fmt.Stringer for debugging candidate dumps
func (c Candidate) String() string {
	return fmt.Sprintf("%s/%s=%q (%d citations)", c.Category, c.Key, c.Value, len(c.Citations))
}
