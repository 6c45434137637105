package parse

import (
	"strings"
	"testing"

	"personaforge/internal/model"
)

const validReply = `{
    "demographics": {"age": "30s", "occupation": "software engineer", "location": "Not mentioned", "status": "married"},
    "personality": {"introvert_extrovert": 3, "intuition_sensing": 7, "feeling_thinking": 6, "perceiving_judging": 4},
    "motivations": {"convenience": 8, "wellness": 5, "speed": 6, "preferences": 7, "comfort": 4, "dietary_needs": 2},
    "behavior_habits": ["codes late at night", "reads documentation first"],
    "frustrations": ["flaky CI pipelines"],
    "goals_needs": ["wants to ship faster"],
    "key_quote": "I always read the docs before asking",
    "citations": {
        "age": [{"id": "comment:a1", "excerpt": "been doing this for a decade"}],
        "occupation": [{"id": "post:p1", "excerpt": "as a software engineer"}],
        "behavior_habits": [{"id": "comment:a2", "excerpt": "coding at 2am again"}],
        "key_quote": [{"id": "comment:a3", "excerpt": "I always read the docs before asking"}]
    }
}`

func findCandidate(candidates []Candidate, category model.Category, key string) *Candidate {
	for i := range candidates {
		if candidates[i].Category == category && candidates[i].Key == key {
			return &candidates[i]
		}
	}
	return nil
}

func TestParser_Parse_StrictValid(t *testing.T) {
	parser := NewParser()

	result := parser.Parse(validReply)

	if result.UsedFallback {
		t.Error("Expected strict pass to succeed")
	}

	occ := findCandidate(result.Candidates, model.CategoryDemographic, "occupation")
	if occ == nil {
		t.Fatal("Expected occupation candidate")
	}
	if occ.Value != "software engineer" {
		t.Errorf("Expected occupation value, got %q", occ.Value)
	}
	if len(occ.Citations) != 1 || occ.Citations[0].ItemID != "post:p1" {
		t.Errorf("Expected post:p1 citation, got %+v", occ.Citations)
	}

	// "Not mentioned" location must be filtered out.
	if loc := findCandidate(result.Candidates, model.CategoryDemographic, "location"); loc != nil {
		t.Errorf("Expected location placeholder dropped, got %+v", loc)
	}

	ie := findCandidate(result.Candidates, model.CategoryPersonality, "introvert_extrovert")
	if ie == nil || ie.Scale != 3 {
		t.Errorf("Expected introvert_extrovert scale 3, got %+v", ie)
	}

	conv := findCandidate(result.Candidates, model.CategoryMotivation, "convenience")
	if conv == nil || conv.Scale != 8 {
		t.Errorf("Expected convenience scale 8, got %+v", conv)
	}

	habit := findCandidate(result.Candidates, model.CategoryBehavior, "codes_late_at_night")
	if habit == nil {
		t.Fatal("Expected behavior candidate with slug key")
	}
	if habit.Value != "codes late at night" {
		t.Errorf("Unexpected habit value: %q", habit.Value)
	}

	quote := findCandidate(result.Candidates, model.CategoryQuote, "key_quote")
	if quote == nil {
		t.Fatal("Expected key quote candidate")
	}
	if quote.Citations[0].Excerpt != "I always read the docs before asking" {
		t.Errorf("Unexpected quote excerpt: %q", quote.Citations[0].Excerpt)
	}
}

func TestParser_Parse_MarkdownFences(t *testing.T) {
	parser := NewParser()

	fenced := "Here is the analysis:\n```json\n" + validReply + "\n```\nHope this helps!"
	result := parser.Parse(fenced)

	if result.UsedFallback {
		t.Error("Expected fenced JSON handled by strict pass")
	}
	if len(result.Candidates) == 0 {
		t.Fatal("Expected candidates from fenced reply")
	}
}

func TestParser_Parse_ScaleStrings(t *testing.T) {
	parser := NewParser()

	reply := `{
        "personality": {"introvert_extrovert": "7/10", "intuition_sensing": "4"},
        "citations": {}
    }`
	result := parser.Parse(reply)

	ie := findCandidate(result.Candidates, model.CategoryPersonality, "introvert_extrovert")
	if ie == nil || ie.Scale != 7 {
		t.Errorf("Expected 7/10 parsed as scale 7, got %+v", ie)
	}
	is := findCandidate(result.Candidates, model.CategoryPersonality, "intuition_sensing")
	if is == nil || is.Scale != 4 {
		t.Errorf("Expected numeric string parsed as scale 4, got %+v", is)
	}
}

func TestParser_Parse_OutOfRangeScalesDropped(t *testing.T) {
	parser := NewParser()

	reply := `{
        "personality": {"introvert_extrovert": 0, "intuition_sensing": 11},
        "motivations": {"convenience": -3},
        "citations": {}
    }`
	result := parser.Parse(reply)

	if len(result.Candidates) != 0 {
		t.Errorf("Expected out-of-range scales dropped, got %+v", result.Candidates)
	}
}

func TestParser_Parse_BareIDCitations(t *testing.T) {
	parser := NewParser()

	reply := `{
        "demographics": {"age": "mid 20s"},
        "citations": {"age": ["comment:x9"]}
    }`
	result := parser.Parse(reply)

	age := findCandidate(result.Candidates, model.CategoryDemographic, "age")
	if age == nil {
		t.Fatal("Expected age candidate")
	}
	if len(age.Citations) != 1 || age.Citations[0].ItemID != "comment:x9" {
		t.Errorf("Expected bare-string citation kept, got %+v", age.Citations)
	}
	if age.Citations[0].Excerpt != "" {
		t.Errorf("Expected empty excerpt for bare id, got %q", age.Citations[0].Excerpt)
	}
}

func TestParser_Parse_LenientFallback(t *testing.T) {
	parser := NewParser()

	reply := `The user seems interesting. Here is what I found:

Demographics:
- occupation: nurse (comment:n1)
- age: early 30s (comment:n2, post:n3)

Motivations:
- wellness: 9/10 (comment:n1)

Frustrations:
- long shifts: exhausting twelve hour days (comment:n4)
`
	result := parser.Parse(reply)

	if !result.UsedFallback {
		t.Fatal("Expected lenient fallback for non-JSON reply")
	}

	occ := findCandidate(result.Candidates, model.CategoryDemographic, "occupation")
	if occ == nil || occ.Value != "nurse" {
		t.Fatalf("Expected occupation nurse, got %+v", occ)
	}
	if len(occ.Citations) != 1 || occ.Citations[0].ItemID != "comment:n1" {
		t.Errorf("Expected comment:n1 citation, got %+v", occ.Citations)
	}

	age := findCandidate(result.Candidates, model.CategoryDemographic, "age")
	if age == nil || len(age.Citations) != 2 {
		t.Fatalf("Expected age with 2 citations, got %+v", age)
	}

	wellness := findCandidate(result.Candidates, model.CategoryMotivation, "wellness")
	if wellness == nil || wellness.Scale != 9 {
		t.Errorf("Expected wellness scale 9, got %+v", wellness)
	}
}

func TestParser_Parse_LenientRequiresCitations(t *testing.T) {
	parser := NewParser()

	reply := `Demographics:
- occupation: wizard
- age: 900 years old (no sources)
`
	result := parser.Parse(reply)

	if !result.UsedFallback {
		t.Fatal("Expected lenient fallback")
	}
	if len(result.Candidates) != 0 {
		t.Errorf("Expected lines without item ids dropped, got %+v", result.Candidates)
	}
}

func TestParser_Parse_GarbageYieldsEmpty(t *testing.T) {
	parser := NewParser()

	result := parser.Parse("complete nonsense with no structure whatsoever")

	if !result.UsedFallback {
		t.Error("Expected fallback pass on garbage")
	}
	if len(result.Candidates) != 0 {
		t.Errorf("Expected no candidates from garbage, got %d", len(result.Candidates))
	}
}

func TestParser_Parse_EmptyReply(t *testing.T) {
	parser := NewParser()

	result := parser.Parse("   \n  ")

	if result.UsedFallback || len(result.Candidates) != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestCleanJSON_UnquotedPlaceholders(t *testing.T) {
	raw := `{"demographics": {"age": Not mentioned, "location": N/A}}`
	cleaned := CleanJSON(raw)

	if !strings.Contains(cleaned, `"Not mentioned"`) {
		t.Errorf("Expected bare token quoted, got %q", cleaned)
	}
	if !strings.Contains(cleaned, `"N/A"`) {
		t.Errorf("Expected N/A quoted, got %q", cleaned)
	}
}

func TestCleanJSON_TrailingCommas(t *testing.T) {
	raw := `{"a": [1, 2,], "b": {"c": 1,},}`
	cleaned := CleanJSON(raw)

	if strings.Contains(cleaned, ",]") || strings.Contains(cleaned, ",}") {
		t.Errorf("Expected trailing commas removed, got %q", cleaned)
	}
}

func TestCleanJSON_ParentheticalAfterValue(t *testing.T) {
	raw := `{"introvert_extrovert": 3 (leans introvert), "age": "30s" (estimated)}`
	cleaned := CleanJSON(raw)

	if strings.Contains(cleaned, "leans introvert") || strings.Contains(cleaned, "estimated") {
		t.Errorf("Expected parentheticals stripped, got %q", cleaned)
	}
}

func TestCleanJSON_ExtractsFirstBalancedObject(t *testing.T) {
	raw := `Sure! {"a": {"b": 1}} and some trailing text {"c": 2}`
	cleaned := CleanJSON(raw)

	if cleaned != `{"a": {"b": 1}}` {
		t.Errorf("Expected first balanced object, got %q", cleaned)
	}
}

func TestCleanJSON_NoObject(t *testing.T) {
	if got := CleanJSON("no json here at all"); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
}

func TestSlugKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"codes late at night", "codes_late_at_night"},
		{"Reads Documentation First Thing Every Day", "reads_documentation_first_thing"},
		{"key_quote", "key_quote"},
		{"C++ & Go!", "c__go"},
	}
	for _, tt := range tests {
		if got := SlugKey(tt.in); got != tt.want {
			t.Errorf("SlugKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
