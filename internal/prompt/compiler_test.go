package prompt

import (
	"strings"
	"testing"
	"time"

	"personaforge/internal/model"
)

func testCorpus(t *testing.T, items []model.ContentItem) *model.Corpus {
	t.Helper()
	corp, err := model.NewCorpus("alice", items)
	if err != nil {
		t.Fatalf("NewCorpus failed: %v", err)
	}
	return corp
}

func item(id string, ts int64, body string) model.ContentItem {
	return model.ContentItem{
		ID:        id,
		Kind:      model.KindComment,
		Subreddit: "golang",
		Timestamp: time.Unix(ts, 0).UTC(),
		Body:      body,
	}
}

func TestCompiler_Compile_IncludesAllWithinBudget(t *testing.T) {
	compiler := NewCompiler(model.PromptConfig{MaxChars: 8000, MaxItemChars: 500})
	corp := testCorpus(t, []model.ContentItem{
		item("comment:a", 2000, "I love hiking in the mountains"),
		item("comment:b", 1000, "Just finished a great book"),
	})

	compiled := compiler.Compile(corp)

	if len(compiled.IncludedIDs) != 2 {
		t.Fatalf("Expected 2 included IDs, got %d", len(compiled.IncludedIDs))
	}
	if !strings.Contains(compiled.Prompt, "comment:a") || !strings.Contains(compiled.Prompt, "comment:b") {
		t.Error("Expected both item IDs in prompt")
	}
	if !strings.Contains(compiled.Prompt, `"alice"`) {
		t.Error("Expected username in prompt")
	}
}

func TestCompiler_Compile_RecencyWinsUnderBudget(t *testing.T) {
	// Budget fits roughly one item; the newer one must win.
	compiler := NewCompiler(model.PromptConfig{MaxChars: 120, MaxItemChars: 500})
	corp := testCorpus(t, []model.ContentItem{
		item("comment:new", 2000, strings.Repeat("n", 60)),
		item("comment:old", 1000, strings.Repeat("o", 60)),
	})

	compiled := compiler.Compile(corp)

	if len(compiled.IncludedIDs) != 1 {
		t.Fatalf("Expected 1 included ID, got %d", len(compiled.IncludedIDs))
	}
	if compiled.IncludedIDs[0] != "comment:new" {
		t.Errorf("Expected newest item included, got %s", compiled.IncludedIDs[0])
	}
}

func TestCompiler_Compile_TruncatesLongItems(t *testing.T) {
	compiler := NewCompiler(model.PromptConfig{MaxChars: 8000, MaxItemChars: 50})
	corp := testCorpus(t, []model.ContentItem{
		item("comment:a", 1000, strings.Repeat("x", 200)),
	})

	compiled := compiler.Compile(corp)

	if len(compiled.IncludedIDs) != 1 {
		t.Fatalf("Expected item included, got %d", len(compiled.IncludedIDs))
	}
	if !strings.Contains(compiled.Prompt, strings.Repeat("x", 50)+"...") {
		t.Error("Expected body truncated with ellipsis")
	}
	if strings.Contains(compiled.Prompt, strings.Repeat("x", 51)) {
		t.Error("Expected no more than 50 body chars")
	}
}

func TestCompiler_Compile_Deterministic(t *testing.T) {
	compiler := NewCompiler(model.PromptConfig{MaxChars: 8000, MaxItemChars: 500})
	corp := testCorpus(t, []model.ContentItem{
		item("comment:a", 2000, "first"),
		item("comment:b", 2000, "second"),
		item("comment:c", 1000, "third"),
	})

	first := compiler.Compile(corp)
	second := compiler.Compile(corp)

	if first.Prompt != second.Prompt {
		t.Error("Expected identical prompts for identical input")
	}
	if len(first.IncludedIDs) != len(second.IncludedIDs) {
		t.Fatal("Expected identical included sets")
	}
	for i := range first.IncludedIDs {
		if first.IncludedIDs[i] != second.IncludedIDs[i] {
			t.Errorf("ID order differs at %d: %s vs %s", i, first.IncludedIDs[i], second.IncludedIDs[i])
		}
	}
}

func TestCompiler_Compile_EmptyBudgetSkipsOversized(t *testing.T) {
	compiler := NewCompiler(model.PromptConfig{MaxChars: 100, MaxItemChars: 500})
	corp := testCorpus(t, []model.ContentItem{
		item("comment:big", 2000, strings.Repeat("b", 400)),
		item("comment:small", 1000, "tiny"),
	})

	compiled := compiler.Compile(corp)

	// The oversized item is skipped, the small one still fits.
	if len(compiled.IncludedIDs) != 1 || compiled.IncludedIDs[0] != "comment:small" {
		t.Errorf("Expected only comment:small included, got %v", compiled.IncludedIDs)
	}
}

func TestCompiler_Compile_PromptContainsContract(t *testing.T) {
	compiler := NewCompiler(model.PromptConfig{})
	corp := testCorpus(t, []model.ContentItem{item("comment:a", 1000, "hello")})

	compiled := compiler.Compile(corp)

	for _, want := range []string{"demographics", "personality", "motivations", "behavior_habits", "frustrations", "goals_needs", "key_quote", "citations"} {
		if !strings.Contains(compiled.Prompt, want) {
			t.Errorf("Expected prompt to mention %q", want)
		}
	}
}
