// Package prompt serializes a bounded corpus subset into the instruction
// payload for the text-generation provider.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"personaforge/internal/model"
)

// Compiled is the result of prompt compilation. IncludedIDs is the exact
// set of item IDs exposed to the model; the grounding validator must only
// recognize these.
type Compiled struct {
	Prompt      string
	IncludedIDs []string
}

// Compiler builds deterministic prompts under a character budget
type Compiler struct {
	maxChars     int
	maxItemChars int
}

// NewCompiler creates a compiler with the given budget
func NewCompiler(cfg model.PromptConfig) *Compiler {
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 8000
	}
	maxItemChars := cfg.MaxItemChars
	if maxItemChars <= 0 {
		maxItemChars = 500
	}
	return &Compiler{maxChars: maxChars, maxItemChars: maxItemChars}
}

// Compile selects items by recency, then body length, until the content
// budget is exhausted, and renders the full instruction prompt. Identical
// corpus and budget always yield an identical prompt.
func (c *Compiler) Compile(corpus *model.Corpus) Compiled {
	candidates := make([]model.ContentItem, corpus.Len())
	copy(candidates, corpus.Items())

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].Timestamp.Equal(candidates[j].Timestamp) {
			return candidates[i].Timestamp.After(candidates[j].Timestamp)
		}
		if len(candidates[i].Body) != len(candidates[j].Body) {
			return len(candidates[i].Body) > len(candidates[j].Body)
		}
		return candidates[i].ID < candidates[j].ID
	})

	var content strings.Builder
	var included []string
	for _, item := range candidates {
		entry := c.formatItem(item)
		if content.Len()+len(entry) > c.maxChars {
			continue
		}
		content.WriteString(entry)
		included = append(included, item.ID)
	}

	return Compiled{
		Prompt:      buildInstructions(corpus.Username, content.String()),
		IncludedIDs: included,
	}
}

func (c *Compiler) formatItem(item model.ContentItem) string {
	body := item.Body
	if len(body) > c.maxItemChars {
		body = body[:c.maxItemChars] + "..."
	}
	return fmt.Sprintf("[%s %s] [%s] r/%s: %s\n\n",
		strings.ToUpper(string(item.Kind)), item.ID,
		item.Timestamp.Format("2006-01-02"), item.Subreddit, body)
}

func buildInstructions(username, content string) string {
	return fmt.Sprintf(`Analyze the following Reddit posts and comments by user %q and build a detailed user persona. Extract:

1. Demographics: age, occupation, location, status (relationship status)
2. Personality traits on 1-10 scales: introvert_extrovert (1=introvert, 10=extrovert), intuition_sensing, feeling_thinking, perceiving_judging
3. Motivations on 1-10 scales: convenience, wellness, speed, preferences, comfort, dietary_needs
4. Behavioral patterns and habits
5. Frustrations and pain points
6. Goals and needs
7. A key quote that represents the user, copied verbatim from their content

Every item above is labeled with its ID in square brackets. For every characteristic you report, you MUST cite the IDs of the items it came from, together with a short verbatim excerpt from that item. Do not invent IDs and do not cite anything outside the provided content. Omit characteristics with no supporting content.

Content to analyze:
%s
IMPORTANT: Respond ONLY with valid JSON in exactly this structure:
{
    "demographics": {"age": "...", "occupation": "...", "location": "...", "status": "..."},
    "personality": {"introvert_extrovert": 5, "intuition_sensing": 5, "feeling_thinking": 5, "perceiving_judging": 5},
    "motivations": {"convenience": 5, "wellness": 5, "speed": 5, "preferences": 5, "comfort": 5, "dietary_needs": 5},
    "behavior_habits": ["habit 1", "habit 2"],
    "frustrations": ["frustration 1"],
    "goals_needs": ["goal 1"],
    "key_quote": "verbatim quote",
    "citations": {
        "age": [{"id": "post:abc123", "excerpt": "verbatim fragment"}],
        "behavior_habits": [{"id": "comment:def456", "excerpt": "verbatim fragment"}],
        "key_quote": [{"id": "comment:ghi789", "excerpt": "verbatim quote"}]
    }
}`, username, content)
}
