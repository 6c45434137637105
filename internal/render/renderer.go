// Package render turns an assembled persona into its presentation forms.
// Rendering is fully deterministic given the persona: fixed section order,
// fixed field names, every citation shown as a human-followable reference.
package render

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"personaforge/internal/model"
)

var sectionTitles = map[model.Category]string{
	model.CategoryDemographic: "DEMOGRAPHICS",
	model.CategoryPersonality: "PERSONALITY TRAITS",
	model.CategoryMotivation:  "MOTIVATIONS",
	model.CategoryBehavior:    "BEHAVIOR & HABITS",
	model.CategoryFrustration: "FRUSTRATIONS",
	model.CategoryGoal:        "GOALS & NEEDS",
}

var personalityLabels = map[string]struct {
	label string
	low   string
	high  string
}{
	"introvert_extrovert": {"Introvert/Extrovert", "Introvert", "Extrovert"},
	"intuition_sensing":   {"Intuition/Sensing", "Intuition", "Sensing"},
	"feeling_thinking":    {"Feeling/Thinking", "Feeling", "Thinking"},
	"perceiving_judging":  {"Perceiving/Judging", "Perceiving", "Judging"},
}

// Renderer renders personas to text and JSON
type Renderer struct {
	includeDiagnostics bool
}

// NewRenderer creates a renderer. includeDiagnostics appends the
// diagnostics section used in debug runs.
func NewRenderer(includeDiagnostics bool) *Renderer {
	return &Renderer{includeDiagnostics: includeDiagnostics}
}

// RenderText renders the fixed-section text document
func (r *Renderer) RenderText(p *model.Persona) string {
	var b strings.Builder

	line := strings.Repeat("=", 60)
	rule := strings.Repeat("-", 20)

	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "USER PERSONA: %s\n", strings.ToUpper(p.Username))
	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "Archetype: %s\n", p.Archetype)
	fmt.Fprintf(&b, "Tier: %s\n", p.Tier)
	b.WriteString("\n")

	for _, group := range p.Groups {
		fmt.Fprintf(&b, "%s\n%s\n", sectionTitles[group.Category], rule)

		if group.Insufficient {
			fmt.Fprintf(&b, "(%s)\n\n", model.InsufficientEvidence)
			continue
		}

		for _, attr := range group.Attributes {
			b.WriteString(formatAttribute(attr))
			writeCitations(&b, attr.Citations)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "KEY QUOTE\n%s\n", rule)
	if p.KeyQuote != nil {
		fmt.Fprintf(&b, "%q\n", p.KeyQuote.Value)
		writeCitations(&b, p.KeyQuote.Citations)
	} else {
		fmt.Fprintf(&b, "(%s)\n", model.InsufficientEvidence)
	}
	b.WriteString("\n")

	if r.includeDiagnostics {
		writeDiagnostics(&b, p, rule)
	}

	return b.String()
}

func formatAttribute(attr model.Attribute) string {
	switch attr.Category {
	case model.CategoryPersonality:
		if meta, ok := personalityLabels[attr.Key]; ok && attr.Scale > 0 {
			side := meta.low
			if attr.Scale > 5 {
				side = meta.high
			}
			return fmt.Sprintf("%s: %s (%d/10)\n", meta.label, side, attr.Scale)
		}
	case model.CategoryMotivation:
		if attr.Scale > 0 {
			return fmt.Sprintf("%s: %d/10\n", titleKey(attr.Key), attr.Scale)
		}
	case model.CategoryBehavior, model.CategoryFrustration, model.CategoryGoal:
		return fmt.Sprintf("• %s\n", attr.Value)
	}
	return fmt.Sprintf("%s: %s\n", titleKey(attr.Key), attr.Value)
}

func writeCitations(b *strings.Builder, citations []model.Citation) {
	if len(citations) == 0 {
		return
	}
	fmt.Fprintf(b, "   Citations:\n")
	for _, c := range citations {
		fmt.Fprintf(b, "   - [%s] %s r/%s (%s match)\n",
			strings.ToUpper(string(c.Kind)), c.Timestamp.Format("2006-01-02"), c.Subreddit, c.Strength)
		fmt.Fprintf(b, "     %q\n", c.Excerpt)
		fmt.Fprintf(b, "     %s\n", c.URL)
	}
}

func writeDiagnostics(b *strings.Builder, p *model.Persona, rule string) {
	d := p.Diagnostics
	fmt.Fprintf(b, "DIAGNOSTICS\n%s\n", rule)
	fmt.Fprintf(b, "Run: %s (%s/%s)\n", p.RunID, p.Provider, p.Model)
	fmt.Fprintf(b, "Corpus items: %d (%d compiled into prompt)\n", d.CorpusSize, d.CompiledItems)
	fmt.Fprintf(b, "Candidates: %d, grounded: %d, rejected: %d\n", d.Candidates, d.Grounded, d.Rejected)
	if d.ParserFallback {
		fmt.Fprintf(b, "Parser: lenient fallback used\n")
	}
	for _, reason := range d.RejectReasons {
		fmt.Fprintf(b, "- rejected: %s\n", reason)
	}
	b.WriteString("\n")
}

func titleKey(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// RenderJSON renders the persona as an indented JSON document
func (r *Renderer) RenderJSON(p *model.Persona) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal persona: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteText writes the text document to path
func (r *Renderer) WriteText(p *model.Persona, path string) error {
	if err := os.WriteFile(path, []byte(r.RenderText(p)), 0644); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}

// WriteJSON writes the JSON document to path
func (r *Renderer) WriteJSON(p *model.Persona, path string) error {
	data, err := r.RenderJSON(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write JSON report: %w", err)
	}
	return nil
}
