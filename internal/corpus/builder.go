// Package corpus normalizes raw provider records into the immutable,
// id-indexed content set that all later stages resolve citations against.
package corpus

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"personaforge/internal/model"
	"personaforge/internal/reddit"
)

// Builder turns raw provider records into a Corpus
type Builder struct{}

// NewBuilder creates a corpus builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build normalizes records into a Corpus. Fails with EmptyCorpusError when
// no eligible item remains; the caller must treat that as a hard stop
// before any model call.
func (b *Builder) Build(username string, records []reddit.Record) (*model.Corpus, error) {
	var items []model.ContentItem
	for _, rec := range records {
		item, ok := normalize(rec)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, &model.EmptyCorpusError{Username: username}
	}

	// Stable order: newest first, ID breaks timestamp ties.
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].ID < items[j].ID
	})

	return model.NewCorpus(username, items)
}

// normalize maps one record to a ContentItem, reporting false for items
// with no usable text.
func normalize(rec reddit.Record) (model.ContentItem, bool) {
	body := rec.Body
	if body == "" && rec.BodyHTML != "" {
		body = VisibleText(rec.BodyHTML)
	}

	if rec.Kind == model.KindPost {
		title := strings.TrimSpace(rec.Title)
		if title != "" && body != "" {
			body = title + "\n\n" + body
		} else if title != "" {
			body = title
		}
	}

	body = strings.TrimSpace(body)
	if body == "" || body == "[deleted]" || body == "[removed]" {
		return model.ContentItem{}, false
	}

	return model.ContentItem{
		ID:        ItemID(rec.Kind, rec.NativeID),
		NativeID:  rec.NativeID,
		Kind:      rec.Kind,
		Subreddit: rec.Subreddit,
		Timestamp: time.Unix(int64(rec.CreatedUTC), 0).UTC(),
		URL:       "https://reddit.com" + rec.Permalink,
		Permalink: rec.Permalink,
		Body:      body,
	}, true
}

// ItemID builds the kind-tagged corpus ID. Posts and comments share a
// provider ID namespace, so the kind tag prevents collisions.
func ItemID(kind model.ContentKind, nativeID string) string {
	return fmt.Sprintf("%s:%s", kind, nativeID)
}

// VisibleText extracts text nodes from an HTML fragment, skipping
// script/style subtrees.
func VisibleText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return buf.String()
}
