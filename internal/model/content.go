package model

import (
	"fmt"
	"time"
)

// ContentKind classifies a content item as a post or a comment
type ContentKind string

const (
	KindPost    ContentKind = "post"
	KindComment ContentKind = "comment"
)

// ContentItem is one normalized post or comment from the provider.
// Immutable once built; owned by the Corpus.
type ContentItem struct {
	ID        string      `json:"id"`        // Kind-tagged unique ID, e.g. "post:abc123"
	NativeID  string      `json:"native_id"` // Provider-native ID
	Kind      ContentKind `json:"kind"`
	Subreddit string      `json:"subreddit"`
	Timestamp time.Time   `json:"timestamp"`
	URL       string      `json:"url"`
	Permalink string      `json:"permalink"`
	Body      string      `json:"body"` // Title + selftext for posts, body for comments
}

// Corpus is the ordered, id-indexed set of a user's content for one run.
// Built once, read-only thereafter.
type Corpus struct {
	Username string
	items    []ContentItem
	index    map[string]int
}

// NewCorpus builds a corpus from normalized items. IDs must be unique.
func NewCorpus(username string, items []ContentItem) (*Corpus, error) {
	index := make(map[string]int, len(items))
	for i, item := range items {
		if _, dup := index[item.ID]; dup {
			return nil, fmt.Errorf("duplicate content id: %s", item.ID)
		}
		index[item.ID] = i
	}
	return &Corpus{Username: username, items: items, index: index}, nil
}

// Len returns the number of items in the corpus.
func (c *Corpus) Len() int {
	return len(c.items)
}

// Items returns the ordered items. Callers must not mutate the slice.
func (c *Corpus) Items() []ContentItem {
	return c.items
}

// Lookup resolves an item by ID.
func (c *Corpus) Lookup(id string) (ContentItem, bool) {
	i, ok := c.index[id]
	if !ok {
		return ContentItem{}, false
	}
	return c.items[i], true
}

// Subset returns a new corpus containing only the given IDs, preserving the
// receiver's item order. Unknown IDs are ignored.
func (c *Corpus) Subset(ids []string) *Corpus {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	var items []ContentItem
	for _, item := range c.items {
		if keep[item.ID] {
			items = append(items, item)
		}
	}

	sub, _ := NewCorpus(c.Username, items) // IDs already unique in the parent
	return sub
}
