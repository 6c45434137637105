package model

import (
	"testing"
	"time"
)

func TestNewCorpus_RejectsDuplicateIDs(t *testing.T) {
	items := []ContentItem{
		{ID: "comment:a", Body: "one"},
		{ID: "comment:a", Body: "two"},
	}

	if _, err := NewCorpus("alice", items); err == nil {
		t.Error("Expected error for duplicate IDs")
	}
}

func TestCorpus_Lookup(t *testing.T) {
	corp, err := NewCorpus("alice", []ContentItem{
		{ID: "post:p1", Body: "post body"},
		{ID: "comment:c1", Body: "comment body"},
	})
	if err != nil {
		t.Fatalf("NewCorpus failed: %v", err)
	}

	item, ok := corp.Lookup("comment:c1")
	if !ok || item.Body != "comment body" {
		t.Errorf("Expected comment lookup, got %+v ok=%v", item, ok)
	}

	if _, ok := corp.Lookup("comment:nope"); ok {
		t.Error("Expected miss for unknown ID")
	}
}

func TestCorpus_Subset_PreservesOrder(t *testing.T) {
	corp, err := NewCorpus("alice", []ContentItem{
		{ID: "comment:a", Body: "1"},
		{ID: "comment:b", Body: "2"},
		{ID: "comment:c", Body: "3"},
	})
	if err != nil {
		t.Fatalf("NewCorpus failed: %v", err)
	}

	sub := corpusIDs(corp.Subset([]string{"comment:c", "comment:a", "comment:unknown"}))
	if len(sub) != 2 || sub[0] != "comment:a" || sub[1] != "comment:c" {
		t.Errorf("Expected parent order preserved and unknowns dropped, got %v", sub)
	}
}

func corpusIDs(c *Corpus) []string {
	var ids []string
	for _, item := range c.Items() {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestAttribute_Strength(t *testing.T) {
	attr := Attribute{Citations: []Citation{
		{Strength: MatchFuzzy},
		{Strength: MatchExact},
	}}
	if attr.Strength() != MatchExact {
		t.Errorf("Expected strongest citation, got %s", attr.Strength())
	}

	if (Attribute{}).Strength() != MatchNone {
		t.Error("Expected MatchNone for no citations")
	}
}

func TestAttribute_NewestCitation(t *testing.T) {
	older := time.Unix(1000, 0).UTC()
	newer := time.Unix(2000, 0).UTC()
	attr := Attribute{Citations: []Citation{{Timestamp: older}, {Timestamp: newer}}}

	if !attr.NewestCitation().Equal(newer) {
		t.Errorf("Expected newest timestamp, got %v", attr.NewestCitation())
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrProviderRateLimit) || !IsRetryable(ErrModelUnavailable) || !IsRetryable(ErrModelTimeout) {
		t.Error("Expected transient sentinels retryable")
	}
	if IsRetryable(ErrUserNotFound) || IsRetryable(&EmptyCorpusError{Username: "x"}) {
		t.Error("Expected permanent failures not retryable")
	}
}
