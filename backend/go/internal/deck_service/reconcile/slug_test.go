package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Executive Summary, Q1 2024!": "executive-summary-q1-2024",
		"  Market   Overview ":        "market-overview",
		"Risks -- and Mitigations":    "risks-and-mitigations",
		"Café & Co":                   "caf-co",
		"snake_case stays":            "snake_case-stays",
		"!!!":                         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestResolver(t *testing.T) {
	r := NewResolver()
	assert.Equal(t, "executive-summary-q1-2024", r.Add("Executive Summary, Q1 2024!", "s1"))
	r.Add("Market Overview", "s2")
	r.Add("Summary of Risks", "s3")
	assert.Equal(t, 3, r.Len())

	tests := []struct {
		ref   string
		want  string
		match Match
	}{
		{"executive-summary-q1-2024", "s1", MatchExact},
		{"Executive Summary, Q1 2024!", "s1", MatchExact},
		{"s2", "s2", MatchExact},
		{"summary-q1", "s1", MatchFuzzy},
		{"market", "s2", MatchFuzzy},
		{"appendix-market-overview-details", "s2", MatchFuzzy},
		{"of-risks", "s3", MatchFuzzy},
		{"roadmap", "", MatchNone},
		{"", "", MatchNone},
		{"???", "", MatchNone},
	}
	for _, tt := range tests {
		res := r.Resolve(tt.ref)
		assert.Equal(t, tt.match, res.Match, tt.ref)
		assert.Equal(t, tt.want, res.SlideID, tt.ref)
	}
}

func TestResolver_FuzzyPrefersInsertionOrder(t *testing.T) {
	r := NewResolver()
	r.Add("Summary", "first")
	r.Add("Executive Summary", "second")
	res := r.Resolve("summ")
	assert.Equal(t, MatchFuzzy, res.Match)
	assert.Equal(t, "first", res.SlideID)
	assert.Equal(t, "summary", res.Slug)
}

func TestResolver_ResetAndEmptyTitles(t *testing.T) {
	r := NewResolver()
	assert.Empty(t, r.Add("!!!", "bare"))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, MatchExact, r.Resolve("bare").Match)
	assert.Equal(t, MatchNone, r.Resolve("anything").Match)

	r.Add("Intro", "i")
	r.Reset()
	assert.Equal(t, MatchNone, r.Resolve("intro").Match)
	assert.Equal(t, MatchNone, r.Resolve("bare").Match)
}
