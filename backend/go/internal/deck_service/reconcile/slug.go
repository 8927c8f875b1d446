package reconcile

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonWord       = regexp.MustCompile(`[^\w-]+`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
)

// Slugify turns a slide title into its lookup key:
// "Executive Summary, Q1 2024!" becomes "executive-summary-q1-2024".
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = nonWord.ReplaceAllString(s, "")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Match is the confidence of a resolution.
type Match int

const (
	MatchNone Match = iota
	MatchExact
	MatchFuzzy
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchFuzzy:
		return "fuzzy"
	}
	return "none"
}

// Resolution is the outcome of resolving a slide reference.
type Resolution struct {
	SlideID string
	// Slug is the map key that matched, empty for a direct slide id hit.
	Slug  string
	Match Match
}

// Resolver maps title slugs to stable slide ids for one stream session.
type Resolver struct {
	order  []string
	bySlug map[string]string
	ids    map[string]struct{}
}

func NewResolver() *Resolver {
	return &Resolver{bySlug: map[string]string{}, ids: map[string]struct{}{}}
}

// Reset forgets every mapping.
func (r *Resolver) Reset() {
	r.order = nil
	r.bySlug = map[string]string{}
	r.ids = map[string]struct{}{}
}

// Add maps the slug of title to slideID and returns the slug. A repeated
// slug is remapped to the newer slide and keeps its original position in
// the fallback order.
func (r *Resolver) Add(title, slideID string) string {
	slug := Slugify(title)
	if slideID != "" {
		r.ids[slideID] = struct{}{}
	}
	if slug == "" {
		return ""
	}
	if _, ok := r.bySlug[slug]; !ok {
		r.order = append(r.order, slug)
	}
	r.bySlug[slug] = slideID
	return slug
}

func (r *Resolver) Len() int { return len(r.bySlug) }

// Resolve finds the slide a content message refers to. Exact hits are a
// known slide id, a slug key, or the slug of ref. Otherwise the first slug,
// in insertion order, that contains the slugged ref or is contained by it is
// a fuzzy hit.
func (r *Resolver) Resolve(ref string) Resolution {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Resolution{}
	}
	if _, ok := r.ids[ref]; ok {
		return Resolution{SlideID: ref, Match: MatchExact}
	}
	if id, ok := r.bySlug[ref]; ok {
		return Resolution{SlideID: id, Slug: ref, Match: MatchExact}
	}
	key := Slugify(ref)
	if key == "" {
		return Resolution{}
	}
	if id, ok := r.bySlug[key]; ok {
		return Resolution{SlideID: id, Slug: key, Match: MatchExact}
	}
	for _, slug := range r.order {
		if strings.Contains(slug, key) || strings.Contains(key, slug) {
			return Resolution{SlideID: r.bySlug[slug], Slug: slug, Match: MatchFuzzy}
		}
	}
	return Resolution{}
}
