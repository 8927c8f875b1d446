// Package templates holds the chart definitions, text components, datasets
// and slide layouts a new deployment starts with.
package templates

import (
	"context"
	"embed"
	"encoding/xml"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"slidecraft/backend/go/internal/deck_service/store"
	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/pkg/chart"
)

//go:embed assets
var assets embed.FS

// component is the identifying part of a chart or text component document.
type component struct {
	ID    string `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"Title"`
	Chart *struct {
		ID    string `xml:"id,attr"`
		Type  string `xml:"type,attr"`
		Title string `xml:"Title"`
	} `xml:"Chart"`
	ChartConfig *struct {
		Type  string `xml:"type,attr"`
		Title string `xml:"title,attr"`
	} `xml:"ChartConfig"`
}

func readDir(dir string) (map[string]string, error) {
	entries, err := fs.ReadDir(assets, path.Join("assets", dir))
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := fs.ReadFile(assets, path.Join("assets", dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out[strings.TrimSuffix(e.Name(), path.Ext(e.Name()))] = string(b)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Charts returns the template chart definitions, ordered by id. The file
// name is the fallback id when the document carries none.
func Charts() ([]*models.Chart, error) {
	docs, err := readDir("charts")
	if err != nil {
		return nil, err
	}
	charts := make([]*models.Chart, 0, len(docs))
	for _, key := range sortedKeys(docs) {
		var c component
		if err := xml.Unmarshal([]byte(docs[key]), &c); err != nil {
			return nil, fmt.Errorf("chart template %s: %w", key, err)
		}
		m := &models.Chart{ID: key, XML: docs[key], Type: c.Type, Name: c.Title}
		if c.Chart != nil {
			m.ID = firstNonEmpty(c.Chart.ID, c.ID, key)
			m.Type = firstNonEmpty(c.Chart.Type, m.Type)
			m.Name = firstNonEmpty(c.Chart.Title, m.Name)
		}
		if c.ChartConfig != nil {
			m.Type = firstNonEmpty(c.ChartConfig.Type, m.Type)
			m.Name = firstNonEmpty(c.ChartConfig.Title, m.Name)
		}
		m.Type = firstNonEmpty(m.Type, "bar")
		m.Name = firstNonEmpty(m.Name, m.ID)
		charts = append(charts, m)
	}
	return charts, nil
}

// TextComponents returns the template text components, ordered by id.
func TextComponents() ([]*models.TextComponent, error) {
	docs, err := readDir("texts")
	if err != nil {
		return nil, err
	}
	texts := make([]*models.TextComponent, 0, len(docs))
	for _, key := range sortedKeys(docs) {
		var c component
		if err := xml.Unmarshal([]byte(docs[key]), &c); err != nil {
			return nil, fmt.Errorf("text template %s: %w", key, err)
		}
		id := firstNonEmpty(c.ID, key)
		texts = append(texts, &models.TextComponent{ID: id, Name: firstNonEmpty(c.Name, id), XML: docs[key]})
	}
	return texts, nil
}

// Layouts returns the slide layouts of the sample deck in slide order.
func Layouts() ([]string, error) {
	docs, err := readDir("layouts")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, key := range sortedKeys(docs) {
		out = append(out, docs[key])
	}
	return out, nil
}

// Datasets returns the template datasets keyed by data source id.
func Datasets() (map[string]chart.Dataset, error) {
	docs, err := readDir("data")
	if err != nil {
		return nil, err
	}
	out := make(map[string]chart.Dataset, len(docs))
	for id, raw := range docs {
		ds, err := chart.ParseJSONDataset(raw)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", id, err)
		}
		out[id] = ds
	}
	return out, nil
}

// SeedResult counts what Seed inserted.
type SeedResult struct {
	Charts         int `json:"charts"`
	TextComponents int `json:"textComponents"`
}

// Seed inserts every template chart and text component that the store does
// not have yet. Existing records are left untouched.
func Seed(ctx context.Context, s store.Store) (SeedResult, error) {
	var res SeedResult
	now := time.Now().UTC()

	charts, err := Charts()
	if err != nil {
		return res, err
	}
	var missingCharts []*models.Chart
	for _, c := range charts {
		existing, err := s.GetChart(ctx, c.ID)
		if err != nil {
			return res, fmt.Errorf("look up chart %s: %w", c.ID, err)
		}
		if existing == nil {
			c.CreatedAt = now
			missingCharts = append(missingCharts, c)
		}
	}
	if len(missingCharts) > 0 {
		if err := s.CreateCharts(ctx, missingCharts); err != nil {
			return res, fmt.Errorf("seed charts: %w", err)
		}
	}
	res.Charts = len(missingCharts)

	texts, err := TextComponents()
	if err != nil {
		return res, err
	}
	var missingTexts []*models.TextComponent
	for _, t := range texts {
		existing, err := s.GetTextComponent(ctx, t.ID)
		if err != nil {
			return res, fmt.Errorf("look up text component %s: %w", t.ID, err)
		}
		if existing == nil {
			t.CreatedAt = now
			missingTexts = append(missingTexts, t)
		}
	}
	if len(missingTexts) > 0 {
		if err := s.CreateTextComponents(ctx, missingTexts); err != nil {
			return res, fmt.Errorf("seed text components: %w", err)
		}
	}
	res.TextComponents = len(missingTexts)
	return res, nil
}

// Catalog is the set of datasets charts can refer to by data source id.
// It starts from the embedded templates and grows with uploaded workbooks.
type Catalog struct {
	mu      sync.RWMutex
	data    map[string]chart.Dataset
	version uint64
}

// NewCatalog loads the embedded datasets.
func NewCatalog() (*Catalog, error) {
	data, err := Datasets()
	if err != nil {
		return nil, err
	}
	return &Catalog{data: data}, nil
}

// EmptyCatalog returns a catalog without the embedded datasets.
func EmptyCatalog() *Catalog {
	return &Catalog{data: map[string]chart.Dataset{}}
}

// Merge adds or replaces datasets.
func (c *Catalog) Merge(sets map[string]chart.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ds := range sets {
		c.data[id] = ds
	}
	c.version++
}

// Version changes every time Merge runs.
func (c *Catalog) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Snapshot returns a copy of the catalog map.
func (c *Catalog) Snapshot() map[string]chart.Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]chart.Dataset, len(c.data))
	for id, ds := range c.data {
		out[id] = ds
	}
	return out
}

// IDs lists the dataset ids in sorted order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.data)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
