package chart

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

// Cell is one named value inside a Row.
type Cell struct {
	Name  string
	Value any
}

// Row is an ordered mapping from field name to a scalar (string, float64,
// bool or time.Time). Field order follows the source so that series keys
// come out in a reproducible order.
type Row struct {
	cells []Cell
}

// RowOf builds a row from alternating name/value pairs.
func RowOf(kv ...any) Row {
	var r Row
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return r
}

// Set replaces or appends a field.
func (r *Row) Set(name string, v any) {
	for i := range r.cells {
		if r.cells[i].Name == name {
			r.cells[i].Value = v
			return
		}
	}
	r.cells = append(r.cells, Cell{Name: name, Value: v})
}

// Get returns the raw value of a field.
func (r Row) Get(name string) (any, bool) {
	for _, c := range r.cells {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Keys returns the field names in source order.
func (r Row) Keys() []string {
	keys := make([]string, len(r.cells))
	for i, c := range r.cells {
		keys[i] = c.Name
	}
	return keys
}

// Cells returns a copy of the row's cells.
func (r Row) Cells() []Cell {
	return append([]Cell(nil), r.cells...)
}

// Len is the number of fields.
func (r Row) Len() int { return len(r.cells) }

// Number returns the field as a finite float. Missing, non-numeric and
// non-finite values report false.
func (r Row) Number(name string) (float64, bool) {
	v, ok := r.Get(name)
	if !ok {
		return 0, false
	}
	return toNumber(v)
}

// Text returns the field formatted as display text, or "" when absent.
func (r Row) Text(name string) string {
	v, ok := r.Get(name)
	if !ok || v == nil {
		return ""
	}
	return formatValue(v)
}

// Time returns the field as a time when it holds a date.
func (r Row) Time(name string) (time.Time, bool) {
	v, ok := r.Get(name)
	if !ok {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{"2006-01-02", time.RFC3339} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// MarshalJSON keeps field order when a row is sent to clients.
func (r Row) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range r.cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(c.Name))
		b.WriteByte(':')
		switch v := c.Value.(type) {
		case float64:
			if isFinite(v) {
				b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				b.WriteString("null")
			}
		case bool:
			b.WriteString(strconv.FormatBool(v))
		case nil:
			b.WriteString("null")
		case time.Time:
			b.WriteString(strconv.Quote(v.Format(time.RFC3339)))
		default:
			b.WriteString(strconv.Quote(fmt.Sprint(v)))
		}
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case nil, bool, time.Time:
		return 0, false
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, false
		}
		v = strings.TrimSpace(t)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return formatNumber(t)
	case time.Time:
		return t.Format("2006-01-02")
	case string:
		return t
	}
	return cast.ToString(v)
}

// formatNumber renders a float the way a JavaScript number prints.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		s = strings.Replace(s, "e-0", "e-", 1)
		s = strings.Replace(s, "e+0", "e+", 1)
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CoerceValue turns an attribute string into a number when it round-trips
// exactly, otherwise it is returned unchanged.
func CoerceValue(s string) any {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(f) {
		return s
	}
	if formatNumber(f) != s {
		return s
	}
	return f
}

// GraphNode is one vertex of a network chart.
type GraphNode struct {
	ID    string  `json:"id"`
	Group string  `json:"group,omitempty"`
	Size  float64 `json:"size,omitempty"`
	Title string  `json:"title,omitempty"`
}

// GraphLink joins two nodes by id.
type GraphLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value,omitempty"`
}

// Graph is the input of the network renderer.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Dataset is what a renderer draws: tabular rows, or a graph for network charts.
type Dataset struct {
	Rows  []Row  `json:"rows,omitempty"`
	Graph *Graph `json:"graph,omitempty"`
}

// Empty reports whether the dataset holds nothing drawable.
func (d Dataset) Empty() bool {
	return len(d.Rows) == 0 && (d.Graph == nil || len(d.Graph.Nodes) == 0)
}

// InlineData extracts the rows embedded in the chart document.
func (c *Config) InlineData() Dataset {
	if c.data == nil {
		return Dataset{}
	}
	return extractInline(c.data)
}

func extractInline(d *xmlData) Dataset {
	var ds Dataset
	for _, xr := range d.Rows {
		var row Row
		for _, f := range xr.Fields {
			if f.Name == "" {
				continue
			}
			raw := f.Text
			if f.Value != nil {
				raw = *f.Value
			}
			row.Set(f.Name, CoerceValue(raw))
		}
		ds.Rows = append(ds.Rows, row)
	}
	if len(d.Nodes) > 0 {
		g := &Graph{}
		for _, n := range d.Nodes {
			g.Nodes = append(g.Nodes, GraphNode{ID: n.ID, Group: n.Group, Size: parseNumber(n.Size, 0), Title: n.Title})
		}
		for _, l := range d.Links {
			g.Links = append(g.Links, GraphLink{Source: l.Source, Target: l.Target, Value: parseNumber(l.Value, 0)})
		}
		ds.Graph = g
	}
	if ds.Empty() && strings.TrimSpace(d.Content) != "" {
		if parsed, err := contentData(d.Content); err == nil {
			return parsed
		}
	}
	return ds
}

// contentData reads a Content element holding either JSON or a nested Data document.
func contentData(content string) (Dataset, error) {
	content = strings.TrimSpace(content)
	if gjson.Valid(content) {
		return ParseJSONDataset(content)
	}
	var d xmlData
	if err := xml.Unmarshal([]byte(content), &d); err != nil {
		return Dataset{}, fmt.Errorf("content is neither JSON nor a Data document: %w", err)
	}
	return extractInline(&d), nil
}

// ParseJSONDataset decodes a template dataset: an array of objects, an
// object with a rows/data array, or an object with nodes and links.
func ParseJSONDataset(raw string) (Dataset, error) {
	if !gjson.Valid(raw) {
		return Dataset{}, fmt.Errorf("dataset is not valid JSON")
	}
	res := gjson.Parse(raw)
	switch {
	case res.IsArray():
		return Dataset{Rows: jsonRows(res)}, nil
	case res.IsObject():
		if nodes := res.Get("nodes"); nodes.IsArray() {
			return Dataset{Graph: jsonGraph(res)}, nil
		}
		for _, key := range []string{"rows", "data"} {
			if arr := res.Get(key); arr.IsArray() {
				return Dataset{Rows: jsonRows(arr)}, nil
			}
		}
	}
	return Dataset{}, fmt.Errorf("unsupported dataset shape")
}

func jsonRows(arr gjson.Result) []Row {
	var rows []Row
	arr.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		var row Row
		item.ForEach(func(key, value gjson.Result) bool {
			row.Set(key.String(), jsonScalar(value))
			return true
		})
		rows = append(rows, row)
		return true
	})
	return rows
}

func jsonGraph(res gjson.Result) *Graph {
	g := &Graph{}
	res.Get("nodes").ForEach(func(_, n gjson.Result) bool {
		g.Nodes = append(g.Nodes, GraphNode{
			ID:    n.Get("id").String(),
			Group: n.Get("group").String(),
			Size:  n.Get("size").Float(),
			Title: n.Get("title").String(),
		})
		return true
	})
	res.Get("links").ForEach(func(_, l gjson.Result) bool {
		g.Links = append(g.Links, GraphLink{
			Source: l.Get("source").String(),
			Target: l.Get("target").String(),
			Value:  l.Get("value").Float(),
		})
		return true
	})
	return g
}

func jsonScalar(v gjson.Result) any {
	switch v.Type {
	case gjson.Number:
		return v.Float()
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Null:
		return nil
	case gjson.String:
		return v.Str
	}
	return v.Raw
}
