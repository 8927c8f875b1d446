package chart

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidDefinition is returned when a chart document has no usable ChartDefinition root.
var ErrInvalidDefinition = errors.New("invalid chart definition")

const (
	defaultWidth  = 400
	defaultHeight = 300
)

// Encoding roles in the order fields are reported.
var encodingRoles = []string{"x", "y", "size", "color", "fill"}

// Dimensions is the outer size of a chart.
type Dimensions struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Responsive bool    `json:"responsive"`
}

// Margin is the space reserved around the plot for axes and titles.
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// AxisConfig describes one axis guide.
type AxisConfig struct {
	Label     string `json:"label,omitempty"`
	Scale     string `json:"scale"`
	GridLines bool   `json:"gridLines"`
}

// Field maps a data field onto a visual role.
type Field struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	DataType string `json:"dataType"`
	Title    string `json:"title,omitempty"`
	Format   string `json:"format,omitempty"`
}

// Label returns the title of the field, or its name when untitled.
func (f Field) Label() string {
	if f.Title != "" {
		return f.Title
	}
	return f.Name
}

// DataSource references a dataset supplied outside the chart document.
type DataSource struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
}

// Forces tunes the network layout simulation.
type Forces struct {
	LinkDistance   float64 `json:"linkDistance"`
	Charge         float64 `json:"charge"`
	CollideRadius  float64 `json:"collideRadius"`
	CenterStrength float64 `json:"centerStrength"`
}

// DefaultForces are used when the document does not override them.
func DefaultForces() Forces {
	return Forces{LinkDistance: 80, Charge: -300, CollideRadius: 25, CenterStrength: 1}
}

// Rect is a plot rectangle in pixels.
type Rect struct {
	Width  float64
	Height float64
}

// Config is one parsed chart definition. It is built once per render pass and not mutated.
type Config struct {
	ID             string     `json:"id,omitempty"`
	Kind           Kind       `json:"kind"`
	TypeName       string     `json:"type"`
	Title          string     `json:"title,omitempty"`
	Subtitle       string     `json:"subtitle,omitempty"`
	Dimensions     Dimensions `json:"dimensions"`
	Margin         Margin     `json:"margin"`
	XAxis          AxisConfig `json:"xAxis"`
	YAxis          AxisConfig `json:"yAxis"`
	Fields         []Field    `json:"fields"`
	ColorScheme    string     `json:"colorScheme"`
	Opacity        float64    `json:"opacity,omitempty"`
	TooltipEnabled bool       `json:"tooltipEnabled"`
	TooltipFormat  string     `json:"tooltipFormat,omitempty"`
	DataSource     DataSource `json:"dataSource"`
	Forces         Forces     `json:"forces"`

	data *xmlData
}

// Inner returns the drawing rectangle inside the margins, clamped to zero.
func (c *Config) Inner() Rect {
	w := c.Dimensions.Width - c.Margin.Left - c.Margin.Right
	h := c.Dimensions.Height - c.Margin.Top - c.Margin.Bottom
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Rect{Width: w, Height: h}
}

// WithSize returns a copy of the config with new outer dimensions.
func (c *Config) WithSize(width, height float64) *Config {
	cp := *c
	cp.Fields = append([]Field(nil), c.Fields...)
	if width > 0 {
		cp.Dimensions.Width = width
	}
	if height > 0 {
		cp.Dimensions.Height = height
	}
	return &cp
}

// FieldFor returns the field mapped to role.
func (c *Config) FieldFor(role string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Role == role {
			return f, true
		}
	}
	return Field{}, false
}

// FieldName returns the field name mapped to role, or def.
func (c *Config) FieldName(role, def string) string {
	if f, ok := c.FieldFor(role); ok && f.Name != "" {
		return f.Name
	}
	return def
}

// HasInlineData reports whether the document carries its own data section with rows.
func (c *Config) HasInlineData() bool {
	d := c.data
	return d != nil && (len(d.Rows) > 0 || len(d.Nodes) > 0 || strings.TrimSpace(d.Content) != "")
}

type xmlDimensions struct {
	Width      string `xml:"width,attr"`
	Height     string `xml:"height,attr"`
	Responsive string `xml:"responsive,attr"`
}

type xmlMargins struct {
	Top    string `xml:"top,attr"`
	Right  string `xml:"right,attr"`
	Bottom string `xml:"bottom,attr"`
	Left   string `xml:"left,attr"`
}

type xmlAxis struct {
	Label     string `xml:"label,attr"`
	Scale     string `xml:"scale,attr"`
	GridLines string `xml:"gridLines,attr"`
}

type xmlAxes struct {
	X *xmlAxis `xml:"XAxis"`
	Y *xmlAxis `xml:"YAxis"`
}

type xmlField struct {
	Name     string  `xml:"name,attr"`
	Role     string  `xml:"role,attr"`
	DataType string  `xml:"dataType,attr"`
	Format   string  `xml:"format,attr"`
	Title    string  `xml:"title,attr"`
	Value    *string `xml:"value,attr"`
	Text     string  `xml:",chardata"`
}

type xmlDataMapping struct {
	Fields []xmlField `xml:"Field"`
}

type xmlChannel struct {
	Field string `xml:"field,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type xmlEncoding struct {
	X     *xmlChannel `xml:"X"`
	Y     *xmlChannel `xml:"Y"`
	Size  *xmlChannel `xml:"Size"`
	Color *xmlChannel `xml:"Color"`
	Fill  *xmlChannel `xml:"Fill"`
}

func (e *xmlEncoding) channel(role string) *xmlChannel {
	switch role {
	case "x":
		return e.X
	case "y":
		return e.Y
	case "size":
		return e.Size
	case "color":
		return e.Color
	case "fill":
		return e.Fill
	}
	return nil
}

type xmlDataSource struct {
	DataID      string `xml:"dataId,attr"`
	Placeholder string `xml:"placeholder,attr"`
	Type        string `xml:"type,attr"`
}

type xmlRow struct {
	Fields []xmlField `xml:"Field"`
}

type xmlNode struct {
	ID    string `xml:"id,attr"`
	Group string `xml:"group,attr"`
	Size  string `xml:"size,attr"`
	Title string `xml:"title,attr"`
}

type xmlLink struct {
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
	Value  string `xml:"value,attr"`
}

type xmlData struct {
	DataSource  *xmlDataSource  `xml:"DataSource"`
	DataMapping *xmlDataMapping `xml:"DataMapping"`
	Rows        []xmlRow        `xml:"Row"`
	Nodes       []xmlNode       `xml:"Node"`
	Links       []xmlLink       `xml:"Link"`
	Content     string          `xml:"Content"`
}

type xmlColors struct {
	Scheme string `xml:"scheme,attr"`
}

type xmlStyling struct {
	ColorScheme string     `xml:"ColorScheme"`
	Colors      *xmlColors `xml:"Colors"`
	Opacity     string     `xml:"Opacity"`
}

type xmlTooltip struct {
	Enabled string `xml:"enabled,attr"`
	Format  string `xml:"format,attr"`
}

type xmlInteractions struct {
	Tooltip *xmlTooltip `xml:"Tooltip"`
}

type xmlForce struct {
	Strength string `xml:"strength,attr"`
	Distance string `xml:"distance,attr"`
	Radius   string `xml:"radius,attr"`
}

type xmlForceSimulation struct {
	Center    *xmlForce `xml:"CenterForce"`
	Charge    *xmlForce `xml:"ChargeForce"`
	Link      *xmlForce `xml:"LinkForce"`
	Collision *xmlForce `xml:"CollisionForce"`
}

// xmlBlock is shared by the root, ChartConfig and Chart elements; the two
// document shapes differ only in where these sections live.
type xmlBlock struct {
	ID           string              `xml:"id,attr"`
	Type         string              `xml:"type,attr"`
	TitleAttr    string              `xml:"title,attr"`
	SubtitleAttr string              `xml:"subtitle,attr"`
	Title        string              `xml:"Title"`
	Subtitle     string              `xml:"Subtitle"`
	Description  string              `xml:"Description"`
	Dimensions   *xmlDimensions      `xml:"Dimensions"`
	Margins      *xmlMargins         `xml:"Margins"`
	Axes         *xmlAxes            `xml:"Axes"`
	Data         *xmlData            `xml:"Data"`
	DataSource   *xmlDataSource      `xml:"DataSource"`
	DataMapping  *xmlDataMapping     `xml:"DataMapping"`
	Encoding     *xmlEncoding        `xml:"Encoding"`
	Styling      *xmlStyling         `xml:"Styling"`
	Interactions *xmlInteractions    `xml:"Interactions"`
	Forces       *xmlForceSimulation `xml:"ForceSimulation"`
}

type xmlDefinition struct {
	XMLName     xml.Name  `xml:"ChartDefinition"`
	ChartConfig *xmlBlock `xml:"ChartConfig"`
	Chart       *xmlBlock `xml:"Chart"`
	xmlBlock
}

// ParseDefinition parses a chart definition document into a Config with
// every optional value defaulted. It never panics; any failure is reported
// as an error wrapping ErrInvalidDefinition.
func ParseDefinition(doc string) (*Config, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDefinition)
	}
	var def xmlDefinition
	if err := xml.Unmarshal([]byte(doc), &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	// ChartConfig wins over Chart, which wins over sections on the root.
	blocks := make([]*xmlBlock, 0, 3)
	if def.ChartConfig != nil {
		blocks = append(blocks, def.ChartConfig)
	}
	if def.Chart != nil {
		blocks = append(blocks, def.Chart)
	}
	blocks = append(blocks, &def.xmlBlock)

	pick := func(get func(b *xmlBlock) string) string {
		for _, b := range blocks {
			if v := strings.TrimSpace(get(b)); v != "" {
				return v
			}
		}
		return ""
	}

	cfg := &Config{
		ID:          pick(func(b *xmlBlock) string { return b.ID }),
		TypeName:    pick(func(b *xmlBlock) string { return b.Type }),
		Title:       pick(func(b *xmlBlock) string { return firstNonEmpty(b.TitleAttr, b.Title) }),
		Subtitle:    pick(func(b *xmlBlock) string { return firstNonEmpty(b.SubtitleAttr, b.Subtitle, b.Description) }),
		Dimensions:  Dimensions{Width: defaultWidth, Height: defaultHeight, Responsive: true},
		Margin:      Margin{Top: 20, Right: 20, Bottom: 40, Left: 40},
		XAxis:       AxisConfig{Scale: "linear"},
		YAxis:       AxisConfig{Scale: "linear"},
		ColorScheme: "category10",
		Forces:      DefaultForces(),
	}
	if cfg.TypeName == "" {
		cfg.TypeName = "bar"
	}
	cfg.Kind = ParseKind(cfg.TypeName)

	var (
		dims    *xmlDimensions
		margins *xmlMargins
		axes    *xmlAxes
		data    *xmlData
		source  *xmlDataSource
		mapping *xmlDataMapping
		enc     *xmlEncoding
		styling *xmlStyling
		inter   *xmlInteractions
		forces  *xmlForceSimulation
	)
	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		dims = orElse(b.Dimensions, dims)
		margins = orElse(b.Margins, margins)
		axes = orElse(b.Axes, axes)
		data = orElse(b.Data, data)
		source = orElse(b.DataSource, source)
		mapping = orElse(b.DataMapping, mapping)
		enc = orElse(b.Encoding, enc)
		styling = orElse(b.Styling, styling)
		inter = orElse(b.Interactions, inter)
		forces = orElse(b.Forces, forces)
	}
	if data != nil {
		source = orElse(data.DataSource, source)
		mapping = orElse(data.DataMapping, mapping)
	}

	if dims != nil {
		cfg.Dimensions.Width = parseNumber(dims.Width, defaultWidth)
		cfg.Dimensions.Height = parseNumber(dims.Height, defaultHeight)
		cfg.Dimensions.Responsive = dims.Responsive != "false"
	}
	if margins != nil {
		cfg.Margin = Margin{
			Top:    parseNumber(margins.Top, cfg.Margin.Top),
			Right:  parseNumber(margins.Right, cfg.Margin.Right),
			Bottom: parseNumber(margins.Bottom, cfg.Margin.Bottom),
			Left:   parseNumber(margins.Left, cfg.Margin.Left),
		}
	}
	if axes != nil {
		cfg.XAxis = axisConfig(axes.X)
		cfg.YAxis = axisConfig(axes.Y)
	}
	cfg.Fields = buildFields(enc, mapping)
	if cfg.XAxis.Label == "" {
		if f, ok := cfg.FieldFor("x"); ok {
			cfg.XAxis.Label = f.Title
		}
	}
	if cfg.YAxis.Label == "" {
		if f, ok := cfg.FieldFor("y"); ok {
			cfg.YAxis.Label = f.Title
		}
	}
	if styling != nil {
		if s := strings.TrimSpace(styling.ColorScheme); s != "" {
			cfg.ColorScheme = s
		} else if styling.Colors != nil && strings.TrimSpace(styling.Colors.Scheme) != "" {
			cfg.ColorScheme = strings.TrimSpace(styling.Colors.Scheme)
		}
		cfg.Opacity = parseNumber(styling.Opacity, 0)
	}
	cfg.TooltipEnabled = true
	if inter != nil && inter.Tooltip != nil {
		cfg.TooltipEnabled = inter.Tooltip.Enabled != "false"
		cfg.TooltipFormat = inter.Tooltip.Format
	}
	if source != nil {
		cfg.DataSource = DataSource{
			ID:   firstNonEmpty(strings.TrimSpace(source.DataID), strings.TrimSpace(source.Placeholder)),
			Type: source.Type,
		}
	}
	if forces != nil {
		if forces.Link != nil {
			cfg.Forces.LinkDistance = parseNumber(forces.Link.Distance, cfg.Forces.LinkDistance)
		}
		if forces.Charge != nil {
			cfg.Forces.Charge = parseNumber(forces.Charge.Strength, cfg.Forces.Charge)
		}
		if forces.Collision != nil {
			cfg.Forces.CollideRadius = parseNumber(forces.Collision.Radius, cfg.Forces.CollideRadius)
		}
		if forces.Center != nil {
			cfg.Forces.CenterStrength = parseNumber(forces.Center.Strength, cfg.Forces.CenterStrength)
		}
	}
	cfg.data = data
	return cfg, nil
}

// buildFields emits encoding roles first in x, y, size, color, fill order and
// then any other mapped fields in document order.
func buildFields(enc *xmlEncoding, mapping *xmlDataMapping) []Field {
	byRole := make(map[string]Field)
	if mapping != nil {
		for _, f := range mapping.Fields {
			role := strings.ToLower(strings.TrimSpace(f.Role))
			if _, seen := byRole[role]; seen || role == "" {
				continue
			}
			byRole[role] = Field{
				Name:     f.Name,
				Role:     role,
				DataType: firstNonEmpty(f.DataType, "string"),
				Title:    f.Title,
				Format:   f.Format,
			}
		}
	}
	if enc != nil {
		for _, role := range encodingRoles {
			ch := enc.channel(role)
			if ch == nil || ch.Field == "" {
				continue
			}
			byRole[role] = Field{
				Name:     ch.Field,
				Role:     role,
				DataType: firstNonEmpty(ch.Type, "quantitative"),
				Title:    ch.Title,
			}
		}
	}

	fields := make([]Field, 0, len(byRole))
	for _, role := range encodingRoles {
		if f, ok := byRole[role]; ok {
			fields = append(fields, f)
		}
	}
	if mapping != nil {
		for _, f := range mapping.Fields {
			role := strings.ToLower(strings.TrimSpace(f.Role))
			if isEncodingRole(role) || role == "" {
				continue
			}
			if mf, ok := byRole[role]; ok && mf.Name == f.Name {
				fields = append(fields, mf)
				delete(byRole, role)
			}
		}
	}
	return fields
}

func isEncodingRole(role string) bool {
	for _, r := range encodingRoles {
		if r == role {
			return true
		}
	}
	return false
}

func axisConfig(a *xmlAxis) AxisConfig {
	if a == nil {
		return AxisConfig{Scale: "linear"}
	}
	return AxisConfig{
		Label:     a.Label,
		Scale:     firstNonEmpty(a.Scale, "linear"),
		GridLines: a.GridLines == "true",
	}
}

func parseNumber(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !isFinite(v) {
		return def
	}
	return v
}

func orElse[T any](v, def *T) *T {
	if v != nil {
		return v
	}
	return def
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
