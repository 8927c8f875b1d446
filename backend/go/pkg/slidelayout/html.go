package slidelayout

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"slidecraft/backend/go/pkg/chart"
)

var slideTemplate = template.Must(template.New("slide").Funcs(template.FuncMap{
	"svg": func(s *chart.Scene) template.HTML {
		if s == nil {
			return ""
		}
		// Scene text is escaped by the SVG writer.
		return template.HTML(s.SVG())
	},
	"area": func(a *GridArea) template.CSS {
		if a == nil {
			return ""
		}
		return template.CSS(fmt.Sprintf("grid-row:%d / span %d;grid-column:%d / span %d",
			a.Row+1, max(1, a.RowSpan), a.Column+1, max(1, a.ColSpan)))
	},
	"columns": func(n int) template.CSS {
		return template.CSS(fmt.Sprintf("display:grid;grid-template-columns:repeat(%d,minmax(0,1fr));gap:%dpx", max(1, n), gridGap))
	},
	"notes": renderNotes,
}).Parse(`
{{- define "element" -}}
{{- if eq .Kind.String "title" "text" -}}
{{- if eq .Tag "h1"}}<h1 class="{{.Classes}}" style="{{area .Area}}">{{.Text}}</h1>
{{- else if eq .Tag "h2"}}<h2 class="{{.Classes}}" style="{{area .Area}}">{{.Text}}</h2>
{{- else if eq .Tag "h3"}}<h3 class="{{.Classes}}" style="{{area .Area}}">{{.Text}}</h3>
{{- else}}<p class="{{.Classes}}" style="{{area .Area}}">{{.Text}}</p>{{end -}}
{{- else if eq .Kind.String "image" -}}
<img class="{{.Classes}}" style="{{area .Area}}" src="{{.Src}}" alt="{{.Alt}}"{{if .Width}} width="{{.Width}}"{{end}}{{if .Height}} height="{{.Height}}"{{end}}>
{{- else if eq .Kind.String "chart" -}}
{{- if .Fallback -}}
<div class="{{.Classes}} chart-placeholder" style="{{area .Area}};border:2px dashed #ccc"><div>{{.Text}}</div><div>{{.Caption}}</div></div>
{{- else -}}
<div class="{{.Classes}}" style="{{area .Area}}" data-chart-id="{{.ChartID}}">{{svg .Scene}}</div>
{{- end -}}
{{- else if eq .Kind.String "list" -}}
{{- if .Ordered}}<ol class="{{.Classes}}" style="{{area .Area}}">{{range .Items}}<li>{{.}}</li>{{end}}</ol>
{{- else}}<ul class="{{.Classes}}" style="{{area .Area}}">{{range .Items}}<li>{{.}}</li>{{end}}</ul>{{end -}}
{{- else if eq .Kind.String "container" -}}
<div class="{{.Classes}}" style="{{area .Area}}">{{range .Children}}{{template "element" .}}{{end}}</div>
{{- end -}}
{{- end -}}
<section class="slide {{.Classes}}" data-slide-id="{{.SlideID}}" data-layout="{{.Arrangement.Mode}}">
{{- if .Message}}<div class="slide-message">{{.Message}}</div>
{{- else}}<div style="{{columns .Arrangement.Columns}}">{{range .Elements}}{{template "element" .}}{{end}}</div>{{end -}}
{{- if .Notes}}<aside class="notes">{{notes .Notes}}</aside>{{end -}}
</section>`))

// HTML renders the composition as a standalone fragment.
func (c *Composition) HTML() (string, error) {
	var buf bytes.Buffer
	if err := slideTemplate.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("render slide %q: %w", c.SlideID, err)
	}
	return buf.String(), nil
}

// renderNotes converts speaker notes from markdown. Raw HTML in the notes is
// dropped and links with untrusted schemes are rendered as plain text.
func renderNotes(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.Safelink | mdhtml.NofollowLinks,
	})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}
