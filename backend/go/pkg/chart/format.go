package chart

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatSI prints v with two significant digits and an SI prefix, e.g. 1.2M.
func FormatSI(v float64) string {
	if v == 0 || !isFinite(v) {
		return "0.0"
	}
	value, prefix := humanize.ComputeSI(v)
	abs := math.Abs(value)
	digits := int(math.Floor(math.Log10(abs))) + 1
	scale := math.Pow(10, float64(2-digits))
	rounded := math.Round(value*scale) / scale
	decimals := 2 - digits
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(rounded, 'f', decimals, 64) + prefix
}

// formatTick prints an axis value at the precision of the tick step, with
// thousands separators.
func formatTick(v, step float64) string {
	decimals := 0
	if step > 0 && step < 1 {
		decimals = int(math.Ceil(-math.Log10(step) - 1e-9))
	}
	p := math.Pow(10, float64(decimals))
	v = math.Round(v*p) / p
	if v == 0 {
		v = 0
	}
	return humanize.Commaf(v)
}

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// expandTooltip fills a tooltip format such as "Company: {company}\nRevenue: {revenue}M"
// from a row. Literal "\n" sequences and real newlines both split lines.
func expandTooltip(format string, r Row) []string {
	format = strings.ReplaceAll(format, `\n`, "\n")
	var lines []string
	for _, line := range strings.Split(format, "\n") {
		line = placeholderRe.ReplaceAllStringFunc(line, func(m string) string {
			return r.Text(strings.TrimSpace(m[1 : len(m)-1]))
		})
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func rowTooltip(cfg *Config, r Row, fallback ...string) []string {
	if cfg.TooltipFormat != "" {
		if lines := expandTooltip(cfg.TooltipFormat, r); len(lines) > 0 {
			return lines
		}
	}
	return fallback
}
