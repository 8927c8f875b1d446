package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	renderOut    string
	renderFormat string
	renderWidth  float64
	renderHeight float64
	renderDataID string
	renderDrags  []string
	renderTicks  int
	renderHover  int
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render charts and slides on the server",
}

var renderChartCmd = &cobra.Command{
	Use:   "chart [chart.xml]",
	Short: "Render a chart definition document to SVG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		req := map[string]interface{}{"xml": string(doc), "dataId": renderDataID, "width": renderWidth, "height": renderHeight}
		in, err := chartInteraction(renderDrags, renderTicks, renderHover)
		if err != nil {
			return err
		}
		if in != nil {
			req["interaction"] = in
		}
		var buf bytes.Buffer
		if err := postJSON("/api/charts/render", url.Values{"format": {"svg"}}, req, &buf, http.StatusOK); err != nil {
			return err
		}
		return writeResult(buf.Bytes())
	},
}

var renderSlideCmd = &cobra.Command{
	Use:   "slide [presentation-id] [index]",
	Short: "Render one slide of a presentation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil || index < 0 {
			return fmt.Errorf("slide index must be a non-negative integer, got %q", args[1])
		}
		q := url.Values{"format": {renderFormat}}
		if renderWidth > 0 {
			q.Set("width", strconv.Itoa(int(renderWidth)))
		}
		var buf bytes.Buffer
		if err := get(fmt.Sprintf("/api/presentations/%s/slides/%d/render", args[0], index), q, &buf); err != nil {
			return err
		}
		return writeResult(buf.Bytes())
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.AddCommand(renderChartCmd, renderSlideCmd)
	renderCmd.PersistentFlags().StringVarP(&renderOut, "out", "o", "", "write the result to a file instead of stdout")
	renderCmd.PersistentFlags().Float64Var(&renderWidth, "width", 0, "width in pixels")
	renderChartCmd.Flags().Float64Var(&renderHeight, "height", 0, "height in pixels")
	renderChartCmd.Flags().StringVar(&renderDataID, "data", "", "dataset id overriding the document's data source")
	renderChartCmd.Flags().StringArrayVar(&renderDrags, "drag", nil, "drag a network node before rendering, as node=x,y (repeatable)")
	renderChartCmd.Flags().IntVar(&renderTicks, "ticks", 0, "extra network layout steps after the drags")
	renderChartCmd.Flags().IntVar(&renderHover, "hover", -1, "index of the mark to show a tooltip for")
	renderSlideCmd.Flags().StringVar(&renderFormat, "format", "html", "html or json")
}

func writeResult(body []byte) error {
	if renderOut == "" {
		_, err := io.Copy(os.Stdout, bytes.NewReader(body))
		return err
	}
	if err := os.WriteFile(renderOut, body, 0o644); err != nil {
		return err
	}
	success("Wrote %s", renderOut)
	return nil
}

// chartInteraction builds the interaction part of a chart render request,
// or nil when no flag asks for one.
func chartInteraction(drags []string, ticks, hover int) (map[string]interface{}, error) {
	in := map[string]interface{}{}
	if len(drags) > 0 {
		moves := make([]map[string]interface{}, 0, len(drags))
		for _, d := range drags {
			m, err := parseDrag(d)
			if err != nil {
				return nil, err
			}
			moves = append(moves, m)
		}
		in["drags"] = moves
	}
	if ticks > 0 {
		in["ticks"] = ticks
	}
	if hover >= 0 {
		in["hover"] = map[string]interface{}{"mark": hover}
	}
	if len(in) == 0 {
		return nil, nil
	}
	return in, nil
}

// parseDrag reads node=x,y.
func parseDrag(s string) (map[string]interface{}, error) {
	node, pos, ok := strings.Cut(s, "=")
	xs, ys, ok2 := strings.Cut(pos, ",")
	if !ok || !ok2 || strings.TrimSpace(node) == "" {
		return nil, fmt.Errorf("drag must look like node=x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return nil, fmt.Errorf("drag %q: bad x: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return nil, fmt.Errorf("drag %q: bad y: %w", s, err)
	}
	return map[string]interface{}{"node": strings.TrimSpace(node), "x": x, "y": y}, nil
}
