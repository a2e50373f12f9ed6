// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render draws the report charts with gonum/plot. The image
// format follows the file extension (.png, .svg, .pdf, .eps, .jpg, .tif).
// Empty inputs still produce a file: a blank plot whose title ends in
// "(no data)", so a run with no matches leaves the same set of artifacts.
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/pdiddy/genelit/pkg/types"
)

// NoData is appended to the title of plots drawn from empty input.
const NoData = "(no data)"

const (
	plotWidth  = 7 * vg.Inch
	rowHeight  = 0.3 * vg.Inch
	minHeight  = 3 * vg.Inch
	barWidth   = 0.6 * vg.Centimeter
	minRadius  = 3 * vg.Millimeter / 2
	maxRadius  = 5 * vg.Millimeter
	labelWidth = 40
)

var barColor = color.RGBA{R: 0x44, G: 0x77, B: 0xaa, A: 0xff}

// BarChart writes a horizontal bar chart of counts to path, one bar per
// entry in input order from bottom to top. Pass the output of
// aggregate.TopN to get the largest bar on top.
func BarChart(path, title, axisLabel string, counts []types.Count) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = axisLabel
	p.X.Min = 0

	if len(counts) == 0 {
		return save(noData(p), path, minHeight)
	}

	values := make(plotter.Values, len(counts))
	labels := make([]string, len(counts))
	for i, c := range counts {
		values[i] = float64(c.Value)
		labels[i] = c.Key
	}

	bars, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return fmt.Errorf("building bar chart %s: %w", path, err)
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)

	return save(p, path, rowsHeight(len(counts)))
}

// DotPlot writes an enrichment dot plot to path. The show terms with the
// lowest adjusted p-value are drawn, ordered by gene ratio with the
// highest ratio on top. The x position is the gene ratio, the glyph
// radius grows with the gene count, and the colour runs from blue to red
// as -log10(p.adjust) rises.
func DotPlot(path, title string, terms []types.EnrichedTerm, show int) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "gene ratio"

	sel := SelectTerms(terms, show)
	if len(sel) == 0 {
		return save(noData(p), path, minHeight)
	}

	xys := make(plotter.XYs, len(sel))
	labels := make([]string, len(sel))
	scores := make([]float64, len(sel))
	minCount, maxCount := math.MaxInt, 0
	for i, t := range sel {
		xys[i] = plotter.XY{X: t.GeneRatio, Y: float64(i)}
		labels[i] = truncate(t.Description, labelWidth)
		scores[i] = significance(t.AdjustedPValue)
		minCount = min(minCount, t.Count)
		maxCount = max(maxCount, t.Count)
	}

	cmap := moreland.SmoothBlueRed()
	lo, hi := slices.Min(scores), slices.Max(scores)
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	cmap.SetMin(lo)
	cmap.SetMax(hi)

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("building dot plot %s: %w", path, err)
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		c, err := cmap.At(scores[i])
		if err != nil {
			c = color.Gray{Y: 0x80}
		}
		return draw.GlyphStyle{
			Color:  c,
			Radius: radius(sel[i].Count, minCount, maxCount),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(scatter)
	p.NominalY(labels...)
	p.Y.Padding = maxRadius
	p.X.Padding = maxRadius

	return save(p, path, rowsHeight(len(sel)))
}

// SelectTerms returns the show terms with the lowest adjusted p-value,
// sorted by ascending gene ratio. Ties break on count, then ID. A
// non-positive show selects every term.
func SelectTerms(terms []types.EnrichedTerm, show int) []types.EnrichedTerm {
	sel := slices.Clone(terms)
	slices.SortStableFunc(sel, func(a, b types.EnrichedTerm) int {
		switch {
		case a.AdjustedPValue < b.AdjustedPValue:
			return -1
		case a.AdjustedPValue > b.AdjustedPValue:
			return 1
		}
		return 0
	})
	if show > 0 && len(sel) > show {
		sel = sel[:show]
	}
	slices.SortStableFunc(sel, func(a, b types.EnrichedTerm) int {
		switch {
		case a.GeneRatio < b.GeneRatio:
			return -1
		case a.GeneRatio > b.GeneRatio:
			return 1
		case a.Count != b.Count:
			return a.Count - b.Count
		}
		return strings.Compare(a.ID, b.ID)
	})
	return sel
}

func noData(p *plot.Plot) *plot.Plot {
	if p.Title.Text == "" {
		p.Title.Text = NoData
	} else {
		p.Title.Text += " " + NoData
	}
	p.HideY()
	return p
}

// CheckFormat reports whether charts can be saved with the image format
// (a file extension with or without the dot).
func CheckFormat(format string) error {
	name := strings.TrimPrefix(strings.ToLower(format), ".")
	if !slices.Contains(draw.Formats(), name) {
		return fmt.Errorf("unknown image format %q (want one of %s)", format, strings.Join(draw.Formats(), ", "))
	}
	return nil
}

func save(p *plot.Plot, path string, height vg.Length) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := p.Save(plotWidth, height, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func rowsHeight(rows int) vg.Length {
	return max(minHeight, vg.Length(rows)*rowHeight+1.5*vg.Inch)
}

// significance maps an adjusted p-value to -log10(p). Zero p-values are
// clamped to the smallest positive float.
func significance(p float64) float64 {
	if p <= 0 {
		p = math.SmallestNonzeroFloat64
	}
	return -math.Log10(p)
}

func radius(count, lo, hi int) vg.Length {
	if hi <= lo {
		return (minRadius + maxRadius) / 2
	}
	f := float64(count-lo) / float64(hi-lo)
	return minRadius + vg.Length(f)*(maxRadius-minRadius)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
