package plot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Heatmap draws an annotated matrix of counts, Values[i][j] for row label
// Rows[i] and column label Cols[j], on a diverging blue-red scale.
type Heatmap struct {
	Title  string
	XLabel string
	YLabel string
	Rows   []string
	Cols   []string
	Values [][]float64
}

func (h *Heatmap) Slug() string { return slugify("contingency", h.YLabel, "vs", h.XLabel) }

var (
	coolLow  = [3]float64{59, 76, 192}
	coolMid  = [3]float64{221, 221, 221}
	coolHigh = [3]float64{180, 4, 38}
	inkDark  = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	inkLight = color.RGBA{R: 250, G: 250, B: 250, A: 255}
)

// coolwarm maps t in [0, 1] onto the diverging scale.
func coolwarm(t float64) color.RGBA {
	if math.IsNaN(t) {
		t = 0.5
	}
	t = math.Max(0, math.Min(1, t))
	a, b, u := coolLow, coolMid, t*2
	if t > 0.5 {
		a, b, u = coolMid, coolHigh, (t-0.5)*2
	}
	mix := func(k int) uint8 { return uint8(math.Round(a[k] + (b[k]-a[k])*u)) }
	return color.RGBA{R: mix(0), G: mix(1), B: mix(2), A: 255}
}

func (h *Heatmap) render(w io.Writer, size Size) error {
	nr, nc := len(h.Rows), len(h.Cols)
	if nr == 0 || nc == 0 || len(h.Values) != nr {
		return errors.New("heatmap needs at least one row and one column")
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range h.Values {
		if len(row) != nc {
			return fmt.Errorf("heatmap row has %d values, want %d", len(row), nc)
		}
		for _, v := range row {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	span := hi - lo

	face := basicfont.Face7x13
	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	dr := &font.Drawer{Dst: img, Src: image.NewUniform(inkDark), Face: face}

	left := 24
	for _, r := range h.Rows {
		if tw := dr.MeasureString(clip(r, 24)).Ceil(); tw+24 > left {
			left = tw + 24
		}
	}
	const top, bottom, right = 56, 56, 96
	gw, gh := size.Width-left-right, size.Height-top-bottom
	if gw < nc || gh < nr {
		return fmt.Errorf("image %dx%d too small for %dx%d table", size.Width, size.Height, nr, nc)
	}
	cw, chh := gw/nc, gh/nr

	text := func(s string, x, y int, ink color.Color) {
		dr.Src = image.NewUniform(ink)
		dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
		dr.DrawString(s)
	}
	centered := func(s string, cx, y int, ink color.Color) {
		text(s, cx-dr.MeasureString(s).Ceil()/2, y, ink)
	}

	centered(h.Title, size.Width/2, 28, inkDark)
	asc := face.Metrics().Ascent.Ceil()
	for i, row := range h.Values {
		y0 := top + i*chh
		for j, v := range row {
			x0 := left + j*cw
			t := 0.5
			if span > 0 {
				t = (v - lo) / span
			}
			fill := coolwarm(t)
			draw.Draw(img, image.Rect(x0, y0, x0+cw, y0+chh), image.NewUniform(fill), image.Point{}, draw.Src)
			ink := color.Color(inkDark)
			if t < 0.2 || t > 0.8 {
				ink = inkLight
			}
			centered(formatCount(v), x0+cw/2, y0+chh/2+asc/2, ink)
		}
		label := clip(h.Rows[i], 24)
		text(label, left-8-dr.MeasureString(label).Ceil(), y0+chh/2+asc/2, inkDark)
	}
	maxChars := cw / 7
	for j, c := range h.Cols {
		centered(clip(c, maxChars), left+j*cw+cw/2, top+nr*chh+18, inkDark)
	}
	centered(h.XLabel, left+gw/2, size.Height-12, inkDark)
	text(h.YLabel, 8, top-10, inkDark)

	// colour bar
	bx := left + nc*cw + 24
	for y := 0; y < gh; y++ {
		c := coolwarm(1 - float64(y)/float64(gh-1))
		draw.Draw(img, image.Rect(bx, top+y, bx+18, top+y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
	for k := 0; k <= 4; k++ {
		v := hi - span*float64(k)/4
		y := top + (gh-1)*k/4
		text(formatCount(v), bx+24, y+asc/2, inkDark)
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if n < 2 {
		n = 2
	}
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}

func formatCount(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}
