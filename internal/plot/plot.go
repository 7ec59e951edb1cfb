// Package plot renders analysis charts to PNG files.
package plot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/statloom-cli/internal/utils"
)

// Chart is a renderable chart description. Implementations live in this package.
type Chart interface {
	// Slug names the chart in output file names.
	Slug() string
	render(w io.Writer, size Size) error
}

// Size is the output image size in pixels.
type Size struct {
	Width  int
	Height int
}

// DefaultSize matches a typical notebook figure.
var DefaultSize = Size{Width: 960, Height: 640}

// Renderer writes charts as numbered PNG files into Dir and optionally opens
// each one in the system image viewer.
type Renderer struct {
	Dir  string
	Size Size
	Open bool

	log    zerolog.Logger
	seq    int
	opener func(path string) error
}

// NewRenderer returns a Renderer writing into dir.
func NewRenderer(dir string, size Size, open bool, log zerolog.Logger) *Renderer {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}
	return &Renderer{Dir: dir, Size: size, Open: open, log: log, opener: OpenFile}
}

// Plot renders c and returns the written file path. A failure to open the
// viewer is logged, not returned.
func (r *Renderer) Plot(ctx context.Context, c Chart) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := c.render(&buf, r.Size); err != nil {
		return "", fmt.Errorf("render %s chart: %w", c.Slug(), err)
	}
	r.seq++
	path := filepath.Join(r.Dir, fmt.Sprintf("%02d-%s.png", r.seq, c.Slug()))
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("write chart: %w", err)
	}
	r.log.Debug().Str("path", path).Int("bytes", buf.Len()).Msg("chart written")
	if r.Open && r.opener != nil {
		if err := r.opener(path); err != nil {
			r.log.Warn().Err(err).Str("path", path).Msg("could not open chart viewer")
		}
	}
	return path, nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(parts ...string) string {
	s := strings.ToLower(strings.Join(parts, "-"))
	s = strings.Trim(slugRe.ReplaceAllString(s, "-"), "-")
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	if s == "" {
		return "chart"
	}
	return s
}
