package trend

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/chickenshout/craftwatch/internal/domain"
)

const (
	chartHeight = 12
	chartWidth  = 80
)

// ASCIIRenderer renders each series as an asciigraph chart and writes them
// to a single text artifact under Dir.
type ASCIIRenderer struct {
	Dir string
}

// NewASCIIRenderer creates a renderer writing artifacts under dir.
func NewASCIIRenderer(dir string) *ASCIIRenderer {
	return &ASCIIRenderer{Dir: dir}
}

var _ Renderer = (*ASCIIRenderer)(nil)

func (r *ASCIIRenderer) Render(series map[string][]domain.TrendPoint, windowDays int) (string, error) {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "online players, last %d day(s)\n\n", windowDays)

	for _, name := range names {
		points := series[name]
		fmt.Fprintf(&b, "== %s ==\n", name)
		if len(points) == 0 {
			b.WriteString("(no data)\n\n")
			continue
		}

		values := make([]float64, 0, len(points))
		for _, p := range points {
			values = append(values, float64(p.Count))
		}
		b.WriteString(asciigraph.Plot(values,
			asciigraph.Height(chartHeight),
			asciigraph.Width(chartWidth),
		))
		fmt.Fprintf(&b, "\n%s .. %s (%d samples)\n\n",
			points[0].Label, points[len(points)-1].Label, len(points))
	}

	path := filepath.Join(r.Dir, artifactName(names, windowDays))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write trend artifact: %w", err)
	}
	return path, nil
}

func artifactName(names []string, windowDays int) string {
	return fmt.Sprintf("trend_%dd_%s.txt", windowDays, strings.Join(names, "_"))
}
