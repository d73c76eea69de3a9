package trend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chickenshout/craftwatch/internal/domain"
)

func TestRender_WritesArtifact(t *testing.T) {
	dir := t.TempDir()
	r := NewASCIIRenderer(dir)

	series := map[string][]domain.TrendPoint{
		"survival": {
			{Label: "2026-08-20 18:00", Count: 12},
			{Label: "2026-08-20 19:00", Count: 30},
			{Label: "2026-08-20 20:00", Count: 25},
		},
	}

	path, err := r.Render(series, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "trend_7d_survival.txt") {
		t.Errorf("unexpected artifact path: %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	content := string(raw)
	if !strings.Contains(content, "== survival ==") {
		t.Errorf("missing series header: %q", content)
	}
	if !strings.Contains(content, "2026-08-20 18:00 .. 2026-08-20 20:00 (3 samples)") {
		t.Errorf("missing series footer: %q", content)
	}
	if !strings.Contains(content, "last 7 day(s)") {
		t.Errorf("missing window caption: %q", content)
	}
}

func TestRender_MultipleSeriesSortedInName(t *testing.T) {
	dir := t.TempDir()
	r := NewASCIIRenderer(dir)

	series := map[string][]domain.TrendPoint{
		"zeta":  {{Label: "a", Count: 1}, {Label: "b", Count: 2}},
		"alpha": {{Label: "a", Count: 3}, {Label: "b", Count: 4}},
	}

	path, err := r.Render(series, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "trend_1d_alpha_zeta.txt" {
		t.Errorf("names must be sorted in the artifact name, got %s", filepath.Base(path))
	}
}

func TestRender_EmptySeriesNoted(t *testing.T) {
	dir := t.TempDir()
	r := NewASCIIRenderer(dir)

	path, err := r.Render(map[string][]domain.TrendPoint{"quiet": nil}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "(no data)") {
		t.Errorf("empty series must be noted, got %q", string(raw))
	}
}
