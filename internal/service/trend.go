package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chickenshout/craftwatch/internal/domain"
	"github.com/chickenshout/craftwatch/internal/storage"
	"github.com/chickenshout/craftwatch/internal/trend"
)

// TrendService builds per-server sample series and hands them to the
// renderer.
type TrendService struct {
	repo     storage.Repository
	renderer trend.Renderer
}

// NewTrendService creates a new TrendService.
func NewTrendService(repo storage.Repository, renderer trend.Renderer) *TrendService {
	return &TrendService{repo: repo, renderer: renderer}
}

// Render validates every requested name, gathers each server's samples
// over the trailing windowDays and writes one artifact. Any unknown name
// rejects the whole request before anything is rendered.
func (s *TrendService) Render(ctx context.Context, windowDays int, serverNames []string) (string, error) {
	var unknown []string
	for _, name := range serverNames {
		if _, err := s.repo.GetServer(ctx, name); err != nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrServerNotFound, strings.Join(unknown, ", "))
	}

	since := time.Now().AddDate(0, 0, -windowDays)
	series := make(map[string][]domain.TrendPoint, len(serverNames))
	for _, name := range serverNames {
		samples, err := s.repo.QuerySamples(ctx, name, since)
		if err != nil {
			return "", fmt.Errorf("samples for %s: %w", name, err)
		}
		points := make([]domain.TrendPoint, 0, len(samples))
		for _, sm := range samples {
			points = append(points, domain.TrendPoint{
				Label: sm.Timestamp.Format("2006-01-02 15:04"),
				Count: sm.OnlineCount,
			})
		}
		series[name] = points
	}

	return s.renderer.Render(series, windowDays)
}
