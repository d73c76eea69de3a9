package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chickenshout/craftwatch/internal/domain"
	"github.com/chickenshout/craftwatch/internal/storage"
)

// ServerReport pairs a server with its window aggregate.
type ServerReport struct {
	Server domain.Server
	Report domain.AggregateReport
}

// ReportingService computes peak/average/day-count statistics over a
// trailing time window.
type ReportingService struct {
	repo storage.Repository
}

// NewReportingService creates a new ReportingService.
func NewReportingService(repo storage.Repository) *ReportingService {
	return &ReportingService{repo: repo}
}

// Report aggregates one server's samples over the trailing windowDays.
// An empty window yields absent peak/average, never zeroes.
func (s *ReportingService) Report(ctx context.Context, serverName string, windowDays int) (domain.AggregateReport, error) {
	since := time.Now().AddDate(0, 0, -windowDays)
	return s.repo.QueryAggregate(ctx, serverName, since)
}

// ReportAll aggregates every registered server over the trailing
// windowDays, in listing order.
func (s *ReportingService) ReportAll(ctx context.Context, windowDays int) ([]ServerReport, error) {
	servers, err := s.repo.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}

	since := time.Now().AddDate(0, 0, -windowDays)
	reports := make([]ServerReport, 0, len(servers))
	for _, srv := range servers {
		rep, err := s.repo.QueryAggregate(ctx, srv.Name, since)
		if err != nil {
			return nil, fmt.Errorf("aggregate for %s: %w", srv.Name, err)
		}
		reports = append(reports, ServerReport{Server: srv, Report: rep})
	}
	return reports, nil
}
