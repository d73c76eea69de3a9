package service

import (
	"context"
	"testing"

	"github.com/chickenshout/craftwatch/internal/domain"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestReport_EmptyWindowIsAbsentNotZero(t *testing.T) {
	repo := &mockRepo{
		servers:    twoServers(),
		aggregates: map[string]domain.AggregateReport{},
	}
	svc := NewReportingService(repo)

	rep, err := svc.Report(context.Background(), "survival", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.HasData() {
		t.Error("empty window must report absent data")
	}
	if rep.Peak != nil || rep.Average != nil {
		t.Errorf("expected nil peak/average, got %+v", rep)
	}
	if rep.ActiveDays != 0 {
		t.Errorf("expected 0 active days, got %d", rep.ActiveDays)
	}
}

func TestReport_ZeroPlayersIsStillData(t *testing.T) {
	repo := &mockRepo{
		servers: twoServers(),
		aggregates: map[string]domain.AggregateReport{
			"survival": {Peak: intPtr(0), Average: floatPtr(0), ActiveDays: 1},
		},
	}
	svc := NewReportingService(repo)

	rep, err := svc.Report(context.Background(), "survival", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.HasData() {
		t.Error("a window of zero-player samples still has data")
	}
	if *rep.Peak != 0 || *rep.Average != 0 {
		t.Errorf("expected zero peak/average, got %+v", rep)
	}
}

func TestReportAll_ListingOrder(t *testing.T) {
	repo := &mockRepo{
		servers: twoServers(),
		aggregates: map[string]domain.AggregateReport{
			"survival": {Peak: intPtr(40), Average: floatPtr(22.35), ActiveDays: 3},
			"creative": {Peak: intPtr(9), Average: floatPtr(4.0), ActiveDays: 2},
		},
	}
	svc := NewReportingService(repo)

	reports, err := svc.ReportAll(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Server.Name != "survival" || reports[1].Server.Name != "creative" {
		t.Errorf("reports must follow listing order, got %s then %s",
			reports[0].Server.Name, reports[1].Server.Name)
	}
	if *reports[0].Report.Peak != 40 {
		t.Errorf("expected peak 40, got %d", *reports[0].Report.Peak)
	}
	// The stored average stays unrounded; rounding happens at display time.
	if *reports[0].Report.Average != 22.35 {
		t.Errorf("expected unrounded average 22.35, got %f", *reports[0].Report.Average)
	}
}
