package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/chickenshout/craftwatch/internal/domain"
	"github.com/chickenshout/craftwatch/internal/monitor"
	"github.com/chickenshout/craftwatch/internal/status"
	"github.com/chickenshout/craftwatch/internal/storage"
)

// LiveResult is one server's outcome from a live status round.
type LiveResult struct {
	Server domain.Server
	Status *status.Status
	Err    error
}

// PollService runs status rounds over every registered server. Per-server
// failures are isolated: one unreachable server is reported and skipped,
// never aborting the rest of the round.
type PollService struct {
	repo     storage.Repository
	provider status.Provider
	metrics  *monitor.Metrics
	log      *logrus.Logger
}

// NewPollService creates a new PollService.
func NewPollService(repo storage.Repository, provider status.Provider, metrics *monitor.Metrics, log *logrus.Logger) *PollService {
	return &PollService{repo: repo, provider: provider, metrics: metrics, log: log}
}

// CollectAll polls every registered server and appends a sample per
// success. The returned error covers only store failures; per-server
// query failures are logged and counted.
func (s *PollService) CollectAll(ctx context.Context) error {
	servers, err := s.repo.ListServers(ctx)
	if err != nil {
		return fmt.Errorf("list servers: %w", err)
	}
	if len(servers) == 0 {
		return nil
	}

	s.log.WithField("servers", len(servers)).Info("collecting samples")
	for _, srv := range servers {
		st, err := s.provider.Query(ctx, srv.Address)
		if err != nil {
			s.metrics.RecordPollFailure()
			s.log.WithFields(logrus.Fields{
				"server": srv.Name,
				"error":  err,
			}).Warn("poll failed")
			continue
		}
		if err := s.repo.AppendSample(ctx, srv.ID, st.OnlineCount); err != nil {
			return fmt.Errorf("append sample for %s: %w", srv.Name, err)
		}
		s.metrics.RecordSample()
		s.log.WithFields(logrus.Fields{
			"server": srv.Name,
			"online": st.OnlineCount,
		}).Info("sample recorded")
	}
	s.metrics.RecordRound()
	return nil
}

// QueryLive queries every registered server's live status without touching
// the sample log.
func (s *PollService) QueryLive(ctx context.Context) ([]LiveResult, error) {
	servers, err := s.repo.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}

	results := make([]LiveResult, 0, len(servers))
	for _, srv := range servers {
		st, err := s.provider.Query(ctx, srv.Address)
		results = append(results, LiveResult{Server: srv, Status: st, Err: err})
	}
	return results, nil
}

// Validate checks that an address answers a live status query. Used before
// persisting a new server registration.
func (s *PollService) Validate(ctx context.Context, address string) error {
	_, err := s.provider.Query(ctx, address)
	return err
}
