package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chickenshout/craftwatch/internal/storage"
)

// RetentionService deletes samples older than the retention horizon.
// With retainForever set it is a permanent no-op.
type RetentionService struct {
	repo          storage.Repository
	retentionDays int
	retainForever bool
	log           *logrus.Logger
}

// NewRetentionService creates a new RetentionService.
func NewRetentionService(repo storage.Repository, retentionDays int, retainForever bool, log *logrus.Logger) *RetentionService {
	return &RetentionService{
		repo:          repo,
		retentionDays: retentionDays,
		retainForever: retainForever,
		log:           log,
	}
}

// Cleanup removes samples past the horizon and returns how many were
// deleted. Returns 0 without touching the store when retention is off.
func (s *RetentionService) Cleanup(ctx context.Context) (int64, error) {
	if s.retainForever {
		s.log.Info("retention disabled, keeping all samples")
		return 0, nil
	}

	horizon := time.Now().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.repo.DeleteSamplesOlderThan(ctx, horizon)
	if err != nil {
		return 0, fmt.Errorf("delete old samples: %w", err)
	}
	s.log.WithField("deleted", deleted).Info("retention pass finished")
	return deleted, nil
}
