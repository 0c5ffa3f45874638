package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
	"github.com/vedran77/hive/internal/jobs"
	"github.com/vedran77/hive/internal/metrics"
	"github.com/vedran77/hive/internal/repository"
	"github.com/vedran77/hive/internal/store"
)

const RetentionJobName = "retention-cleanup"

type RetentionOptions struct {
	CommunityID string
	Horizon     time.Duration
	// Channels to clean. Empty means every channel of the community.
	Channels  []string
	BatchSize int
}

// RetentionService deletes messages older than the horizon from the open
// community's channels and keeps an audit record of every run.
type RetentionService struct {
	channelRepo   repository.ChannelRepository
	messageRepo   repository.MessageRepository
	retentionRepo repository.RetentionRepository
	opts          RetentionOptions
	now           func() time.Time
	log           logrus.FieldLogger
}

func NewRetentionService(
	channelRepo repository.ChannelRepository,
	messageRepo repository.MessageRepository,
	retentionRepo repository.RetentionRepository,
	opts RetentionOptions,
	log logrus.FieldLogger,
) *RetentionService {
	if opts.BatchSize <= 0 || opts.BatchSize > store.MaxBatchSize {
		opts.BatchSize = store.MaxBatchSize
	}
	return &RetentionService{
		channelRepo:   channelRepo,
		messageRepo:   messageRepo,
		retentionRepo: retentionRepo,
		opts:          opts,
		now:           time.Now,
		log:           log,
	}
}

// Job adapts Run to the background job runner.
func (s *RetentionService) Job() jobs.Job {
	return func(ctx context.Context) (any, error) {
		return s.Run(ctx)
	}
}

// Run deletes every message strictly older than now minus the horizon. A
// failing channel is recorded in the result and does not stop the others.
func (s *RetentionService) Run(ctx context.Context) (*domain.CleanupResult, error) {
	now := s.now()
	result := &domain.CleanupResult{
		ID:               uuid.NewString(),
		Trigger:          jobs.Trigger(ctx),
		PerChannelCounts: map[string]int{},
		Errors:           map[string]string{},
		CutoffDate:       domain.MillisOf(now.Add(-s.opts.Horizon)),
		Timestamp:        domain.MillisOf(now),
	}

	channels, err := s.channels(ctx)
	if err != nil {
		result.Errors["*"] = err.Error()
	}
	for _, channelID := range channels {
		thread := addressing.ChannelThread(s.opts.CommunityID, channelID)
		n, err := s.messageRepo.DeleteOlderThan(ctx, thread, result.CutoffDate, s.opts.BatchSize)
		result.PerChannelCounts[channelID] = n
		result.TotalDeleted += n
		metrics.RetentionDeleted(channelID, n)
		if err != nil {
			result.Errors[channelID] = err.Error()
			s.log.WithError(err).WithField("channel_id", channelID).Warn("retention cleanup failed for channel")
		}
	}
	result.Success = len(result.Errors) == 0
	metrics.RetentionRun(result.Success)

	s.log.WithFields(logrus.Fields{
		"run_id":        result.ID,
		"total_deleted": result.TotalDeleted,
		"channels":      len(channels),
		"success":       result.Success,
	}).Info("retention cleanup finished")

	if err := s.retentionRepo.Append(ctx, result); err != nil {
		return result, fmt.Errorf("recording retention run: %w", err)
	}
	return result, nil
}

func (s *RetentionService) channels(ctx context.Context) ([]string, error) {
	if len(s.opts.Channels) > 0 {
		return s.opts.Channels, nil
	}
	list, err := s.channelRepo.ListByCommunity(ctx, s.opts.CommunityID)
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}
	ids := make([]string, len(list))
	for i, ch := range list {
		ids[i] = ch.ID
	}
	return ids, nil
}

// History lists past runs, newest first.
func (s *RetentionService) History(ctx context.Context, limit int) ([]domain.CleanupResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.retentionRepo.List(ctx, limit)
}
