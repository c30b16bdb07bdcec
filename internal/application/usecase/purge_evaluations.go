package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/mission-control/internal/domain/repository"
	"github.com/dreschagin/mission-control/pkg/logger"
)

// PurgeEvaluationsUseCase удаляет оценки старше срока хранения
type PurgeEvaluationsUseCase struct {
	repository repository.EvaluationRepository
	retention  time.Duration
	logger     *logger.Logger
}

// NewPurgeEvaluationsUseCase создает новый use case
func NewPurgeEvaluationsUseCase(
	repository repository.EvaluationRepository,
	retention time.Duration,
	logger *logger.Logger,
) *PurgeEvaluationsUseCase {
	return &PurgeEvaluationsUseCase{
		repository: repository,
		retention:  retention,
		logger:     logger,
	}
}

// Execute удаляет устаревшие записи и возвращает их количество
func (uc *PurgeEvaluationsUseCase) Execute(ctx context.Context, now time.Time) (int64, error) {
	if uc.retention <= 0 {
		return 0, nil
	}

	cutoff := now.Add(-uc.retention)
	deleted, err := uc.repository.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old evaluations: %w", err)
	}

	if deleted > 0 {
		uc.logger.Info("Old evaluations purged", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
