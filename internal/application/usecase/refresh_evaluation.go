package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/mission-control/internal/domain/repository"
	"github.com/dreschagin/mission-control/pkg/logger"
)

// RefreshEvaluationUseCase повторно оценивает последний снимок.
// Объявление о failover зависит от времени и должно появляться без новых данных.
type RefreshEvaluationUseCase struct {
	evaluate   *EvaluateSnapshotUseCase
	repository repository.EvaluationRepository
	logger     *logger.Logger
}

// NewRefreshEvaluationUseCase создает новый use case
func NewRefreshEvaluationUseCase(
	evaluate *EvaluateSnapshotUseCase,
	repository repository.EvaluationRepository,
	logger *logger.Logger,
) *RefreshEvaluationUseCase {
	return &RefreshEvaluationUseCase{
		evaluate:   evaluate,
		repository: repository,
		logger:     logger,
	}
}

// Execute возвращает false, если оценивать пока нечего
func (uc *RefreshEvaluationUseCase) Execute(ctx context.Context) (bool, error) {
	snapshot := uc.evaluate.LastSnapshot()
	if snapshot == nil {
		var err error
		snapshot, err = uc.repository.FindLatestSnapshot(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			uc.logger.Debug("No snapshot to refresh yet")
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to load latest snapshot: %w", err)
		}
	}

	if _, err := uc.evaluate.Execute(ctx, snapshot, SourceRefresh); err != nil {
		return false, err
	}
	return true, nil
}
