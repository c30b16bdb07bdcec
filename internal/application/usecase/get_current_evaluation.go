package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/internal/application/port"
	"github.com/dreschagin/mission-control/internal/domain/repository"
	"github.com/dreschagin/mission-control/pkg/logger"
)

// GetCurrentEvaluationUseCase возвращает последнюю оценку с использованием кэша
type GetCurrentEvaluationUseCase struct {
	repository repository.EvaluationRepository
	cache      port.Cache
	logger     *logger.Logger
}

// NewGetCurrentEvaluationUseCase создает новый use case; cache может быть nil
func NewGetCurrentEvaluationUseCase(
	repository repository.EvaluationRepository,
	cache port.Cache,
	logger *logger.Logger,
) *GetCurrentEvaluationUseCase {
	return &GetCurrentEvaluationUseCase{
		repository: repository,
		cache:      cache,
		logger:     logger,
	}
}

// Execute возвращает последнюю оценку или repository.ErrNotFound
func (uc *GetCurrentEvaluationUseCase) Execute(ctx context.Context) (*dto.EvaluationDTO, error) {
	if uc.cache != nil {
		var cached dto.EvaluationDTO
		if err := uc.cache.Get(ctx, latestEvaluationCacheKey, &cached); err == nil {
			uc.logger.Debug("Cache hit for latest evaluation")
			return &cached, nil
		}
	}

	evaluation, err := uc.repository.FindLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find latest evaluation: %w", err)
	}

	out := dto.FromEvaluation(evaluation)

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, latestEvaluationCacheKey, out); err != nil {
			uc.logger.Warn("Failed to cache latest evaluation", "error", err.Error())
		}
	}

	return out, nil
}
