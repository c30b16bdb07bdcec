package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/internal/application/port"
	"github.com/dreschagin/mission-control/internal/domain/repository"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	"github.com/dreschagin/mission-control/pkg/logger"
)

const (
	historyCachePattern = "evaluation:history:*"
	// DefaultHistoryLimit ограничивает число записей истории по умолчанию
	DefaultHistoryLimit = 100
	// MaxHistoryLimit верхняя граница числа записей в одном ответе
	MaxHistoryLimit = 1000
)

// GetEvaluationHistoryUseCase возвращает историю оценок за период с кэшированием
type GetEvaluationHistoryUseCase struct {
	repository repository.EvaluationRepository
	cache      port.Cache
	logger     *logger.Logger
}

// NewGetEvaluationHistoryUseCase создает новый use case; cache может быть nil
func NewGetEvaluationHistoryUseCase(
	repository repository.EvaluationRepository,
	cache port.Cache,
	logger *logger.Logger,
) *GetEvaluationHistoryUseCase {
	return &GetEvaluationHistoryUseCase{
		repository: repository,
		cache:      cache,
		logger:     logger,
	}
}

// Execute возвращает записи за период (новые первыми) и распределение по уровням тревоги
func (uc *GetEvaluationHistoryUseCase) Execute(
	ctx context.Context,
	timeRange valueobject.TimeRange,
	limit int,
) (*dto.HistoryDTO, error) {
	limit = clampLimit(limit, DefaultHistoryLimit, MaxHistoryLimit)

	cacheKey := historyCacheKey(timeRange, limit)

	if uc.cache != nil {
		var cached dto.HistoryDTO
		if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
			uc.logger.Debug("Cache hit for evaluation history", "key", cacheKey)
			return &cached, nil
		}
		uc.logger.Debug("Cache miss for evaluation history", "key", cacheKey)
	}

	evaluations, err := uc.repository.FindByTimeRange(ctx, timeRange, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find evaluations: %w", err)
	}

	counts, err := uc.repository.CountByAlertState(ctx, timeRange)
	if err != nil {
		return nil, fmt.Errorf("failed to count evaluations: %w", err)
	}

	items := make([]dto.EvaluationSummaryDTO, 0, len(evaluations))
	for _, e := range evaluations {
		items = append(items, dto.SummaryFromEvaluation(e))
	}

	result := &dto.HistoryDTO{
		From:        timeRange.Start(),
		To:          timeRange.End(),
		Count:       len(items),
		StateCounts: counts,
		Items:       items,
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, cacheKey, result); err != nil {
			uc.logger.Warn("Failed to cache evaluation history", "error", err.Error())
		}
	}

	return result, nil
}

// historyCacheKey округляет границы до минуты, чтобы соседние запросы попадали в один ключ
func historyCacheKey(timeRange valueobject.TimeRange, limit int) string {
	return fmt.Sprintf("evaluation:history:%d:%d:%d",
		timeRange.Start().Truncate(time.Minute).Unix(),
		timeRange.End().Truncate(time.Minute).Unix(),
		limit)
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
