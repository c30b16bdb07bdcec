package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

// ErrNotFound возвращается, когда оценка не найдена
var ErrNotFound = errors.New("evaluation not found")

// EvaluationRepository определяет интерфейс для работы с хранилищем оценок (Port)
// Реализация будет в Infrastructure слое
type EvaluationRepository interface {
	// Save сохраняет оценку вместе с исходным снимком
	Save(ctx context.Context, evaluation *entity.Evaluation, snapshot *entity.MetricsSnapshot) error

	// FindLatest находит последнюю оценку
	FindLatest(ctx context.Context) (*entity.Evaluation, error)

	// FindLatestSnapshot находит снимок последней оценки
	FindLatestSnapshot(ctx context.Context) (*entity.MetricsSnapshot, error)

	// FindByTimeRange находит оценки во временном диапазоне, новые первыми
	FindByTimeRange(ctx context.Context, timeRange valueobject.TimeRange, limit int) ([]*entity.Evaluation, error)

	// CountByAlertState возвращает количество оценок по уровням тревоги в диапазоне
	CountByAlertState(ctx context.Context, timeRange valueobject.TimeRange) (map[valueobject.AlertLevel]int64, error)

	// DeleteOlderThan удаляет оценки старше указанного момента
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
