package port

import (
	"context"

	"github.com/dreschagin/mission-control/internal/domain/entity"
)

// MetricsPublisher выгружает метрики оценок во внешнюю систему наблюдения.
// Реализация буферизует точки; Flush вызывается при остановке сервиса.
type MetricsPublisher interface {
	PublishEvaluation(ctx context.Context, evaluation *entity.Evaluation) error
	Flush(ctx context.Context) error
}

// PolicyMetrics счетчики процесса для скрейпа.
// source принимает значения usecase.Source*.
type PolicyMetrics interface {
	ObserveEvaluation(evaluation *entity.Evaluation, source string)
	ObserveSnapshotRejected(source, reason string)
	ObserveCountdown(site string, remainingMinutes float64)
}
