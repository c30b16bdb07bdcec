package port

import (
	"context"

	"github.com/dreschagin/mission-control/internal/domain/entity"
)

// SnapshotHandler обрабатывает один полученный снимок
type SnapshotHandler func(ctx context.Context, snapshot *entity.MetricsSnapshot) error

// SnapshotConsumer получает снимки метрик из брокера сообщений (Port)
type SnapshotConsumer interface {
	// Consume блокируется до отмены ctx, передавая каждый снимок в handler
	Consume(ctx context.Context, handler SnapshotHandler) error

	// Close закрывает соединение с брокером
	Close() error
}
