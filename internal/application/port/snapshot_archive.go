package port

import (
	"context"
	"time"
)

// SnapshotArchive определяет интерфейс для архивации исходных снимков.
type SnapshotArchive interface {
	// PutSnapshot сохраняет тело снимка и возвращает ключ объекта.
	PutSnapshot(ctx context.Context, evaluationID string, capturedAt time.Time, body []byte) (string, error)
}
