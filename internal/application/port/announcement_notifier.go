package port

import (
	"context"

	"github.com/dreschagin/mission-control/internal/application/dto"
)

// AnnouncementNotifier доставляет критические объявления во внешние каналы (Telegram, SNS)
type AnnouncementNotifier interface {
	// Name возвращает название канала для логов
	Name() string

	// Notify отправляет объявление
	Notify(ctx context.Context, announcement *dto.AnnouncementDTO) error
}
