package port

import "github.com/dreschagin/mission-control/internal/application/dto"

// NotificationService live-лента для открытых дашбордов.
// Методы Broadcast* не блокируют вызывающего: медленный клиент отключается, а не тормозит оценку.
type NotificationService interface {
	Broadcast(evaluation *dto.EvaluationDTO)
	BroadcastCountdown(countdown *dto.CountdownDTO)
	BroadcastAnnouncement(announcement *dto.AnnouncementDTO)

	// ClientCount число подключенных дашбордов
	ClientCount() int
}
