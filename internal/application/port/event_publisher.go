package port

import "context"

// Темы событий конвейера оценки. Брокер добавляет к ним свой префикс.
const (
	SubjectEvaluationCompleted = "evaluation.completed"
	SubjectAlertStateChanged   = "alert.state_changed"
	SubjectAnnouncementRaised  = "announcement.raised"
)

// EventPublisher отдает события оценки во внешнюю шину.
// Ошибка публикации не должна прерывать оценку: вызывающий ее только логирует.
type EventPublisher interface {
	PublishEvent(ctx context.Context, subject string, payload any) error
	Close() error
}
