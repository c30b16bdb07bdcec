package port

import (
	"context"
	"time"
)

// LogLevel уровень записи для внешнего приемника логов
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry запись лога, которую logger дублирует во внешний приемник.
// Fields содержит пары ключ-значение из вызова logger (alert_state, source, request_id).
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Fields    map[string]interface{}
}

// LogPublisher доставляет записи лога во внешнюю систему (CloudWatch Logs) (Port)
type LogPublisher interface {
	// Publish буферизует одну запись
	Publish(ctx context.Context, entry LogEntry) error

	// PublishBatch буферизует несколько записей; лимиты пакета соблюдает реализация
	PublishBatch(ctx context.Context, entries []LogEntry) error

	// Flush отправляет буфер; вызывается при graceful shutdown
	Flush(ctx context.Context) error
}
