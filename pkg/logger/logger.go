package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dreschagin/mission-control/internal/application/port"
)

const publishQueueSize = 256

// Logger пишет структурированные логи через zerolog и, при необходимости,
// дублирует записи во внешний LogPublisher (CloudWatch Logs)
type Logger struct {
	zl zerolog.Logger

	mu        sync.RWMutex
	publisher port.LogPublisher
	queue     chan port.LogEntry
	done      chan struct{}
}

// Options задает дополнительные параметры вывода
type Options struct {
	// Pretty включает человекочитаемый вывод в консоль
	Pretty bool
	// FilePath включает запись в файл с ротацией
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New создает logger с уровнем из строки (debug, info, warn, error)
func New(level string) *Logger {
	return NewWithOptions(level, Options{Pretty: os.Getenv("ENV") == "development"})
}

// NewWithOptions создает logger с дополнительными параметрами вывода
func NewWithOptions(level string, opts Options) *Logger {
	var out io.Writer = os.Stdout
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	if opts.FilePath != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
			Compress:   true,
		})
	}

	return NewWithWriter(level, out)
}

// NewWithWriter создает logger, пишущий в указанный writer (используется в тестах)
func NewWithWriter(level string, w io.Writer) *Logger {
	zl := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// SetLogPublisher подключает внешний приемник логов.
// Записи передаются асинхронно; при переполнении очереди лишние записи отбрасываются.
func (l *Logger) SetLogPublisher(publisher port.LogPublisher) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.queue != nil || publisher == nil {
		return
	}

	l.publisher = publisher
	l.queue = make(chan port.LogEntry, publishQueueSize)
	l.done = make(chan struct{})
	go l.forward(l.queue, l.done)
}

// Close останавливает пересылку логов во внешний приемник
func (l *Logger) Close() {
	l.mu.Lock()
	queue, done := l.queue, l.done
	l.queue = nil
	l.mu.Unlock()

	if queue != nil {
		close(queue)
		<-done
	}
}

func (l *Logger) forward(queue <-chan port.LogEntry, done chan<- struct{}) {
	defer close(done)

	for entry := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		// Ошибки публикации не логируются, иначе получится петля
		_ = l.publisher.Publish(ctx, entry)
		cancel()
	}
}

// Debug пишет отладочное сообщение
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.write(zerolog.DebugLevel, port.LogLevelDebug, msg, nil, args...)
}

// Info пишет информационное сообщение
func (l *Logger) Info(msg string, args ...interface{}) {
	l.write(zerolog.InfoLevel, port.LogLevelInfo, msg, nil, args...)
}

// Warn пишет предупреждение
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.write(zerolog.WarnLevel, port.LogLevelWarn, msg, nil, args...)
}

// Error пишет ошибку; err может быть nil
func (l *Logger) Error(msg string, err error, args ...interface{}) {
	l.write(zerolog.ErrorLevel, port.LogLevelError, msg, err, args...)
}

func (l *Logger) write(level zerolog.Level, pubLevel port.LogLevel, msg string, err error, args ...interface{}) {
	event := l.zl.WithLevel(level)
	if event == nil {
		return
	}

	fields := make(map[string]interface{}, len(args)/2+1)
	for i := 0; i+1 < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		fields[key] = args[i+1]
		event = event.Interface(key, args[i+1])
	}
	if err != nil {
		fields["error"] = err.Error()
		event = event.Err(err)
	}
	event.Msg(msg)

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.queue == nil {
		return
	}

	select {
	case l.queue <- port.LogEntry{Timestamp: time.Now(), Level: pubLevel, Message: msg, Fields: fields}:
	default:
	}
}
