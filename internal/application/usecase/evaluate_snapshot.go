package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/internal/application/port"
	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/repository"
	"github.com/dreschagin/mission-control/internal/domain/service"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	"github.com/dreschagin/mission-control/pkg/logger"
)

// ErrEmptySnapshot возвращается, если снимок не передан
var ErrEmptySnapshot = errors.New("snapshot is empty")

// Источники снимков для логов и метрик
const (
	SourceHTTP    = "http"
	SourceKafka   = "kafka"
	SourceRefresh = "refresh"
)

const latestEvaluationCacheKey = "evaluation:latest"

// EvaluateSnapshotDeps содержит необязательные адаптеры; nil означает, что канал отключен
type EvaluateSnapshotDeps struct {
	Cache         port.Cache
	Metrics       port.MetricsPublisher
	PolicyMetrics port.PolicyMetrics
	Events        port.EventPublisher
	Archive       port.SnapshotArchive
	Transitions   port.AlertTransitionRepository
	Announcers    []port.AnnouncementNotifier
}

// EvaluateSnapshotUseCase координирует оценку снимка, сохранение и рассылку результата
type EvaluateSnapshotUseCase struct {
	engine     *service.AlertPolicyEngine
	repository repository.EvaluationRepository
	notifier   port.NotificationService
	deps       EvaluateSnapshotDeps
	logger     *logger.Logger
	now        func() time.Time

	mu           sync.Mutex
	last         *entity.Evaluation
	lastSnapshot *entity.MetricsSnapshot
	loaded       bool
}

// NewEvaluateSnapshotUseCase создает новый use case
func NewEvaluateSnapshotUseCase(
	engine *service.AlertPolicyEngine,
	repository repository.EvaluationRepository,
	notifier port.NotificationService,
	deps EvaluateSnapshotDeps,
	logger *logger.Logger,
) *EvaluateSnapshotUseCase {
	return &EvaluateSnapshotUseCase{
		engine:     engine,
		repository: repository,
		notifier:   notifier,
		deps:       deps,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock подменяет источник времени (используется в тестах)
func (uc *EvaluateSnapshotUseCase) WithClock(now func() time.Time) *EvaluateSnapshotUseCase {
	uc.now = now
	return uc
}

// Preview вычисляет политику без сохранения и рассылки
func (uc *EvaluateSnapshotUseCase) Preview(snapshot *entity.MetricsSnapshot) (*dto.EvaluationDTO, error) {
	if snapshot == nil {
		return nil, ErrEmptySnapshot
	}
	result := uc.engine.Evaluate(snapshot, uc.now())
	return dto.FromEvaluation(entity.NewEvaluation(result, snapshot.CapturedAt)), nil
}

// Execute оценивает снимок, сохраняет результат и рассылает его
func (uc *EvaluateSnapshotUseCase) Execute(
	ctx context.Context,
	snapshot *entity.MetricsSnapshot,
	source string,
) (*dto.EvaluationDTO, error) {
	if snapshot == nil {
		if uc.deps.PolicyMetrics != nil {
			uc.deps.PolicyMetrics.ObserveSnapshotRejected(source, "empty")
		}
		return nil, ErrEmptySnapshot
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	// 1. Вычисляем политику
	result := uc.engine.Evaluate(snapshot, uc.now())
	evaluation := entity.NewEvaluation(result, snapshot.CapturedAt)

	if len(result.Issues) > 0 {
		uc.logger.Warn("Snapshot shape issues", "source", source, "issues", result.Issues)
	}

	prev := uc.previous(ctx)

	// 2. Сохраняем в репозитории
	if err := uc.repository.Save(ctx, evaluation, snapshot); err != nil {
		uc.logger.Error("Failed to save evaluation", err, "id", evaluation.ID())
		return nil, fmt.Errorf("failed to save evaluation: %w", err)
	}

	uc.logger.Debug("Evaluation saved",
		"id", evaluation.ID(),
		"source", source,
		"alert_state", evaluation.AlertState().String())

	out := dto.FromEvaluation(evaluation)

	// 3. Обновляем кэш и рассылаем клиентам
	if uc.deps.Cache != nil {
		if err := uc.deps.Cache.Set(ctx, latestEvaluationCacheKey, out); err != nil {
			uc.logger.Warn("Failed to cache latest evaluation", "error", err.Error())
		}
		if err := uc.deps.Cache.DeletePattern(ctx, historyCachePattern); err != nil {
			uc.logger.Warn("Failed to invalidate history cache", "error", err.Error())
		}
	}

	if uc.notifier != nil {
		uc.notifier.Broadcast(out)
		uc.logger.Debug("Evaluation broadcasted to clients", "client_count", uc.notifier.ClientCount())
	}

	// 4. Метрики и архив
	uc.publishMetrics(ctx, evaluation, source)
	uc.archiveSnapshot(ctx, evaluation, snapshot)

	// 5. События и объявления
	uc.publishEvent(ctx, port.SubjectEvaluationCompleted, dto.SummaryFromEvaluation(evaluation))

	if evaluation.TransitionedFrom(prev) {
		uc.recordTransition(ctx, prev, evaluation)
	}
	uc.raiseAnnouncements(ctx, prev, evaluation)

	uc.last = evaluation
	uc.lastSnapshot = snapshot

	return out, nil
}

// LastSnapshot возвращает последний оцененный снимок
func (uc *EvaluateSnapshotUseCase) LastSnapshot() *entity.MetricsSnapshot {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.lastSnapshot
}

// previous возвращает предыдущую оценку; после рестарта берет ее из репозитория
func (uc *EvaluateSnapshotUseCase) previous(ctx context.Context) *entity.Evaluation {
	if uc.last != nil || uc.loaded {
		return uc.last
	}
	uc.loaded = true

	latest, err := uc.repository.FindLatest(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			uc.logger.Warn("Failed to load previous evaluation", "error", err.Error())
		}
		return nil
	}
	uc.last = latest
	return latest
}

func (uc *EvaluateSnapshotUseCase) publishMetrics(ctx context.Context, evaluation *entity.Evaluation, source string) {
	if uc.deps.PolicyMetrics != nil {
		uc.deps.PolicyMetrics.ObserveEvaluation(evaluation, source)
	}

	if uc.deps.Metrics == nil {
		return
	}
	if err := uc.deps.Metrics.PublishEvaluation(ctx, evaluation); err != nil {
		// Ошибки публикации не блокируют основной поток
		uc.logger.Warn("Failed to publish evaluation metrics to CloudWatch",
			"error", err.Error(),
			"id", evaluation.ID())
	}
}

func (uc *EvaluateSnapshotUseCase) archiveSnapshot(ctx context.Context, evaluation *entity.Evaluation, snapshot *entity.MetricsSnapshot) {
	if uc.deps.Archive == nil {
		return
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		uc.logger.Warn("Failed to encode snapshot for archive", "error", err.Error())
		return
	}

	key, err := uc.deps.Archive.PutSnapshot(ctx, evaluation.ID(), evaluation.CapturedAt(), body)
	if err != nil {
		uc.logger.Warn("Failed to archive snapshot", "error", err.Error(), "id", evaluation.ID())
		return
	}
	uc.logger.Debug("Snapshot archived", "key", key)
}

func (uc *EvaluateSnapshotUseCase) publishEvent(ctx context.Context, subject string, event interface{}) {
	if uc.deps.Events == nil {
		return
	}
	if err := uc.deps.Events.PublishEvent(ctx, subject, event); err != nil {
		uc.logger.Warn("Failed to publish event", "subject", subject, "error", err.Error())
	}
}

func (uc *EvaluateSnapshotUseCase) recordTransition(ctx context.Context, prev, current *entity.Evaluation) {
	from := valueobject.AlertGreen.String()
	if prev != nil {
		from = prev.AlertState().String()
	}

	decision := current.Result().Decision
	signals := make([]string, 0, len(decision.Signals))
	for _, s := range decision.Signals {
		signals = append(signals, string(s.Key)+":"+s.Level.String())
	}

	transition := port.AlertTransition{
		EvaluationID: current.ID(),
		From:         from,
		To:           current.AlertState().String(),
		ActionOwner:  decision.ActionOwner,
		RedCount:     decision.RedCount,
		AmberCount:   decision.AmberCount,
		Signals:      signals,
		OccurredAt:   current.EvaluatedAt(),
	}

	uc.logger.Info("Alert state changed",
		"from", transition.From,
		"to", transition.To,
		"owner", transition.ActionOwner)

	if uc.deps.Transitions != nil {
		if err := uc.deps.Transitions.Put(ctx, transition); err != nil {
			uc.logger.Warn("Failed to record alert transition", "error", err.Error())
		}
	}
	uc.publishEvent(ctx, port.SubjectAlertStateChanged, transition)
}

// raiseAnnouncements рассылает объявления, вид которых не был активен в предыдущей оценке
func (uc *EvaluateSnapshotUseCase) raiseAnnouncements(ctx context.Context, prev, current *entity.Evaluation) {
	active := make(map[valueobject.AnnouncementKind]bool)
	if prev != nil {
		for _, a := range prev.Result().Announcements {
			active[a.Kind] = true
		}
	}

	decision := current.Result().Decision
	for _, a := range current.Result().Announcements {
		if active[a.Kind] {
			continue
		}

		announcement := &dto.AnnouncementDTO{
			EvaluationID: current.ID(),
			Kind:         a.Kind,
			Title:        a.Title,
			AlertState:   decision.AlertState,
			ActionOwner:  decision.ActionOwner,
			RaisedAt:     current.EvaluatedAt(),
		}

		uc.logger.Warn("Critical announcement raised", "kind", string(a.Kind), "title", a.Title)

		if uc.notifier != nil {
			uc.notifier.BroadcastAnnouncement(announcement)
		}
		for _, n := range uc.deps.Announcers {
			if err := n.Notify(ctx, announcement); err != nil {
				uc.logger.Warn("Failed to deliver announcement", "channel", n.Name(), "error", err.Error())
			}
		}
		uc.publishEvent(ctx, port.SubjectAnnouncementRaised, announcement)
	}
}
