package usecase

import (
	"context"
	"time"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/internal/application/port"
	"github.com/dreschagin/mission-control/internal/domain/service"
	"github.com/dreschagin/mission-control/pkg/logger"
)

// FailoverCountdownUseCase строит обратный отсчет до failover площадок
type FailoverCountdownUseCase struct {
	engine      *service.AlertPolicyEngine
	notifier    port.NotificationService
	metrics     port.PolicyMetrics
	nextRefresh func() time.Time
	logger      *logger.Logger
	now         func() time.Time
}

// NewFailoverCountdownUseCase создает новый use case.
// nextRefresh возвращает время следующего обновления данных и может быть nil.
func NewFailoverCountdownUseCase(
	engine *service.AlertPolicyEngine,
	notifier port.NotificationService,
	metrics port.PolicyMetrics,
	nextRefresh func() time.Time,
	logger *logger.Logger,
) *FailoverCountdownUseCase {
	return &FailoverCountdownUseCase{
		engine:      engine,
		notifier:    notifier,
		metrics:     metrics,
		nextRefresh: nextRefresh,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock подменяет источник времени (используется в тестах)
func (uc *FailoverCountdownUseCase) WithClock(now func() time.Time) *FailoverCountdownUseCase {
	uc.now = now
	return uc
}

// Execute возвращает текущее состояние обратного отсчета
func (uc *FailoverCountdownUseCase) Execute() *dto.CountdownDTO {
	now := uc.now()

	countdowns := uc.engine.Countdowns(now)
	out := &dto.CountdownDTO{
		GeneratedAt: now,
		Sites:       make([]dto.SiteCountdownDTO, 0, len(countdowns)),
	}

	for _, c := range countdowns {
		out.Sites = append(out.Sites, dto.SiteCountdownDTO{
			Site:        c.Target.Site,
			Zone:        c.Target.Zone,
			Target:      c.Target.At,
			TargetLabel: c.Target.At.Format("Mon Jan 2 15:04 MST"),
			Days:        c.Remaining.Days,
			Hours:       c.Remaining.Hours,
			Minutes:     c.Remaining.Minutes,
			Label:       c.Remaining.String(),
			Expired:     !now.Before(c.Target.At),
		})
	}

	if uc.nextRefresh != nil {
		if next := uc.nextRefresh(); !next.IsZero() {
			out.NextRefreshLabel = dto.RefreshLabel(next.Sub(now))
		}
	}

	return out
}

// Tick рассылает обратный отсчет клиентам и обновляет метрики
func (uc *FailoverCountdownUseCase) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	out := uc.Execute()

	if uc.metrics != nil {
		for _, site := range out.Sites {
			uc.metrics.ObserveCountdown(site.Site, site.Target.Sub(out.GeneratedAt).Minutes())
		}
	}

	if uc.notifier != nil {
		uc.notifier.BroadcastCountdown(out)
	}

	uc.logger.Debug("Countdown tick", "sites", len(out.Sites))
}
