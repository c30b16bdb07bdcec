package service

import (
	"time"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

// AlertPolicyEngine объединяет все вычислители политики алертов (Domain Service).
// Хранит только конфигурацию и цели failover, вычисленные при старте.
type AlertPolicyEngine struct {
	thresholds valueobject.ThresholdConfig
	targets    []FailoverTarget
	validator  *SnapshotValidator
}

// NewAlertPolicyEngine создает движок с заданными порогами и целями failover
func NewAlertPolicyEngine(thresholds valueobject.ThresholdConfig, targets []FailoverTarget) *AlertPolicyEngine {
	return &AlertPolicyEngine{
		thresholds: thresholds,
		targets:    append([]FailoverTarget(nil), targets...),
		validator:  NewSnapshotValidator(),
	}
}

// Thresholds возвращает активную конфигурацию порогов
func (e *AlertPolicyEngine) Thresholds() valueobject.ThresholdConfig {
	return e.thresholds
}

// Targets возвращает копию целей failover
func (e *AlertPolicyEngine) Targets() []FailoverTarget {
	return append([]FailoverTarget(nil), e.targets...)
}

// Evaluate выполняет полный прогон политики по снимку
func (e *AlertPolicyEngine) Evaluate(snapshot *entity.MetricsSnapshot, now time.Time) entity.PolicyResult {
	decision := AggregateSignals(CollectSignals(snapshot, e.thresholds), e.thresholds.RedCardsForCrisis)

	var processes []entity.ProcessHealth
	if snapshot != nil {
		processes = snapshot.ProcessHealth
	}

	return entity.PolicyResult{
		Decision:        decision,
		QueueAction:     DeriveQueueActionFromSnapshot(snapshot),
		ExceptionAction: DeriveExceptionActionFromSnapshot(snapshot),
		Breaches:        RankBreaches(processes, e.thresholds),
		Announcements:   DeriveAnnouncements(decision, e.thresholds, e.targets, now),
		Summaries:       BuildSummaries(snapshot, e.thresholds),
		Issues:          e.validator.Validate(snapshot),
		EvaluatedAt:     now,
	}
}

// Countdowns возвращает оставшееся время до каждой цели failover
func (e *AlertPolicyEngine) Countdowns(now time.Time) []SiteCountdown {
	result := make([]SiteCountdown, 0, len(e.targets))
	for _, t := range e.targets {
		result = append(result, SiteCountdown{Target: t, Remaining: Remaining(t.At, now)})
	}
	return result
}

// SiteCountdown связывает цель failover с оставшимся временем
type SiteCountdown struct {
	Target    FailoverTarget
	Remaining valueobject.Countdown
}
