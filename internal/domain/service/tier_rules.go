package service

import "github.com/dreschagin/mission-control/internal/domain/valueobject"

// tierRule описывает одно правило таблицы: условие и формирование причины.
// Таблица просматривается сверху вниз, срабатывает первое подходящее правило.
type tierRule[T any] struct {
	tier   valueobject.ActionTier
	when   func(in T) bool
	reason func(in T) string
}

func always[T any](T) bool { return true }

func applyTierRules[T any](rules []tierRule[T], in T) valueobject.ActionRecommendation {
	for _, rule := range rules {
		if rule.when(in) {
			return valueobject.ActionRecommendation{Label: rule.tier, Reason: rule.reason(in)}
		}
	}
	return valueobject.ActionRecommendation{Label: valueobject.TierStable}
}
