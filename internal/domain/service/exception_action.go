package service

import (
	"fmt"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

// Пороги рекомендации по частоте исключений
const (
	hourSpikeFloor     = 45
	hourSpikeFactor    = 1.55
	hourAboveFactor    = 1.25
	dayAboveFactor     = 1.15
	hourSustainedFloor = 32
	hourJumpWatch      = 10
)

const insufficientDataReason = "Insufficient data to evaluate action."

type exceptionTrend struct {
	hour         window
	hourBaseline int
	day          window
	dayBaseline  int

	hourRise3 bool
	dayRise2  bool
	hourSpike bool
	hourAbove bool
	dayAbove  bool
}

func (e exceptionTrend) vsPrev() int {
	return e.hour.now - e.hour.prev
}

func (e exceptionTrend) vsBaseline() int {
	return e.hour.now - e.hourBaseline
}

var exceptionRules = []tierRule[exceptionTrend]{
	{
		tier: valueobject.TierActionRequired,
		when: func(e exceptionTrend) bool {
			return e.hourSpike ||
				(e.hourRise3 && e.dayRise2) ||
				(e.hourAbove && e.dayAbove && e.hour.now >= hourSustainedFloor)
		},
		reason: func(e exceptionTrend) string {
			return fmt.Sprintf("Immediate action: hour %d (%s vs prev, %s vs baseline), sustained rise detected.",
				e.hour.now, signed(e.vsPrev()), signed(e.vsBaseline()))
		},
	},
	{
		tier: valueobject.TierWatchClosely,
		when: func(e exceptionTrend) bool {
			return e.hourAbove || e.dayRise2 || e.dayAbove || e.vsPrev() >= hourJumpWatch
		},
		reason: func(e exceptionTrend) string {
			return fmt.Sprintf("Watch list: hour %d (%s vs prev, %s vs baseline), upward pressure building.",
				e.hour.now, signed(e.vsPrev()), signed(e.vsBaseline()))
		},
	},
	{
		tier: valueobject.TierStable,
		when: always[exceptionTrend],
		reason: func(e exceptionTrend) string {
			return fmt.Sprintf("No immediate action: hour %d is within normal band (baseline %d).",
				e.hour.now, e.hourBaseline)
		},
	},
}

// DeriveExceptionAction выдает рекомендацию по почасовому и дневному ряду исключений
func DeriveExceptionAction(hourly, daily []int) valueobject.ActionRecommendation {
	if len(hourly) == 0 || len(daily) == 0 {
		return valueobject.ActionRecommendation{Label: valueobject.TierStable, Reason: insufficientDataReason}
	}

	e := exceptionTrend{
		hour:         trailingWindow(hourly),
		hourBaseline: baseline(hourly),
		day:          trailingWindow(daily),
		dayBaseline:  baseline(daily),
	}
	e.hourRise3 = e.hour.rising()
	e.dayRise2 = e.day.rising()
	e.hourSpike = e.hour.now >= max(hourSpikeFloor, roundHalfUp(float64(e.hourBaseline)*hourSpikeFactor))
	e.hourAbove = e.hour.now >= roundHalfUp(float64(e.hourBaseline)*hourAboveFactor)
	e.dayAbove = e.day.now >= roundHalfUp(float64(e.dayBaseline)*dayAboveFactor)

	return applyTierRules(exceptionRules, e)
}

// DeriveExceptionActionFromSnapshot выдает рекомендацию по исключениям снимка
func DeriveExceptionActionFromSnapshot(snapshot *entity.MetricsSnapshot) valueobject.ActionRecommendation {
	return DeriveExceptionAction(snapshot.HourlyValues(), snapshot.DailyValues())
}
