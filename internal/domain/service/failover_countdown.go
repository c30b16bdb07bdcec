package service

import (
	"math"
	"time"

	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

// FailoverTarget хранит вычисленный момент переключения площадки
type FailoverTarget struct {
	Site string    `json:"site"`
	Zone string    `json:"zone"`
	At   time.Time `json:"at"`
}

// NextFailoverTarget вычисляет цель: через N дней в зоне площадки,
// с округлением вперед до следующего целого часа.
// Час отсекается от самого момента, поэтому в повторяющийся час перехода
// с летнего времени сохраняется его собственное смещение.
func NextFailoverTarget(site valueobject.FailoverSite, now time.Time) FailoverTarget {
	local := addDays(now.In(site.Zone), site.OffsetDays)
	intoHour := time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())

	return FailoverTarget{
		Site: site.Name,
		Zone: site.Zone.String(),
		At:   local.Add(-intoHour).Add(time.Hour),
	}
}

// ScheduleFailoverTargets вычисляет цели для всех площадок (один раз при старте)
func ScheduleFailoverTargets(sites []valueobject.FailoverSite, now time.Time) []FailoverTarget {
	targets := make([]FailoverTarget, 0, len(sites))
	for _, site := range sites {
		targets = append(targets, NextFailoverTarget(site, now))
	}
	return targets
}

// Remaining возвращает оставшееся до цели время по календарю и часам зоны цели:
// сутки перехода на летнее время считаются одним днем.
// Прошедшая цель дает нули во всех единицах.
func Remaining(target, now time.Time) valueobject.Countdown {
	if !now.Before(target) {
		return valueobject.Countdown{}
	}

	start := now.In(target.Location())
	days := int(target.Sub(start) / (24 * time.Hour))
	for days > 0 && addDays(start, days).After(target) {
		days--
	}
	for !addDays(start, days+1).After(target) {
		days++
	}

	mid := addDays(start, days)
	diff := target.Sub(mid)
	if days > 0 {
		// После целых дней остаток идет по настенным часам зоны
		_, midOffset := mid.Zone()
		_, targetOffset := target.Zone()
		if wall := diff + time.Duration(targetOffset-midOffset)*time.Second; wall >= 0 {
			diff = wall
		}
	}
	hours := int(diff / time.Hour)
	diff -= time.Duration(hours) * time.Hour

	return valueobject.Countdown{
		Days:    days,
		Hours:   hours,
		Minutes: int(diff / time.Minute),
	}
}

// addDays сдвигает дату по календарю зоны. Нулевой сдвиг возвращает момент как есть:
// AddDate нормализует время заново и в повторяющийся час выбрал бы первое вхождение.
func addDays(t time.Time, days int) time.Time {
	if days == 0 {
		return t
	}
	return t.AddDate(0, 0, days)
}

// MinutesUntil возвращает целое число минут до цели с округлением вниз (может быть отрицательным)
func MinutesUntil(target, now time.Time) int {
	return int(math.Floor(float64(target.Sub(now)) / float64(time.Minute)))
}
