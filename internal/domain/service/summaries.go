package service

import (
	"fmt"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

// BuildSummaries формирует однострочные сводки для панелей дашборда.
// Панели без данных получают пустую сводку.
func BuildSummaries(snapshot *entity.MetricsSnapshot, cfg valueobject.ThresholdConfig) valueobject.PanelSummaries {
	var s valueobject.PanelSummaries
	if snapshot == nil {
		return s
	}

	pending, okP := last(snapshot.PendingValues())
	exception, okE := last(snapshot.ExceptionQueueValues())
	if okP && okE {
		s.QueueState = fmt.Sprintf("Latest queue states: pending %d, exception %d.", pending, exception)
	}

	if drop, ok := FunnelDrop(snapshot); ok {
		s.Funnel = fmt.Sprintf("Detected-to-assigned drop is %d exceptions in live handoff.", drop)
	}

	if name, ok := dominantRootCause(snapshot.RootCauseSplit); ok {
		s.RootCause = fmt.Sprintf("%s is dominant in the month view.", name)
	}

	if aging, ok := at(snapshot.AgingValues(), aging60Index); ok {
		s.QueueAging = fmt.Sprintf("%d queue items are in the 60m+ age bucket.", aging)
	}

	if snapshot.BurstDetector != nil {
		burst, okV := last(snapshot.BurstDetector.Values)
		band, okU := last(snapshot.BurstDetector.Upper)
		if okV && okU {
			s.Burst = fmt.Sprintf("Latest burst %g vs upper band %g.", burst, band)
		}
	}

	if elevated, red, ok := HeatmapHotCells(snapshot, cfg.Heatmap); ok {
		s.Heatmap = fmt.Sprintf("%d process-day cells show elevated exception concentration, %d at the red band.", elevated, red)
	}

	if hourly := snapshot.HourlyValues(); len(hourly) > 0 {
		lo, hi := minMax(hourly)
		s.Hourly = fmt.Sprintf("Hourly range is %d to %d exceptions.", lo, hi)
	}

	if daily := snapshot.DailyValues(); len(daily) > 0 {
		_, peak := minMax(daily)
		s.Daily = fmt.Sprintf("Latest daily count is %d; monthly peak is %d.", daily[len(daily)-1], peak)
	}

	if snapshot.Robots != nil && snapshot.Robots.Today != nil {
		s.Online = fmt.Sprintf("Today online availability is %d%%.", OnlinePercent(*snapshot.Robots.Today))
	}

	return s
}

// HeatmapHotCells считает клетки тепловой карты на уровне amber и выше и отдельно на уровне red
func HeatmapHotCells(snapshot *entity.MetricsSnapshot, band valueobject.CountBand) (elevated, red int, ok bool) {
	if snapshot == nil || snapshot.Heatmap == nil || len(snapshot.Heatmap.Values) == 0 {
		return 0, 0, false
	}
	for _, cell := range snapshot.Heatmap.Values {
		if cell.Value >= float64(band.Amber) {
			elevated++
		}
		if cell.Value >= float64(band.Red) {
			red++
		}
	}
	return elevated, red, true
}

// OnlinePercent возвращает долю работающих роботов в процентах (знаменатель не меньше 1)
func OnlinePercent(seg entity.RobotSegment) int {
	total := seg.Running + seg.Retired
	if total < 1 {
		total = 1
	}
	return roundHalfUp(float64(seg.Running) / float64(total) * 100)
}

func dominantRootCause(split *entity.RootCauseSplit) (string, bool) {
	if split == nil {
		return "", false
	}

	candidates := []struct {
		name   string
		values []int
	}{
		{"Environment", split.Environment},
		{"Code", split.Code},
		{"Business Inquiry", split.BusinessInquiry},
	}

	best, bestValue, found := "", 0, false
	for _, c := range candidates {
		v, ok := at(c.values, monthWindowIndex)
		if !ok {
			continue
		}
		if !found || v > bestValue {
			best, bestValue, found = c.name, v, true
		}
	}
	return best, found
}
