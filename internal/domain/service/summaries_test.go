package service

import (
	"testing"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSummaries(t *testing.T) {
	s := BuildSummaries(&entity.MetricsSnapshot{
		HandoffFunnel:    &entity.Series{Values: []int{40, 35, 28}},
		QueueAging:       &entity.Series{Values: []int{9, 5, 3, 6}},
		BurstDetector:    &entity.BurstDetector{Values: []float64{2, 11}, Upper: []float64{6, 7}},
		RootCauseSplit:   &entity.RootCauseSplit{Environment: []int{1, 2, 9}, Code: []int{1, 2, 14}, BusinessInquiry: []int{0, 0, 3}},
		QueueState:       &entity.QueueState{Pending: []int{90, 97}, Exception: []int{4, 6}},
		HourlyExceptions: &entity.Series{Values: []int{18, 33, 12}},
		DailyExceptions:  &entity.Series{Values: []int{120, 180, 140}},
		Heatmap: &entity.OutOfBoundsHeatmap{Values: []entity.HeatmapCell{
			{Process: "Claims", Day: "10-17", Value: 4},
			{Process: "Claims", Day: "10-18", Value: 6},
			{Process: "Billing", Day: "10-18", Value: 12},
		}},
	}, valueobject.DefaultThresholdConfig())

	assert.Equal(t, "Latest queue states: pending 97, exception 6.", s.QueueState)
	assert.Equal(t, "Detected-to-assigned drop is 12 exceptions in live handoff.", s.Funnel)
	assert.Equal(t, "Code is dominant in the month view.", s.RootCause)
	assert.Equal(t, "6 queue items are in the 60m+ age bucket.", s.QueueAging)
	assert.Equal(t, "Latest burst 11 vs upper band 7.", s.Burst)
	assert.Equal(t, "2 process-day cells show elevated exception concentration, 1 at the red band.", s.Heatmap)
	assert.Equal(t, "Hourly range is 12 to 33 exceptions.", s.Hourly)
	assert.Equal(t, "Latest daily count is 140; monthly peak is 180.", s.Daily)
	assert.Empty(t, s.Online)
}

func TestBuildSummaries_FractionalBurstAndNoHeatmap(t *testing.T) {
	s := BuildSummaries(&entity.MetricsSnapshot{
		BurstDetector: &entity.BurstDetector{Values: []float64{3, 10.5}, Upper: []float64{4, 9.75}},
	}, valueobject.DefaultThresholdConfig())

	assert.Equal(t, "Latest burst 10.5 vs upper band 9.75.", s.Burst)
	assert.Empty(t, s.Heatmap)
}

func TestHeatmapHotCells_UsesConfiguredBand(t *testing.T) {
	snapshot := &entity.MetricsSnapshot{Heatmap: &entity.OutOfBoundsHeatmap{Values: []entity.HeatmapCell{
		{Value: 5.9}, {Value: 6}, {Value: 9.99}, {Value: 10},
	}}}

	elevated, red, ok := HeatmapHotCells(snapshot, valueobject.CountBand{Amber: 6, Red: 10})
	require.True(t, ok)
	assert.Equal(t, 3, elevated)
	assert.Equal(t, 1, red)

	elevated, red, ok = HeatmapHotCells(snapshot, valueobject.CountBand{Amber: 2, Red: 4})
	require.True(t, ok)
	assert.Equal(t, 4, elevated)
	assert.Equal(t, 4, red)

	_, _, ok = HeatmapHotCells(&entity.MetricsSnapshot{}, valueobject.CountBand{Amber: 6, Red: 10})
	assert.False(t, ok)
}

func TestOnlinePercent_GuardsZeroDenominator(t *testing.T) {
	assert.Equal(t, 0, OnlinePercent(entity.RobotSegment{}))
	assert.Equal(t, 67, OnlinePercent(entity.RobotSegment{Running: 2, Retired: 1}))
	assert.Equal(t, 100, OnlinePercent(entity.RobotSegment{Running: 5}))
}

func TestSnapshotValidator(t *testing.T) {
	v := NewSnapshotValidator()

	assert.Equal(t, []string{"Snapshot missing"}, v.Validate(nil))

	issues := v.Validate(&entity.MetricsSnapshot{
		HandoffFunnel: &entity.Series{Values: []int{1, 2}},
		BurstDetector: &entity.BurstDetector{Values: []float64{1, 2}, Upper: []float64{3}},
	})
	assert.Contains(t, issues, "Process health data missing")
	assert.Contains(t, issues, "Funnel data incomplete")
	assert.Contains(t, issues, "Queue aging data missing")
	assert.Contains(t, issues, "Burst detector band length mismatch")
	assert.Contains(t, issues, "Root cause data missing")
	assert.Contains(t, issues, "Queue state data missing")
	assert.Contains(t, issues, "Hourly series missing")
	assert.Contains(t, issues, "Daily series missing")

	assert.Empty(t, v.Validate(calmSnapshot()))
}

func TestSnapshotValidator_RootCauseNeedsMonthWindow(t *testing.T) {
	snapshot := calmSnapshot()
	snapshot.RootCauseSplit = &entity.RootCauseSplit{Environment: []int{1, 2}, Code: []int{1, 2, 3}}

	assert.Contains(t, NewSnapshotValidator().Validate(snapshot), "Root cause data incomplete")
}
