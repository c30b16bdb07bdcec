package service

import (
	"testing"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateFunnel(t *testing.T) {
	cfg := valueobject.DefaultThresholdConfig()

	tests := []struct {
		name   string
		values []int
		want   valueobject.AlertLevel
		ok     bool
	}{
		{name: "red at threshold", values: []int{40, 35, 28, 20, 10}, want: valueobject.AlertRed, ok: true},
		{name: "amber band", values: []int{40, 38, 33}, want: valueobject.AlertAmber, ok: true},
		{name: "below amber", values: []int{40, 39, 36}, ok: false},
		{name: "short series", values: []int{40, 39}, ok: false},
		{name: "missing", values: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := &entity.MetricsSnapshot{}
			if tt.values != nil {
				snapshot.HandoffFunnel = &entity.Series{Values: tt.values}
			}

			signal, ok := EvaluateFunnel(snapshot, cfg)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, valueobject.SignalFunnel, signal.Key)
				assert.Equal(t, tt.want, signal.Level)
			}
		})
	}
}

func TestEvaluateProcessQuality(t *testing.T) {
	cfg := valueobject.DefaultThresholdConfig()

	atThreshold := &entity.MetricsSnapshot{ProcessHealth: []entity.ProcessHealth{
		{Name: "Invoices", ExceptionRate: 0.10},
		{Name: "Payroll", ExceptionRate: 0.09},
	}}
	_, ok := EvaluateProcessQuality(atThreshold, cfg)
	assert.False(t, ok, "rate equal to red threshold must not raise a signal")

	above := &entity.MetricsSnapshot{ProcessHealth: []entity.ProcessHealth{
		{Name: "Invoices", ExceptionRate: 0.02},
		{Name: "Payroll", ExceptionRate: 0.11},
	}}
	signal, ok := EvaluateProcessQuality(above, cfg)
	assert.True(t, ok)
	assert.Equal(t, valueobject.AlertRed, signal.Level)

	_, ok = EvaluateProcessQuality(nil, cfg)
	assert.False(t, ok)
}

func TestEvaluateAging(t *testing.T) {
	cfg := valueobject.DefaultThresholdConfig()

	signal, ok := EvaluateAging(&entity.MetricsSnapshot{QueueAging: &entity.Series{Values: []int{20, 10, 6, 7}}}, cfg)
	assert.True(t, ok)
	assert.Equal(t, valueobject.AlertRed, signal.Level)

	signal, ok = EvaluateAging(&entity.MetricsSnapshot{QueueAging: &entity.Series{Values: []int{20, 10, 6, 4}}}, cfg)
	assert.True(t, ok)
	assert.Equal(t, valueobject.AlertAmber, signal.Level)

	_, ok = EvaluateAging(&entity.MetricsSnapshot{QueueAging: &entity.Series{Values: []int{20, 10, 6}}}, cfg)
	assert.False(t, ok)
}

func TestEvaluateBurst(t *testing.T) {
	cfg := valueobject.DefaultThresholdConfig()

	tests := []struct {
		name   string
		values []float64
		upper  []float64
		want   valueobject.AlertLevel
		ok     bool
	}{
		{name: "three over band", values: []float64{5, 9, 9, 9}, upper: []float64{6, 6, 6, 6}, want: valueobject.AlertRed, ok: true},
		{name: "one over band", values: []float64{5, 9, 5}, upper: []float64{6, 6, 6}, want: valueobject.AlertAmber, ok: true},
		{name: "equal to band is not over", values: []float64{6, 6}, upper: []float64{6, 6}, ok: false},
		{name: "missing upper ignores points", values: []float64{9, 9, 9}, upper: []float64{6}, want: valueobject.AlertAmber, ok: true},
		{name: "fractional band", values: []float64{10.5, 3, 9.8}, upper: []float64{9.75, 4, 9.75}, want: valueobject.AlertAmber, ok: true},
		{name: "empty", values: []float64{}, upper: []float64{}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := &entity.MetricsSnapshot{BurstDetector: &entity.BurstDetector{Values: tt.values, Upper: tt.upper}}
			signal, ok := EvaluateBurst(snapshot, cfg)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, signal.Level)
			}
		})
	}
}

func TestEvaluateInfrastructure(t *testing.T) {
	cfg := valueobject.DefaultThresholdConfig()

	tests := []struct {
		name string
		env  int
		code int
		want valueobject.AlertLevel
		ok   bool
	}{
		{name: "red dominance", env: 20, code: 10, want: valueobject.AlertRed, ok: true},
		{name: "amber dominance", env: 12, code: 5, want: valueobject.AlertAmber, ok: true},
		{name: "below volume floor", env: 11, code: 2, ok: false},
		{name: "code dominates", env: 20, code: 25, ok: false},
		{name: "tie is not dominance", env: 20, code: 20, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := &entity.MetricsSnapshot{RootCauseSplit: &entity.RootCauseSplit{
				Environment: []int{1, 4, tt.env},
				Code:        []int{1, 3, tt.code},
			}}
			signal, ok := EvaluateInfrastructure(snapshot, cfg)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, signal.Level)
			}
		})
	}
}

func TestCollectSignals_OrderAndEmptySnapshot(t *testing.T) {
	cfg := valueobject.DefaultThresholdConfig()

	assert.Empty(t, CollectSignals(&entity.MetricsSnapshot{}, cfg))
	assert.Empty(t, CollectSignals(nil, cfg))

	snapshot := &entity.MetricsSnapshot{
		ProcessHealth:  []entity.ProcessHealth{{Name: "Claims", ExceptionRate: 0.2}},
		HandoffFunnel:  &entity.Series{Values: []int{30, 25, 23}},
		QueueAging:     &entity.Series{Values: []int{1, 1, 1, 8}},
		BurstDetector:  &entity.BurstDetector{Values: []float64{9}, Upper: []float64{5}},
		RootCauseSplit: &entity.RootCauseSplit{Environment: []int{0, 0, 14}, Code: []int{0, 0, 3}},
	}

	signals := CollectSignals(snapshot, cfg)
	keys := make([]valueobject.SignalKey, 0, len(signals))
	for _, s := range signals {
		keys = append(keys, s.Key)
	}

	assert.Equal(t, []valueobject.SignalKey{
		valueobject.SignalFunnel,
		valueobject.SignalProcessQuality,
		valueobject.SignalAging,
		valueobject.SignalBurst,
		valueobject.SignalInfrastructure,
	}, keys)
}
