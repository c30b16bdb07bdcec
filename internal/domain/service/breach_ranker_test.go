package service

import (
	"testing"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankBreaches(t *testing.T) {
	cfg := valueobject.DefaultThresholdConfig()
	processes := []entity.ProcessHealth{
		{Name: "Invoices", ExceptionRate: 0.12},
		{Name: "Payroll", ExceptionRate: 0.10},
		{Name: "Claims", ExceptionRate: 0.27},
		{Name: "Onboarding", ExceptionRate: 0.04},
		{Name: "Refunds", ExceptionRate: 0.115},
	}

	breaches := RankBreaches(processes, cfg)

	require.Len(t, breaches, 3)
	assert.Equal(t, valueobject.Breach{Process: "Claims", MaxValue: 27, Level: valueobject.AlertRed}, breaches[0])
	assert.Equal(t, "Invoices", breaches[1].Process)
	assert.Equal(t, "Refunds", breaches[2].Process)
	assert.Equal(t, 12, breaches[2].MaxValue)
}

func TestRankBreaches_SortedAndAboveThreshold(t *testing.T) {
	cfg := valueobject.DefaultThresholdConfig()

	processes := make([]entity.ProcessHealth, 0, 40)
	for i := 0; i < 40; i++ {
		processes = append(processes, entity.ProcessHealth{
			Name:          "proc",
			ExceptionRate: float64((i*37)%40) / 100,
		})
	}

	breaches := RankBreaches(processes, cfg)
	assert.NotEmpty(t, breaches)

	for i, b := range breaches {
		assert.Greater(t, float64(b.MaxValue)/100, cfg.ExceptionRate.Red-0.005)
		if i > 0 {
			assert.GreaterOrEqual(t, breaches[i-1].MaxValue, b.MaxValue)
		}
	}

	above := 0
	for _, p := range processes {
		if p.ExceptionRate > cfg.ExceptionRate.Red {
			above++
		}
	}
	assert.Len(t, breaches, above)
}

func TestRankBreaches_Empty(t *testing.T) {
	breaches := RankBreaches(nil, valueobject.DefaultThresholdConfig())
	assert.NotNil(t, breaches)
	assert.Empty(t, breaches)
}
