package service

import (
	"sort"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

// RankBreaches возвращает процессы выше красного порога, по убыванию частоты исключений.
// Процессы на пороге и ниже исключаются полностью.
func RankBreaches(processes []entity.ProcessHealth, cfg valueobject.ThresholdConfig) []valueobject.Breach {
	breaches := make([]valueobject.Breach, 0)

	for _, p := range processes {
		if p.ExceptionRate <= cfg.ExceptionRate.Red {
			continue
		}
		breaches = append(breaches, valueobject.Breach{
			Process:  p.Name,
			MaxValue: roundHalfUp(p.ExceptionRate * 100),
			Level:    valueobject.AlertRed,
		})
	}

	sort.SliceStable(breaches, func(i, j int) bool {
		return breaches[i].MaxValue > breaches[j].MaxValue
	})

	return breaches
}
