package service

import (
	"fmt"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

// Пороги рекомендации по очередям
const (
	queueExceptionHard  = 12
	queuePendingHard    = 130
	queueExceptionRisen = 9
	queuePendingRisen   = 100
	queueExceptionWatch = 8
	queuePendingWatch   = 100
)

type queueTrend struct {
	pending         window
	exception       window
	pendingRising   bool
	exceptionRising bool
}

var queueRules = []tierRule[queueTrend]{
	{
		tier: valueobject.TierActionRequired,
		when: func(q queueTrend) bool {
			return q.exception.now >= queueExceptionHard ||
				q.pending.now >= queuePendingHard ||
				(q.pendingRising && q.exception.now >= queueExceptionRisen) ||
				(q.exceptionRising && q.pending.now >= queuePendingRisen)
		},
		reason: func(q queueTrend) string {
			return fmt.Sprintf("Immediate action: pending %d, exceptions %d (risk threshold breached).",
				q.pending.now, q.exception.now)
		},
	},
	{
		tier: valueobject.TierWatchClosely,
		when: func(q queueTrend) bool {
			return q.exception.now >= queueExceptionWatch ||
				q.pending.now >= queuePendingWatch ||
				q.pendingRising ||
				q.exceptionRising
		},
		reason: func(q queueTrend) string {
			return fmt.Sprintf("Watch list: pending %d, exceptions %d (rising but below hard threshold).",
				q.pending.now, q.exception.now)
		},
	},
	{
		tier: valueobject.TierStable,
		when: always[queueTrend],
		reason: func(q queueTrend) string {
			return fmt.Sprintf("No immediate action: pending %d, exceptions %d are within normal band.",
				q.pending.now, q.exception.now)
		},
	},
}

// DeriveQueueAction выдает рекомендацию по состоянию очередей pending и exception
func DeriveQueueAction(pending, exception []int) valueobject.ActionRecommendation {
	q := queueTrend{
		pending:   trailingWindow(pending),
		exception: trailingWindow(exception),
	}
	q.pendingRising = q.pending.rising()
	q.exceptionRising = q.exception.rising()

	return applyTierRules(queueRules, q)
}

// DeriveQueueActionFromSnapshot выдает рекомендацию по очередям снимка
func DeriveQueueActionFromSnapshot(snapshot *entity.MetricsSnapshot) valueobject.ActionRecommendation {
	return DeriveQueueAction(snapshot.PendingValues(), snapshot.ExceptionQueueValues())
}
