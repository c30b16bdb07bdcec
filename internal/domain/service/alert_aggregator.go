package service

import "github.com/dreschagin/mission-control/internal/domain/valueobject"

// AggregateSignals сводит сигналы в системный уровень тревоги и ответственного
func AggregateSignals(signals []valueobject.Signal, redCardsForCrisis int) valueobject.AlertDecision {
	decision := valueobject.AlertDecision{
		Signals: append([]valueobject.Signal(nil), signals...),
	}
	if decision.Signals == nil {
		decision.Signals = []valueobject.Signal{}
	}

	for _, s := range signals {
		switch s.Level {
		case valueobject.AlertRed:
			decision.RedCount++
		case valueobject.AlertAmber:
			decision.AmberCount++
		}
	}

	switch {
	case decision.RedCount >= redCardsForCrisis:
		decision.AlertState = valueobject.AlertRed
	case decision.RedCount == 1 || decision.AmberCount > 0:
		decision.AlertState = valueobject.AlertAmber
	default:
		decision.AlertState = valueobject.AlertGreen
	}

	decision.ActionOwner = ResolveActionOwner(decision.AlertState, decision.HasSignal(valueobject.SignalInfrastructure))
	return decision
}

// ResolveActionOwner возвращает ответственного за реакцию на уровень тревоги
func ResolveActionOwner(state valueobject.AlertLevel, infrastructure bool) string {
	switch state {
	case valueobject.AlertRed:
		if infrastructure {
			return valueobject.OwnerDevelopersInfrastructure
		}
		return valueobject.OwnerDevelopersImmediate
	case valueobject.AlertAmber:
		if infrastructure {
			return valueobject.OwnerControllersInfrastructure
		}
		return valueobject.OwnerControllersTakeAction
	default:
		return valueobject.OwnerControllersMonitor
	}
}
