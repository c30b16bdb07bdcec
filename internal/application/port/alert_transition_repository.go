package port

import (
	"context"
	"time"
)

// AlertTransition описывает смену системного уровня тревоги.
type AlertTransition struct {
	EvaluationID string
	From         string
	To           string
	ActionOwner  string
	RedCount     int
	AmberCount   int
	Signals      []string
	OccurredAt   time.Time
}

// AlertTransitionQuery определяет параметры выборки переходов.
type AlertTransitionQuery struct {
	Limit  int
	Cursor string
	From   time.Time
	To     time.Time
	// State фильтрует по целевому уровню (GREEN, AMBER, RED); пусто означает все.
	State string
}

// AlertTransitionPage содержит результат выборки и курсор следующей страницы.
type AlertTransitionPage struct {
	Items      []AlertTransition
	NextCursor string
}

// AlertTransitionRepository определяет интерфейс журнала переходов уровня тревоги.
type AlertTransitionRepository interface {
	Put(ctx context.Context, transition AlertTransition) error
	List(ctx context.Context, query AlertTransitionQuery) (AlertTransitionPage, error)
}
