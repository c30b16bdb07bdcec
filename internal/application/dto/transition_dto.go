package dto

import "time"

// AlertTransitionDTO представляет запись журнала переходов уровня тревоги
type AlertTransitionDTO struct {
	EvaluationID string    `json:"evaluationId"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	ActionOwner  string    `json:"actionOwner"`
	RedCount     int       `json:"redCount"`
	AmberCount   int       `json:"amberCount"`
	Signals      []string  `json:"signals"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// AlertTransitionPageDTO содержит страницу журнала переходов
type AlertTransitionPageDTO struct {
	Items      []AlertTransitionDTO `json:"items"`
	NextCursor string               `json:"nextCursor,omitempty"`
}
