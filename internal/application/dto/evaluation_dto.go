package dto

import (
	"time"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

// EvaluationDTO представляет результат оценки снимка
// Используется для REST API, WebSocket и кэша.
// Поля в camelCase, так их читает фронтенд дашборда.
type EvaluationDTO struct {
	ID              string                           `json:"id"`
	CapturedAt      time.Time                        `json:"capturedAt"`
	EvaluatedAt     time.Time                        `json:"evaluatedAt"`
	Decision        valueobject.AlertDecision        `json:"decision"`
	QueueAction     valueobject.ActionRecommendation `json:"queueAction"`
	ExceptionAction valueobject.ActionRecommendation `json:"exceptionAction"`
	Breaches        []valueobject.Breach             `json:"breaches"`
	Announcements   []valueobject.Announcement       `json:"announcements"`
	Headline        string                           `json:"headline,omitempty"`
	Summaries       valueobject.PanelSummaries       `json:"summaries"`
	Issues          []string                         `json:"issues,omitempty"`
}

// FromEvaluation конвертирует доменную оценку в DTO
func FromEvaluation(e *entity.Evaluation) *EvaluationDTO {
	if e == nil {
		return nil
	}

	r := e.Result()
	out := &EvaluationDTO{
		ID:              e.ID(),
		CapturedAt:      e.CapturedAt(),
		EvaluatedAt:     e.EvaluatedAt(),
		Decision:        r.Decision,
		QueueAction:     r.QueueAction,
		ExceptionAction: r.ExceptionAction,
		Breaches:        r.Breaches,
		Announcements:   r.Announcements,
		Summaries:       r.Summaries,
		Issues:          r.Issues,
	}

	if out.Breaches == nil {
		out.Breaches = []valueobject.Breach{}
	}
	if out.Announcements == nil {
		out.Announcements = []valueobject.Announcement{}
	}
	if headline, ok := e.HeadlineAnnouncement(); ok {
		out.Headline = headline.Title
	}

	return out
}

// EvaluationSummaryDTO краткая запись для истории
type EvaluationSummaryDTO struct {
	ID          string                 `json:"id"`
	EvaluatedAt time.Time              `json:"evaluatedAt"`
	AlertState  valueobject.AlertLevel `json:"alertState"`
	ActionOwner string                 `json:"actionOwner"`
	RedCount    int                    `json:"redCount"`
	AmberCount  int                    `json:"amberCount"`
	Breaches    int                    `json:"breaches"`
}

// HistoryDTO представляет историю оценок за период
type HistoryDTO struct {
	From        time.Time                        `json:"from"`
	To          time.Time                        `json:"to"`
	Count       int                              `json:"count"`
	StateCounts map[valueobject.AlertLevel]int64 `json:"stateCounts"`
	Items       []EvaluationSummaryDTO           `json:"items"`
}

// SummaryFromEvaluation конвертирует оценку в краткую запись
func SummaryFromEvaluation(e *entity.Evaluation) EvaluationSummaryDTO {
	r := e.Result()
	return EvaluationSummaryDTO{
		ID:          e.ID(),
		EvaluatedAt: e.EvaluatedAt(),
		AlertState:  r.Decision.AlertState,
		ActionOwner: r.Decision.ActionOwner,
		RedCount:    r.Decision.RedCount,
		AmberCount:  r.Decision.AmberCount,
		Breaches:    len(r.Breaches),
	}
}
