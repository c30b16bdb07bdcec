package entity

import (
	"time"

	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	"github.com/google/uuid"
)

// PolicyResult содержит все выходные данные одного прогона политики алертов
type PolicyResult struct {
	Decision        valueobject.AlertDecision        `json:"decision"`
	QueueAction     valueobject.ActionRecommendation `json:"queueAction"`
	ExceptionAction valueobject.ActionRecommendation `json:"exceptionAction"`
	Breaches        []valueobject.Breach             `json:"breaches"`
	Announcements   []valueobject.Announcement       `json:"announcements"`
	Summaries       valueobject.PanelSummaries       `json:"summaries"`
	Issues          []string                         `json:"issues,omitempty"`
	EvaluatedAt     time.Time                        `json:"evaluatedAt"`
}

// Evaluation представляет сохраненный результат оценки снимка (Aggregate Root)
type Evaluation struct {
	id         string
	result     PolicyResult
	capturedAt time.Time
	createdAt  time.Time
}

// NewEvaluation создает новую оценку (Factory Method)
func NewEvaluation(result PolicyResult, capturedAt time.Time) *Evaluation {
	now := time.Now()
	if capturedAt.IsZero() {
		capturedAt = result.EvaluatedAt
	}

	return &Evaluation{
		id:         uuid.New().String(),
		result:     result,
		capturedAt: capturedAt,
		createdAt:  now,
	}
}

// ReconstructEvaluation восстанавливает оценку из хранилища (для Repository)
func ReconstructEvaluation(id string, result PolicyResult, capturedAt, createdAt time.Time) *Evaluation {
	return &Evaluation{
		id:         id,
		result:     result,
		capturedAt: capturedAt,
		createdAt:  createdAt,
	}
}

// ID возвращает идентификатор оценки
func (e *Evaluation) ID() string {
	return e.id
}

// Result возвращает результат политики
func (e *Evaluation) Result() PolicyResult {
	return e.result
}

// AlertState возвращает системный уровень тревоги
func (e *Evaluation) AlertState() valueobject.AlertLevel {
	return e.result.Decision.AlertState
}

// CapturedAt возвращает время снятия исходного снимка
func (e *Evaluation) CapturedAt() time.Time {
	return e.capturedAt
}

// EvaluatedAt возвращает время вычисления политики
func (e *Evaluation) EvaluatedAt() time.Time {
	return e.result.EvaluatedAt
}

// CreatedAt возвращает время создания записи
func (e *Evaluation) CreatedAt() time.Time {
	return e.createdAt
}

// Domain Methods

// IsCrisis проверяет, находится ли система в состоянии RED
func (e *Evaluation) IsCrisis() bool {
	return e.result.Decision.AlertState == valueobject.AlertRed
}

// TransitionedFrom проверяет, изменился ли уровень тревоги относительно предыдущей оценки
func (e *Evaluation) TransitionedFrom(prev *Evaluation) bool {
	if prev == nil {
		return e.AlertState() != valueobject.AlertGreen
	}
	return prev.AlertState() != e.AlertState()
}

// HeadlineAnnouncement возвращает самое срочное объявление, если оно есть
func (e *Evaluation) HeadlineAnnouncement() (valueobject.Announcement, bool) {
	if len(e.result.Announcements) == 0 {
		return valueobject.Announcement{}, false
	}
	return e.result.Announcements[0], true
}
