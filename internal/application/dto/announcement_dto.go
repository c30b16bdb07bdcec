package dto

import (
	"time"

	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

// AnnouncementDTO представляет критическое объявление для внешних каналов
type AnnouncementDTO struct {
	EvaluationID string                       `json:"evaluationId"`
	Kind         valueobject.AnnouncementKind `json:"kind"`
	Title        string                       `json:"title"`
	AlertState   valueobject.AlertLevel       `json:"alertState"`
	ActionOwner  string                       `json:"actionOwner"`
	RaisedAt     time.Time                    `json:"raisedAt"`
}
