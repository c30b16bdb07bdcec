package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dreschagin/mission-control/internal/domain/entity"
)

// EvaluationDBModel представляет оценку в БД.
// Результат и снимок хранятся в JSONB, ключевые поля вынесены в колонки для фильтрации.
type EvaluationDBModel struct {
	ID          string
	AlertState  string
	ActionOwner string
	RedCount    int
	AmberCount  int
	Result      []byte
	Snapshot    []byte
	CapturedAt  time.Time
	EvaluatedAt time.Time
	CreatedAt   time.Time
}

// ToDBModel конвертирует Domain Entity в DB Model
func ToDBModel(evaluation *entity.Evaluation, snapshot *entity.MetricsSnapshot) (*EvaluationDBModel, error) {
	result, err := json.Marshal(evaluation.Result())
	if err != nil {
		return nil, err
	}

	var snapshotBytes []byte
	if snapshot != nil {
		snapshotBytes, err = json.Marshal(snapshot)
		if err != nil {
			return nil, err
		}
	}

	decision := evaluation.Result().Decision
	return &EvaluationDBModel{
		ID:          evaluation.ID(),
		AlertState:  decision.AlertState.String(),
		ActionOwner: decision.ActionOwner,
		RedCount:    decision.RedCount,
		AmberCount:  decision.AmberCount,
		Result:      result,
		Snapshot:    snapshotBytes,
		CapturedAt:  evaluation.CapturedAt(),
		EvaluatedAt: evaluation.EvaluatedAt(),
		CreatedAt:   evaluation.CreatedAt(),
	}, nil
}

// ToEntity конвертирует DB Model в Domain Entity
func ToEntity(model *EvaluationDBModel) (*entity.Evaluation, error) {
	var result entity.PolicyResult
	if err := json.Unmarshal(model.Result, &result); err != nil {
		return nil, err
	}

	// Колонка evaluated_at первична, JSON может быть записан старой версией
	if result.EvaluatedAt.IsZero() {
		result.EvaluatedAt = model.EvaluatedAt
	}

	return entity.ReconstructEvaluation(model.ID, result, model.CapturedAt, model.CreatedAt), nil
}

// ToSnapshot декодирует сохраненный снимок
func ToSnapshot(raw []byte) (*entity.MetricsSnapshot, error) {
	var snapshot entity.MetricsSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ScanEvaluationRow сканирует строку БД в EvaluationDBModel
func ScanEvaluationRow(row interface {
	Scan(dest ...interface{}) error
}) (*EvaluationDBModel, error) {
	var model EvaluationDBModel
	var owner sql.NullString

	err := row.Scan(
		&model.ID,
		&model.AlertState,
		&owner,
		&model.RedCount,
		&model.AmberCount,
		&model.Result,
		&model.CapturedAt,
		&model.EvaluatedAt,
		&model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	model.ActionOwner = owner.String
	return &model, nil
}
