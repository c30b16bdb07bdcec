package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/repository"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

const evaluationColumns = `id, alert_state, action_owner, red_count, amber_count, result, captured_at, evaluated_at, created_at`

// Schema создает таблицу оценок, если ее нет
const Schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id           UUID PRIMARY KEY,
	alert_state  TEXT        NOT NULL,
	action_owner TEXT,
	red_count    INTEGER     NOT NULL DEFAULT 0,
	amber_count  INTEGER     NOT NULL DEFAULT 0,
	result       JSONB       NOT NULL,
	snapshot     JSONB,
	captured_at  TIMESTAMPTZ NOT NULL,
	evaluated_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_evaluations_evaluated_at ON evaluations (evaluated_at DESC);
CREATE INDEX IF NOT EXISTS idx_evaluations_alert_state ON evaluations (alert_state, evaluated_at DESC);
`

// PostgresEvaluationRepository реализует repository.EvaluationRepository для PostgreSQL
type PostgresEvaluationRepository struct {
	db *sql.DB
}

// NewPostgresEvaluationRepository создает новый PostgreSQL repository
func NewPostgresEvaluationRepository(db *sql.DB) *PostgresEvaluationRepository {
	return &PostgresEvaluationRepository{
		db: db,
	}
}

// EnsureSchema применяет схему при старте
func (r *PostgresEvaluationRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping используется readiness probe
func (r *PostgresEvaluationRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save сохраняет оценку вместе с исходным снимком
func (r *PostgresEvaluationRepository) Save(ctx context.Context, evaluation *entity.Evaluation, snapshot *entity.MetricsSnapshot) error {
	model, err := ToDBModel(evaluation, snapshot)
	if err != nil {
		return fmt.Errorf("failed to convert to DB model: %w", err)
	}

	query := `
		INSERT INTO evaluations (id, alert_state, action_owner, red_count, amber_count, result, snapshot, captured_at, evaluated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		model.ID,
		model.AlertState,
		model.ActionOwner,
		model.RedCount,
		model.AmberCount,
		string(model.Result),
		nullableJSON(model.Snapshot),
		model.CapturedAt,
		model.EvaluatedAt,
		model.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}

	return nil
}

// FindLatest находит последнюю оценку
func (r *PostgresEvaluationRepository) FindLatest(ctx context.Context) (*entity.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + `
		FROM evaluations
		ORDER BY evaluated_at DESC
		LIMIT 1
	`

	model, err := ScanEvaluationRow(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan evaluation: %w", err)
	}

	return ToEntity(model)
}

// FindLatestSnapshot находит снимок последней оценки
func (r *PostgresEvaluationRepository) FindLatestSnapshot(ctx context.Context) (*entity.MetricsSnapshot, error) {
	query := `
		SELECT snapshot
		FROM evaluations
		WHERE snapshot IS NOT NULL
		ORDER BY evaluated_at DESC
		LIMIT 1
	`

	var raw []byte
	if err := r.db.QueryRowContext(ctx, query).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	snapshot, err := ToSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}

// FindByTimeRange находит оценки за период, новые первыми
func (r *PostgresEvaluationRepository) FindByTimeRange(
	ctx context.Context,
	timeRange valueobject.TimeRange,
	limit int,
) ([]*entity.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + `
		FROM evaluations
		WHERE evaluated_at BETWEEN $1 AND $2
		ORDER BY evaluated_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, timeRange.Start(), timeRange.End(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	return r.scanEvaluations(rows)
}

// CountByAlertState возвращает распределение оценок по уровням тревоги
func (r *PostgresEvaluationRepository) CountByAlertState(
	ctx context.Context,
	timeRange valueobject.TimeRange,
) (map[valueobject.AlertLevel]int64, error) {
	query := `
		SELECT alert_state, COUNT(*)
		FROM evaluations
		WHERE evaluated_at BETWEEN $1 AND $2
		GROUP BY alert_state
	`

	rows, err := r.db.QueryContext(ctx, query, timeRange.Start(), timeRange.End())
	if err != nil {
		return nil, fmt.Errorf("failed to count evaluations: %w", err)
	}
	defer rows.Close()

	counts := make(map[valueobject.AlertLevel]int64)
	for rows.Next() {
		var state string
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[valueobject.AlertLevel(state)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return counts, nil
}

// DeleteOlderThan удаляет оценки старше cutoff и возвращает их количество
func (r *PostgresEvaluationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM evaluations WHERE evaluated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old evaluations: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return deleted, nil
}

// scanEvaluations сканирует несколько строк в слайс оценок
func (r *PostgresEvaluationRepository) scanEvaluations(rows *sql.Rows) ([]*entity.Evaluation, error) {
	var evaluations []*entity.Evaluation

	for rows.Next() {
		model, err := ScanEvaluationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation row: %w", err)
		}

		evaluation, err := ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}

		evaluations = append(evaluations, evaluation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return evaluations, nil
}

// nullableJSON передает пустой JSON как NULL, иначе pq отправит пустую строку в JSONB
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
