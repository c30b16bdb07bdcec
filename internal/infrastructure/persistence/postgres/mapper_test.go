package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

func TestMapper_EvaluationSurvivesDBModel(t *testing.T) {
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	result := entity.PolicyResult{
		Decision: valueobject.AlertDecision{
			AlertState:  valueobject.AlertRed,
			ActionOwner: valueobject.OwnerDevelopersInfrastructure,
			RedCount:    2,
			Signals: []valueobject.Signal{
				{Key: valueobject.SignalProcessQuality, Level: valueobject.AlertRed},
				{Key: valueobject.SignalInfrastructure, Level: valueobject.AlertRed},
			},
		},
		Breaches:    []valueobject.Breach{{Process: "Claims", MaxValue: 18, Level: valueobject.AlertRed}},
		EvaluatedAt: at,
	}
	evaluation := entity.ReconstructEvaluation("7d0c6d1e-6c0c-4a7b-9a8b-6a2f1a0e0c11", result, at.Add(-time.Minute), at)
	snapshot := &entity.MetricsSnapshot{ProcessHealth: []entity.ProcessHealth{{Name: "Claims", ExceptionRate: 0.18}}}

	model, err := ToDBModel(evaluation, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "RED", model.AlertState)
	assert.Equal(t, 2, model.RedCount)
	assert.NotEmpty(t, model.Snapshot)

	restored, err := ToEntity(model)
	require.NoError(t, err)
	assert.Equal(t, evaluation.ID(), restored.ID())
	assert.Equal(t, valueobject.AlertRed, restored.AlertState())
	assert.Equal(t, result.Decision.Signals, restored.Result().Decision.Signals)
	assert.Equal(t, result.Breaches, restored.Result().Breaches)

	decoded, err := ToSnapshot(model.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ProcessHealth, decoded.ProcessHealth)
}

func TestMapper_NilSnapshotStoredAsNull(t *testing.T) {
	evaluation := entity.NewEvaluation(entity.PolicyResult{EvaluatedAt: time.Now()}, time.Now())

	model, err := ToDBModel(evaluation, nil)
	require.NoError(t, err)
	assert.Nil(t, nullableJSON(model.Snapshot))
}
