package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/internal/application/port"
	"github.com/dreschagin/mission-control/internal/domain/repository"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

const (
	defaultTransitionsLimit = 50
	maxTransitionsLimit     = 500
	fallbackTransitionsSpan = 24 * time.Hour
)

// ListAlertTransitionsUseCase возвращает журнал смены уровня тревоги.
// Без DynamoDB журнал восстанавливается по истории оценок в PostgreSQL.
type ListAlertTransitionsUseCase struct {
	transitions port.AlertTransitionRepository
	evaluations repository.EvaluationRepository
}

// NewListAlertTransitionsUseCase создает новый use case; transitions может быть nil
func NewListAlertTransitionsUseCase(
	transitions port.AlertTransitionRepository,
	evaluations repository.EvaluationRepository,
) *ListAlertTransitionsUseCase {
	return &ListAlertTransitionsUseCase{
		transitions: transitions,
		evaluations: evaluations,
	}
}

// Execute возвращает страницу переходов, новые первыми
func (uc *ListAlertTransitionsUseCase) Execute(ctx context.Context, query port.AlertTransitionQuery) (*dto.AlertTransitionPageDTO, error) {
	query.Limit = clampLimit(query.Limit, defaultTransitionsLimit, maxTransitionsLimit)

	if uc.transitions != nil {
		page, err := uc.transitions.List(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to list alert transitions: %w", err)
		}
		return toTransitionPage(page), nil
	}

	if uc.evaluations == nil {
		return &dto.AlertTransitionPageDTO{Items: []dto.AlertTransitionDTO{}}, nil
	}

	return uc.deriveFromHistory(ctx, query)
}

func (uc *ListAlertTransitionsUseCase) deriveFromHistory(ctx context.Context, query port.AlertTransitionQuery) (*dto.AlertTransitionPageDTO, error) {
	to := query.To
	if to.IsZero() {
		to = time.Now()
	}
	from := query.From
	if from.IsZero() {
		from = to.Add(-fallbackTransitionsSpan)
	}

	timeRange, err := valueobject.NewTimeRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("invalid time range: %w", err)
	}

	evaluations, err := uc.evaluations.FindByTimeRange(ctx, timeRange, MaxHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to find evaluations: %w", err)
	}

	// История приходит новыми первыми; переход ищем, сравнивая с более старой соседней записью
	items := make([]dto.AlertTransitionDTO, 0)
	for i, e := range evaluations {
		prevState := valueobject.AlertGreen
		if i+1 < len(evaluations) {
			prevState = evaluations[i+1].AlertState()
			if prevState == e.AlertState() {
				continue
			}
		} else if e.AlertState() == valueobject.AlertGreen {
			continue
		}
		if query.State != "" && query.State != e.AlertState().String() {
			continue
		}

		decision := e.Result().Decision
		signals := make([]string, 0, len(decision.Signals))
		for _, s := range decision.Signals {
			signals = append(signals, string(s.Key)+":"+s.Level.String())
		}

		items = append(items, dto.AlertTransitionDTO{
			EvaluationID: e.ID(),
			From:         prevState.String(),
			To:           e.AlertState().String(),
			ActionOwner:  decision.ActionOwner,
			RedCount:     decision.RedCount,
			AmberCount:   decision.AmberCount,
			Signals:      signals,
			OccurredAt:   e.EvaluatedAt(),
		})
		if len(items) == query.Limit {
			break
		}
	}

	return &dto.AlertTransitionPageDTO{Items: items}, nil
}

func toTransitionPage(page port.AlertTransitionPage) *dto.AlertTransitionPageDTO {
	out := &dto.AlertTransitionPageDTO{
		Items:      make([]dto.AlertTransitionDTO, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, t := range page.Items {
		out.Items = append(out.Items, dto.AlertTransitionDTO{
			EvaluationID: t.EvaluationID,
			From:         t.From,
			To:           t.To,
			ActionOwner:  t.ActionOwner,
			RedCount:     t.RedCount,
			AmberCount:   t.AmberCount,
			Signals:      t.Signals,
			OccurredAt:   t.OccurredAt,
		})
	}
	return out
}
