package service

import "github.com/dreschagin/mission-control/internal/domain/entity"

// Минимальные длины рядов, при которых сигнал может быть вычислен
const (
	minFunnelLen    = 3
	minAgingLen     = 4
	minRootCauseLen = 3
)

// SnapshotValidator проверяет форму снимка (Domain Service).
// Результат только сообщается оператору и никогда не останавливает оценку.
type SnapshotValidator struct{}

// NewSnapshotValidator создает новый SnapshotValidator
func NewSnapshotValidator() *SnapshotValidator {
	return &SnapshotValidator{}
}

// Validate возвращает список проблем формы снимка
func (v *SnapshotValidator) Validate(snapshot *entity.MetricsSnapshot) []string {
	if snapshot == nil {
		return []string{"Snapshot missing"}
	}

	issues := make([]string, 0)

	if len(snapshot.ProcessHealth) == 0 {
		issues = append(issues, "Process health data missing")
	}

	switch values := snapshot.FunnelValues(); {
	case values == nil:
		issues = append(issues, "Funnel data missing")
	case len(values) < minFunnelLen:
		issues = append(issues, "Funnel data incomplete")
	}

	switch values := snapshot.AgingValues(); {
	case values == nil:
		issues = append(issues, "Queue aging data missing")
	case len(values) < minAgingLen:
		issues = append(issues, "Queue aging data incomplete")
	}

	if snapshot.BurstDetector == nil || snapshot.BurstDetector.Values == nil {
		issues = append(issues, "Burst detector data missing")
	} else if len(snapshot.BurstDetector.Upper) != len(snapshot.BurstDetector.Values) {
		issues = append(issues, "Burst detector band length mismatch")
	}

	if snapshot.RootCauseSplit == nil {
		issues = append(issues, "Root cause data missing")
	} else if len(snapshot.RootCauseSplit.Environment) < minRootCauseLen || len(snapshot.RootCauseSplit.Code) < minRootCauseLen {
		issues = append(issues, "Root cause data incomplete")
	}

	if snapshot.QueueState == nil || snapshot.QueueState.Pending == nil || snapshot.QueueState.Exception == nil {
		issues = append(issues, "Queue state data missing")
	}

	if snapshot.HourlyValues() == nil {
		issues = append(issues, "Hourly series missing")
	}
	if snapshot.DailyValues() == nil {
		issues = append(issues, "Daily series missing")
	}

	return issues
}
