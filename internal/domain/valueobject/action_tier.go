package valueobject

// ActionTier представляет рекомендацию по действию оператора (Value Object)
// Порядок строгий: Stable < Watch Closely < Action Required
type ActionTier string

const (
	TierStable         ActionTier = "Stable"
	TierWatchClosely   ActionTier = "Watch Closely"
	TierActionRequired ActionTier = "Action Required"
)

// Rank возвращает позицию уровня в общем порядке
func (t ActionTier) Rank() int {
	switch t {
	case TierWatchClosely:
		return 1
	case TierActionRequired:
		return 2
	default:
		return 0
	}
}

// String возвращает строковое представление уровня
func (t ActionTier) String() string {
	return string(t)
}
