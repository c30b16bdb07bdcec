package valueobject

// ActionRecommendation представляет рекомендацию по одному домену
type ActionRecommendation struct {
	Label  ActionTier `json:"label"`
	Reason string     `json:"reason"`
}
