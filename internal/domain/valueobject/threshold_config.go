package valueobject

import (
	"errors"
	"fmt"
)

// ErrInvalidThresholds возвращается при невалидной конфигурации порогов
var ErrInvalidThresholds = errors.New("invalid threshold config")

// DefaultForcedAnnouncementTitle используется, если принудительное объявление включено без заголовка
const DefaultForcedAnnouncementTitle = "All MS Graph APIs are down."

// DefaultFailoverLeadMinutes используется, если время упреждения не задано
const DefaultFailoverLeadMinutes = 60

// RateBand представляет пару порогов для долей (0..1)
type RateBand struct {
	Amber float64 `json:"amber"`
	Red   float64 `json:"red"`
}

// CountBand представляет пару порогов для счетчиков
type CountBand struct {
	Amber int `json:"amber"`
	Red   int `json:"red"`
}

// Classify возвращает уровень для значения или false, если значение ниже AMBER
func (b CountBand) Classify(value int) (AlertLevel, bool) {
	switch {
	case value >= b.Red:
		return AlertRed, true
	case value >= b.Amber:
		return AlertAmber, true
	default:
		return "", false
	}
}

// ThresholdConfig содержит все пороги политики алертов (Value Object)
// Загружается один раз при старте процесса
type ThresholdConfig struct {
	ExceptionRate RateBand  `json:"exceptionRate"`
	Heatmap       CountBand `json:"heatmap"`
	FunnelDrop    CountBand `json:"funnelDrop"`
	Aging60Plus   CountBand `json:"aging60plus"`
	BurstOverBand CountBand `json:"burstOverBand"`

	RedCardsForCrisis int `json:"redCardsForCrisis"`

	FailoverAnnouncementLeadMinutes int    `json:"failoverAnnouncementLeadMinutes"`
	ForceCriticalAnnouncement       bool   `json:"forceCriticalAnnouncement"`
	ForcedAnnouncementTitle         string `json:"forcedAnnouncementTitle,omitempty"`
}

// DefaultThresholdConfig возвращает пороги по умолчанию для операционного дашборда
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		ExceptionRate:                   RateBand{Amber: 0.08, Red: 0.10},
		Heatmap:                         CountBand{Amber: 6, Red: 10},
		FunnelDrop:                      CountBand{Amber: 6, Red: 12},
		Aging60Plus:                     CountBand{Amber: 4, Red: 7},
		BurstOverBand:                   CountBand{Amber: 1, Red: 3},
		RedCardsForCrisis:               2,
		FailoverAnnouncementLeadMinutes: DefaultFailoverLeadMinutes,
	}
}

// Validate проверяет согласованность порогов. Пороги никогда не исправляются молча.
func (c ThresholdConfig) Validate() error {
	var errs []error

	if c.RedCardsForCrisis < 1 {
		errs = append(errs, fmt.Errorf("redCardsForCrisis must be >= 1, got %d", c.RedCardsForCrisis))
	}

	if c.ExceptionRate.Amber < 0 || c.ExceptionRate.Red > 1 {
		errs = append(errs, fmt.Errorf("exceptionRate must be within [0,1], got amber=%.4f red=%.4f",
			c.ExceptionRate.Amber, c.ExceptionRate.Red))
	}
	if c.ExceptionRate.Red < c.ExceptionRate.Amber {
		errs = append(errs, fmt.Errorf("exceptionRate.red (%.4f) is below amber (%.4f)",
			c.ExceptionRate.Red, c.ExceptionRate.Amber))
	}

	bands := []struct {
		name string
		band CountBand
	}{
		{"heatmap", c.Heatmap},
		{"funnelDrop", c.FunnelDrop},
		{"aging60plus", c.Aging60Plus},
		{"burstOverBand", c.BurstOverBand},
	}
	for _, b := range bands {
		if b.band.Amber < 0 {
			errs = append(errs, fmt.Errorf("%s.amber must be >= 0, got %d", b.name, b.band.Amber))
		}
		if b.band.Red < b.band.Amber {
			errs = append(errs, fmt.Errorf("%s.red (%d) is below amber (%d)", b.name, b.band.Red, b.band.Amber))
		}
	}

	if c.FailoverAnnouncementLeadMinutes < 0 {
		errs = append(errs, fmt.Errorf("failoverAnnouncementLeadMinutes must be >= 0, got %d",
			c.FailoverAnnouncementLeadMinutes))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidThresholds, errors.Join(errs...))
}

// LeadMinutes возвращает время упреждения объявления о failover (0 означает значение по умолчанию)
func (c ThresholdConfig) LeadMinutes() int {
	if c.FailoverAnnouncementLeadMinutes == 0 {
		return DefaultFailoverLeadMinutes
	}
	return c.FailoverAnnouncementLeadMinutes
}

// ForcedTitle возвращает заголовок принудительного объявления
func (c ThresholdConfig) ForcedTitle() string {
	if c.ForcedAnnouncementTitle == "" {
		return DefaultForcedAnnouncementTitle
	}
	return c.ForcedAnnouncementTitle
}
