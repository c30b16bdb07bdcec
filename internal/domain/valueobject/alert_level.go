package valueobject

import "fmt"

// AlertLevel представляет системный уровень тревоги (Value Object)
type AlertLevel string

const (
	AlertGreen AlertLevel = "GREEN"
	AlertAmber AlertLevel = "AMBER"
	AlertRed   AlertLevel = "RED"
)

// Validate проверяет валидность уровня тревоги
func (l AlertLevel) Validate() error {
	switch l {
	case AlertGreen, AlertAmber, AlertRed:
		return nil
	default:
		return fmt.Errorf("invalid alert level %q", string(l))
	}
}

// String возвращает строковое представление уровня
func (l AlertLevel) String() string {
	return string(l)
}

// Severity возвращает числовой вес уровня (GREEN=0, AMBER=1, RED=2)
func (l AlertLevel) Severity() int {
	switch l {
	case AlertAmber:
		return 1
	case AlertRed:
		return 2
	default:
		return 0
	}
}
