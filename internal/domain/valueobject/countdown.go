package valueobject

import "fmt"

// Countdown представляет оставшееся время до цели. Значения никогда не отрицательные.
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// IsZero проверяет, что все единицы нулевые: до цели меньше минуты или она уже прошла
func (c Countdown) IsZero() bool {
	return c.Days == 0 && c.Hours == 0 && c.Minutes == 0
}

// String форматирует отсчет как "02d 05h 09m"
func (c Countdown) String() string {
	return fmt.Sprintf("%02dd %02dh %02dm", c.Days, c.Hours, c.Minutes)
}
