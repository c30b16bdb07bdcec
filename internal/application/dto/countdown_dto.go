package dto

import (
	"fmt"
	"time"
)

// SiteCountdownDTO представляет обратный отсчет до failover площадки
type SiteCountdownDTO struct {
	Site        string    `json:"site"`
	Zone        string    `json:"zone"`
	Target      time.Time `json:"target"`
	TargetLabel string    `json:"targetLabel"`
	Days        int       `json:"days"`
	Hours       int       `json:"hours"`
	Minutes     int       `json:"minutes"`
	Label       string    `json:"label"`
	Expired     bool      `json:"expired"`
}

// CountdownDTO отправляется каждым тиком обратного отсчета
type CountdownDTO struct {
	GeneratedAt      time.Time          `json:"generatedAt"`
	Sites            []SiteCountdownDTO `json:"sites"`
	NextRefreshLabel string             `json:"nextRefreshLabel,omitempty"`
}

// RefreshLabel форматирует время до следующего обновления как "Next refresh: MM:SS"
func RefreshLabel(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	total := int(remaining / time.Second)
	return fmt.Sprintf("Next refresh: %02d:%02d", total/60, total%60)
}
