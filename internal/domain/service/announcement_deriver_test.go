package service

import (
	"testing"
	"time"

	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(items []valueobject.Announcement) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, a.Title)
	}
	return out
}

func TestDeriveAnnouncements(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	green := valueobject.AlertDecision{AlertState: valueobject.AlertGreen}
	redDecision := valueobject.AlertDecision{AlertState: valueobject.AlertRed}

	far := []FailoverTarget{{Site: "Reston", At: now.Add(48 * time.Hour)}}
	near := []FailoverTarget{
		{Site: "Reston", At: now.Add(48 * time.Hour)},
		{Site: "Chicago", At: now.Add(42*time.Minute + 20*time.Second)},
	}

	forced := valueobject.DefaultThresholdConfig()
	forced.ForceCriticalAnnouncement = true

	custom := forced
	custom.ForcedAnnouncementTitle = "Citrix gateway is degraded."

	tests := []struct {
		name     string
		decision valueobject.AlertDecision
		cfg      valueobject.ThresholdConfig
		targets  []FailoverTarget
		want     []string
	}{
		{
			name:     "nothing to announce",
			decision: green,
			cfg:      valueobject.DefaultThresholdConfig(),
			targets:  far,
			want:     []string{},
		},
		{
			name:     "red state",
			decision: redDecision,
			cfg:      valueobject.DefaultThresholdConfig(),
			targets:  far,
			want:     []string{"Blue Prism is down. Developers should respond immediately."},
		},
		{
			name:     "failover within lead time",
			decision: green,
			cfg:      valueobject.DefaultThresholdConfig(),
			targets:  near,
			want:     []string{"Failover approaching in 42 minutes."},
		},
		{
			name:     "priority order",
			decision: redDecision,
			cfg:      forced,
			targets:  near,
			want: []string{
				"All MS Graph APIs are down.",
				"Blue Prism is down. Developers should respond immediately.",
				"Failover approaching in 42 minutes.",
			},
		},
		{
			name:     "custom forced title",
			decision: green,
			cfg:      custom,
			want:     []string{"Citrix gateway is degraded."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveAnnouncements(tt.decision, tt.cfg, tt.targets, now)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestDeriveAnnouncements_FailoverBoundaries(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	cfg := valueobject.DefaultThresholdConfig()
	green := valueobject.AlertDecision{AlertState: valueobject.AlertGreen}

	atLead := []FailoverTarget{{At: now.Add(60*time.Minute + 30*time.Second)}}
	got := DeriveAnnouncements(green, cfg, atLead, now)
	require.Len(t, got, 1)
	assert.Equal(t, "Failover approaching in 60 minutes.", got[0].Title)

	pastLead := []FailoverTarget{{At: now.Add(61 * time.Minute)}}
	assert.Empty(t, DeriveAnnouncements(green, cfg, pastLead, now))

	passed := []FailoverTarget{{At: now.Add(-5 * time.Minute)}}
	assert.Empty(t, DeriveAnnouncements(green, cfg, passed, now))

	zeroLead := cfg
	zeroLead.FailoverAnnouncementLeadMinutes = 0
	assert.Len(t, DeriveAnnouncements(green, zeroLead, atLead, now), 1)

	shortLead := cfg
	shortLead.FailoverAnnouncementLeadMinutes = 15
	assert.Empty(t, DeriveAnnouncements(green, shortLead, atLead, now))
}
