package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, valueobject.DefaultThresholdConfig(), cfg.Policy)
	assert.Equal(t, 30*time.Second, cfg.Failover.TickInterval)
	assert.Equal(t, 5*time.Minute, cfg.Refresh.Interval)
	require.Len(t, cfg.Failover.Sites, 2)
	assert.Equal(t, FailoverSiteConfig{Name: "Reston", Zone: "America/New_York", OffsetDays: 2}, cfg.Failover.Sites[0])
	assert.Equal(t, FailoverSiteConfig{Name: "Chicago", Zone: "America/Chicago", OffsetDays: 3}, cfg.Failover.Sites[1])

	sites, err := cfg.Failover.FailoverSites()
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", sites[1].Zone.String())
}

func TestLoad_PolicyOverrides(t *testing.T) {
	t.Setenv("POLICY_EXCEPTION_RATE_RED", "0.2")
	t.Setenv("POLICY_RED_CARDS_FOR_CRISIS", "3")
	t.Setenv("POLICY_FORCE_CRITICAL_ANNOUNCEMENT", "true")
	t.Setenv("POLICY_FORCED_ANNOUNCEMENT_TITLE", "Citrix is down.")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.2, cfg.Policy.ExceptionRate.Red, 1e-9)
	assert.Equal(t, 3, cfg.Policy.RedCardsForCrisis)
	assert.True(t, cfg.Policy.ForceCriticalAnnouncement)
	assert.Equal(t, "Citrix is down.", cfg.Policy.ForcedTitle())
}

func TestLoad_RejectsInvalidThresholds(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "zero red cards", env: map[string]string{"POLICY_RED_CARDS_FOR_CRISIS": "0"}},
		{name: "funnel red below amber", env: map[string]string{"POLICY_FUNNEL_DROP_AMBER": "12", "POLICY_FUNNEL_DROP_RED": "6"}},
		{name: "rate red below amber", env: map[string]string{"POLICY_EXCEPTION_RATE_AMBER": "0.3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, valueobject.ErrInvalidThresholds))
		})
	}
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFRESH_INTERVAL")
}

func TestLoad_RejectsUnknownZone(t *testing.T) {
	t.Setenv("FAILOVER_SITES", "Reston:Mars/Base:2")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FAILOVER_SITES")
}

func TestLoad_AuthRequiresToken(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_BEARER_TOKEN")
}

func TestParseFailoverSites(t *testing.T) {
	sites, err := parseFailoverSites("Reston:America/New_York:2, Dallas:America/Chicago:1")
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "Dallas", sites[1].Name)

	_, err = parseFailoverSites("Reston:America/New_York")
	assert.Error(t, err)

	_, err = parseFailoverSites("Reston:America/New_York:two")
	assert.Error(t, err)
}

func TestParseDimensions(t *testing.T) {
	dims := parseDimensions("Environment=prod, Team=rpa,broken")
	assert.Equal(t, map[string]string{"Environment": "prod", "Team": "rpa"}, dims)
}
