package service

import (
	"testing"
	"time"

	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextFailoverTarget(t *testing.T) {
	site, err := valueobject.NewFailoverSite("Reston", "America/New_York", 2)
	require.NoError(t, err)

	// 2026-03-10 14:37 in New York (EDT, UTC-4)
	now := time.Date(2026, 3, 10, 18, 37, 12, 0, time.UTC)
	target := NextFailoverTarget(site, now)

	local := target.At.In(site.Zone)
	assert.Equal(t, "Reston", target.Site)
	assert.Equal(t, "America/New_York", target.Zone)
	assert.Equal(t, 12, local.Day())
	assert.Equal(t, 15, local.Hour())
	assert.Equal(t, 0, local.Minute())
	assert.Equal(t, 0, local.Second())
}

func TestNextFailoverTarget_OnTheHourStillMovesForward(t *testing.T) {
	site, err := valueobject.NewFailoverSite("Chicago", "America/Chicago", 0)
	require.NoError(t, err)

	now := time.Date(2026, 7, 1, 15, 0, 0, 0, site.Zone)
	target := NextFailoverTarget(site, now)

	assert.Equal(t, now.Add(time.Hour), target.At)
}

func TestScheduleFailoverTargets(t *testing.T) {
	sites, err := valueobject.DefaultFailoverSites()
	require.NoError(t, err)

	now := time.Date(2026, 10, 18, 9, 15, 0, 0, time.UTC)
	targets := ScheduleFailoverTargets(sites, now)

	require.Len(t, targets, 2)
	assert.Equal(t, "Reston", targets[0].Site)
	assert.Equal(t, "Chicago", targets[1].Site)
	assert.True(t, targets[0].At.After(now.Add(48*time.Hour)))
	assert.True(t, targets[1].At.After(now.Add(72*time.Hour)))
}

func TestRemaining(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		target time.Time
		want   valueobject.Countdown
	}{
		{name: "days hours minutes", target: now.Add(2*24*time.Hour + 5*time.Hour + 9*time.Minute + 30*time.Second), want: valueobject.Countdown{Days: 2, Hours: 5, Minutes: 9}},
		{name: "under a minute", target: now.Add(59 * time.Second), want: valueobject.Countdown{}},
		{name: "exactly now", target: now, want: valueobject.Countdown{}},
		{name: "past target clamps", target: now.Add(-90 * time.Minute), want: valueobject.Countdown{}},
		{name: "long past target clamps", target: now.Add(-10 * 24 * time.Hour), want: valueobject.Countdown{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Remaining(tt.target, now)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.Days, 0)
			assert.GreaterOrEqual(t, got.Hours, 0)
			assert.GreaterOrEqual(t, got.Minutes, 0)
		})
	}
}

func TestMinutesUntil_FloorsTowardNegativeInfinity(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 45, MinutesUntil(now.Add(45*time.Minute+59*time.Second), now))
	assert.Equal(t, 0, MinutesUntil(now.Add(30*time.Second), now))
	assert.Equal(t, -1, MinutesUntil(now.Add(-30*time.Second), now))
}

func TestCountdownString(t *testing.T) {
	assert.Equal(t, "02d 05h 09m", valueobject.Countdown{Days: 2, Hours: 5, Minutes: 9}.String())
}

func TestNextFailoverTarget_RepeatedFallBackHour(t *testing.T) {
	site, err := valueobject.NewFailoverSite("Reston", "America/New_York", 0)
	require.NoError(t, err)

	// 06:30Z is 01:30 EST, the second pass through 01:xx on 2026-11-01
	now := time.Date(2026, 11, 1, 6, 30, 0, 0, time.UTC)
	target := NextFailoverTarget(site, now)

	assert.Equal(t, time.Date(2026, 11, 1, 7, 0, 0, 0, time.UTC), target.At.UTC())
	assert.Equal(t, 30*time.Minute, target.At.Sub(now))

	// 05:30Z is 01:30 EDT, the first pass
	now = time.Date(2026, 11, 1, 5, 30, 0, 0, time.UTC)
	target = NextFailoverTarget(site, now)
	assert.Equal(t, 30*time.Minute, target.At.Sub(now))
}

func TestNextFailoverTarget_HalfHourZone(t *testing.T) {
	site, err := valueobject.NewFailoverSite("Pune", "Asia/Kolkata", 1)
	require.NoError(t, err)

	now := time.Date(2026, 10, 18, 9, 10, 0, 0, time.UTC) // 14:40 IST
	local := NextFailoverTarget(site, now).At.In(site.Zone)

	assert.Equal(t, 19, local.Day())
	assert.Equal(t, 15, local.Hour())
	assert.Equal(t, 0, local.Minute())
}

func TestRemaining_CalendarDaysAcrossDST(t *testing.T) {
	zone, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	now := time.Date(2026, 10, 29, 12, 0, 0, 0, zone)   // EDT
	target := time.Date(2026, 11, 1, 12, 0, 0, 0, zone) // EST, 73h later

	assert.Equal(t, valueobject.Countdown{Days: 3}, Remaining(target, now))
	assert.Equal(t, valueobject.Countdown{Days: 2, Hours: 23, Minutes: 59}, Remaining(target, now.Add(time.Minute)))

	// Inside the repeated hour the remainder is real elapsed time
	firstPass := time.Date(2026, 11, 1, 5, 30, 0, 0, time.UTC)
	assert.Equal(t, valueobject.Countdown{Minutes: 30}, Remaining(time.Date(2026, 11, 1, 6, 0, 0, 0, time.UTC).In(zone), firstPass))
}
