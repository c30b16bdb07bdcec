package service

import (
	"fmt"
	"time"

	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

const systemDownTitle = "Blue Prism is down. Developers should respond immediately."

type announcementContext struct {
	decision valueobject.AlertDecision
	cfg      valueobject.ThresholdConfig
	targets  []FailoverTarget
	now      time.Time
}

type announcementRule func(ac announcementContext) (valueobject.Announcement, bool)

// announcementRules задает приоритет: более срочные объявления идут первыми
var announcementRules = []announcementRule{
	forcedAnnouncement,
	systemDownAnnouncement,
	failoverAnnouncement,
}

// DeriveAnnouncements формирует упорядоченный список критических объявлений
func DeriveAnnouncements(
	decision valueobject.AlertDecision,
	cfg valueobject.ThresholdConfig,
	targets []FailoverTarget,
	now time.Time,
) []valueobject.Announcement {
	ac := announcementContext{decision: decision, cfg: cfg, targets: targets, now: now}

	announcements := make([]valueobject.Announcement, 0, len(announcementRules))
	for _, rule := range announcementRules {
		if a, ok := rule(ac); ok {
			announcements = append(announcements, a)
		}
	}
	return announcements
}

func forcedAnnouncement(ac announcementContext) (valueobject.Announcement, bool) {
	if !ac.cfg.ForceCriticalAnnouncement {
		return valueobject.Announcement{}, false
	}
	return valueobject.Announcement{Kind: valueobject.AnnouncementForced, Title: ac.cfg.ForcedTitle()}, true
}

func systemDownAnnouncement(ac announcementContext) (valueobject.Announcement, bool) {
	if ac.decision.AlertState != valueobject.AlertRed {
		return valueobject.Announcement{}, false
	}
	return valueobject.Announcement{Kind: valueobject.AnnouncementDown, Title: systemDownTitle}, true
}

func failoverAnnouncement(ac announcementContext) (valueobject.Announcement, bool) {
	minutes, ok := NearestFailoverMinutes(ac.targets, ac.now)
	if !ok || minutes > ac.cfg.LeadMinutes() {
		return valueobject.Announcement{}, false
	}
	return valueobject.Announcement{
		Kind:  valueobject.AnnouncementFailover,
		Title: fmt.Sprintf("Failover approaching in %d minutes.", minutes),
	}, true
}

// NearestFailoverMinutes возвращает минимальное неотрицательное число минут до ближайшей цели
func NearestFailoverMinutes(targets []FailoverTarget, now time.Time) (int, bool) {
	best, found := 0, false
	for _, t := range targets {
		m := MinutesUntil(t.At, now)
		if m < 0 {
			continue
		}
		if !found || m < best {
			best, found = m, true
		}
	}
	return best, found
}
