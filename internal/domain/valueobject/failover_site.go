package valueobject

import (
	"errors"
	"fmt"
	"time"
)

// FailoverSite описывает площадку с плановым переключением
type FailoverSite struct {
	Name       string
	Zone       *time.Location
	OffsetDays int
}

// NewFailoverSite создает площадку, загружая IANA зону
func NewFailoverSite(name, zone string, offsetDays int) (FailoverSite, error) {
	if name == "" {
		return FailoverSite{}, errors.New("failover site name cannot be empty")
	}
	if offsetDays < 0 {
		return FailoverSite{}, fmt.Errorf("failover site %s: offset days must be >= 0", name)
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return FailoverSite{}, fmt.Errorf("failover site %s: %w", name, err)
	}

	return FailoverSite{Name: name, Zone: loc, OffsetDays: offsetDays}, nil
}

// DefaultFailoverSites возвращает площадки Reston и Chicago
func DefaultFailoverSites() ([]FailoverSite, error) {
	reston, err := NewFailoverSite("Reston", "America/New_York", 2)
	if err != nil {
		return nil, err
	}
	chicago, err := NewFailoverSite("Chicago", "America/Chicago", 3)
	if err != nil {
		return nil, err
	}
	return []FailoverSite{reston, chicago}, nil
}
