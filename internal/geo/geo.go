// Package geo resolves network addresses to coarse locations for recorded
// actions.
package geo

import (
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/itemhub/action-analytics/internal/model"
)

// Locator looks up the location of a network address. A nil result means the
// lookup produced nothing; it is stored as the explicit "absent" marker and
// never retried.
type Locator interface {
	Lookup(ip string) *model.Geolocation
	Close() error
}

// MaxMind resolves addresses against a GeoLite2/GeoIP2 city database.
type MaxMind struct {
	db *geoip2.Reader
}

func OpenMaxMind(path string) (*MaxMind, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &MaxMind{db: db}, nil
}

func (m *MaxMind) Lookup(ip string) *model.Geolocation {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil
	}
	record, err := m.db.City(parsed)
	if err != nil || record == nil {
		return nil
	}

	loc := &model.Geolocation{
		Country:   record.Country.IsoCode,
		City:      record.City.Names["en"],
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].IsoCode
	}
	if loc.Country == "" && loc.City == "" {
		return nil
	}
	return loc
}

func (m *MaxMind) Close() error { return m.db.Close() }

// Noop is used when no database is configured; every lookup is absent.
type Noop struct{}

func (Noop) Lookup(string) *model.Geolocation { return nil }
func (Noop) Close() error                     { return nil }
