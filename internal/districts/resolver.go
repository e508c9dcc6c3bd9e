package districts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/short-term-forecast/internal/weather"
)

// ErrGeocodingDisabled is returned for free-text queries when no geocoder is set.
var ErrGeocodingDisabled = errors.New("geocoding is not configured")

// GeocodeFunc turns a free-text place name into coordinates.
type GeocodeFunc func(query string) (lat, lon float64, err error)

// GoogleGeocoder returns a GeocodeFunc backed by the Google Geocoding API.
// An empty apiKey disables geocoding.
func GoogleGeocoder(apiKey string) GeocodeFunc {
	if apiKey == "" {
		return nil
	}
	geocoder.ApiKey = apiKey
	return func(query string) (float64, float64, error) {
		loc, err := geocoder.Geocoding(geocoder.Address{
			City:    query,
			Country: "South Korea",
		})
		if err != nil {
			return 0, 0, fmt.Errorf("geocode %q: %w", query, err)
		}
		return loc.Latitude, loc.Longitude, nil
	}
}

// Resolver turns user supplied locators into forecast locations.
type Resolver struct {
	table   *Table
	geocode GeocodeFunc
}

func NewResolver(table *Table, geocode GeocodeFunc) *Resolver {
	return &Resolver{table: table, geocode: geocode}
}

// Table exposes the underlying district table.
func (r *Resolver) Table() *Table {
	return r.table
}

// ResolveDistrict looks up an exact district name.
func (r *Resolver) ResolveDistrict(name string) (weather.Location, error) {
	d, err := r.table.Lookup(name)
	if err != nil {
		return weather.Location{}, err
	}
	return d.Location(), nil
}

// ResolveAddress normalizes a full Korean address and looks up its district.
// The returned location keeps the caller's address as its label.
func (r *Resolver) ResolveAddress(address string) (weather.Location, error) {
	key := NormalizeAddress(address)
	if key == "" {
		return weather.Location{}, fmt.Errorf("%w: %q", ErrNotFound, address)
	}
	d, err := r.table.Lookup(key)
	if err != nil {
		return weather.Location{}, err
	}
	loc := d.Location()
	loc.Address = strings.Join(strings.Fields(address), " ")
	return loc, nil
}

// ResolveCoordinates projects lat/lon onto the grid and labels the point
// with the nearest known district.
func (r *Resolver) ResolveCoordinates(lat, lon float64) (weather.Location, error) {
	nx, ny, err := LatLonToGrid(lat, lon)
	if err != nil {
		return weather.Location{}, err
	}
	d, err := r.table.Nearest(nx, ny)
	if err != nil {
		return weather.Location{}, err
	}
	return weather.Location{Address: d.Name, NX: nx, NY: ny}, nil
}

// ResolveQuery tries the query as a district, then as an address, and
// finally geocodes it.
func (r *Resolver) ResolveQuery(query string) (weather.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return weather.Location{}, fmt.Errorf("%w: empty query", ErrNotFound)
	}
	if loc, err := r.ResolveDistrict(query); err == nil {
		return loc, nil
	}
	if loc, err := r.ResolveAddress(query); err == nil {
		return loc, nil
	}
	if r.geocode == nil {
		return weather.Location{}, fmt.Errorf("%w: %q", ErrGeocodingDisabled, query)
	}
	lat, lon, err := r.geocode(query)
	if err != nil {
		return weather.Location{}, err
	}
	return r.ResolveCoordinates(lat, lon)
}
