// Package districts maps administrative districts and coordinates onto
// forecast grid points.
package districts

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/i474232898/short-term-forecast/internal/weather"
)

//go:embed districts.csv
var districtsCSV []byte

// ErrNotFound is returned when no district matches a lookup.
var ErrNotFound = errors.New("district not found")

// District is one row of the district table.
type District struct {
	Name string `json:"name"`
	NX   int    `json:"nx"`
	NY   int    `json:"ny"`
}

// Location converts the district into a forecast location.
func (d District) Location() weather.Location {
	return weather.Location{Address: d.Name, NX: d.NX, NY: d.NY}
}

// Table is an immutable district lookup table.
type Table struct {
	rows   []District
	byName map[string]District
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the embedded table, parsed once per process.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Parse(bytes.NewReader(districtsCSV))
	})
	return defaultTable, defaultErr
}

// Parse reads a "name,nx,ny" CSV with a header row.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read district header: %w", err)
	}

	t := &Table{byName: make(map[string]District)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read district row: %w", err)
		}

		nx, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid nx for %s: %w", record[0], err)
		}
		ny, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil {
			return nil, fmt.Errorf("invalid ny for %s: %w", record[0], err)
		}

		d := District{Name: strings.TrimSpace(record[0]), NX: nx, NY: ny}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate district %q", d.Name)
		}
		t.rows = append(t.rows, d)
		t.byName[d.Name] = d
	}
	return t, nil
}

// Len returns the number of districts.
func (t *Table) Len() int {
	return len(t.rows)
}

// Lookup finds a district by its exact table name.
func (t *Table) Lookup(name string) (District, error) {
	d, ok := t.byName[strings.TrimSpace(name)]
	if !ok {
		return District{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return d, nil
}

// List returns the districts whose name starts with prefix, sorted by name.
func (t *Table) List(prefix string) []District {
	out := make([]District, 0, len(t.rows))
	for _, d := range t.rows {
		if strings.HasPrefix(d.Name, prefix) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Nearest returns the district whose grid point is closest to (nx, ny).
// Ties keep table order.
func (t *Table) Nearest(nx, ny int) (District, error) {
	if len(t.rows) == 0 {
		return District{}, ErrNotFound
	}
	best := t.rows[0]
	bestDist := gridDistance(best, nx, ny)
	for _, d := range t.rows[1:] {
		if dist := gridDistance(d, nx, ny); dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best, nil
}

func gridDistance(d District, nx, ny int) int {
	dx, dy := d.NX-nx, d.NY-ny
	return dx*dx + dy*dy
}
