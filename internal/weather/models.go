package weather

import (
	"fmt"
	"time"
)

// Record is one forecast measurement, or a synthetic header injected for display.
// Values are kept as strings; numeric categories parse on demand.
type Record struct {
	Date     string   `json:"date"`
	Time     string   `json:"time"`
	Category Category `json:"category"`
	Value    string   `json:"value"`
}

// Location is a resolved forecast grid point with its display label.
type Location struct {
	Address string `json:"address"`
	NX      int    `json:"nx"`
	NY      int    `json:"ny"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return fmt.Sprintf("%s:%d:%d", l.Address, l.NX, l.NY)
}

// Reference is the issuance slot a forecast query is anchored to.
type Reference struct {
	Date string `json:"baseDate"` // YYYYMMDD
	Time string `json:"baseTime"` // HHmm
}

// Views holds the two display sequences produced by Transform.
type Views struct {
	Current  []Record `json:"current"`
	Forecast []Record `json:"forecast"`

	// Dropped counts raw records discarded before building the views.
	Dropped int `json:"dropped"`
}

// Snapshot is a transformed forecast persisted by a Store.
type Snapshot struct {
	ID        string    `json:"id"`
	Location  Location  `json:"location"`
	Reference Reference `json:"reference"`
	FetchedAt time.Time `json:"fetchedAt"` // always UTC
	Views     Views     `json:"views"`
}
