package weather

import (
	"context"
	"time"
)

// FetchRequest identifies one forecast query: an issuance slot and a grid point.
type FetchRequest struct {
	BaseDate string
	BaseTime string
	NX       int
	NY       int
}

// Provider abstracts the forecast data source. Implementations return the
// decoded record list, or a *Failure describing why none is available.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) ([]Record, error)
}

// Store is the contract the in-memory and sqlite stores must satisfy.
type Store interface {
	SaveSnapshot(snapshot Snapshot) error
	GetLatest(loc Location) (Snapshot, error)
	GetRange(loc Location, from, to time.Time) ([]Snapshot, error)
}
