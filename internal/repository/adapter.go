package repository

import (
	"context"

	"github.com/iliyamo/party-booking/internal/model"
)

// Source names used in configuration and diagnostics.
const (
	SourceDatabase = "database"
	SourceSheet    = "sheet"
	SourceCache    = "cache"
)

// Key addresses a reservation inside one backend.  Backends that share an
// id space match on ID; the rest fall back to the natural key.
type Key struct {
	ID      string
	Natural model.NaturalKey
}

// KeyOf returns the full key of a reservation.
func KeyOf(r model.Reservation) Key {
	return Key{ID: r.ID, Natural: r.NaturalKey()}
}

// Adapter is the capability every reservation backend exposes.  List is a
// full scan; Update is a whole-record replacement matched by id or, when the
// id is unknown to the backend, by natural key.
type Adapter interface {
	Name() string
	List(ctx context.Context) ([]model.Reservation, error)
	Create(ctx context.Context, r model.Reservation) error
	Update(ctx context.Context, r model.Reservation) error
	Delete(ctx context.Context, key Key) error
}
