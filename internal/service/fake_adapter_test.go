package service

import (
	"context"
	"sync"

	"github.com/iliyamo/party-booking/internal/model"
	"github.com/iliyamo/party-booking/internal/repository"
)

// memAdapter is an in-memory repository.Adapter.
type memAdapter struct {
	mu       sync.Mutex
	name     string
	recs     []model.Reservation
	listErr  error
	writeErr error
	block    bool

	created []model.Reservation
	updated []model.Reservation
	deleted []repository.Key
}

func newMem(name string, recs ...model.Reservation) *memAdapter {
	return &memAdapter{name: name, recs: recs}
}

func (m *memAdapter) Name() string { return m.name }

func (m *memAdapter) List(ctx context.Context) ([]model.Reservation, error) {
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]model.Reservation(nil), m.recs...), nil
}

func (m *memAdapter) Create(_ context.Context, r model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.created = append(m.created, r)
	m.recs = append(m.recs, r)
	return nil
}

func (m *memAdapter) Update(_ context.Context, r model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	i := m.index(repository.KeyOf(r))
	if i < 0 {
		return &repository.Error{Source: m.name, Op: "update", Kind: repository.ErrNotFound}
	}
	m.updated = append(m.updated, r)
	m.recs[i] = r
	return nil
}

func (m *memAdapter) Delete(_ context.Context, key repository.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	i := m.index(key)
	if i < 0 {
		return &repository.Error{Source: m.name, Op: "delete", Kind: repository.ErrNotFound}
	}
	m.deleted = append(m.deleted, key)
	m.recs = append(m.recs[:i], m.recs[i+1:]...)
	return nil
}

func (m *memAdapter) index(key repository.Key) int {
	for i, r := range m.recs {
		if key.ID != "" && r.ID == key.ID {
			return i
		}
	}
	for i, r := range m.recs {
		if !key.Natural.IsZero() && r.NaturalKey() == key.Natural {
			return i
		}
	}
	return -1
}

func res(id, date, name, phone string, total, deposit int64) model.Reservation {
	r := model.Reservation{
		ID: id, Date: date, CustomerName: name, CustomerPhone: phone, ChildName: "Kid",
		Package: model.TierBasic, TotalAmount: total, DepositAmount: deposit,
	}
	r.Recompute()
	return r
}
