// Package queue carries reservation events over RabbitMQ: the publisher used
// by the booking service and the consumer that keeps an audit log of them.
package queue

import (
	"time"

	"github.com/iliyamo/party-booking/internal/model"
)

// QueueName is the durable queue every reservation event is routed to.
const QueueName = "reservation.events"

// EventType names what happened to a reservation.
type EventType string

const (
	EventCreated EventType = "reservation.created"
	EventPaid    EventType = "reservation.paid"
	EventDeleted EventType = "reservation.deleted"
)

// ReservationEvent is published after a reservation changed in at least one
// backend.  It carries enough for consumers to log or notify without
// querying any backend.
type ReservationEvent struct {
	Type          EventType         `json:"type"`
	ReservationID string            `json:"reservationId"`
	Date          string            `json:"date"`
	CustomerName  string            `json:"customerName"`
	PackageTier   model.PackageTier `json:"packageTier"`
	TotalAmount   int64             `json:"totalAmount"`
	DepositAmount int64             `json:"depositAmount"`
	IsPaid        bool              `json:"isPaid"`
	OccurredAt    time.Time         `json:"occurredAt"`
}

// NewEvent builds the event for r.
func NewEvent(t EventType, r model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          t,
		ReservationID: r.ID,
		Date:          r.Date,
		CustomerName:  r.CustomerName,
		PackageTier:   r.Package,
		TotalAmount:   r.TotalAmount,
		DepositAmount: r.DepositAmount,
		IsPaid:        r.IsPaid,
		OccurredAt:    at.UTC(),
	}
}
