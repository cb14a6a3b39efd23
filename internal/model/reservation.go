package model

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used for Reservation.Date.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a date string is not a valid calendar date.
var ErrInvalidDate = errors.New("invalid date")

// Reservation is one booked party slot.  It is the canonical record that
// every backend maps its own rows onto.  Amounts are whole currency units;
// RemainingAmount and IsPaid are derived and must be refreshed with
// Recompute after the amounts change.
type Reservation struct {
	ID              string      `json:"id"`
	Date            string      `json:"date"`
	Time            string      `json:"time"`
	CustomerName    string      `json:"customerName"`
	CustomerPhone   string      `json:"customerPhone"`
	ChildName       string      `json:"childName"`
	Package         PackageTier `json:"packageTier"`
	TotalAmount     int64       `json:"totalAmount"`
	DepositAmount   int64       `json:"depositAmount"`
	RemainingAmount int64       `json:"remainingAmount"` // never negative
	IsPaid          bool        `json:"isPaid"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"` // immutable once set
}

// NaturalKey identifies a booking without relying on a backend-specific id.
type NaturalKey struct {
	Date          string `json:"date"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
}

// NewNaturalKey builds a normalized key: names and phones are trimmed and
// lower-cased so that "Ana " and "ana" collide.
func NewNaturalKey(date, customerName, customerPhone string) NaturalKey {
	return NaturalKey{
		Date:          strings.TrimSpace(date),
		CustomerName:  normalize(customerName),
		CustomerPhone: normalize(customerPhone),
	}
}

// IsZero reports whether the key carries no usable information.
func (k NaturalKey) IsZero() bool {
	return k.Date == "" && k.CustomerName == "" && k.CustomerPhone == ""
}

func (k NaturalKey) String() string {
	return k.Date + "|" + k.CustomerName + "|" + k.CustomerPhone
}

// SyntheticID derives a stable identifier from the key, used when no copy of
// a booking carries an id of its own.
func (k NaturalKey) SyntheticID() string {
	sum := sha1.Sum([]byte(k.String()))
	return "nk_" + hex.EncodeToString(sum[:8])
}

// NaturalKey returns the normalized natural key of the reservation.
func (r Reservation) NaturalKey() NaturalKey {
	return NewNaturalKey(r.Date, r.CustomerName, r.CustomerPhone)
}

// Recompute derives RemainingAmount and IsPaid from the two stored amounts.
// Caller supplied values for the derived fields are never trusted.
func (r *Reservation) Recompute() {
	remaining := r.TotalAmount - r.DepositAmount
	if remaining < 0 {
		remaining = 0
	}
	r.RemainingAmount = remaining
	r.IsPaid = remaining <= 0
}

// MarkPaid returns a copy of the reservation settled in full.
func (r Reservation) MarkPaid() Reservation {
	r.DepositAmount = r.TotalAmount
	r.RemainingAmount = 0
	r.IsPaid = true
	return r
}

// CheckAmounts verifies the two stored amounts: none negative and the
// deposit within the total.  Recompute cannot repair a record failing it.
func (r Reservation) CheckAmounts() error {
	if r.TotalAmount < 0 || r.DepositAmount < 0 {
		return fmt.Errorf("reservation %s: negative amount", r.ID)
	}
	if r.DepositAmount > r.TotalAmount {
		return fmt.Errorf("reservation %s: deposit %d exceeds total %d", r.ID, r.DepositAmount, r.TotalAmount)
	}
	return nil
}

// CheckInvariants verifies the payment arithmetic of a stored record.
func (r Reservation) CheckInvariants() error {
	if err := r.CheckAmounts(); err != nil {
		return err
	}
	if r.RemainingAmount != r.TotalAmount-r.DepositAmount {
		return fmt.Errorf("reservation %s: remaining %d != %d - %d", r.ID, r.RemainingAmount, r.TotalAmount, r.DepositAmount)
	}
	if r.IsPaid != (r.RemainingAmount <= 0) {
		return fmt.Errorf("reservation %s: isPaid=%t with remaining %d", r.ID, r.IsPaid, r.RemainingAmount)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD string.  The result is midnight UTC so its
// weekday is the calendar weekday of the string itself.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
