package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/party-booking/internal/model"
)

// Draft is a proposed reservation as submitted by an operator.  Package is
// the raw tier name; RemainingAmount and IsPaid are never accepted.
type Draft struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	CustomerName  string    `json:"customerName"`
	CustomerPhone string    `json:"customerPhone"`
	ChildName     string    `json:"childName"`
	Package       string    `json:"packageTier"`
	TotalAmount   int64     `json:"totalAmount"`
	DepositAmount int64     `json:"depositAmount"`
	Notes         string    `json:"notes"`
	PriceOverride bool      `json:"priceOverride"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Validated is an accepted reservation plus any non-blocking findings.
type Validated struct {
	Reservation model.Reservation      `json:"reservation"`
	Warnings    model.ValidationErrors `json:"warnings,omitempty"`
}

// Validator turns drafts into reservations.
type Validator struct {
	catalog      *Catalog
	strictPrices bool
	now          func() time.Time
	newID        func() string
}

// NewValidator returns a validator pricing against catalog.  With
// strictPrices a price mismatch blocks the draft instead of warning.
func NewValidator(catalog *Catalog, strictPrices bool) *Validator {
	return &Validator{
		catalog:      catalog,
		strictPrices: strictPrices,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// Validate checks d and, when no blocking violation is found, returns the
// reservation it describes.  Every violation is reported, not just the
// first; the returned error is a model.ValidationErrors.
func (v *Validator) Validate(d Draft) (Validated, error) {
	var errs model.ValidationErrors
	add := func(code model.ValidationCode, field, msg string) *model.ValidationError {
		errs = append(errs, model.ValidationError{Code: code, Field: field, Severity: model.SeverityError, Message: msg})
		return &errs[len(errs)-1]
	}

	date := strings.TrimSpace(d.Date)
	dateOK := false
	if date == "" {
		add(model.CodeMissingField, "date", "date is required")
	} else if _, err := model.ParseDate(date); err != nil {
		add(model.CodeInvalidDate, "date", fmt.Sprintf("%q is not a valid YYYY-MM-DD date", d.Date))
	} else {
		dateOK = true
	}

	for _, f := range []struct{ name, value string }{
		{"customerName", d.CustomerName},
		{"customerPhone", d.CustomerPhone},
		{"childName", d.ChildName},
	} {
		if strings.TrimSpace(f.value) == "" {
			add(model.CodeMissingField, f.name, f.name+" is required")
		}
	}

	amountsOK := true
	if d.TotalAmount < 0 {
		add(model.CodeNegativeAmount, "totalAmount", "total amount cannot be negative")
		amountsOK = false
	}
	if d.DepositAmount < 0 {
		add(model.CodeNegativeAmount, "depositAmount", "deposit amount cannot be negative")
		amountsOK = false
	}
	if amountsOK && d.DepositAmount > d.TotalAmount {
		e := add(model.CodeDepositExceedsTotal, "depositAmount",
			fmt.Sprintf("deposit %d exceeds total %d", d.DepositAmount, d.TotalAmount))
		e.Expected, e.Actual = ptr(d.TotalAmount), ptr(d.DepositAmount)
	}

	tier, tierErr := model.ParsePackageTier(d.Package)
	if tierErr != nil {
		add(model.CodeUnknownPackageTier, "packageTier", fmt.Sprintf("unknown package %q", d.Package))
	}

	if dateOK && tierErr == nil && !d.PriceOverride {
		expected, err := v.catalog.Price(date, tier)
		switch {
		case errors.Is(err, model.ErrUnknownPackageTier):
			add(model.CodeUnknownPackageTier, "packageTier", fmt.Sprintf("package %s is not in the catalog", tier))
		case err == nil && expected != d.TotalAmount:
			e := add(model.CodePriceMismatch, "totalAmount",
				fmt.Sprintf("total %d does not match catalog price %d", d.TotalAmount, expected))
			e.Expected, e.Actual = ptr(expected), ptr(d.TotalAmount)
			if !v.strictPrices {
				e.Severity = model.SeverityWarning
			}
		}
	}

	if errs.Blocking() {
		return Validated{}, errs
	}

	r := model.Reservation{
		ID:            strings.TrimSpace(d.ID),
		Date:          date,
		Time:          strings.TrimSpace(d.Time),
		CustomerName:  strings.TrimSpace(d.CustomerName),
		CustomerPhone: strings.TrimSpace(d.CustomerPhone),
		ChildName:     strings.TrimSpace(d.ChildName),
		Package:       tier,
		TotalAmount:   d.TotalAmount,
		DepositAmount: d.DepositAmount,
		Notes:         strings.TrimSpace(d.Notes),
		CreatedAt:     d.CreatedAt.UTC(),
	}
	if r.ID == "" {
		r.ID = v.newID()
	}
	if d.CreatedAt.IsZero() {
		r.CreatedAt = v.now().UTC()
	}
	r.Recompute()
	return Validated{Reservation: r, Warnings: errs}, nil
}

func ptr(v int64) *int64 { return &v }
