package model

import (
	"fmt"
	"strings"
)

// ValidationCode names one kind of draft violation.
type ValidationCode string

const (
	CodeInvalidDate         ValidationCode = "InvalidDate"
	CodeMissingField        ValidationCode = "MissingField"
	CodeNegativeAmount      ValidationCode = "NegativeAmount"
	CodeDepositExceedsTotal ValidationCode = "DepositExceedsTotal"
	CodePriceMismatch       ValidationCode = "PriceMismatch"
	CodeUnknownPackageTier  ValidationCode = "UnknownPackageTier"
)

// Severity tells callers whether a violation blocks acceptance.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is a single violation with enough detail to be rendered
// without re-deriving it.
type ValidationError struct {
	Code     ValidationCode `json:"code"`
	Field    string         `json:"field"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Expected *int64         `json:"expected,omitempty"`
	Actual   *int64         `json:"actual,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is the accumulated result of validating one draft.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether a violation with the given code is present.
func (v ValidationErrors) Has(code ValidationCode) bool {
	for _, e := range v {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Blocking reports whether any violation has error severity.
func (v ValidationErrors) Blocking() bool {
	for _, e := range v {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
