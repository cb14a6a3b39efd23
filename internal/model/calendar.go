package model

// CalendarDay is one cell of a month grid.  It is derived from a reservation
// set and never stored.
type CalendarDay struct {
	Date             string `json:"date"`
	Day              int    `json:"day"`
	InMonth          bool   `json:"inMonth"`
	IsPast           bool   `json:"isPast"`
	IsToday          bool   `json:"isToday"`
	ReservationCount int    `json:"reservationCount"`
	IsAvailable      bool   `json:"isAvailable"`
	IsOverbooked     bool   `json:"isOverbooked"`
}
