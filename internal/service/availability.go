package service

import (
	"strings"
	"time"

	"github.com/iliyamo/party-booking/internal/model"
)

// BuildMonth lays out the month as a Sunday-first grid of whole weeks,
// padded with days of the neighbouring months.  The grid always has five or
// six rows so that every month renders at the same minimum height.
func BuildMonth(year int, month time.Month, reservations []model.Reservation, today time.Time) []model.CalendarDay {
	counts := make(map[string]int, len(reservations))
	for _, r := range reservations {
		counts[strings.TrimSpace(r.Date)]++
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lead := int(first.Weekday())
	days := first.AddDate(0, 1, -1).Day()
	rows := (lead + days + 6) / 7
	if rows < 5 {
		rows = 5
	}

	todayKey := today.Format(model.DateLayout)
	start := first.AddDate(0, 0, -lead)
	out := make([]model.CalendarDay, 0, rows*7)
	for i := 0; i < rows*7; i++ {
		d := start.AddDate(0, 0, i)
		key := d.Format(model.DateLayout)
		n := counts[key]
		out = append(out, model.CalendarDay{
			Date:             key,
			Day:              d.Day(),
			InMonth:          d.Month() == first.Month(),
			IsPast:           key < todayKey,
			IsToday:          key == todayKey,
			ReservationCount: n,
			IsAvailable:      n == 0,
			IsOverbooked:     n > 1,
		})
	}
	return out
}
