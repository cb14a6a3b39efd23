package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/party-booking/internal/model"
)

func TestConsumer_HandleAppendsLines(t *testing.T) {
	dir := t.TempDir()
	c := NewConsumer("", dir, nil)
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	r := model.Reservation{ID: "x1", Date: "2025-06-14", CustomerName: "Ana", Package: model.TierMid, TotalAmount: 5000, DepositAmount: 1000}
	r.Recompute()
	for _, ev := range []ReservationEvent{NewEvent(EventCreated, r, at), NewEvent(EventPaid, r.MarkPaid(), at)} {
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, c.Handle(body))
	}

	raw, err := os.ReadFile(filepath.Join(dir, LogFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `[2025-06-01T09:30:00Z] reservation.created | id=x1 | date=2025-06-14 | customer="Ana" | package=mid | total=5000 | deposit=1000 | paid=false`, lines[0])
	assert.Contains(t, lines[1], "reservation.paid")
	assert.Contains(t, lines[1], "paid=true")
}

func TestConsumer_HandleRejectsGarbage(t *testing.T) {
	c := NewConsumer("", t.TempDir(), nil)

	assert.Error(t, c.Handle([]byte("{not json")))
	assert.Error(t, c.Handle([]byte(`{"reservationId":"x1"}`)))
}
