package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/party-booking/internal/model"
	"github.com/iliyamo/party-booking/internal/repository"
)

const (
	db    = repository.SourceDatabase
	sheet = repository.SourceSheet
	cache = repository.SourceCache
)

func TestMerge_DeduplicatesByNaturalKey(t *testing.T) {
	a := res("x1", "2025-06-01", "Ana", "555-1", 4500, 1000)
	b := res("sheet_7", "2025-06-01", "ana", "555-1", 4500, 1000)
	b.Notes = "piñata"

	got := Merge([]SourceResult{
		{Source: sheet, Records: []model.Reservation{b}},
		{Source: db, Records: []model.Reservation{a}},
	}, nil)

	require.Len(t, got.Reservations, 1)
	r := got.Reservations[0]
	assert.Equal(t, "x1", r.ID, "database copy wins")
	assert.Equal(t, "Ana", r.CustomerName)
	assert.Equal(t, "piñata", r.Notes, "optional fields are unioned")
	assert.Empty(t, got.Conflicts)
	assert.Empty(t, got.Plan)
}

func TestMerge_DoubleBooking(t *testing.T) {
	luis := res("a1", "2025-07-04", "Luis", "555-10", 3500, 0)
	maria := res("sheet_3_0", "2025-07-04", "Maria", "555-20", 3500, 500)

	got := Merge([]SourceResult{
		{Source: db, Records: []model.Reservation{luis}},
		{Source: sheet, Records: []model.Reservation{maria}},
	}, nil)

	require.Len(t, got.Reservations, 2)
	assert.Equal(t, "a1", got.Reservations[0].ID)
	assert.Equal(t, "sheet_3_0", got.Reservations[1].ID)

	require.Len(t, got.Conflicts, 1)
	c := got.Conflicts[0]
	assert.Equal(t, DoubleBooking, c.Kind)
	assert.Equal(t, "2025-07-04", c.Date)
	assert.Equal(t, []string{"a1", "sheet_3_0"}, c.ReservationIDs)
	assert.Equal(t, []string{db, sheet}, c.Sources)

	require.Len(t, got.Plan, 2)
	assert.Equal(t, []string{sheet}, got.Plan[0].MissingFrom)
	assert.Equal(t, []string{db}, got.Plan[1].MissingFrom)
}

func TestMerge_IsDeterministicUnderPermutation(t *testing.T) {
	dbRecs := []model.Reservation{
		res("x1", "2025-06-01", "Ana", "555-1", 4500, 1000),
		res("x2", "2025-07-04", "Luis", "555-10", 3500, 0),
		res("x3", "2025-08-09", "Eva", "555-30", 6500, 6500),
	}
	sheetRecs := []model.Reservation{
		res("sheet_2_0", "2025-08-09", "eva ", "555-30", 6000, 6000),
		res("sheet_3_0", "2025-07-04", "Maria", "555-20", 3500, 500),
		res("sheet_4_0", "2025-06-01", "ANA", "555-1", 4500, 1000),
	}
	cacheRecs := []model.Reservation{
		res("x1", "2025-06-01", "Ana", "555-1", 4500, 1000),
		res("c9", "2025-09-10", "Leo", "555-40", 3500, 100),
		res("c8", "2025-09-10", "Leo", "555-40", 3500, 100),
	}
	base := []SourceResult{
		{Source: db, Records: dbRecs},
		{Source: sheet, Records: sheetRecs},
		{Source: cache, Records: cacheRecs},
	}
	want := Merge(base, nil)

	perms := [][]int{{0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, p := range perms {
		in := []SourceResult{base[p[0]], base[p[1]], base[p[2]]}
		for i := range in {
			in[i].Records = reversed(in[i].Records)
		}
		assert.Equal(t, want, Merge(in, nil), "permutation %v", p)
	}

	ids := make([]string, 0, len(want.Reservations))
	for _, r := range want.Reservations {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"x1", "sheet_3_0", "x2", "x3", "c8"}, ids)

	kinds := make([]ConflictKind, 0, len(want.Conflicts))
	for _, c := range want.Conflicts {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []ConflictKind{DoubleBooking, DivergentDuplicate, DuplicateInSource}, kinds)
}

func TestMerge_DivergentDuplicate(t *testing.T) {
	winner := res("x1", "2025-06-01", "Ana", "555-1", 4500, 1000)
	stale := res("x1", "2025-06-01", "Ana", "555-1", 3500, 1000)

	got := Merge([]SourceResult{
		{Source: cache, Records: []model.Reservation{stale}},
		{Source: db, Records: []model.Reservation{winner}},
	}, nil)

	require.Len(t, got.Reservations, 1)
	assert.Equal(t, int64(4500), got.Reservations[0].TotalAmount)

	require.Len(t, got.Conflicts, 1)
	c := got.Conflicts[0]
	assert.Equal(t, DivergentDuplicate, c.Kind)
	require.Len(t, c.Fields, 1)
	assert.Equal(t, "totalAmount", c.Fields[0].Field)
	assert.Equal(t, map[string]string{db: "4500", cache: "3500"}, c.Fields[0].Values)

	require.Len(t, got.Plan, 1)
	assert.Empty(t, got.Plan[0].MissingFrom)
	assert.Equal(t, []string{cache}, got.Plan[0].StaleIn)
}

func TestMerge_DuplicateInSource(t *testing.T) {
	got := Merge([]SourceResult{{Source: sheet, Records: []model.Reservation{
		res("sheet_2_0", "2025-06-01", "Ana", "555-1", 4500, 0),
		res("sheet_5_0", "2025-06-01", "ana", "555-1", 4500, 0),
	}}}, nil)

	require.Len(t, got.Reservations, 1)
	require.Len(t, got.Conflicts, 1)
	assert.Equal(t, DuplicateInSource, got.Conflicts[0].Kind)
	assert.Equal(t, []string{"sheet_2_0", "sheet_5_0"}, got.Conflicts[0].ReservationIDs)
	assert.Equal(t, []string{sheet}, got.Conflicts[0].Sources)
}

func TestMerge_PriorityIsConfigurable(t *testing.T) {
	fromDB := res("x1", "2025-06-01", "Ana", "555-1", 4500, 0)
	fromCache := res("x1", "2025-06-01", "Ana", "555-1", 4500, 4500)
	in := []SourceResult{
		{Source: db, Records: []model.Reservation{fromDB}},
		{Source: cache, Records: []model.Reservation{fromCache}},
	}

	assert.False(t, Merge(in, nil).Reservations[0].IsPaid)
	assert.True(t, Merge(in, []string{cache, db, sheet}).Reservations[0].IsPaid)
}

func TestMerge_SynthesizesMissingIDs(t *testing.T) {
	r := res("", "2025-06-01", "Ana", "555-1", 4500, 0)

	got := Merge([]SourceResult{{Source: cache, Records: []model.Reservation{r}}}, nil)

	require.Len(t, got.Reservations, 1)
	assert.Equal(t, r.NaturalKey().SyntheticID(), got.Reservations[0].ID)
}

func TestMerge_RecomputesDerivedFields(t *testing.T) {
	r := res("x1", "2025-06-01", "Ana", "555-1", 4500, 1000)
	r.RemainingAmount, r.IsPaid = 0, true

	got := Merge([]SourceResult{{Source: sheet, Records: []model.Reservation{r}}}, nil)

	assert.NoError(t, got.Reservations[0].CheckInvariants())
	assert.Equal(t, int64(3500), got.Reservations[0].RemainingAmount)
}

func TestMerge_PlanSkipsUnreachableSources(t *testing.T) {
	got := Merge([]SourceResult{
		{Source: db, Records: []model.Reservation{res("x1", "2025-06-01", "Ana", "555-1", 4500, 0)}},
		{Source: sheet, Err: &repository.Error{Source: sheet, Op: "list", Kind: repository.ErrPermissionDenied}},
		{Source: cache},
	}, nil)

	require.Len(t, got.Plan, 1)
	assert.Equal(t, []string{cache}, got.Plan[0].MissingFrom)
	require.Len(t, got.Unavailable, 1)
	assert.Equal(t, SourceUnavailable{Source: sheet, Kind: "PermissionDenied", Message: "sheet list: permission denied"}, got.Unavailable[0])
}

func TestMerge_InvalidRecordIsReportedAndNotPropagated(t *testing.T) {
	bad := res("sheet_4_0", "2025-06-21", "Ana", "555-1", 1000, 1500)

	got := Merge([]SourceResult{
		{Source: sheet, Records: []model.Reservation{bad}},
		{Source: db},
	}, nil)

	assert.Empty(t, got.Reservations)
	assert.Empty(t, got.Plan)
	require.Len(t, got.Conflicts, 1)
	c := got.Conflicts[0]
	assert.Equal(t, InvalidRecord, c.Kind)
	assert.Equal(t, "2025-06-21", c.Date)
	assert.Equal(t, []string{"sheet_4_0"}, c.ReservationIDs)
	assert.Equal(t, []string{sheet}, c.Sources)
	assert.Equal(t, []FieldDiff{
		{Field: "totalAmount", Values: map[string]string{sheet: "1000"}},
		{Field: "depositAmount", Values: map[string]string{sheet: "1500"}},
	}, c.Fields)
}

func TestMerge_InvalidCopyIsCorrectedFromValidOne(t *testing.T) {
	good := res("x1", "2025-06-21", "Ana", "555-1", 4500, 1000)
	bad := res("sheet_4_0", "2025-06-21", "ana", "555-1", 4500, 5000)

	got := Merge([]SourceResult{
		{Source: db, Records: []model.Reservation{good}},
		{Source: sheet, Records: []model.Reservation{bad}},
	}, nil)

	require.Len(t, got.Reservations, 1)
	assert.Equal(t, int64(1000), got.Reservations[0].DepositAmount)
	assert.NoError(t, got.Reservations[0].CheckInvariants())

	require.Len(t, got.Plan, 1)
	assert.Equal(t, []string{sheet}, got.Plan[0].StaleIn)
	assert.Empty(t, got.Plan[0].MissingFrom)

	kinds := []ConflictKind{}
	for _, c := range got.Conflicts {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []ConflictKind{DivergentDuplicate, InvalidRecord}, kinds)
}

func TestMerge_InvalidTopPriorityCopyLosesToValidOne(t *testing.T) {
	bad := res("x1", "2025-06-21", "Ana", "555-1", -100, 0)
	good := res("x1", "2025-06-21", "Ana", "555-1", 4500, 500)

	got := Merge([]SourceResult{
		{Source: db, Records: []model.Reservation{bad}},
		{Source: cache, Records: []model.Reservation{good}},
	}, nil)

	require.Len(t, got.Reservations, 1)
	assert.Equal(t, int64(4500), got.Reservations[0].TotalAmount)
	require.Len(t, got.Plan, 1)
	assert.Equal(t, []string{db}, got.Plan[0].StaleIn)
}

func TestReconciler_PartialOutage(t *testing.T) {
	slow := newMem(sheet)
	slow.block = true
	rc := NewReconciler([]repository.Adapter{
		newMem(db, res("x1", "2025-06-01", "Ana", "555-1", 4500, 0)),
		slow,
		newMem(cache, res("c1", "2025-06-02", "Leo", "555-2", 3500, 0)),
	}, nil, 50*time.Millisecond, nil)

	start := time.Now()
	got := rc.Reconcile(context.Background())

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, got.Reservations, 2)
	require.Len(t, got.Unavailable, 1)
	assert.Equal(t, sheet, got.Unavailable[0].Source)
	assert.Equal(t, "Unavailable", got.Unavailable[0].Kind)
}

func TestReconciler_AllSourcesDown(t *testing.T) {
	down := errors.New("connection refused")
	adapters := []repository.Adapter{newMem(db), newMem(sheet), newMem(cache)}
	for _, a := range adapters {
		a.(*memAdapter).listErr = down
	}

	got := NewReconciler(adapters, nil, time.Second, nil).Reconcile(context.Background())

	assert.Empty(t, got.Reservations)
	assert.Empty(t, got.Plan)
	require.Len(t, got.Unavailable, 3)
	assert.Equal(t, []string{db, sheet, cache},
		[]string{got.Unavailable[0].Source, got.Unavailable[1].Source, got.Unavailable[2].Source})
}

func TestReconciler_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := newMem(db)
	slow.block = true

	got := NewReconciler([]repository.Adapter{slow}, nil, time.Second, nil).Reconcile(ctx)

	require.Len(t, got.Unavailable, 1)
	assert.Equal(t, "Unavailable", got.Unavailable[0].Kind)
}

func reversed(in []model.Reservation) []model.Reservation {
	out := make([]model.Reservation, len(in))
	for i, r := range in {
		out[len(in)-1-i] = r
	}
	return out
}
