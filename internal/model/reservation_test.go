package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaturalKey_NormalizesCaseAndWhitespace(t *testing.T) {
	a := Reservation{Date: "2025-06-01", CustomerName: "Ana ", CustomerPhone: " 555-1"}
	b := Reservation{Date: "2025-06-01", CustomerName: "ana", CustomerPhone: "555-1"}

	assert.Equal(t, a.NaturalKey(), b.NaturalKey())
	assert.Equal(t, a.NaturalKey().SyntheticID(), b.NaturalKey().SyntheticID())
}

func TestRecompute_DerivesPaymentState(t *testing.T) {
	r := Reservation{TotalAmount: 1000, DepositAmount: 400, RemainingAmount: 7, IsPaid: true}
	r.Recompute()
	assert.Equal(t, int64(600), r.RemainingAmount)
	assert.False(t, r.IsPaid)
	require.NoError(t, r.CheckInvariants())

	r.DepositAmount = 1000
	r.Recompute()
	assert.Equal(t, int64(0), r.RemainingAmount)
	assert.True(t, r.IsPaid)
}

func TestMarkPaid(t *testing.T) {
	r := Reservation{ID: "x", TotalAmount: 1200, DepositAmount: 200}
	r.Recompute()

	paid := r.MarkPaid()

	assert.Equal(t, int64(1200), paid.DepositAmount)
	assert.Equal(t, int64(0), paid.RemainingAmount)
	assert.True(t, paid.IsPaid)
	assert.NoError(t, paid.CheckInvariants())
	assert.False(t, r.IsPaid, "receiver must not change")
}

func TestCheckInvariants_RejectsStaleDerivedFields(t *testing.T) {
	r := Reservation{ID: "x", TotalAmount: 1000, DepositAmount: 1000, RemainingAmount: 0, IsPaid: false}
	assert.Error(t, r.CheckInvariants())

	r = Reservation{ID: "x", TotalAmount: 1000, DepositAmount: 1500}
	assert.Error(t, r.CheckInvariants())
}

func TestParsePackageTier(t *testing.T) {
	cases := map[string]PackageTier{
		"Basic":         TierBasic,
		" básico ":      TierBasic,
		"Paquete Medio": TierMid,
		"tier2":         TierMid,
		"PREMIUM":       TierPremium,
	}
	for in, want := range cases {
		got, err := ParsePackageTier(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePackageTier("deluxe")
	assert.ErrorIs(t, err, ErrUnknownPackageTier)
	assert.True(t, TierBasic.Rank() < TierMid.Rank() && TierMid.Rank() < TierPremium.Rank())
}
