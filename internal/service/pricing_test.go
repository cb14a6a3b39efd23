package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/party-booking/internal/model"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(model.DefaultPackages())
	require.NoError(t, err)
	return c
}

func TestCatalog_Price(t *testing.T) {
	c := testCatalog(t)

	cases := []struct {
		name string
		date string
		tier model.PackageTier
		want int64
	}{
		{"friday is weekday", "2025-06-13", model.TierBasic, 3500},
		{"saturday", "2025-06-14", model.TierBasic, 4500},
		{"sunday shares weekend price", "2025-06-15", model.TierBasic, 4500},
		{"monday", "2025-06-16", model.TierPremium, 8000},
		{"premium weekend", "2025-06-21", model.TierPremium, 9500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Price(tc.date, tc.tier)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCatalog_PriceIsDeterministicAndWeekendNeverWeekday(t *testing.T) {
	c := testCatalog(t)
	for _, def := range c.Packages() {
		for _, date := range []string{"2025-06-14", "2025-06-15", "2024-02-24", "2024-02-25"} {
			first, err := c.Price(date, def.Tier)
			require.NoError(t, err)
			second, err := c.Price(date, def.Tier)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.Equal(t, def.WeekendPrice, first)
			assert.NotEqual(t, def.WeekdayPrice, first)
		}
	}
}

func TestCatalog_PriceErrors(t *testing.T) {
	c := testCatalog(t)

	_, err := c.Price("2025-06-14", "deluxe")
	assert.ErrorIs(t, err, model.ErrUnknownPackageTier)

	_, err = c.Price("2025-02-30", model.TierBasic)
	assert.ErrorIs(t, err, model.ErrInvalidDate)
}

func TestCatalog_PackagesOrderedByRank(t *testing.T) {
	c := testCatalog(t)

	pkgs := c.Packages()
	require.Len(t, pkgs, 3)
	assert.Equal(t, []model.PackageTier{model.TierBasic, model.TierMid, model.TierPremium},
		[]model.PackageTier{pkgs[0].Tier, pkgs[1].Tier, pkgs[2].Tier})
}

func TestNewCatalog_Rejects(t *testing.T) {
	_, err := NewCatalog([]model.PackageDefinition{{Tier: "gold"}})
	assert.ErrorIs(t, err, model.ErrUnknownPackageTier)

	_, err = NewCatalog([]model.PackageDefinition{{Tier: model.TierBasic}, {Tier: model.TierBasic}})
	assert.Error(t, err)

	_, err = NewCatalog([]model.PackageDefinition{{Tier: model.TierMid, WeekdayPrice: -1}})
	assert.Error(t, err)
}
