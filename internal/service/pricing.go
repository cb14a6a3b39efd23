// Package service holds the booking core: pricing, draft validation,
// multi-backend reconciliation, month availability and the booking
// workflow that ties them to the repository adapters.
package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/party-booking/internal/model"
)

// Catalog prices packages from a fixed set of definitions.  It is immutable
// once built and safe for concurrent use.
type Catalog struct {
	defs map[model.PackageTier]model.PackageDefinition
}

// NewCatalog validates defs and builds a catalog.  Every tier must appear
// exactly once with non-negative prices.
func NewCatalog(defs []model.PackageDefinition) (*Catalog, error) {
	c := &Catalog{defs: make(map[model.PackageTier]model.PackageDefinition, len(defs))}
	for _, d := range defs {
		if !d.Tier.Valid() {
			return nil, fmt.Errorf("catalog: %w: %q", model.ErrUnknownPackageTier, d.Tier)
		}
		if _, dup := c.defs[d.Tier]; dup {
			return nil, fmt.Errorf("catalog: tier %s defined twice", d.Tier)
		}
		if d.WeekdayPrice < 0 || d.WeekendPrice < 0 {
			return nil, fmt.Errorf("catalog: tier %s has a negative price", d.Tier)
		}
		c.defs[d.Tier] = d
	}
	return c, nil
}

// IsWeekend reports whether the calendar weekday of t is Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Price returns the package price on date.  Saturday and Sunday share the
// weekend price.
func (c *Catalog) Price(date string, tier model.PackageTier) (int64, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return 0, err
	}
	def, ok := c.defs[tier]
	if !ok {
		return 0, fmt.Errorf("%w: %q", model.ErrUnknownPackageTier, tier)
	}
	if IsWeekend(d) {
		return def.WeekendPrice, nil
	}
	return def.WeekdayPrice, nil
}

// Definition returns the catalog entry for tier.
func (c *Catalog) Definition(tier model.PackageTier) (model.PackageDefinition, bool) {
	d, ok := c.defs[tier]
	return d, ok
}

// Packages lists the catalog ordered by tier rank.
func (c *Catalog) Packages() []model.PackageDefinition {
	out := make([]model.PackageDefinition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier.Rank() < out[j].Tier.Rank() })
	return out
}
