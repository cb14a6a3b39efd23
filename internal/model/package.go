package model

import (
	"errors"
	"strings"
)

// PackageTier is one of the three fixed service levels.  Tiers are ordinal:
// basic < mid < premium by price.
type PackageTier string

const (
	TierBasic   PackageTier = "basic"
	TierMid     PackageTier = "mid"
	TierPremium PackageTier = "premium"
)

// ErrUnknownPackageTier is returned when a tier name cannot be mapped.
var ErrUnknownPackageTier = errors.New("unknown package tier")

// tierAliases maps the display names used across backends onto tiers.
var tierAliases = map[string]PackageTier{
	"basic":      TierBasic,
	"basico":     TierBasic,
	"básico":     TierBasic,
	"tier1":      TierBasic,
	"1":          TierBasic,
	"mid":        TierMid,
	"medio":      TierMid,
	"intermedio": TierMid,
	"tier2":      TierMid,
	"2":          TierMid,
	"premium":    TierPremium,
	"tier3":      TierPremium,
	"3":          TierPremium,
}

// ParsePackageTier maps a display name or code onto a tier.
func ParsePackageTier(s string) (PackageTier, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimPrefix(key, "paquete ")
	if t, ok := tierAliases[key]; ok {
		return t, nil
	}
	return "", ErrUnknownPackageTier
}

// Rank returns 1..3 for known tiers and 0 otherwise.
func (t PackageTier) Rank() int {
	switch t {
	case TierBasic:
		return 1
	case TierMid:
		return 2
	case TierPremium:
		return 3
	}
	return 0
}

// Valid reports whether t is one of the known tiers.
func (t PackageTier) Valid() bool { return t.Rank() > 0 }

// PackageDefinition is a static catalog entry.
type PackageDefinition struct {
	Tier         PackageTier `json:"tier"`
	Name         string      `json:"name"`
	WeekdayPrice int64       `json:"weekdayPrice"`
	WeekendPrice int64       `json:"weekendPrice"`
	Description  string      `json:"description"`
}

// DefaultPackages is the catalog used when no prices are configured.
func DefaultPackages() []PackageDefinition {
	return []PackageDefinition{
		{Tier: TierBasic, Name: "Paquete Básico", WeekdayPrice: 3500, WeekendPrice: 4500,
			Description: "3 horas de salón, mesa de dulces y animador"},
		{Tier: TierMid, Name: "Paquete Intermedio", WeekdayPrice: 5500, WeekendPrice: 6500,
			Description: "4 horas de salón, comida para 30 niños, piñata y animador"},
		{Tier: TierPremium, Name: "Paquete Premium", WeekdayPrice: 8000, WeekendPrice: 9500,
			Description: "5 horas de salón, comida para 50 personas, show temático y pastel"},
	}
}
