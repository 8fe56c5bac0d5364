package models

import (
	"fmt"
	"strings"
)

// Species enumerates the chick species distributed by the hatchery.
type Species string

const (
	SpeciesBroiler Species = "broiler"
	SpeciesLayer   Species = "layer"
)

// Breed enumerates the breed lines a species is stocked in.
type Breed string

const (
	BreedLocal  Breed = "local"
	BreedExotic Breed = "exotic"
)

// StockKey is the composite species × breed key stock lots are filed under,
// e.g. "broiler_local".
type StockKey string

const (
	StockBroilerLocal  StockKey = "broiler_local"
	StockBroilerExotic StockKey = "broiler_exotic"
	StockLayerLocal    StockKey = "layer_local"
	StockLayerExotic   StockKey = "layer_exotic"
)

// StockKeys lists every valid composite key in display order.
var StockKeys = []StockKey{StockBroilerLocal, StockBroilerExotic, StockLayerLocal, StockLayerExotic}

// Valid reports whether s is a known species.
func (s Species) Valid() bool {
	switch s {
	case SpeciesBroiler, SpeciesLayer:
		return true
	default:
		return false
	}
}

// Valid reports whether b is a known breed.
func (b Breed) Valid() bool {
	switch b {
	case BreedLocal, BreedExotic:
		return true
	default:
		return false
	}
}

// KeyFor maps a species and breed to the stock key used by the ledger.
func KeyFor(species Species, breed Breed) StockKey {
	return StockKey(string(species) + "_" + string(breed))
}

// ParseStockKey normalizes and validates a composite stock key.
func ParseStockKey(value string) (StockKey, error) {
	key := StockKey(strings.ToLower(strings.TrimSpace(value)))
	if !key.Valid() {
		return "", fmt.Errorf("%w: unknown chick type %q", ErrInvalidChickType, value)
	}
	return key, nil
}

// Valid reports whether k is one of the four stocked combinations.
func (k StockKey) Valid() bool {
	species, breed := k.Split()
	return species.Valid() && breed.Valid() && KeyFor(species, breed) == k
}

// Split returns the species and breed halves of the key.
func (k StockKey) Split() (Species, Breed) {
	species, breed, ok := strings.Cut(string(k), "_")
	if !ok {
		return "", ""
	}
	return Species(species), Breed(breed)
}

// Display renders the key the way it appears on stock sheets, e.g. "Broiler Local".
func (k StockKey) Display() string {
	species, breed := k.Split()
	return titleCase(string(species)) + " " + titleCase(string(breed))
}

// Tier classifies farmers and bounds how many chicks they may request.
type Tier string

const (
	TierStarter   Tier = "starter"
	TierReturning Tier = "returning"
)

const (
	starterRequestLimit   = 100
	returningRequestLimit = 500
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierStarter, TierReturning:
		return true
	default:
		return false
	}
}

// RequestLimit returns the maximum quantity a farmer of this tier may request.
func (t Tier) RequestLimit() int {
	switch t {
	case TierStarter:
		return starterRequestLimit
	case TierReturning:
		return returningRequestLimit
	default:
		return 0
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
