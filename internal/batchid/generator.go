// Package batchid derives human-readable collection prep identifiers
// scoped to a carrier, location, and calendar day.
//
// Identifier format: {MMDDYY}{locationAbbrev}{carrierCode}{counter}, e.g.
// "082926MLCANPAR5" for the Montreal location and Canpar on 2026-08-29.
// The counter continues from the highest suffix already persisted for the
// same region/location/carrier/day.
//
// Known race condition, documented and deliberately not fixed here: the
// existence query and the eventual insert of the generated ids are not
// atomic with respect to other concurrent callers, so two concurrent
// invocations can compute the same starting counter and produce the same
// identifier. The store's uniqueness constraint on (id, region) is the
// last line of defense; the eventual insert fails with a unique violation
// (store.IsUniqueViolation). Callers requiring collision-freedom under
// concurrency must add external locking or move id assignment to insert
// time. Seeding currently runs single-writer, which is why this has not
// bitten anyone yet.
package batchid

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/async"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
)

// LookupStore is the slice of the fulfillment store the generator needs.
type LookupStore interface {
	GetLocation(ctx context.Context, id string) (*models.Location, error)
	ListCollectionPrepIDs(ctx context.Context, region models.Region, locationID, carrier string, day time.Time) ([]string, error)
}

// Generator derives collection prep identifiers from persisted state.
type Generator struct {
	store LookupStore
}

// NewGenerator returns a Generator backed by the given store.
func NewGenerator(s LookupStore) *Generator {
	return &Generator{store: s}
}

// Config describes one identifier to derive in batch mode.
type Config struct {
	Carrier    string
	LocationID string
	Day        time.Time
}

// GenerateIDs derives count identifiers for the given carrier, location,
// and day, with successive counters starting at max(existing)+1 (or 1 when
// none exist).
func (g *Generator) GenerateIDs(ctx context.Context, count int, carrier, locationID string, day time.Time, region models.Region) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}

	loc, err := g.store.GetLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve location for id generation: %w", err)
	}

	return g.generate(ctx, count, carrier, loc, day, region)
}

// GenerateIDsBatch derives one identifier per config, fanning out through
// the bounded processor with the given concurrency limit. Location lookups
// are deduplicated up front so a location shared by many configs is only
// fetched once. The returned slice is positionally aligned with configs.
func (g *Generator) GenerateIDsBatch(ctx context.Context, configs []Config, region models.Region, limit int) ([]string, error) {
	if len(configs) == 0 {
		return []string{}, nil
	}

	// Shared location lookups are serialized here, before the fan-out.
	locations := make(map[string]*models.Location)
	for _, cfg := range configs {
		if _, ok := locations[cfg.LocationID]; ok {
			continue
		}
		loc, err := g.store.GetLocation(ctx, cfg.LocationID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve location %s: %w", cfg.LocationID, err)
		}
		locations[cfg.LocationID] = loc
	}

	return async.Process(ctx, configs, limit, func(ctx context.Context, cfg Config) (string, error) {
		ids, err := g.generate(ctx, 1, cfg.Carrier, locations[cfg.LocationID], cfg.Day, region)
		if err != nil {
			return "", err
		}
		return ids[0], nil
	})
}

func (g *Generator) generate(ctx context.Context, count int, carrier string, loc *models.Location, day time.Time, region models.Region) ([]string, error) {
	prefix := day.Format("010206") + locationAbbrev(loc.Name) + carrierCode(carrier)

	existing, err := g.store.ListCollectionPrepIDs(ctx, region, loc.ID, carrier, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing collection prep ids: %w", err)
	}

	next := maxSuffix(existing, prefix) + 1
	ids := make([]string, count)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%d", prefix, next+i)
	}
	return ids, nil
}

// locationAbbrev is the first and last rune of the location display name,
// upper-cased. Single-rune names double the rune.
func locationAbbrev(name string) string {
	runes := []rune(strings.TrimSpace(name))
	if len(runes) == 0 {
		return ""
	}
	first := unicode.ToUpper(runes[0])
	last := unicode.ToUpper(runes[len(runes)-1])
	return string(first) + string(last)
}

func carrierCode(carrier string) string {
	return strings.ToUpper(strings.TrimSpace(carrier))
}

// maxSuffix extracts the trailing numeric suffix of each identifier
// sharing the prefix and returns the highest, or 0 when none parse.
func maxSuffix(ids []string, prefix string) int {
	max := 0
	for _, id := range ids {
		rest, ok := strings.CutPrefix(id, prefix)
		if !ok || rest == "" {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max
}
