package cleanup

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
)

// Selector chooses which orders a cleanup run targets. Exactly one field
// must be set.
type Selector struct {
	// BatchID is a seeding batch uuid, mapped to its canonical tag via
	// the order system's tag formatter.
	BatchID string
	// CollectionPrep is a collection prep grouping name.
	CollectionPrep string
	// Tag is an arbitrary order-system tag used as-is.
	Tag string
}

// ResolveTag validates the selector and returns the order-system tag to
// query. Zero or multiple selectors is a validation error.
func (s Selector) ResolveTag(tagForBatch func(string) string) (string, error) {
	set := 0
	if s.BatchID != "" {
		set++
	}
	if s.CollectionPrep != "" {
		set++
	}
	if s.Tag != "" {
		set++
	}
	if set == 0 {
		return "", &models.ValidationError{Message: "one of --batch-id, --collection-prep, or --tag is required"}
	}
	if set > 1 {
		return "", &models.ValidationError{Message: "only one of --batch-id, --collection-prep, or --tag may be provided"}
	}

	switch {
	case s.BatchID != "":
		if _, err := uuid.Parse(s.BatchID); err != nil {
			return "", &models.ValidationError{Field: "batch-id", Message: fmt.Sprintf("%q is not a valid uuid", s.BatchID)}
		}
		return tagForBatch(s.BatchID), nil
	case s.CollectionPrep != "":
		return "collection-prep:" + s.CollectionPrep, nil
	default:
		return s.Tag, nil
	}
}
