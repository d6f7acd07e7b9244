package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMetadata is wrapped by all metadata validation errors. A check
// with invalid metadata is never run.
var ErrInvalidMetadata = errors.New("invalid plugin metadata")

// Metadata describes a check for reporting. Apart from APIs, which are
// validated against the registry, nothing here influences evaluation.
type Metadata struct {
	// ID is unique within a catalog, e.g. aws/cloudtrail/cloudtrailBucketPrivate.
	ID                string
	Title             string
	Category          string
	Domain            string
	Description       string
	MoreInfo          string
	RecommendedAction string
	Link              string
	APIs              []API
	// Compliance maps a standard to the clause the check covers.
	Compliance map[string]string
}

// Validate checks that m is complete and depends only on registered APIs.
func (m Metadata) Validate(registry Registry) error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: id must not be blank", ErrInvalidMetadata)
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: %s: title must not be blank", ErrInvalidMetadata, m.ID)
	}
	if strings.TrimSpace(m.Category) == "" {
		return fmt.Errorf("%w: %s: category must not be blank", ErrInvalidMetadata, m.ID)
	}
	if len(m.APIs) == 0 {
		return fmt.Errorf("%w: %s: no APIs declared", ErrInvalidMetadata, m.ID)
	}
	seen := make(map[API]bool, len(m.APIs))
	for _, api := range m.APIs {
		if seen[api] {
			return fmt.Errorf("%w: %s: duplicate API %s", ErrInvalidMetadata, m.ID, api)
		}
		seen[api] = true
		if !registry.Has(api) {
			return fmt.Errorf("%w: %s: unknown API %s", ErrInvalidMetadata, m.ID, api)
		}
	}
	for standard, clause := range m.Compliance {
		if strings.TrimSpace(standard) == "" || strings.TrimSpace(clause) == "" {
			return fmt.Errorf("%w: %s: blank compliance reference", ErrInvalidMetadata, m.ID)
		}
	}
	return nil
}

// MustAPIs resolves "Service:operation" references against registry and
// panics on unknown references. Checks call it while declaring their
// metadata, so a typo stops the program at start-up.
func MustAPIs(registry Registry, refs ...string) []API {
	apis := make([]API, 0, len(refs))
	for _, ref := range refs {
		api, err := registry.Resolve(ref)
		if err != nil {
			panic(err)
		}
		apis = append(apis, api)
	}
	return apis
}
