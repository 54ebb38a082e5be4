// Package endpoint resolves (region, product) pairs to hostnames by chaining
// several strategies: user overrides, the local endpoint tables and the
// remote location service.
package endpoint

import (
	"context"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
)

// Resolver is one resolution strategy.
//
// ("", nil) is a miss and lets the next strategy try. A non-nil error stops
// the chain.
type Resolver interface {
	Resolve(ctx context.Context, req *domain.ResolveRequest) (string, error)
}

// Validator is implemented by strategies that can vouch for a region or a
// product when every strategy missed.
type Validator interface {
	IsRegionIDValid(req *domain.ResolveRequest) bool
	IsProductCodeValid(req *domain.ResolveRequest) bool
}

// RegionLister is implemented by strategies that know which regions serve a
// product. The result is sorted.
type RegionLister interface {
	ValidRegionIDs(product domain.ProductCode) []string
}

// Persister receives positive location service answers.
type Persister interface {
	SaveLocationEntry(ctx context.Context, entry domain.LocationEntry) error
}

// Source names a strategy in logs and metrics.
type Source interface {
	Source() string
}

func sourceOf(r Resolver) string {
	if s, ok := r.(Source); ok {
		return s.Source()
	}
	return "unknown"
}
