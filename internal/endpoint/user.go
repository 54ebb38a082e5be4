package endpoint

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
	"github.com/MrSnakeDoc/endpointd/internal/index"
)

// UserResolver serves endpoints registered at runtime. An entry shadows every
// other source for its exact (region, product) pair, whatever the endpoint type.
type UserResolver struct {
	name    string
	entries *index.EntryIndex
}

// NewUserResolver creates an empty override set.
func NewUserResolver() *UserResolver {
	return &UserResolver{name: "user", entries: index.NewEntryIndex()}
}

// NewPredefinedResolver creates an override set meant to be shared between
// several DefaultResolvers through WithPredefined.
func NewPredefinedResolver() *UserResolver {
	return &UserResolver{name: "predefined", entries: index.NewEntryIndex()}
}

func (u *UserResolver) Source() string { return u.name }

// PutEndpointEntry registers or overwrites an override.
func (u *UserResolver) PutEndpointEntry(regionID, productCode, hostname string) {
	u.entries.Put(regionID, productCode, hostname)
}

// RemoveEndpointEntry drops the override for the pair, if any.
func (u *UserResolver) RemoveEndpointEntry(regionID, productCode string) {
	u.entries.Delete(domain.NewRegionID(regionID), domain.NewProductCode(productCode))
}

// Reset drops every override.
func (u *UserResolver) Reset() {
	u.entries.Reset()
}

// Entries returns a sorted snapshot of the overrides.
func (u *UserResolver) Entries() []domain.EndpointEntry {
	return u.entries.Entries()
}

// Entry returns the override registered for the pair, if any.
func (u *UserResolver) Entry(regionID, productCode string) (domain.EndpointEntry, bool) {
	host, ok := u.entries.Get(domain.NewRegionID(regionID), domain.NewProductCode(productCode))
	if !ok {
		return domain.EndpointEntry{}, false
	}
	return domain.EndpointEntry{RegionID: regionID, ProductCode: productCode, Hostname: host}, true
}

// LastUpdate returns when the overrides last changed, zero if never.
func (u *UserResolver) LastUpdate() time.Time {
	return u.entries.GetLastUpdate()
}

// Count returns the number of overrides.
func (u *UserResolver) Count() int {
	return u.entries.Count()
}

func (u *UserResolver) Resolve(_ context.Context, req *domain.ResolveRequest) (string, error) {
	host, _ := u.entries.Get(req.Region(), req.Product())
	return host, nil
}

func (u *UserResolver) IsRegionIDValid(req *domain.ResolveRequest) bool {
	return u.entries.HasRegion(req.Region())
}

func (u *UserResolver) IsProductCodeValid(req *domain.ResolveRequest) bool {
	return u.entries.HasProduct(req.Product())
}
