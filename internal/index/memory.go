package index

import (
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
)

type entryKey struct {
	region  domain.RegionID
	product domain.ProductCode
}

// EntryIndex is the in-memory store of user-defined endpoint overrides,
// keyed by the normalized (region, product) pair.
// Reads may run concurrently; writes are serialized.
type EntryIndex struct {
	mu        sync.RWMutex
	entries   map[entryKey]domain.EndpointEntry
	regions   map[domain.RegionID]int    // region -> number of entries using it
	products  map[domain.ProductCode]int // product -> number of entries using it
	updatedAt time.Time
}

// NewEntryIndex creates an empty index.
func NewEntryIndex() *EntryIndex {
	return &EntryIndex{
		entries:  make(map[entryKey]domain.EndpointEntry),
		regions:  make(map[domain.RegionID]int),
		products: make(map[domain.ProductCode]int),
	}
}

// Put registers or overwrites the override for (regionID, productCode).
func (idx *EntryIndex) Put(regionID, productCode, hostname string) {
	key := entryKey{region: domain.NewRegionID(regionID), product: domain.NewProductCode(productCode)}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.entries[key]; !exists {
		idx.regions[key.region]++
		idx.products[key.product]++
	}
	idx.entries[key] = domain.EndpointEntry{
		RegionID:    regionID,
		ProductCode: productCode,
		Hostname:    hostname,
	}
	idx.updatedAt = time.Now()
}

// Get returns the hostname registered for the exact pair.
func (idx *EntryIndex) Get(region domain.RegionID, product domain.ProductCode) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entry, ok := idx.entries[entryKey{region: region, product: product}]
	return entry.Hostname, ok
}

// Delete removes the override for the pair, if any.
func (idx *EntryIndex) Delete(region domain.RegionID, product domain.ProductCode) {
	key := entryKey{region: region, product: product}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.entries[key]; !ok {
		return
	}
	delete(idx.entries, key)
	decrement(idx.regions, key.region)
	decrement(idx.products, key.product)
	idx.updatedAt = time.Now()
}

// Reset drops every override.
func (idx *EntryIndex) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries = make(map[entryKey]domain.EndpointEntry)
	idx.regions = make(map[domain.RegionID]int)
	idx.products = make(map[domain.ProductCode]int)
	idx.updatedAt = time.Now()
}

// HasRegion reports whether any override uses the region.
func (idx *EntryIndex) HasRegion(region domain.RegionID) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.regions[region] > 0
}

// HasProduct reports whether any override uses the product.
func (idx *EntryIndex) HasProduct(product domain.ProductCode) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.products[product] > 0
}

// Entries returns a snapshot of all overrides, sorted by product then region.
func (idx *EntryIndex) Entries() []domain.EndpointEntry {
	idx.mu.RLock()
	out := make([]domain.EndpointEntry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e)
	}
	idx.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		pi, pj := domain.NewProductCode(out[i].ProductCode), domain.NewProductCode(out[j].ProductCode)
		if pi != pj {
			return pi < pj
		}
		return domain.NewRegionID(out[i].RegionID) < domain.NewRegionID(out[j].RegionID)
	})
	return out
}

// Count returns the number of overrides.
func (idx *EntryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.entries)
}

// GetLastUpdate returns the time of the last mutation (zero if never mutated).
func (idx *EntryIndex) GetLastUpdate() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.updatedAt
}

func decrement[K comparable](m map[K]int, k K) {
	if m[k] <= 1 {
		delete(m, k)
		return
	}
	m[k]--
}
