package endpoint

import (
	"context"
	"sync/atomic"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
	"github.com/MrSnakeDoc/endpointd/internal/sources/localconfig"
)

// tableHolder lets a reload swap the table under concurrent readers.
type tableHolder struct {
	table atomic.Pointer[localconfig.Table]
}

func newTableHolder(t *localconfig.Table) *tableHolder {
	if t == nil {
		t = localconfig.Default()
	}
	h := &tableHolder{}
	h.table.Store(t)
	return h
}

// SetTable replaces the table. A nil table is ignored.
func (h *tableHolder) SetTable(t *localconfig.Table) {
	if t != nil {
		h.table.Store(t)
	}
}

// Table returns the current table.
func (h *tableHolder) Table() *localconfig.Table {
	return h.table.Load()
}

// RegionalResolver serves regional_endpoints for openAPI requests.
type RegionalResolver struct {
	*tableHolder
}

// NewRegionalResolver serves the given table, or the bundled one when nil.
func NewRegionalResolver(t *localconfig.Table) *RegionalResolver {
	return &RegionalResolver{tableHolder: newTableHolder(t)}
}

func (r *RegionalResolver) Source() string { return "regional" }

func (r *RegionalResolver) Resolve(_ context.Context, req *domain.ResolveRequest) (string, error) {
	if !req.IsOpenAPI() {
		return "", nil
	}
	host, _ := r.Table().RegionalEndpoint(req.Product(), req.Region())
	return host, nil
}

func (r *RegionalResolver) IsRegionIDValid(req *domain.ResolveRequest) bool {
	return r.Table().HasRegion(req.Region())
}

func (r *RegionalResolver) IsProductCodeValid(req *domain.ResolveRequest) bool {
	return r.Table().HasRegionalProduct(req.Product())
}

func (r *RegionalResolver) ValidRegionIDs(product domain.ProductCode) []string {
	return r.Table().RegionsFor(product)
}

// GlobalResolver serves global_endpoints for openAPI requests in regions
// listed by the table.
type GlobalResolver struct {
	*tableHolder
}

// NewGlobalResolver serves the given table, or the bundled one when nil.
func NewGlobalResolver(t *localconfig.Table) *GlobalResolver {
	return &GlobalResolver{tableHolder: newTableHolder(t)}
}

func (g *GlobalResolver) Source() string { return "global" }

func (g *GlobalResolver) Resolve(_ context.Context, req *domain.ResolveRequest) (string, error) {
	if !req.IsOpenAPI() {
		return "", nil
	}
	table := g.Table()
	if !table.HasRegion(req.Region()) {
		return "", nil
	}
	host, _ := table.GlobalEndpoint(req.Product())
	return host, nil
}

func (g *GlobalResolver) IsRegionIDValid(req *domain.ResolveRequest) bool {
	return g.Table().HasRegion(req.Region())
}

func (g *GlobalResolver) IsProductCodeValid(req *domain.ResolveRequest) bool {
	return g.Table().HasGlobalProduct(req.Product())
}
