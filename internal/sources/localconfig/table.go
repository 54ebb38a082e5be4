package localconfig

import (
	"sort"
	"strings"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
)

// Table is the lookup form of a Document. It is built once and never
// mutated afterwards, so it is safe for concurrent use without locking.
type Table struct {
	regional map[domain.ProductCode]map[domain.RegionID]string
	global   map[domain.ProductCode]string
	regions  map[domain.RegionID]struct{}
	aliases  map[domain.ProductCode]domain.ProductCode
}

// NewTable normalizes a document into a Table. Entries with an empty product,
// region or hostname are dropped.
func NewTable(doc Document) *Table {
	t := &Table{
		regional: make(map[domain.ProductCode]map[domain.RegionID]string, len(doc.RegionalEndpoints)),
		global:   make(map[domain.ProductCode]string, len(doc.GlobalEndpoints)),
		regions:  make(map[domain.RegionID]struct{}, len(doc.Regions)),
		aliases:  make(map[domain.ProductCode]domain.ProductCode, len(doc.LocationCodeMapping)),
	}

	for code, byRegion := range doc.RegionalEndpoints {
		product := domain.NewProductCode(code)
		if product == "" {
			continue
		}
		for regionID, host := range byRegion {
			region := domain.NewRegionID(regionID)
			host = strings.TrimSpace(host)
			if region == "" || host == "" {
				continue
			}
			if t.regional[product] == nil {
				t.regional[product] = make(map[domain.RegionID]string, len(byRegion))
			}
			t.regional[product][region] = host
		}
	}

	for code, host := range doc.GlobalEndpoints {
		product := domain.NewProductCode(code)
		host = strings.TrimSpace(host)
		if product == "" || host == "" {
			continue
		}
		t.global[product] = host
	}

	for _, regionID := range doc.Regions {
		if region := domain.NewRegionID(regionID); region != "" {
			t.regions[region] = struct{}{}
		}
	}

	for from, to := range doc.LocationCodeMapping {
		src, dst := domain.NewProductCode(from), domain.NewProductCode(to)
		if src == "" || dst == "" || src == dst {
			continue
		}
		t.aliases[src] = dst
	}

	return t
}

// Canonical applies location_code_mapping to a product code.
func (t *Table) Canonical(product domain.ProductCode) domain.ProductCode {
	if alias, ok := t.aliases[product]; ok {
		return alias
	}
	return product
}

// RegionalEndpoint returns regional[product][region].
func (t *Table) RegionalEndpoint(product domain.ProductCode, region domain.RegionID) (string, bool) {
	host, ok := t.regional[t.Canonical(product)][region]
	return host, ok
}

// GlobalEndpoint returns global[product].
func (t *Table) GlobalEndpoint(product domain.ProductCode) (string, bool) {
	host, ok := t.global[t.Canonical(product)]
	return host, ok
}

// HasRegion reports whether the region is in the document's regions list.
func (t *Table) HasRegion(region domain.RegionID) bool {
	_, ok := t.regions[region]
	return ok
}

// HasRegionalProduct reports whether the product has any regional endpoint.
func (t *Table) HasRegionalProduct(product domain.ProductCode) bool {
	_, ok := t.regional[t.Canonical(product)]
	return ok
}

// HasGlobalProduct reports whether the product has a global endpoint.
func (t *Table) HasGlobalProduct(product domain.ProductCode) bool {
	_, ok := t.global[t.Canonical(product)]
	return ok
}

// RegionsFor returns the sorted regions with a regional endpoint for the
// product, nil if the product has none.
func (t *Table) RegionsFor(product domain.ProductCode) []string {
	byRegion, ok := t.regional[t.Canonical(product)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(byRegion))
	for region := range byRegion {
		out = append(out, string(region))
	}
	sort.Strings(out)
	return out
}

// Regions returns the sorted regions list.
func (t *Table) Regions() []string {
	out := make([]string, 0, len(t.regions))
	for region := range t.regions {
		out = append(out, string(region))
	}
	sort.Strings(out)
	return out
}

// Stats summarizes the table for status reporting.
type Stats struct {
	RegionalProducts int `json:"regional_products"`
	GlobalProducts   int `json:"global_products"`
	Regions          int `json:"regions"`
}

func (t *Table) Stats() Stats {
	return Stats{
		RegionalProducts: len(t.regional),
		GlobalProducts:   len(t.global),
		Regions:          len(t.regions),
	}
}
