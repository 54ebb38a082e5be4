package endpoint

import (
	"context"
	"sort"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
)

// ChainedResolver tries each strategy in order and returns the first hostname.
type ChainedResolver struct {
	resolvers []Resolver
}

// NewChainedResolver chains the given strategies. Nil entries are skipped.
func NewChainedResolver(resolvers ...Resolver) *ChainedResolver {
	chain := make([]Resolver, 0, len(resolvers))
	for _, r := range resolvers {
		if r != nil {
			chain = append(chain, r)
		}
	}
	return &ChainedResolver{resolvers: chain}
}

func (c *ChainedResolver) Resolve(ctx context.Context, req *domain.ResolveRequest) (string, error) {
	host, _, err := c.ResolveWithSource(ctx, req)
	return host, err
}

// ResolveWithSource is Resolve that also names the strategy that answered.
// The source is empty when the resolution failed.
func (c *ChainedResolver) ResolveWithSource(ctx context.Context, req *domain.ResolveRequest) (string, string, error) {
	for _, r := range c.resolvers {
		host, err := r.Resolve(ctx, req)
		if err != nil {
			return "", "", err
		}
		if host != "" {
			return host, sourceOf(r), nil
		}
	}
	return "", "", c.diagnose(req)
}

// diagnose explains a miss: unknown region first, then unknown product, then
// a valid pair without an endpoint.
func (c *ChainedResolver) diagnose(req *domain.ResolveRequest) *domain.ResolveError {
	if !c.anyValidator(func(v Validator) bool { return v.IsRegionIDValid(req) }) {
		return domain.NewInvalidRegionError(req.RegionID)
	}
	if !c.anyValidator(func(v Validator) bool { return v.IsProductCodeValid(req) }) {
		return domain.NewInvalidProductError(req.ProductCode)
	}
	return domain.NewNoEndpointError(req.RegionID, req.ProductCode, c.availableRegions(req.Product()))
}

func (c *ChainedResolver) anyValidator(check func(Validator) bool) bool {
	for _, r := range c.resolvers {
		if v, ok := r.(Validator); ok && check(v) {
			return true
		}
	}
	return false
}

func (c *ChainedResolver) availableRegions(product domain.ProductCode) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range c.resolvers {
		lister, ok := r.(RegionLister)
		if !ok {
			continue
		}
		for _, region := range lister.ValidRegionIDs(product) {
			if _, dup := seen[region]; dup {
				continue
			}
			seen[region] = struct{}{}
			out = append(out, region)
		}
	}
	sort.Strings(out)
	return out
}
