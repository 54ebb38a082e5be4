package endpoint

import (
	"context"
	"errors"
	"time"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
	"github.com/MrSnakeDoc/endpointd/internal/location"
	"github.com/MrSnakeDoc/endpointd/internal/logger"
	"github.com/MrSnakeDoc/endpointd/internal/metrics"
	"github.com/MrSnakeDoc/endpointd/internal/sources/localconfig"
)

type options struct {
	table      *localconfig.Table
	predefined *UserResolver
	persister  Persister
	log        logger.Logger
}

// Option configures a DefaultResolver.
type Option func(*options)

// WithLocalConfig replaces the bundled endpoint table.
func WithLocalConfig(t *localconfig.Table) Option {
	return func(o *options) { o.table = t }
}

// WithPredefined puts a shared override set in front of the chain.
func WithPredefined(u *UserResolver) Option {
	return func(o *options) { o.predefined = u }
}

// WithPersister stores positive location service answers.
func WithPersister(p Persister) Option {
	return func(o *options) { o.persister = p }
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// DefaultResolver is the standard chain:
// predefined overrides, user overrides, regional table, global table,
// location service.
type DefaultResolver struct {
	chain      *ChainedResolver
	predefined *UserResolver
	user       *UserResolver
	regional   *RegionalResolver
	global     *GlobalResolver
	location   *LocationResolver
	log        logger.Logger
}

// NewDefaultResolver builds the standard chain. A nil client leaves the
// location service out, so only overrides and local tables answer.
func NewDefaultResolver(client location.Client, opts ...Option) *DefaultResolver {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}

	d := &DefaultResolver{
		predefined: o.predefined,
		user:       NewUserResolver(),
		regional:   NewRegionalResolver(o.table),
		global:     NewGlobalResolver(o.table),
		log:        o.log.Named("resolver"),
	}
	if client != nil {
		d.location = NewLocationResolver(client, o.persister, o.log)
	}

	chain := make([]Resolver, 0, 5)
	if d.predefined != nil {
		chain = append(chain, d.predefined)
	}
	chain = append(chain, d.user, d.regional, d.global)
	if d.location != nil {
		chain = append(chain, d.location)
	}
	d.chain = NewChainedResolver(chain...)
	return d
}

func (d *DefaultResolver) Resolve(ctx context.Context, req *domain.ResolveRequest) (string, error) {
	host, _, err := d.ResolveWithSource(ctx, req)
	return host, err
}

// ResolveWithSource is Resolve that also names the strategy that answered.
func (d *DefaultResolver) ResolveWithSource(ctx context.Context, req *domain.ResolveRequest) (string, string, error) {
	started := time.Now()
	host, source, err := d.chain.ResolveWithSource(ctx, req)
	if err != nil {
		metrics.ObserveResolve("none", outcomeOf(err), started)
		d.log.Debug("endpoint not resolved",
			logger.String("region", req.RegionID),
			logger.String("product", req.ProductCode),
			logger.Error(err),
		)
		return "", "", err
	}

	metrics.ObserveResolve(source, "hit", started)
	d.log.Debug("endpoint resolved",
		logger.String("region", req.RegionID),
		logger.String("product", req.ProductCode),
		logger.String("source", source),
		logger.String("endpoint", host),
	)
	return host, source, nil
}

func outcomeOf(err error) string {
	var re *domain.ResolveError
	switch {
	case errors.As(err, &re):
		return re.Kind.String()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "server_error"
	}
}

// AddEndpoint registers a user override.
func (d *DefaultResolver) AddEndpoint(regionID, productCode, hostname string) {
	d.user.PutEndpointEntry(regionID, productCode, hostname)
	metrics.SetOverrides(d.user.Count())
}

// RemoveEndpoint drops a single user override.
func (d *DefaultResolver) RemoveEndpoint(regionID, productCode string) {
	d.user.RemoveEndpointEntry(regionID, productCode)
	metrics.SetOverrides(d.user.Count())
}

// Reset drops every user override. Predefined overrides are left alone.
func (d *DefaultResolver) Reset() {
	d.user.Reset()
	metrics.SetOverrides(0)
}

// Entries returns the user overrides.
func (d *DefaultResolver) Entries() []domain.EndpointEntry {
	return d.user.Entries()
}

// Entry returns the user override for the pair, if any.
func (d *DefaultResolver) Entry(regionID, productCode string) (domain.EndpointEntry, bool) {
	return d.user.Entry(regionID, productCode)
}

// OverridesUpdatedAt returns when the user overrides last changed.
func (d *DefaultResolver) OverridesUpdatedAt() time.Time {
	return d.user.LastUpdate()
}

// ReloadLocalConfig swaps the table used by the regional and global resolvers.
func (d *DefaultResolver) ReloadLocalConfig(t *localconfig.Table) {
	if t == nil {
		return
	}
	d.regional.SetTable(t)
	d.global.SetTable(t)
}

// LocalConfig returns the table currently served.
func (d *DefaultResolver) LocalConfig() *localconfig.Table {
	return d.regional.Table()
}

// Location returns the location resolver, nil when the chain has none.
func (d *DefaultResolver) Location() *LocationResolver {
	return d.location
}
