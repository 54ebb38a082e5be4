package endpoint

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
	"github.com/MrSnakeDoc/endpointd/internal/location"
	"github.com/MrSnakeDoc/endpointd/internal/logger"
	"github.com/MrSnakeDoc/endpointd/internal/metrics"
)

type locationKey struct {
	region       domain.RegionID
	service      domain.ProductCode
	endpointType string
}

func (k locationKey) String() string {
	return string(k.region) + "|" + string(k.service) + "|" + k.endpointType
}

// LocationResolver asks the remote location service and remembers every
// answer, positive or negative, for its whole lifetime.
type LocationResolver struct {
	client    location.Client
	persister Persister
	log       logger.Logger

	mu             sync.RWMutex
	cache          map[locationKey]string // "" is a cached miss
	invalidRegions map[domain.RegionID]struct{}
	invalidCodes   map[domain.ProductCode]struct{}
	validRegions   map[domain.RegionID]struct{}
	validCodes     map[domain.ProductCode]struct{}

	sf            singleflight.Group
	lookupTimeout time.Duration
	calls         atomic.Int64
}

// DefaultLookupTimeout bounds a single location service lookup.
const DefaultLookupTimeout = 30 * time.Second

// NewLocationResolver wraps a location client. persister and log may be nil.
func NewLocationResolver(client location.Client, persister Persister, log logger.Logger) *LocationResolver {
	if log == nil {
		log = logger.Nop()
	}
	return &LocationResolver{
		client:         client,
		persister:      persister,
		log:            log.Named("location-resolver"),
		cache:          make(map[locationKey]string),
		invalidRegions: make(map[domain.RegionID]struct{}),
		invalidCodes:   make(map[domain.ProductCode]struct{}),
		validRegions:   make(map[domain.RegionID]struct{}),
		validCodes:     make(map[domain.ProductCode]struct{}),
		lookupTimeout:  DefaultLookupTimeout,
	}
}

func (l *LocationResolver) Source() string { return "location" }

// Calls returns how many times the remote service was called.
func (l *LocationResolver) Calls() int64 {
	return l.calls.Load()
}

func newLocationKey(req *domain.ResolveRequest) locationKey {
	return locationKey{
		region:       req.Region(),
		service:      req.ServiceCode(),
		endpointType: strings.ToLower(req.EndpointTypeOrDefault()),
	}
}

func (l *LocationResolver) Resolve(ctx context.Context, req *domain.ResolveRequest) (string, error) {
	key := newLocationKey(req)
	if key.service == "" {
		return "", nil
	}

	if host, ok := l.cached(key); ok {
		metrics.RecordLocationCache("hit")
		return host, nil
	}
	metrics.RecordLocationCache("miss")

	// The flight outlives any single caller: it runs detached from the
	// caller's cancellation and is bounded by lookupTimeout instead.
	ch := l.sf.DoChan(key.String(), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.lookupTimeout)
		defer cancel()
		return l.lookup(flightCtx, req, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			metrics.RecordLocationCache("shared")
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SetLookupTimeout bounds each remote lookup. Non-positive values are
// ignored. Call it before the resolver serves.
func (l *LocationResolver) SetLookupTimeout(d time.Duration) {
	if d > 0 {
		l.lookupTimeout = d
	}
}

// cached reports a known answer for key, including the misses implied by
// the invalid region and service code sets.
func (l *LocationResolver) cached(key locationKey) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, bad := l.invalidRegions[key.region]; bad {
		return "", true
	}
	if _, bad := l.invalidCodes[key.service]; bad {
		return "", true
	}
	host, ok := l.cache[key]
	return host, ok
}

func (l *LocationResolver) lookup(ctx context.Context, req *domain.ResolveRequest, key locationKey) (string, error) {
	// another flight may have finished between the cache check and Do
	if host, ok := l.cached(key); ok {
		return host, nil
	}

	l.calls.Add(1)
	l.log.Debug("calling location service",
		logger.String("region", string(key.region)),
		logger.String("service_code", string(key.service)),
		logger.String("endpoint_type", req.EndpointTypeOrDefault()),
	)

	resp, err := l.client.DescribeEndpoints(ctx, location.DescribeEndpointsRequest{
		RegionID:    string(key.region),
		ServiceCode: string(key.service),
		Type:        req.EndpointTypeOrDefault(),
	})
	if err != nil {
		return l.handleError(key, err)
	}

	host, _ := resp.Find(string(key.service), req.EndpointTypeOrDefault())
	outcome := "ok"
	if host == "" {
		outcome = "miss"
	}
	metrics.RecordLocationCall(outcome)

	l.mu.Lock()
	l.cache[key] = host
	l.validRegions[key.region] = struct{}{}
	l.validCodes[key.service] = struct{}{}
	l.mu.Unlock()

	if host != "" && l.persister != nil {
		entry := domain.LocationEntry{
			RegionID:     string(key.region),
			ServiceCode:  string(key.service),
			EndpointType: req.EndpointTypeOrDefault(),
			Hostname:     host,
		}
		if perr := l.persister.SaveLocationEntry(ctx, entry); perr != nil {
			l.log.Warn("failed to persist location entry",
				logger.String("region", entry.RegionID),
				logger.String("service_code", entry.ServiceCode),
				logger.Error(perr),
			)
		}
	}
	return host, nil
}

func (l *LocationResolver) handleError(key locationKey, err error) (string, error) {
	switch {
	case errors.Is(err, location.ErrSign):
		metrics.RecordLocationCall("client_error")
		l.log.Warn("location request not sent", logger.Error(err))
		return "", domain.NewClientError(err)
	case errors.Is(err, location.ErrDecode):
		metrics.RecordLocationCall("invalid_response")
		l.log.Warn("location service answered garbage", logger.Error(err))
		return "", domain.NewInvalidResponseError(err)
	}

	var srvErr *location.ServerError
	if !errors.As(err, &srvErr) {
		metrics.RecordLocationCall("transport_error")
		l.log.Warn("location service unreachable", logger.Error(err))
		return "", domain.NewTransportError(err)
	}

	switch {
	case srvErr.IsInvalidRegion():
		metrics.RecordLocationCall("invalid_region")
		l.mu.Lock()
		l.invalidRegions[key.region] = struct{}{}
		l.cache[key] = ""
		l.mu.Unlock()
		return "", nil
	case srvErr.IsIllegalParameter():
		metrics.RecordLocationCall("illegal_parameter")
		l.mu.Lock()
		l.invalidCodes[key.service] = struct{}{}
		l.cache[key] = ""
		l.mu.Unlock()
		return "", nil
	default:
		metrics.RecordLocationCall("server_error")
		return "", srvErr
	}
}

// Prime loads previously resolved endpoints without calling the service.
func (l *LocationResolver) Prime(entries []domain.LocationEntry) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, e := range entries {
		if e.Hostname == "" {
			continue
		}
		req := domain.NewResolveRequest(e.RegionID, e.ServiceCode, e.ServiceCode, e.EndpointType)
		key := newLocationKey(req)
		if key.service == "" || key.region == "" {
			continue
		}
		l.cache[key] = e.Hostname
		l.validRegions[key.region] = struct{}{}
		l.validCodes[key.service] = struct{}{}
		n++
	}
	return n
}

// Purge forgets every remembered answer, negative ones included, and
// returns how many cache entries were dropped.
func (l *LocationResolver) Purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.cache)
	l.cache = make(map[locationKey]string)
	l.invalidRegions = make(map[domain.RegionID]struct{})
	l.invalidCodes = make(map[domain.ProductCode]struct{})
	l.validRegions = make(map[domain.RegionID]struct{})
	l.validCodes = make(map[domain.ProductCode]struct{})
	return n
}

func (l *LocationResolver) IsRegionIDValid(req *domain.ResolveRequest) bool {
	if req.ServiceCode() == "" {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, bad := l.invalidRegions[req.Region()]
	return !bad
}

func (l *LocationResolver) IsProductCodeValid(req *domain.ResolveRequest) bool {
	service := req.ServiceCode()
	if service == "" {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, bad := l.invalidCodes[service]
	return !bad
}

// LocationStats summarizes the resolver's cache.
type LocationStats struct {
	Calls               int64 `json:"calls"`
	Cached              int   `json:"cached"`
	Negative            int   `json:"negative"`
	KnownRegions        int   `json:"known_regions"`
	KnownServiceCodes   int   `json:"known_service_codes"`
	InvalidRegions      int   `json:"invalid_regions"`
	InvalidServiceCodes int   `json:"invalid_service_codes"`
}

func (l *LocationResolver) Stats() LocationStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	negative := 0
	for _, host := range l.cache {
		if host == "" {
			negative++
		}
	}
	return LocationStats{
		Calls:               l.calls.Load(),
		Cached:              len(l.cache),
		Negative:            negative,
		KnownRegions:        len(l.validRegions),
		KnownServiceCodes:   len(l.validCodes),
		InvalidRegions:      len(l.invalidRegions),
		InvalidServiceCodes: len(l.invalidCodes),
	}
}
