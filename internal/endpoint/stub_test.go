package endpoint

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
	"github.com/MrSnakeDoc/endpointd/internal/location"
	"github.com/MrSnakeDoc/endpointd/internal/sources/localconfig"
)

// stubLocation is a location.Client answering from a fixed directory.
type stubLocation struct {
	mu    sync.Mutex
	calls int
	delay time.Duration

	// endpoints maps "region|servicecode" to the directory records.
	endpoints      map[string][]location.Endpoint
	invalidRegions map[string]bool
	knownCodes     map[string]bool
	err            error
}

func newStubLocation() *stubLocation {
	return &stubLocation{
		endpoints:      make(map[string][]location.Endpoint),
		invalidRegions: make(map[string]bool),
		knownCodes:     make(map[string]bool),
	}
}

func (s *stubLocation) add(region, code, endpointType, host string) *stubLocation {
	s.knownCodes[code] = true
	s.endpoints[region+"|"+code] = append(s.endpoints[region+"|"+code], location.Endpoint{
		ID:          region,
		Type:        endpointType,
		SerivceCode: code,
		Endpoint:    host,
	})
	return s
}

func (s *stubLocation) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubLocation) DescribeEndpoints(ctx context.Context, req location.DescribeEndpointsRequest) (*location.DescribeEndpointsResponse, error) {
	s.mu.Lock()
	s.calls++
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.err != nil {
		return nil, s.err
	}
	if s.invalidRegions[req.RegionID] {
		return nil, &location.ServerError{StatusCode: 404, Code: location.ErrCodeInvalidRegion, Message: "The specified region does not exist."}
	}
	if !s.knownCodes[req.ServiceCode] {
		return nil, &location.ServerError{StatusCode: 400, Code: location.ErrCodeIllegalParameter, Message: "Please check the parameters"}
	}

	resp := &location.DescribeEndpointsResponse{RequestID: "stub", Success: true}
	resp.Endpoints.Endpoint = s.endpoints[req.RegionID+"|"+req.ServiceCode]
	return resp, nil
}

type recordingPersister struct {
	mu      sync.Mutex
	entries []domain.LocationEntry
}

func (p *recordingPersister) SaveLocationEntry(_ context.Context, e domain.LocationEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, e)
	return nil
}

func mustParse(doc string) *localconfig.Table {
	t, err := localconfig.Parse([]byte(doc))
	if err != nil {
		panic(err)
	}
	return t
}

func newReq(region, product, serviceCode, endpointType string) *domain.ResolveRequest {
	return domain.NewResolveRequest(region, product, serviceCode, endpointType)
}
