// Package location talks to the remote endpoint directory ("location
// service") that knows the hostname of every product in every region.
package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultEndpoint is the public read-only location service host.
	DefaultEndpoint = "location-readonly.aliyuncs.com"
	// APIVersion is the DescribeEndpoints API version.
	APIVersion = "2015-06-12"

	// ErrCodeInvalidRegion is returned for a region the service does not know.
	ErrCodeInvalidRegion = "InvalidRegionId"
	// ErrCodeIllegalParameter is returned for a service code the service does not know.
	ErrCodeIllegalParameter = "Illegal Parameter"
)

// Local failures of a DescribeEndpoints call, wrapped with %w. Neither means
// the service was unreachable.
var (
	ErrSign   = errors.New("failed to sign location request")
	ErrDecode = errors.New("failed to parse location response")
)

// Client looks up endpoints in the location service.
type Client interface {
	DescribeEndpoints(ctx context.Context, req DescribeEndpointsRequest) (*DescribeEndpointsResponse, error)
}

// Signer adds credential and signature parameters to an outgoing query.
// Signing is delegated entirely to the implementation.
type Signer interface {
	Sign(ctx context.Context, query map[string]string) error
}

type DescribeEndpointsRequest struct {
	RegionID    string
	ServiceCode string
	Type        string
}

type DescribeEndpointsResponse struct {
	RequestID string    `json:"RequestId"`
	Success   bool      `json:"Success"`
	Endpoints Endpoints `json:"Endpoints"`
}

type Endpoints struct {
	Endpoint []Endpoint `json:"Endpoint"`
}

// Endpoint is one directory record. The live service spells the service code
// field "SerivceCode"; both spellings are accepted.
type Endpoint struct {
	ID          string `json:"Id"`
	Namespace   string `json:"Namespace"`
	Type        string `json:"Type"`
	Endpoint    string `json:"Endpoint"`
	ServiceCode string `json:"ServiceCode,omitempty"`
	SerivceCode string `json:"SerivceCode,omitempty"`
}

// Code returns the record's service code, whichever spelling carried it.
func (e Endpoint) Code() string {
	if e.ServiceCode != "" {
		return e.ServiceCode
	}
	return e.SerivceCode
}

// Find returns the hostname of the first record matching serviceCode and
// endpointType, compared case-insensitively.
func (r *DescribeEndpointsResponse) Find(serviceCode, endpointType string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, ep := range r.Endpoints.Endpoint {
		if strings.EqualFold(ep.Code(), serviceCode) && strings.EqualFold(ep.Type, endpointType) && ep.Endpoint != "" {
			return ep.Endpoint, true
		}
	}
	return "", false
}

// ServerError is a rejection reported by the location service itself.
type ServerError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"Code"`
	Message    string `json:"Message"`
	RequestID  string `json:"RequestId"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("location service error %s (status %d): %s", e.Code, e.StatusCode, e.Message)
}

// IsInvalidRegion reports whether the service rejected the region id.
func (e *ServerError) IsInvalidRegion() bool {
	return e.Code == ErrCodeInvalidRegion
}

// IsIllegalParameter reports whether the service rejected the service code.
func (e *ServerError) IsIllegalParameter() bool {
	return e.Code == ErrCodeIllegalParameter
}
