package domain

import (
	"fmt"
	"strings"
)

const (
	// ErrCodeEndpointResolving is carried by every "nothing matched" failure.
	ErrCodeEndpointResolving = "SDK.EndpointResolvingError"
	// ErrCodeHTTPError is carried by transport failures talking to the location service.
	ErrCodeHTTPError = "SDK.HttpError"
	// ErrCodeClientError is carried by local failures building a location request.
	ErrCodeClientError = "SDK.ClientError"
	// ErrCodeInvalidResponse is carried by location answers that could not be decoded.
	ErrCodeInvalidResponse = "SDK.InvalidServerResponse"

	// EndpointDocURL is the help page quoted by the no-endpoint message.
	EndpointDocURL = "https://www.alibabacloud.com/help/doc-detail/92074.htm"
)

// ErrorKind classifies a resolution failure.
type ErrorKind int

const (
	KindInvalidRegion ErrorKind = iota + 1
	KindInvalidProduct
	KindNoEndpoint
	KindTransport
	KindClient
	KindInvalidResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRegion:
		return "invalid_region"
	case KindInvalidProduct:
		return "invalid_product"
	case KindNoEndpoint:
		return "no_endpoint"
	case KindTransport:
		return "transport"
	case KindClient:
		return "client"
	case KindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// ResolveError is the single user-facing failure of the resolver.
// Error() returns Message unchanged.
type ResolveError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *ResolveError) Error() string { return e.Message }

func (e *ResolveError) Unwrap() error { return e.Err }

// Is matches any *ResolveError of the same Kind, so the Err* sentinels below
// work with errors.Is.
func (e *ResolveError) Is(target error) bool {
	t, ok := target.(*ResolveError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

var (
	ErrInvalidRegion  = &ResolveError{Kind: KindInvalidRegion}
	ErrInvalidProduct = &ResolveError{Kind: KindInvalidProduct}
	ErrNoEndpoint     = &ResolveError{Kind: KindNoEndpoint}
	ErrTransport      = &ResolveError{Kind: KindTransport}
	ErrClient         = &ResolveError{Kind: KindClient}
	ErrBadResponse    = &ResolveError{Kind: KindInvalidResponse}
)

// NewInvalidRegionError reports a region no source knows about.
func NewInvalidRegionError(regionID string) *ResolveError {
	return &ResolveError{
		Kind:    KindInvalidRegion,
		Code:    ErrCodeEndpointResolving,
		Message: fmt.Sprintf("No such region '%s'. Please check your region ID.", regionID),
	}
}

// NewInvalidProductError reports a product no source knows about.
func NewInvalidProductError(productCode string) *ResolveError {
	return &ResolveError{
		Kind: KindInvalidProduct,
		Code: ErrCodeEndpointResolving,
		Message: fmt.Sprintf("No endpoint for product '%s'.\n"+
			"Please check the product code, or set an endpoint for your request explicitly.\n", productCode),
	}
}

// NewNoEndpointError reports a valid region and product with no endpoint
// between them. availableRegions, when non-empty, must already be sorted.
func NewNoEndpointError(regionID, productCode string, availableRegions []string) *ResolveError {
	var b strings.Builder
	fmt.Fprintf(&b, "No endpoint in the region '%s' for product '%s'.\n", regionID, productCode)
	b.WriteString("You can set an endpoint for your request explicitly.\n")
	if len(availableRegions) > 0 {
		b.WriteString("Or you can use the other available regions: ")
		b.WriteString(strings.Join(availableRegions, " "))
		b.WriteString("\n")
	}
	b.WriteString("See " + EndpointDocURL + "\n")

	return &ResolveError{
		Kind:    KindNoEndpoint,
		Code:    ErrCodeEndpointResolving,
		Message: b.String(),
	}
}

// NewTransportError wraps a failure to reach the location service. The
// message is the transport's own diagnostic.
func NewTransportError(err error) *ResolveError {
	return &ResolveError{
		Kind:    KindTransport,
		Code:    ErrCodeHTTPError,
		Message: err.Error(),
		Err:     err,
	}
}

// NewClientError wraps a local failure preparing a location request, such
// as signing.
func NewClientError(err error) *ResolveError {
	return &ResolveError{
		Kind:    KindClient,
		Code:    ErrCodeClientError,
		Message: err.Error(),
		Err:     err,
	}
}

// NewInvalidResponseError wraps a location answer that could not be decoded.
func NewInvalidResponseError(err error) *ResolveError {
	return &ResolveError{
		Kind:    KindInvalidResponse,
		Code:    ErrCodeInvalidResponse,
		Message: err.Error(),
		Err:     err,
	}
}
