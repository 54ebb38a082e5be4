package domain

import "strings"

const (
	// EndpointTypeOpenAPI selects the public endpoint of a product.
	EndpointTypeOpenAPI = "openAPI"
	// EndpointTypeInnerAPI selects the intranet endpoint of a product.
	EndpointTypeInnerAPI = "innerAPI"
)

// ProductCode is the normalized (trimmed, lower-cased) form of a product code.
// Product codes are compared case-insensitively everywhere: "Ecs", "ECS" and
// "ecs" are the same product.
type ProductCode string

// NewProductCode normalizes a raw product code.
func NewProductCode(raw string) ProductCode {
	return ProductCode(strings.ToLower(strings.TrimSpace(raw)))
}

func (p ProductCode) String() string { return string(p) }

// RegionID is the normalized (trimmed, lower-cased) form of a region id.
type RegionID string

// NewRegionID normalizes a raw region id.
func NewRegionID(raw string) RegionID {
	return RegionID(strings.ToLower(strings.TrimSpace(raw)))
}

func (r RegionID) String() string { return string(r) }

// ResolveRequest describes a single resolution query.
//
// The raw RegionID and ProductCode are kept as given so that error messages
// echo the caller's input; lookups always go through Region() and Product().
type ResolveRequest struct {
	RegionID          string
	ProductCode       string
	LookupServiceCode string // product id in the location service, may be empty
	EndpointType      string // openAPI / innerAPI, may be empty

	region  RegionID
	product ProductCode
}

// NewResolveRequest builds a request. lookupServiceCode and endpointType may be empty.
func NewResolveRequest(regionID, productCode, lookupServiceCode, endpointType string) *ResolveRequest {
	return &ResolveRequest{
		RegionID:          regionID,
		ProductCode:       productCode,
		LookupServiceCode: strings.TrimSpace(lookupServiceCode),
		EndpointType:      strings.TrimSpace(endpointType),
		region:            NewRegionID(regionID),
		product:           NewProductCode(productCode),
	}
}

// Region returns the normalized region id.
func (r *ResolveRequest) Region() RegionID {
	if r.region == "" {
		return NewRegionID(r.RegionID)
	}
	return r.region
}

// Product returns the normalized product code.
func (r *ResolveRequest) Product() ProductCode {
	if r.product == "" {
		return NewProductCode(r.ProductCode)
	}
	return r.product
}

// ServiceCode returns the normalized location service code, empty when absent.
func (r *ResolveRequest) ServiceCode() ProductCode {
	return NewProductCode(r.LookupServiceCode)
}

// IsOpenAPI reports whether the request targets the public endpoint.
// An absent endpoint type means openAPI.
func (r *ResolveRequest) IsOpenAPI() bool {
	return r.EndpointType == "" || strings.EqualFold(r.EndpointType, EndpointTypeOpenAPI)
}

// EndpointTypeOrDefault returns the endpoint type, defaulting to openAPI.
func (r *ResolveRequest) EndpointTypeOrDefault() string {
	if r.EndpointType == "" {
		return EndpointTypeOpenAPI
	}
	return r.EndpointType
}
