package domain

// EndpointEntry is a user-managed override: requests for exactly this
// (region, product) pair resolve to Hostname, whatever the other sources say.
type EndpointEntry struct {
	RegionID    string `json:"region_id"`
	ProductCode string `json:"product_code"`
	Hostname    string `json:"endpoint"`
}

// LocationEntry is a positive answer from the location service.
//
// It is the unit persisted to Redis so that a restarted process does not have
// to ask the location service again.
type LocationEntry struct {
	RegionID     string `json:"region_id"`
	ServiceCode  string `json:"service_code"`
	EndpointType string `json:"endpoint_type"`
	Hostname     string `json:"endpoint"`
}
