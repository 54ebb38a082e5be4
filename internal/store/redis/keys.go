package redis

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
)

const (
	// KeyPrefixEntry is the prefix for user override keys
	KeyPrefixEntry = "endpointd:entry:"
	// KeyAllEntries is the set of all override IDs
	KeyAllEntries = "endpointd:entries:all"
	// KeyPrefixLocation is the prefix for persisted location service answers
	KeyPrefixLocation = "endpointd:location:"
	// KeyResolveStats is the hash of resolution counts per source
	KeyResolveStats = "endpointd:stats:resolve"
)

// EntryID is the normalized "region/product" identifier of an override.
func EntryID(regionID, productCode string) string {
	return string(domain.NewRegionID(regionID)) + "/" + string(domain.NewProductCode(productCode))
}

// EntryKey returns the Redis key for an override
func EntryKey(id string) string {
	return KeyPrefixEntry + id
}

// AllEntriesKey returns the key for the set of all override IDs
func AllEntriesKey() string {
	return KeyAllEntries
}

// LocationKey returns the Redis key for a location answer
func LocationKey(regionID, serviceCode, endpointType string) string {
	return KeyPrefixLocation +
		string(domain.NewRegionID(regionID)) + ":" +
		string(domain.NewProductCode(serviceCode)) + ":" +
		strings.ToLower(endpointType)
}

// ExtractEntryID extracts the override ID from a Redis key
func ExtractEntryID(key string) (string, error) {
	if len(key) <= len(KeyPrefixEntry) || !strings.HasPrefix(key, KeyPrefixEntry) {
		return "", fmt.Errorf("invalid entry key: %s", key)
	}
	return key[len(KeyPrefixEntry):], nil
}
