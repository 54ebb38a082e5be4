package endpoint

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
)

func TestLocationServiceMiss(t *testing.T) {
	stub := newStubLocation()
	stub.invalidRegions["mars"] = true
	stub.knownCodes["ram"] = true
	stub.knownCodes["ecs"] = true
	stub.add("cn-hangzhou", "ram", "innerAPI", "ram-share.aliyuncs.com")

	r := NewDefaultResolver(stub, WithLocalConfig(mustParse("{}")))
	ctx := context.Background()
	assert.Equal(t, 0, stub.Calls())

	// no openAPI data
	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, newReq("cn-hangzhou", "Ram", "ram", "openAPI"))
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "No endpoint in the region 'cn-hangzhou' for product 'Ram'."), err.Error())
	}
	assert.Equal(t, 1, stub.Calls())

	// bad region id
	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, newReq("mars", "Ram", "ram", "openAPI"))
		require.Error(t, err)
		assert.Equal(t, "No such region 'mars'. Please check your region ID.", err.Error())
	}
	assert.Equal(t, 2, stub.Calls())

	// bad region id with another product
	_, err := r.Resolve(ctx, newReq("mars", "Ecs", "ecs", "openAPI"))
	require.Error(t, err)
	assert.Equal(t, "No such region 'mars'. Please check your region ID.", err.Error())
	assert.Equal(t, 2, stub.Calls())

	// bad product code
	productMsg := "No endpoint for product 'InvalidProductCode'.\n" +
		"Please check the product code, or set an endpoint for your request explicitly.\n"
	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, newReq("cn-hangzhou", "InvalidProductCode", "InvalidProductCode", "openAPI"))
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), productMsg), err.Error())
	}

	// bad product code with another region id
	_, err = r.Resolve(ctx, newReq("cn-beijing", "InvalidProductCode", "InvalidProductCode", "openAPI"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), productMsg), err.Error())
	assert.Equal(t, 3, stub.Calls())

	stats := r.Location().Stats()
	assert.Equal(t, int64(3), stats.Calls)
	assert.Equal(t, 1, stats.InvalidRegions)
	assert.Equal(t, 1, stats.InvalidServiceCodes)
	assert.Equal(t, 3, stats.Negative)
}

func TestLocationWithoutServiceCodeNeverCalls(t *testing.T) {
	stub := newStubLocation()
	l := NewLocationResolver(stub, nil, nil)

	host, err := l.Resolve(context.Background(), newReq("cn-hangzhou", "Ecs", "", ""))
	require.NoError(t, err)
	assert.Empty(t, host)
	assert.Equal(t, 0, stub.Calls())

	r := newReq("cn-hangzhou", "Ecs", "", "")
	assert.False(t, l.IsRegionIDValid(r))
	assert.False(t, l.IsProductCodeValid(r))
}

func TestLocationCachesPerEndpointType(t *testing.T) {
	stub := newStubLocation().
		add("cn-hangzhou", "ecs", "openAPI", "ecs-cn-hangzhou.aliyuncs.com").
		add("cn-hangzhou", "ecs", "innerAPI", "ecs-vpc.cn-hangzhou.aliyuncs.com")
	l := NewLocationResolver(stub, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		host, err := l.Resolve(ctx, newReq("cn-hangzhou", "Ecs", "ecs", ""))
		require.NoError(t, err)
		assert.Equal(t, "ecs-cn-hangzhou.aliyuncs.com", host)

		// absent endpoint type shares the openAPI cache entry
		host, err = l.Resolve(ctx, newReq("cn-hangzhou", "Ecs", "ECS", "OpenAPI"))
		require.NoError(t, err)
		assert.Equal(t, "ecs-cn-hangzhou.aliyuncs.com", host)

		host, err = l.Resolve(ctx, newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
		require.NoError(t, err)
		assert.Equal(t, "ecs-vpc.cn-hangzhou.aliyuncs.com", host)
	}
	assert.Equal(t, 2, stub.Calls())
	assert.Equal(t, int64(2), l.Calls())
	assert.Equal(t, 1, l.Stats().KnownRegions)
}

func TestLocationServiceCodeDiffersFromProduct(t *testing.T) {
	stub := newStubLocation().add("cn-hangzhou", "apigateway", "openAPI", "apigateway.cn-hangzhou.aliyuncs.com")
	r := NewDefaultResolver(stub, WithLocalConfig(mustParse("{}")))

	for i := 0; i < 3; i++ {
		host, err := r.Resolve(context.Background(), newReq("cn-hangzhou", "CloudAPI", "apigateway", "openAPI"))
		require.NoError(t, err)
		assert.Equal(t, "apigateway.cn-hangzhou.aliyuncs.com", host)
	}
	assert.Equal(t, 1, stub.Calls())
}

func TestPrimeSkipsIncompleteEntries(t *testing.T) {
	l := NewLocationResolver(newStubLocation(), nil, nil)
	n := l.Prime([]domain.LocationEntry{
		{RegionID: "cn-hangzhou", ServiceCode: "ecs", EndpointType: "openAPI", Hostname: "ecs-cn-hangzhou.aliyuncs.com"},
		{RegionID: "cn-hangzhou", ServiceCode: "ram", EndpointType: "openAPI", Hostname: ""},
		{RegionID: "", ServiceCode: "ram", Hostname: "ram.aliyuncs.com"},
		{RegionID: "cn-hangzhou", ServiceCode: "", Hostname: "x.aliyuncs.com"},
	})
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, l.Stats().Cached)
}
