package endpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
	"github.com/MrSnakeDoc/endpointd/internal/location"
	"github.com/MrSnakeDoc/endpointd/internal/sources/localconfig"
)

const marsConfig = `{
	"regional_endpoints" : {
		"abc" : {
			"mars-ningbo" : "ecs.mars-ningbo.aliyuncs.com"
		}
	},
	"global_endpoints" : {
		"abc" : "ecs.mars.aliyuncs.com"
	},
	"regions" : ["mars-ningbo", "mars-hangzhou", "mars-shanghai"]
}`

func TestRegionalEndpointComesFromLocalConfig(t *testing.T) {
	table := mustParse(`{"regional_endpoints": {"abc": {"mars-ningbo": "ecs.mars-ningbo.aliyuncs.com"}}}`)
	r := NewDefaultResolver(newStubLocation(), WithLocalConfig(table))

	host, err := r.Resolve(context.Background(), newReq("mars-ningbo", "abc", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "ecs.mars-ningbo.aliyuncs.com", host)
}

func TestRegionalWinsOverGlobal(t *testing.T) {
	r := NewDefaultResolver(newStubLocation(), WithLocalConfig(mustParse(marsConfig)))
	ctx := context.Background()

	tests := []struct {
		region   string
		expected string
	}{
		{region: "mars-ningbo", expected: "ecs.mars-ningbo.aliyuncs.com"},
		{region: "mars-hangzhou", expected: "ecs.mars.aliyuncs.com"},
		{region: "mars-shanghai", expected: "ecs.mars.aliyuncs.com"},
	}
	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			host, err := r.Resolve(ctx, newReq(tt.region, "abc", "", ""))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, host)
		})
	}
}

func TestGlobalRequiresListedRegion(t *testing.T) {
	table := mustParse(`{"global_endpoints": {"abc": "ecs.mars.aliyuncs.com"}, "regions": ["mars-hangzhou"]}`)
	r := NewDefaultResolver(nil, WithLocalConfig(table))

	_, err := r.Resolve(context.Background(), newReq("mars-beijing", "abc", "", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRegion)
	assert.Equal(t, "No such region 'mars-beijing'. Please check your region ID.", err.Error())
}

func TestUserOverrideTakesPrecedence(t *testing.T) {
	r := NewDefaultResolver(newStubLocation())
	ctx := context.Background()

	host, err := r.Resolve(ctx, newReq("cn-hangzhou", "Ecs", "ecs", ""))
	require.NoError(t, err)
	assert.Equal(t, "ecs-cn-hangzhou.aliyuncs.com", host)

	r.AddEndpoint("cn-hangzhou", "Ecs", "abc.cn-hangzhou.endpoint-test.exception.com")

	host, err = r.Resolve(ctx, newReq("cn-hangzhou", "ECS", "ecs", ""))
	require.NoError(t, err)
	assert.Equal(t, "abc.cn-hangzhou.endpoint-test.exception.com", host)
	assert.Len(t, r.Entries(), 1)
}

func TestOverrideBypassesRegionValidation(t *testing.T) {
	stub := newStubLocation()
	stub.invalidRegions["cn-ningbo"] = true
	stub.add("cn-hangzhou", "ecs", "openAPI", "ecs-cn-hangzhou.aliyuncs.com")
	r := NewDefaultResolver(stub)
	ctx := context.Background()

	_, err := r.Resolve(ctx, newReq("cn-ningbo", "Ecs", "ecs", ""))
	require.Error(t, err)
	assert.Equal(t, "No such region 'cn-ningbo'. Please check your region ID.", err.Error())

	r.AddEndpoint("cn-ningbo", "Ecs", "abc.cn-ningbo.endpoint-test.exception.com")

	host, err := r.Resolve(ctx, newReq("cn-ningbo", "Ecs", "ecs", ""))
	require.NoError(t, err)
	assert.Equal(t, "abc.cn-ningbo.endpoint-test.exception.com", host)
}

func TestResetRestoresDefaults(t *testing.T) {
	r := NewDefaultResolver(nil)
	ctx := context.Background()

	r.AddEndpoint("cn-ningbo", "Ecs", "abc.cn-ningbo.endpoint-test.exception.com")
	r.AddEndpoint("cn-hangzhou", "Ecs", "abc.cn-hangzhou.endpoint-test.exception.com")
	r.Reset()

	assert.Empty(t, r.Entries())

	host, err := r.Resolve(ctx, newReq("cn-hangzhou", "Ecs", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "ecs-cn-hangzhou.aliyuncs.com", host)

	_, err = r.Resolve(ctx, newReq("cn-ningbo", "Ecs", "", ""))
	assert.ErrorIs(t, err, domain.ErrInvalidRegion)
}

func TestRemoveEndpoint(t *testing.T) {
	r := NewDefaultResolver(nil)
	r.AddEndpoint("cn-hangzhou", "Ecs", "override.example.com")
	r.RemoveEndpoint("CN-HANGZHOU", "ecs")

	host, err := r.Resolve(context.Background(), newReq("cn-hangzhou", "Ecs", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "ecs-cn-hangzhou.aliyuncs.com", host)
}

func TestPredefinedIsSharedAndSurvivesReset(t *testing.T) {
	shared := NewPredefinedResolver()
	shared.PutEndpointEntry("cn-ningbo", "Ecs", "shared.cn-ningbo.example.com")

	a := NewDefaultResolver(nil, WithPredefined(shared))
	b := NewDefaultResolver(nil, WithPredefined(shared))
	ctx := context.Background()

	for _, r := range []*DefaultResolver{a, b} {
		host, err := r.Resolve(ctx, newReq("cn-ningbo", "Ecs", "", ""))
		require.NoError(t, err)
		assert.Equal(t, "shared.cn-ningbo.example.com", host)
	}

	// the predefined set wins over per-resolver overrides
	a.AddEndpoint("cn-ningbo", "Ecs", "local.cn-ningbo.example.com")
	host, err := a.Resolve(ctx, newReq("cn-ningbo", "Ecs", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "shared.cn-ningbo.example.com", host)

	a.Reset()
	assert.Equal(t, 1, shared.Count())

	shared.Reset()
	_, err = b.Resolve(ctx, newReq("cn-ningbo", "Ecs", "", ""))
	assert.ErrorIs(t, err, domain.ErrInvalidRegion)
}

func TestBundledConfigEndpoints(t *testing.T) {
	r := NewDefaultResolver(nil)
	ctx := context.Background()

	tests := []struct {
		region   string
		product  string
		expected string
	}{
		{region: "cn-hangzhou", product: "R-kvstore", expected: "r-kvstore.aliyuncs.com"},
		{region: "cn-hangzhou", product: "BssOpenApi", expected: "business.aliyuncs.com"},
		{region: "eu-west-1", product: "BssOpenApi", expected: "business.ap-southeast-1.aliyuncs.com"},
		{region: "cn-hangzhou", product: "faas", expected: "faas.cn-hangzhou.aliyuncs.com"},
		{region: "cn-shanghai", product: "Ram", expected: "ram.aliyuncs.com"},
		{region: "cn-hangzhou", product: "CloudAPI", expected: "apigateway.cn-hangzhou.aliyuncs.com"},
	}
	for _, tt := range tests {
		t.Run(tt.product+"/"+tt.region, func(t *testing.T) {
			host, err := r.Resolve(ctx, newReq(tt.region, tt.product, "", ""))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, host)
		})
	}
}

func TestDTSRegionsMessage(t *testing.T) {
	r := NewDefaultResolver(nil)

	_, err := r.Resolve(context.Background(), newReq("cn-chengdu", "dts", "", ""))
	require.Error(t, err)

	expected := "No endpoint in the region 'cn-chengdu' for product 'dts'.\n" +
		"You can set an endpoint for your request explicitly.\n" +
		"Or you can use the other available regions: ap-southeast-1 " +
		"cn-beijing cn-hangzhou cn-hongkong cn-huhehaote cn-qingdao " +
		"cn-shanghai cn-shenzhen cn-zhangjiakou\n" +
		"See https://www.alibabacloud.com/help/doc-detail/92074.htm\n"
	assert.Equal(t, expected, err.Error())

	var re *domain.ResolveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, domain.ErrCodeEndpointResolving, re.Code)
	assert.Equal(t, domain.KindNoEndpoint, re.Kind)
}

func TestInvalidProductCodeWithBundledConfig(t *testing.T) {
	r := NewDefaultResolver(nil)

	_, err := r.Resolve(context.Background(), newReq("cn-beijing", "InvalidProductCode", "", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
	assert.Equal(t, "No endpoint for product 'InvalidProductCode'.\n"+
		"Please check the product code, or set an endpoint for your request explicitly.\n", err.Error())
}

func TestInnerAPIBypassesLocalConfig(t *testing.T) {
	table := mustParse(`{
		"regional_endpoints": {"ram": {"cn-hangzhou": "ram.mars-ningbo.aliyuncs.com"}},
		"global_endpoints": {"ram": "ram.mars.aliyuncs.com"},
		"regions": ["cn-hangzhou"]
	}`)
	stub := newStubLocation().add("cn-hangzhou", "ram", "innerAPI", "ram-share.aliyuncs.com")
	r := NewDefaultResolver(stub, WithLocalConfig(table))

	host, err := r.Resolve(context.Background(), newReq("cn-hangzhou", "Ram", "ram", "innerAPI"))
	require.NoError(t, err)
	assert.Equal(t, "ram-share.aliyuncs.com", host)
	assert.Equal(t, 1, stub.Calls())

	// openAPI still reads the table
	host, err = r.Resolve(context.Background(), newReq("cn-hangzhou", "Ram", "ram", "openAPI"))
	require.NoError(t, err)
	assert.Equal(t, "ram.mars-ningbo.aliyuncs.com", host)
}

func TestInnerAPIOverride(t *testing.T) {
	r := NewDefaultResolver(newStubLocation(), WithLocalConfig(mustParse("{}")))
	r.AddEndpoint("cn-hangzhou", "Ram", "ram.cn-hangzhou.endpoint-test.exception.com")

	host, err := r.Resolve(context.Background(), newReq("cn-hangzhou", "Ram", "ram", "innerAPI"))
	require.NoError(t, err)
	assert.Equal(t, "ram.cn-hangzhou.endpoint-test.exception.com", host)
}

func TestReloadLocalConfig(t *testing.T) {
	r := NewDefaultResolver(nil, WithLocalConfig(mustParse("{}")))
	ctx := context.Background()

	_, err := r.Resolve(ctx, newReq("mars-ningbo", "abc", "", ""))
	require.Error(t, err)

	next := mustParse(marsConfig)
	r.ReloadLocalConfig(next)
	r.ReloadLocalConfig(nil)
	assert.Same(t, next, r.LocalConfig())

	host, err := r.Resolve(ctx, newReq("mars-ningbo", "abc", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "ecs.mars-ningbo.aliyuncs.com", host)
}

func TestTransportErrorIsSurfaced(t *testing.T) {
	stub := newStubLocation()
	stub.err = errors.New(`Get "https://location-on-mars.aliyuncs.com/": dial tcp: lookup location-on-mars.aliyuncs.com: no such host`)
	r := NewDefaultResolver(stub, WithLocalConfig(mustParse("{}")))
	ctx := context.Background()

	_, err := r.Resolve(ctx, newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, stub.err.Error(), err.Error())

	var re *domain.ResolveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, domain.ErrCodeHTTPError, re.Code)

	// transport failures are not cached
	_, _ = r.Resolve(ctx, newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
	assert.Equal(t, 2, stub.Calls())
}

func TestServerErrorIsPassedThrough(t *testing.T) {
	stub := newStubLocation()
	stub.err = &location.ServerError{StatusCode: 404, Code: "InvalidAccessKeyId.NotFound", Message: "Specified access key is not found."}
	r := NewDefaultResolver(stub)
	ctx := context.Background()

	_, err := r.Resolve(ctx, newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
	require.Error(t, err)

	var srvErr *location.ServerError
	require.True(t, errors.As(err, &srvErr))
	assert.Equal(t, "InvalidAccessKeyId.NotFound", srvErr.Code)
	assert.Equal(t, "Specified access key is not found.", srvErr.Message)

	_, _ = r.Resolve(ctx, newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
	assert.Equal(t, 2, stub.Calls())
}

func TestResolveWithPersisterAndPrime(t *testing.T) {
	stub := newStubLocation().add("cn-hangzhou", "ecs", "innerAPI", "ecs-vpc.cn-hangzhou.aliyuncs.com")
	persister := &recordingPersister{}
	r := NewDefaultResolver(stub, WithPersister(persister))

	host, err := r.Resolve(context.Background(), newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
	require.NoError(t, err)
	assert.Equal(t, "ecs-vpc.cn-hangzhou.aliyuncs.com", host)
	require.Len(t, persister.entries, 1)
	assert.Equal(t, domain.LocationEntry{
		RegionID:     "cn-hangzhou",
		ServiceCode:  "ecs",
		EndpointType: "innerAPI",
		Hostname:     "ecs-vpc.cn-hangzhou.aliyuncs.com",
	}, persister.entries[0])

	// a fresh resolver primed from the persisted entries never calls out
	fresh := newStubLocation()
	warm := NewDefaultResolver(fresh)
	assert.Equal(t, 1, warm.Location().Prime(persister.entries))

	host, err = warm.Resolve(context.Background(), newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
	require.NoError(t, err)
	assert.Equal(t, "ecs-vpc.cn-hangzhou.aliyuncs.com", host)
	assert.Equal(t, 0, fresh.Calls())
}

func TestConcurrentResolve(t *testing.T) {
	stub := newStubLocation().add("cn-hangzhou", "ecs", "innerAPI", "ecs-vpc.cn-hangzhou.aliyuncs.com")
	stub.delay = 50 * time.Millisecond
	r := NewDefaultResolver(stub)

	var wg sync.WaitGroup
	results := make([]string, 32)
	errs := make([]error, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Resolve(context.Background(), newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "ecs-vpc.cn-hangzhou.aliyuncs.com", results[i])
	}
	assert.Equal(t, 1, stub.Calls())
	assert.Equal(t, int64(1), r.Location().Calls())
}

func TestCancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	stub := newStubLocation().add("cn-hangzhou", "ecs", "innerAPI", "ecs-vpc.cn-hangzhou.aliyuncs.com")
	stub.delay = 100 * time.Millisecond
	r := NewDefaultResolver(stub)

	impatient, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	var (
		wg         sync.WaitGroup
		shortErr   error
		patientErr error
		host       string
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, shortErr = r.Resolve(impatient, newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
	}()

	// the impatient caller owns the flight once the stub has been called
	require.Eventually(t, func() bool { return stub.Calls() == 1 }, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		host, patientErr = r.Resolve(context.Background(), newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
	}()
	wg.Wait()

	assert.ErrorIs(t, shortErr, context.DeadlineExceeded)
	require.NoError(t, patientErr)
	assert.Equal(t, "ecs-vpc.cn-hangzhou.aliyuncs.com", host)
	assert.Equal(t, 1, stub.Calls())

	// the detached flight still filled the cache
	host, err := r.Resolve(context.Background(), newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
	require.NoError(t, err)
	assert.Equal(t, "ecs-vpc.cn-hangzhou.aliyuncs.com", host)
	assert.Equal(t, 1, stub.Calls())
}

func TestLookupTimeoutBoundsTheFlight(t *testing.T) {
	stub := newStubLocation().add("cn-hangzhou", "ecs", "innerAPI", "ecs-vpc.cn-hangzhou.aliyuncs.com")
	stub.delay = time.Second
	r := NewDefaultResolver(stub)
	r.Location().SetLookupTimeout(20 * time.Millisecond)

	_, err := r.Resolve(context.Background(), newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalLocationFailuresAreNotTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		code string
	}{
		{
			name: "signing",
			err:  fmt.Errorf("%w: %w", location.ErrSign, errors.New("no credentials configured")),
			kind: domain.ErrClient,
			code: domain.ErrCodeClientError,
		},
		{
			name: "undecodable answer",
			err:  fmt.Errorf("%w: %w", location.ErrDecode, errors.New("invalid character '<'")),
			kind: domain.ErrBadResponse,
			code: domain.ErrCodeInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubLocation()
			stub.err = tt.err
			r := NewDefaultResolver(stub)

			_, err := r.Resolve(context.Background(), newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.NotErrorIs(t, err, domain.ErrTransport)

			var re *domain.ResolveError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.code, re.Code)

			// not cached either
			_, _ = r.Resolve(context.Background(), newReq("cn-hangzhou", "Ecs", "ecs", "innerAPI"))
			assert.Equal(t, 2, stub.Calls())
		})
	}
}

func TestOfflineResolverHasNoLocation(t *testing.T) {
	r := NewDefaultResolver(nil)
	assert.Nil(t, r.Location())
	assert.NotNil(t, r.LocalConfig())
	assert.Same(t, localconfig.Default(), r.LocalConfig())
}
