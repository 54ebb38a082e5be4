package location

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"resty.dev/v3"

	"github.com/MrSnakeDoc/endpointd/internal/logger"
)

// HTTPConfig configures the HTTP location client.
type HTTPConfig struct {
	Endpoint string        // host[:port], default DefaultEndpoint
	Scheme   string        // http or https, default https
	Timeout  time.Duration // per request, default 5s
	Signer   Signer        // optional
}

// HTTPClient is the resty-backed Client.
type HTTPClient struct {
	client *resty.Client
	signer Signer
	log    logger.Logger

	mu       sync.RWMutex
	endpoint string
	scheme   string
}

type startedAt struct{}

// NewHTTPClient builds a client. A nil logger discards client logs.
func NewHTTPClient(cfg HTTPConfig, log logger.Logger) *HTTPClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("location")

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	client.AddRequestMiddleware(func(_ *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), startedAt{}, time.Now()))
		return nil
	})
	client.AddResponseMiddleware(func(_ *resty.Client, r *resty.Response) error {
		start, _ := r.Request.Context().Value(startedAt{}).(time.Time)
		log.Debug("location service call",
			logger.Int("status", r.StatusCode()),
			logger.String("query", r.Request.RawRequest.URL.RawQuery),
			logger.Duration("latency", time.Since(start)),
		)
		return nil
	})

	return &HTTPClient{
		client:   client,
		signer:   cfg.Signer,
		log:      log,
		endpoint: cfg.Endpoint,
		scheme:   strings.ToLower(cfg.Scheme),
	}
}

// SetEndpoint points the client at another location service host.
func (c *HTTPClient) SetEndpoint(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = host
}

// Endpoint returns the current location service host.
func (c *HTTPClient) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

func (c *HTTPClient) baseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scheme + "://" + c.endpoint + "/"
}

// DescribeEndpoints calls the DescribeEndpoints action.
//
// A non-nil error is either a *ServerError (the service answered with an
// error body) or the transport's own error.
func (c *HTTPClient) DescribeEndpoints(ctx context.Context, req DescribeEndpointsRequest) (*DescribeEndpointsResponse, error) {
	query := map[string]string{
		"Action":      "DescribeEndpoints",
		"Version":     APIVersion,
		"Format":      "JSON",
		"Id":          req.RegionID,
		"ServiceCode": req.ServiceCode,
		"Type":        req.Type,
	}
	if c.signer != nil {
		if err := c.signer.Sign(ctx, query); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSign, err)
		}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(c.baseURL())
	if err != nil {
		return nil, err
	}

	body := resp.Bytes()
	if resp.StatusCode() >= 400 {
		srvErr := &ServerError{StatusCode: resp.StatusCode()}
		if parseErr := json.Unmarshal(body, srvErr); parseErr != nil || srvErr.Code == "" {
			srvErr.Code = fmt.Sprintf("HTTP%d", resp.StatusCode())
			srvErr.Message = strings.TrimSpace(string(body))
		}
		return nil, srvErr
	}

	var out DescribeEndpointsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &out, nil
}
