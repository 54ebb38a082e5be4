package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/endpointd/internal/endpoint"
	"github.com/MrSnakeDoc/endpointd/internal/logger"
	redisstore "github.com/MrSnakeDoc/endpointd/internal/store/redis"
)

// ReloadStatus reports the outcome of the last endpoint config reload.
type ReloadStatus interface {
	Status() (time.Time, error)
}

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	AllowedHosts    []string                  // Host headers allowed to access admin routes
	AllowedCIDRS    []string                  // IPs allowed to access admin routes
	TrustProxy      bool                      // true if running behind a trusted reverse proxy
	RateLimitBurst  int                       // /resolve token bucket size per client IP
	RateLimitPerMin int                       // /resolve refill rate per client IP
	ConfigFile      string                    // Endpoint table file, empty when the bundled table is served
	Resolver        *endpoint.DefaultResolver // Resolution chain
	RedisClient     *redis.Client             // nil when Redis is disabled
	Store           *redisstore.Store         // nil when Redis is disabled
	ReloadStatus    ReloadStatus              // nil when the bundled table is served
	ReloadTrigger   chan struct{}             // Channel to trigger a manual config reload (nil without a config file)
}
