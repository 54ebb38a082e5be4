package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/endpointd/internal/logger"
	"github.com/MrSnakeDoc/endpointd/internal/metrics"
	"github.com/MrSnakeDoc/endpointd/internal/utils"
)

// AllowOnlyCIDRS restricts admin routes to the given IPs/CIDRs. An empty list
// lets everything through. trustProxy resolves the client IP from proxy headers.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	log = log.Named("cidr")
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		log.Debug("no CIDR rules, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	for _, bad := range m.Rejected() {
		log.Warn("ignoring invalid CIDR rule", logger.String("rule", bad))
	}
	log.Debug("CIDR allow-list initialized",
		logger.Int("rules", m.Rules()),
		logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Debug("client rejected",
					logger.String("ip", ip),
					logger.String("remote_addr", r.RemoteAddr),
					logger.String("path", r.URL.Path))
				metrics.RecordRejected("ip_denied")
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
