package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ParseHostNoPort strips an optional port from "host:port", "[v6]:port" or "host".
func ParseHostNoPort(s string) string {
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

// parseAddr parses an address that may carry a port. IPv4-mapped IPv6
// addresses come back as plain IPv4.
func parseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(ParseHostNoPort(s))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// ClientIP returns the address the request came from. With trustProxy it
// prefers CF-Connecting-IP, then the left-most X-Forwarded-For hop, then
// X-Real-IP, skipping header values that are not addresses. RemoteAddr is the
// fallback. The result is "" when nothing parses.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		for _, v := range []string{
			r.Header.Get("CF-Connecting-IP"),
			first,
			r.Header.Get("X-Real-IP"),
		} {
			if addr, ok := parseAddr(v); ok {
				return addr.String()
			}
		}
	}
	if addr, ok := parseAddr(r.RemoteAddr); ok {
		return addr.String()
	}
	return ""
}

// IPMatcher is an allow-list of addresses and prefixes. A bare address is
// kept as a single-address prefix.
type IPMatcher struct {
	prefixes []netip.Prefix
	rejected []string
}

// NewIPMatcher parses list, skipping blanks. Entries that are neither an
// address nor a prefix are reported by Rejected and match nothing.
func NewIPMatcher(list []string) *IPMatcher {
	m := &IPMatcher{}
	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			m.prefixes = append(m.prefixes, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(s); err == nil {
			addr = addr.Unmap()
			m.prefixes = append(m.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		m.rejected = append(m.rejected, s)
	}
	return m
}

// IsEmpty reports whether no rule was configured at all. A list made only
// of invalid entries is not empty: it denies everyone.
func (m *IPMatcher) IsEmpty() bool {
	return len(m.prefixes) == 0 && len(m.rejected) == 0
}

// Rules returns the number of valid rules.
func (m *IPMatcher) Rules() int { return len(m.prefixes) }

// Rejected returns the entries that could not be parsed.
func (m *IPMatcher) Rejected() []string { return m.rejected }

// Allow reports whether ip falls inside any rule.
func (m *IPMatcher) Allow(ip string) bool {
	addr, ok := parseAddr(ip)
	if !ok {
		return false
	}
	for _, p := range m.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
