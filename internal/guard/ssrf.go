// Package guard validates outbound URLs against private, loopback, and
// link-local address ranges before any network request is made.
package guard

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/nolia/nolia/internal/apperr"
)

// Resolver looks up the IP addresses for a host. Injectable for tests.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard validates candidate URLs
type Guard struct {
	resolver Resolver
}

// New creates a Guard using the default system resolver
func New() *Guard {
	return &Guard{resolver: net.DefaultResolver}
}

// NewWithResolver creates a Guard with a custom resolver
func NewWithResolver(r Resolver) *Guard {
	return &Guard{resolver: r}
}

// Validate parses and checks a candidate URL. It returns the parsed URL if
// safe to fetch. Every resolved address must pass; the first offender
// rejects the whole URL.
func (g *Guard) Validate(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperr.InvalidURL(fmt.Sprintf("malformed url: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperr.InvalidURL("url scheme must be http or https")
	}

	host := u.Hostname()
	if host == "" {
		return nil, apperr.InvalidURL("url has no host")
	}

	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".local") {
		return nil, apperr.InvalidURL("host resolves to a local address")
	}

	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		if isForbidden(ip) {
			return nil, apperr.InvalidURL("host is a private or loopback address")
		}
		return u, nil
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, apperr.InvalidURL(fmt.Sprintf("host did not resolve: %v", err))
	}
	for _, addr := range addrs {
		if isForbidden(addr.IP) {
			return nil, apperr.InvalidURL("host resolves to a private or loopback address")
		}
	}
	return u, nil
}

var forbiddenV4 = mustParseCIDRs(
	"10.0.0.0/8",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"192.168.0.0/16",
	"172.16.0.0/12",
)

var forbiddenV6 = mustParseCIDRs(
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func isForbidden(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		for _, block := range forbiddenV4 {
			if block.Contains(v4) {
				return true
			}
		}
		return false
	}
	for _, block := range forbiddenV6 {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, block, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("parse cidr %q: %v", c, err))
		}
		out = append(out, block)
	}
	return out
}
