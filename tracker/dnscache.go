package tracker

import (
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v2"
)

// ipv4HostPattern matches the "/N.N.N.N" host literal the broker reports for
// group members, e.g. "/10.0.4.12". IPv6 member hosts are not matched by this
// pattern and are passed through unnormalized.
var ipv4HostPattern = regexp.MustCompile(`^/\d+\.\d+\.\d+\.\d+$`)

// hostResolver caches reverse-DNS lookups for member hosts so the
// MetadataPoller's per-cycle normalization doesn't block on, or repeatedly
// re-issue, a DNS query for the same address.
type hostResolver struct {
	cache *ttlcache.Cache
}

func newHostResolver(ttl time.Duration) *hostResolver {
	cache := ttlcache.NewCache()
	cache.SetTTL(ttl)
	cache.SkipTTLExtensionOnHit(true)
	return &hostResolver{cache: cache}
}

// normalize applies the strip-slash-and-reverse-DNS rule: a raw host of the
// form "/N.N.N.N" has its leading slash stripped and a reverse lookup
// attempted; on lookup failure the stripped literal is kept. Any other host
// string, including IPv6 literals, is returned unchanged.
func (r *hostResolver) normalize(rawHost string) string {
	if !ipv4HostPattern.MatchString(rawHost) {
		return rawHost
	}

	literal := strings.TrimPrefix(rawHost, "/")

	if cached, err := r.cache.Get(literal); err == nil {
		return cached.(string)
	}

	resolved := literal
	if names, err := net.LookupAddr(literal); err == nil && len(names) > 0 {
		resolved = strings.TrimSuffix(names[0], ".")
	}

	_ = r.cache.Set(literal, resolved)
	return resolved
}

func (r *hostResolver) close() {
	r.cache.Close()
}
