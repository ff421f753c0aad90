// Package rank dedupes, scores, and selects evidence sources for citation.
package rank

import (
	"net/url"
	"sort"
	"strings"
)

// CanonicalKey reduces a URL to a scheme-independent identity: lowercase host
// without a leading "www.", path with the trailing slash trimmed, query
// parameters sorted and stripped of tracking noise, fragment dropped. Two
// URLs with the same key are treated as the same source. Unparseable input
// falls back to the trimmed raw string.
func CanonicalKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" {
		host += ":" + port
	}

	path := strings.TrimSuffix(u.EscapedPath(), "/")
	if path == "" {
		path = "/"
	}

	query := canonicalQuery(u.Query())

	key := host + path
	if query != "" {
		key += "?" + query
	}
	return key
}

// trackingParams are query parameters that carry no content identity
var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"igshid":  true,
	"mc_cid":  true,
	"mc_eid":  true,
	"ref":     true,
	"ref_src": true,
}

func isTrackingParam(name string) bool {
	return trackingParams[name] || strings.HasPrefix(name, "utm_")
}

func canonicalQuery(values url.Values) string {
	names := make([]string, 0, len(values))
	for name := range values {
		if isTrackingParam(strings.ToLower(name)) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		vals := append([]string(nil), values[name]...)
		sort.Strings(vals)
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
