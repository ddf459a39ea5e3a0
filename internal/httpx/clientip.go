package httpx

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP derives the client address for a request. A forwarded-address
// header wins over the transport-layer address since the service normally
// sits behind a proxy; only the first entry of a comma-separated list is
// trusted.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
