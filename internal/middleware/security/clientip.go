package security

import (
	"net"
	"net/http"
	"strings"
	"sync"
)

// trustedProxies lists CIDR ranges whose X-Forwarded-For headers are
// believed. Defaults cover RFC 1918 space for deployments behind a
// reverse proxy on the same network.
var (
	trustedProxiesMu sync.RWMutex
	trustedProxies   = []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
	}
)

// AddTrustedProxy registers an additional CIDR range as a trusted proxy.
func AddTrustedProxy(cidr string) error {
	if _, _, err := net.ParseCIDR(cidr); err != nil {
		return err
	}
	trustedProxiesMu.Lock()
	trustedProxies = append(trustedProxies, cidr)
	trustedProxiesMu.Unlock()
	return nil
}

// ExtractClientIP resolves the real client address. Forwarding headers are
// honored only when the direct peer is a trusted proxy, otherwise the
// connection address wins.
func ExtractClientIP(r *http.Request) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}

	if !isTrustedProxy(remoteIP) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First address is the originating client.
		parts := strings.Split(xff, ",")
		candidate := strings.TrimSpace(parts[0])
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		candidate := strings.TrimSpace(xri)
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}

	return remoteIP
}

func isTrustedProxy(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	trustedProxiesMu.RLock()
	defer trustedProxiesMu.RUnlock()
	for _, cidr := range trustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}
