package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TrustedNetworks are peers allowed to set forwarding and identity headers.
type TrustedNetworks []*net.IPNet

// ParseTrustedNetworks parses CIDRs; bare IPs are taken as single hosts.
func ParseTrustedNetworks(cidrs []string) (TrustedNetworks, error) {
	var nets TrustedNetworks
	for _, raw := range cidrs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", raw)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			raw = fmt.Sprintf("%s/%d", raw, bits)
		}
		_, network, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %s: %w", raw, err)
		}
		nets = append(nets, network)
	}
	return nets, nil
}

// Contains reports whether ip belongs to any trusted network.
func (n TrustedNetworks) Contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, network := range n {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// PeerIP is the address of the direct connection.
func PeerIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// IsTrustedPeer reports whether the request arrived from a trusted proxy.
func (n TrustedNetworks) IsTrustedPeer(r *http.Request) bool {
	return n.Contains(PeerIP(r))
}

// ClientIP extracts the real client IP, honoring X-Forwarded-For and
// X-Real-IP only from trusted peers.
func (n TrustedNetworks) ClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	parsed := net.ParseIP(directIP)
	if parsed == nil || !n.Contains(parsed) {
		return directIP
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return directIP
}
