// Package ssrf validates that an outbound hostname or IP address is safe to
// fetch from the host network before the gateway's fetch/search tools hand a
// URL to net/http.
package ssrf

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// BlockedError is returned when a hostname or IP address must not be reached
// from tool-initiated outbound requests.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string { return e.Reason }

func blocked(reason string) *BlockedError { return &BlockedError{Reason: reason} }

var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
}

var blockedSuffixes = []string{".localhost", ".local", ".internal"}

var privateIPv6Prefixes = []string{"fe80:", "fec0:", "fc", "fd"}

func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	h = strings.TrimSuffix(h, ".")
	if strings.HasPrefix(h, "[") && strings.HasSuffix(h, "]") {
		h = h[1 : len(h)-1]
	}
	return h
}

// IsBlockedHostname reports whether host names an internal/reserved domain
// regardless of what it resolves to.
func IsBlockedHostname(host string) bool {
	h := normalizeHost(host)
	if h == "" {
		return false
	}
	if blockedHostnames[h] {
		return true
	}
	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(h, suffix) {
			return true
		}
	}
	return false
}

func parseIPv4Octets(addr string) ([4]byte, error) {
	var out [4]byte
	parts := strings.Split(addr, ".")
	if len(parts) != 4 {
		return out, blocked("malformed IPv4 address")
	}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return out, blocked("malformed IPv4 address")
		}
		out[i] = byte(v)
	}
	return out, nil
}

func parseIPv4MappedIPv6(mapped string) ([4]byte, error) {
	var out [4]byte
	if strings.Contains(mapped, ".") {
		return parseIPv4Octets(mapped)
	}
	groups := strings.Split(mapped, ":")
	var hex []string
	for _, g := range groups {
		if g != "" {
			hex = append(hex, g)
		}
	}
	var value uint64
	switch len(hex) {
	case 1:
		v, err := strconv.ParseUint(hex[0], 16, 32)
		if err != nil {
			return out, blocked("malformed IPv4-mapped IPv6 address")
		}
		value = v
	case 2:
		hi, err1 := strconv.ParseUint(hex[0], 16, 16)
		lo, err2 := strconv.ParseUint(hex[1], 16, 16)
		if err1 != nil || err2 != nil {
			return out, blocked("malformed IPv4-mapped IPv6 address")
		}
		value = (hi << 16) | lo
	default:
		return out, blocked("malformed IPv4-mapped IPv6 address")
	}
	out[0] = byte(value >> 24)
	out[1] = byte(value >> 16)
	out[2] = byte(value >> 8)
	out[3] = byte(value)
	return out, nil
}

// IsReservedIPv4 reports whether octets fall in a loopback, link-local,
// carrier-NAT, or RFC 1918 private range.
func IsReservedIPv4(octets [4]byte) bool {
	a, b := octets[0], octets[1]
	switch {
	case a == 0, a == 10, a == 127:
		return true
	case a == 169 && b == 254:
		return true
	case a == 172 && b >= 16 && b <= 31:
		return true
	case a == 192 && b == 168:
		return true
	case a == 100 && b >= 64 && b <= 127:
		return true
	default:
		return false
	}
}

// IsReservedIP reports whether address (IPv4, IPv6, or an IPv4-mapped IPv6
// literal, optionally bracketed) names a loopback or private network.
func IsReservedIP(address string) bool {
	h := normalizeHost(address)
	if h == "" {
		return false
	}

	if strings.HasPrefix(h, "::ffff:") {
		if mapped, err := parseIPv4MappedIPv6(h[len("::ffff:"):]); err == nil {
			return IsReservedIPv4(mapped)
		}
	}

	if strings.Contains(h, ":") {
		if h == "::" || h == "::1" {
			return true
		}
		for _, prefix := range privateIPv6Prefixes {
			if strings.HasPrefix(h, prefix) {
				return true
			}
		}
		return false
	}

	octets, err := parseIPv4Octets(h)
	if err != nil {
		return false
	}
	return IsReservedIPv4(octets)
}

// ValidateOutboundHost blocks the hostname outright, blocks it when it is
// itself a reserved IP literal, and otherwise resolves it and blocks it when
// any resolved address is a reserved IP.
func ValidateOutboundHost(host string) error {
	h := normalizeHost(host)
	if h == "" {
		return errors.New("empty hostname")
	}
	if IsBlockedHostname(h) {
		return blocked(fmt.Sprintf("blocked host: %s", host))
	}
	if IsReservedIP(h) {
		return blocked("blocked: target is a private/reserved IP address")
	}

	ips, err := net.LookupIP(h)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("resolve %s: no addresses returned", host)
	}
	for _, ip := range ips {
		if IsReservedIP(ip.String()) {
			return blocked(fmt.Sprintf("blocked: %s resolves to a private/reserved IP address", host))
		}
	}
	return nil
}
