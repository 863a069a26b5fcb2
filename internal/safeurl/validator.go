// Package safeurl classifies webhook target URLs as deliverable or blocked.
// It guards the delivery path against SSRF: schemes other than HTTPS, embedded
// credentials, deny-listed hostnames, literal or DNS-resolved addresses in
// internal ranges, and ports that expose internal services are all rejected.
//
// DNS answers are mutable, so callers must validate immediately before each
// delivery rather than caching a verdict from webhook creation time.
package safeurl

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Resolver resolves hostnames to IP addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Result is the verdict for a single URL
type Result struct {
	Valid  bool
	Reason string
}

func blocked(reason string) Result {
	return Result{Valid: false, Reason: reason}
}

// Config holds the validator's tunable policy
type Config struct {
	// DNSTimeout bounds hostname resolution. Resolution errors and timeouts
	// both block the URL.
	DNSTimeout time.Duration
	// BlockedHostnames are rejected before any resolution. Matched case
	// insensitively against the exact hostname.
	BlockedHostnames []string
	// SensitivePorts are rejected even when unprivileged
	SensitivePorts []int
}

// DefaultBlockedHostnames covers loopback aliases and cloud metadata endpoints
var DefaultBlockedHostnames = []string{
	"localhost",
	"metadata",
	"metadata.google.internal",
	"metadata.goog",
	"instance-data",
}

// DefaultSensitivePorts covers common internal datastores and services
var DefaultSensitivePorts = []int{
	3306,  // mysql
	5432,  // postgres
	6379,  // redis
	9200,  // elasticsearch
	11211, // memcached
	27017, // mongodb
}

// Validator checks target URLs against the SSRF policy
type Validator struct {
	resolver       Resolver
	dnsTimeout     time.Duration
	blockedHosts   map[string]struct{}
	sensitivePorts map[int]struct{}
}

// NewValidator creates a validator with the given policy. A nil resolver falls
// back to net.DefaultResolver; zero-value config fields fall back to defaults.
func NewValidator(resolver Resolver, cfg Config) *Validator {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if cfg.DNSTimeout <= 0 {
		cfg.DNSTimeout = 5 * time.Second
	}
	if cfg.BlockedHostnames == nil {
		cfg.BlockedHostnames = DefaultBlockedHostnames
	}
	if cfg.SensitivePorts == nil {
		cfg.SensitivePorts = DefaultSensitivePorts
	}

	blockedHosts := make(map[string]struct{}, len(cfg.BlockedHostnames))
	for _, host := range cfg.BlockedHostnames {
		blockedHosts[strings.ToLower(host)] = struct{}{}
	}
	sensitivePorts := make(map[int]struct{}, len(cfg.SensitivePorts))
	for _, port := range cfg.SensitivePorts {
		sensitivePorts[port] = struct{}{}
	}

	return &Validator{
		resolver:       resolver,
		dnsTimeout:     cfg.DNSTimeout,
		blockedHosts:   blockedHosts,
		sensitivePorts: sensitivePorts,
	}
}

// Validate classifies a target URL as deliverable or blocked
func (v *Validator) Validate(ctx context.Context, rawURL string) Result {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return blocked("malformed URL")
	}

	if !strings.EqualFold(parsed.Scheme, "https") {
		return blocked("scheme must be https")
	}

	if parsed.User != nil {
		return blocked("URL must not contain credentials")
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return blocked("URL must contain a hostname")
	}

	if _, denied := v.blockedHosts[hostname]; denied {
		return blocked(fmt.Sprintf("hostname %q is not allowed", hostname))
	}

	if result := v.checkPort(parsed.Port()); !result.Valid {
		return result
	}

	// Literal addresses, including hex/octal/integer disguises, are judged
	// directly. Everything else goes through DNS.
	if ip := parseLiteralIP(hostname); ip != nil {
		if reason := internalRangeReason(ip); reason != "" {
			return blocked(fmt.Sprintf("address %s is %s", ip, reason))
		}
		return Result{Valid: true}
	}

	return v.checkResolved(ctx, hostname)
}

// ValidateForWorkspace applies the workspace domain allow-list on top of the
// generic checks. An empty allow-list imposes no additional restriction; a
// non-empty one is additive, never a bypass.
func (v *Validator) ValidateForWorkspace(ctx context.Context, rawURL string, allowedDomains []string) Result {
	if len(allowedDomains) > 0 {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return blocked("malformed URL")
		}
		hostname := strings.ToLower(parsed.Hostname())
		if !hostnameAllowed(hostname, allowedDomains) {
			return blocked(fmt.Sprintf("hostname %q is not in the workspace allow-list", hostname))
		}
	}

	return v.Validate(ctx, rawURL)
}

func hostnameAllowed(hostname string, allowedDomains []string) bool {
	for _, domain := range allowedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if hostname == domain || strings.HasSuffix(hostname, "."+domain) {
			return true
		}
	}
	return false
}

func (v *Validator) checkPort(portStr string) Result {
	if portStr == "" {
		return Result{Valid: true}
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return blocked("invalid port")
	}

	if port == 443 {
		return Result{Valid: true}
	}
	if port < 1024 {
		return blocked(fmt.Sprintf("privileged port %d is not allowed", port))
	}
	if _, sensitive := v.sensitivePorts[port]; sensitive {
		return blocked(fmt.Sprintf("port %d is not allowed", port))
	}

	return Result{Valid: true}
}

func (v *Validator) checkResolved(ctx context.Context, hostname string) Result {
	ctx, cancel := context.WithTimeout(ctx, v.dnsTimeout)
	defer cancel()

	addrs, err := v.resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return blocked(fmt.Sprintf("hostname %q did not resolve", hostname))
	}
	if len(addrs) == 0 {
		return blocked(fmt.Sprintf("hostname %q did not resolve", hostname))
	}

	// Every resolved address must be routable. One internal record is enough
	// to block the whole hostname.
	for _, addr := range addrs {
		if reason := internalRangeReason(addr.IP); reason != "" {
			return blocked(fmt.Sprintf("hostname %q resolves to %s address %s", hostname, reason, addr.IP))
		}
	}

	return Result{Valid: true}
}

// parseLiteralIP recognizes a hostname that is an IP address literal, including
// the inet_aton forms a dotted-decimal parser misses: hex (0x7f000001), octal
// (0177.0.0.1), bare integer (2130706433), and short dotted forms (127.1).
// Returns nil when the hostname is not an address literal.
func parseLiteralIP(hostname string) net.IP {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip
	}
	return parseNumericIPv4(hostname)
}

func parseNumericIPv4(hostname string) net.IP {
	parts := strings.Split(hostname, ".")
	if len(parts) > 4 {
		return nil
	}

	values := make([]uint64, len(parts))
	for i, part := range parts {
		value, ok := parseIPv4Part(part)
		if !ok {
			return nil
		}
		values[i] = value
	}

	// inet_aton semantics: the final part fills the remaining bytes
	var addr uint64
	switch len(values) {
	case 1:
		addr = values[0]
	case 2:
		if values[0] > 0xff || values[1] > 0xffffff {
			return nil
		}
		addr = values[0]<<24 | values[1]
	case 3:
		if values[0] > 0xff || values[1] > 0xff || values[2] > 0xffff {
			return nil
		}
		addr = values[0]<<24 | values[1]<<16 | values[2]
	case 4:
		for _, v := range values {
			if v > 0xff {
				return nil
			}
		}
		addr = values[0]<<24 | values[1]<<16 | values[2]<<8 | values[3]
	}

	if addr > 0xffffffff {
		return nil
	}

	return net.IPv4(byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr))
}

func parseIPv4Part(part string) (uint64, bool) {
	if part == "" {
		return 0, false
	}

	base := 10
	switch {
	case strings.HasPrefix(part, "0x") || strings.HasPrefix(part, "0X"):
		base = 16
		part = part[2:]
		if part == "" {
			return 0, false
		}
	case len(part) > 1 && part[0] == '0':
		base = 8
		part = part[1:]
	}

	value, err := strconv.ParseUint(part, base, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

var (
	cgnatRange      = mustCIDR("100.64.0.0/10")
	reservedV4Range = mustCIDR("240.0.0.0/4")
	benchmarkRange  = mustCIDR("198.18.0.0/15")
	ulaRange        = mustCIDR("fc00::/7")
)

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}
	return network
}

// internalRangeReason names the internal range an address falls in, or returns
// an empty string for publicly routable addresses.
func internalRangeReason(ip net.IP) string {
	switch {
	case ip.IsUnspecified():
		return "an unspecified"
	case ip.IsLoopback():
		return "a loopback"
	case ip.IsPrivate():
		return "a private"
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return "a link-local"
	case ip.IsMulticast():
		return "a multicast"
	case cgnatRange.Contains(ip):
		return "a carrier-grade NAT"
	case benchmarkRange.Contains(ip):
		return "a reserved"
	case ip.To4() != nil && reservedV4Range.Contains(ip):
		return "a reserved"
	case ip.To4() != nil && ip.Equal(net.IPv4bcast):
		return "a broadcast"
	case ip.To4() == nil && ulaRange.Contains(ip):
		return "a unique-local"
	default:
		return ""
	}
}
