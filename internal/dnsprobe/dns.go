// Package dnsprobe implements the DNS Resolver (C1): MX lookup,
// SPF/DMARC presence, and hostname-to-IP resolution, each bounded by a
// caller-supplied deadline. The resolver is stateless.
package dnsprobe

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"time"
)

// Failure classes for mx lookup.
var (
	ErrDomainMissing = errors.New("dns: domain does not exist")
	ErrNoMX          = errors.New("dns: domain has no MX records")
	ErrTransient     = errors.New("dns: transient failure or timeout")
)

// MXRecord is one (preference, exchange) pair.
type MXRecord struct {
	Preference uint16
	Exchange   string
}

// ClampDeadline clamps a requested per-query deadline to [1, 30] seconds.
func ClampDeadline(d time.Duration) time.Duration {
	switch {
	case d < time.Second:
		return time.Second
	case d > 30*time.Second:
		return 30 * time.Second
	default:
		return d
	}
}

// MXLookup resolves domain's MX records, sorted ascending by
// preference with trailing dots stripped from the exchange.
func MXLookup(ctx context.Context, domain string, deadline time.Duration) ([]MXRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, ClampDeadline(deadline))
	defer cancel()

	r := &net.Resolver{}
	mxs, err := r.LookupMX(ctx, domain)
	if err != nil {
		return nil, classifyMXError(err)
	}
	if len(mxs) == 0 {
		return nil, ErrNoMX
	}

	records := make([]MXRecord, len(mxs))
	for i, mx := range mxs {
		records[i] = MXRecord{
			Preference: mx.Pref,
			Exchange:   strings.TrimSuffix(mx.Host, "."),
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Preference < records[j].Preference })
	return records, nil
}

func classifyMXError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return ErrDomainMissing
		}
		if dnsErr.IsTimeout || dnsErr.IsTemporary {
			return ErrTransient
		}
	}
	return ErrTransient
}

// ResolveToIP resolves host to an IP address string. If host is
// already a literal IPv4/IPv6 address it is returned unchanged. It
// never fails hard: any lookup error yields ("", false).
func ResolveToIP(ctx context.Context, host string, deadline time.Duration) (string, bool) {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if host == "" {
		return "", false
	}
	if ip := net.ParseIP(host); ip != nil {
		return host, true
	}

	ctx, cancel := context.WithTimeout(ctx, ClampDeadline(deadline))
	defer cancel()
	r := &net.Resolver{}

	if ips, err := r.LookupIP(ctx, "ip4", host); err == nil && len(ips) > 0 {
		return ips[0].String(), true
	}
	if ips, err := r.LookupIP(ctx, "ip6", host); err == nil && len(ips) > 0 {
		return ips[0].String(), true
	}
	return "", false
}

// CheckSPFDMARC reports whether domain publishes an SPF TXT record
// (v=spf1) and a DMARC TXT record at _dmarc.<domain> (v=DMARC1). Any
// DNS error is treated as absent, never fatal.
func CheckSPFDMARC(ctx context.Context, domain string, deadline time.Duration) (hasSPF, hasDMARC bool) {
	d := ClampDeadline(deadline)
	hasSPF = hasTXTContaining(ctx, domain, d, "v=spf1")
	hasDMARC = hasTXTContaining(ctx, "_dmarc."+domain, d, "v=dmarc1")
	return hasSPF, hasDMARC
}

func hasTXTContaining(ctx context.Context, name string, deadline time.Duration, needle string) bool {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	r := &net.Resolver{}
	records, err := r.LookupTXT(ctx, name)
	if err != nil {
		return false
	}
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec), needle) {
			return true
		}
	}
	return false
}
