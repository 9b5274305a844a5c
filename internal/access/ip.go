package access

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strings"
)

// ErrInvalidIP is returned for allow-list entries that are not IPv4 literals or CIDR blocks.
var ErrInvalidIP = errors.New("invalid IPv4 address or CIDR block")

var ipv4EntryPattern = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}(/\d{1,2})?$`)

// PermittedIP is one parsed allow-list entry.
type PermittedIP struct {
	Raw    string
	Prefix netip.Prefix
	Single bool
}

// Contains reports whether addr falls under this entry.
func (p PermittedIP) Contains(addr netip.Addr) bool {
	if p.Single {
		return p.Prefix.Addr() == addr
	}
	return p.Prefix.Contains(addr)
}

// ParsePermittedIP validates an allow-list entry at the point it is added.
// Octets with leading zeros are rejected since some resolvers read them as octal.
func ParsePermittedIP(entry string) (PermittedIP, error) {
	raw := strings.TrimSpace(entry)
	if !ipv4EntryPattern.MatchString(raw) {
		return PermittedIP{}, fmt.Errorf("%w: %q", ErrInvalidIP, entry)
	}
	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		if err != nil || !prefix.Addr().Is4() {
			return PermittedIP{}, fmt.Errorf("%w: %q", ErrInvalidIP, entry)
		}
		return PermittedIP{Raw: raw, Prefix: prefix.Masked()}, nil
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil || !addr.Is4() {
		return PermittedIP{}, fmt.Errorf("%w: %q", ErrInvalidIP, entry)
	}
	return PermittedIP{Raw: raw, Prefix: netip.PrefixFrom(addr, 32), Single: true}, nil
}

// parseSourceIP accepts IPv4 and IPv4-mapped IPv6 source addresses.
func parseSourceIP(raw string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return netip.Addr{}, false
	}
	addr = addr.Unmap()
	return addr, addr.Is4()
}
