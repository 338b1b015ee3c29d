package athena

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

const (
	listenerFlag      = "listener"
	linkNameSpecifier = "name="
	localLinkFlag     = "local="
)

// connSpec is a parsed connection descriptor. It is immutable once
// parsed and consumed exactly once at open time.
type connSpec struct {
	addr     netip.Addr
	port     uint16
	listener bool
	name     string
	forced   Locality
}

// parseDescriptor turns `tcp://host:port[/listener][/name%3Dtoken]
// [/local%3Dtrue|false]` into a connSpec. Flags are case-insensitive
// and may appear in any order; anything unrecognized rejects the
// descriptor before a socket exists.
func parseDescriptor(raw string) (*connSpec, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	if !strings.EqualFold(u.Scheme, "tcp") {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidDescriptor, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing authority in %q", ErrInvalidDescriptor, raw)
	}

	portStr := u.Port()
	if portStr == "" {
		return nil, fmt.Errorf("%w: missing port in %q", ErrInvalidDescriptor, raw)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: bad port %q", ErrInvalidDescriptor, portStr)
	}

	addr, err := resolveHost(u.Hostname())
	if err != nil {
		return nil, err
	}

	spec := &connSpec{
		addr: addr,
		port: uint16(port),
	}

	// url.Parse has already percent-decoded the path, so the literal
	// `%3D` of the wire form shows up as `=` here.
	for _, segment := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		switch {
		case segment == "":
			continue
		case strings.EqualFold(segment, listenerFlag):
			spec.listener = true
		case len(segment) >= len(linkNameSpecifier) &&
			strings.EqualFold(segment[:len(linkNameSpecifier)], linkNameSpecifier):
			name := segment[len(linkNameSpecifier):]
			if name == "" {
				return nil, fmt.Errorf("%w: improper connection name specification (%s)",
					ErrInvalidDescriptor, segment)
			}
			spec.name = name
		case len(segment) >= len(localLinkFlag) &&
			strings.EqualFold(segment[:len(localLinkFlag)], localLinkFlag):
			switch value := segment[len(localLinkFlag):]; {
			case strings.EqualFold(value, "true"):
				spec.forced = ForcedLocal
			case strings.EqualFold(value, "false"):
				spec.forced = ForcedNonLocal
			default:
				return nil, fmt.Errorf("%w: improper local state specification (%s)",
					ErrInvalidDescriptor, segment)
			}
		default:
			return nil, fmt.Errorf("%w: unknown connection parameter (%s)",
				ErrInvalidDescriptor, segment)
		}
	}

	return spec, nil
}

// resolveHost normalizes a hostname to a single IPv4 address. The engine
// is IPv4-only, matching the address handling of the wire protocol.
func resolveHost(host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		if !addr.Is4() {
			return netip.Addr{}, fmt.Errorf("%w: %s is not IPv4", ErrHostResolve, host)
		}
		return addr, nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %s: %w", ErrHostResolve, host, err)
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			return netip.AddrFrom4([4]byte(ip4)), nil
		}
	}
	return netip.Addr{}, fmt.Errorf("%w: no IPv4 address for %s", ErrHostResolve, host)
}
