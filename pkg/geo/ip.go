package geo

import (
	"fmt"
	"math/big"
	"net/netip"
)

// IPToInteger converts an IPv4 or IPv6 literal to its integer form, the
// representation the IP-range location tables are keyed by.
func IPToInteger(s string) (*big.Int, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return nil, fmt.Errorf("geo: parsing ip %q: %w", s, err)
	}
	return new(big.Int).SetBytes(addr.AsSlice()), nil
}

// IntegerToIP is the inverse of IPToInteger. v6 selects the address
// family, since the integer value alone cannot distinguish small IPv6
// addresses from IPv4 ones.
func IntegerToIP(n *big.Int, v6 bool) (string, error) {
	size := 4
	if v6 {
		size = 16
	}

	b := n.Bytes()
	if len(b) > size {
		return "", fmt.Errorf("geo: integer too large for address family")
	}

	buf := make([]byte, size)
	copy(buf[size-len(b):], b)

	addr, ok := netip.AddrFromSlice(buf)
	if !ok {
		return "", fmt.Errorf("geo: invalid address bytes")
	}
	return addr.String(), nil
}
