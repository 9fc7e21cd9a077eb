package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dnsdig/pkg/geo"

	"github.com/miekg/dns"
)

// ErrMalformed reports rdata text whose shape does not match its type.
var ErrMalformed = errors.New("records: malformed rdata")

// Enricher is the geolocation capability the parser needs for address
// records. Injected so the parser carries no HTTP dependencies of its own.
type Enricher interface {
	Lookup(ctx context.Context, ip string, ttl uint32) geo.Location
}

// Parser converts canonical presentation-form rdata into typed records.
type Parser struct {
	geo Enricher
}

// NewParser creates a parser using the given enricher for A/AAAA records.
func NewParser(g Enricher) *Parser {
	return &Parser{geo: g}
}

// Parse converts one record's presentation text into its typed form.
func (p *Parser) Parse(ctx context.Context, qtype uint16, text string, ttl uint32) (Record, error) {
	switch qtype {
	case dns.TypeA, dns.TypeAAAA:
		return IP{p.geo.Lookup(ctx, text, ttl)}, nil

	case dns.TypeMX:
		return parseMx(text, ttl)

	case dns.TypeNS:
		return Ns{Hostname: strings.TrimSuffix(text, "."), TTL: ttl}, nil

	case dns.TypeSOA:
		return parseSoa(text, ttl)

	case dns.TypeTXT:
		return Txt{Text: strings.ReplaceAll(text, `"`, ""), TTL: ttl}, nil

	default:
		// PTR, CNAME, SRV and anything else pass through as-is.
		return Raw{Data: text, TTL: ttl}, nil
	}
}

func parseMx(text string, ttl uint32) (Record, error) {
	parts := strings.Split(text, " ")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: MX wants 2 fields, got %d", ErrMalformed, len(parts))
	}

	priority, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: MX priority %q", ErrMalformed, parts[0])
	}

	return Mx{
		Priority: uint16(priority),
		Hostname: strings.TrimSuffix(parts[1], "."),
		TTL:      ttl,
	}, nil
}

func parseSoa(text string, ttl uint32) (Record, error) {
	parts := strings.Split(text, " ")
	if len(parts) != 7 {
		return nil, fmt.Errorf("%w: SOA wants 7 fields, got %d", ErrMalformed, len(parts))
	}

	nums := make([]uint32, 5)
	for i, field := range parts[2:] {
		n, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: SOA field %q", ErrMalformed, field)
		}
		nums[i] = uint32(n)
	}

	// Only the first dot separates the local part from the domain; dots
	// inside the first label stay untouched (known limitation).
	email := strings.Replace(parts[1], ".", "@", 1)

	return Soa{
		PrimaryNS: parts[0],
		Email:     email,
		Serial:    nums[0],
		Refresh:   nums[1],
		Retry:     nums[2],
		Expire:    nums[3],
		Minimum:   nums[4],
		TTL:       ttl,
	}, nil
}
