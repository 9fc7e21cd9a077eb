// Package codec translates DNS messages between RFC 1035 wire format and
// the Google DoH JSON representation.
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// Decode errors.
var (
	ErrShortMessage = errors.New("codec: message shorter than header")
	ErrClass        = errors.New("codec: question class is not IN")
)

// headerLen is the fixed size of a DNS message header.
const headerLen = 12

// Decode parses a wire-format DNS message. Label compression is handled
// by the underlying parser, which also rejects compression loops.
func Decode(b []byte) (*dns.Msg, error) {
	if len(b) < headerLen {
		return nil, ErrShortMessage
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(b); err != nil {
		return nil, fmt.Errorf("codec: unpack: %w", err)
	}

	for _, q := range msg.Question {
		if q.Qclass != dns.ClassINET {
			return nil, ErrClass
		}
	}

	return msg, nil
}

// Encode packs a DNS message into wire format.
func Encode(m *dns.Msg) ([]byte, error) {
	b, err := m.Pack()
	if err != nil {
		return nil, fmt.Errorf("codec: pack: %w", err)
	}
	return b, nil
}

// RDataText returns the canonical presentation form of a record's RDATA,
// the same text the DoH JSON "data" field carries.
func RDataText(rr dns.RR) string {
	return strings.TrimPrefix(rr.String(), rr.Header().String())
}

// newRR builds a resource record from its presentation-form parts.
func newRR(name string, rrtype uint16, ttl uint32, data string) (dns.RR, error) {
	typeStr, ok := dns.TypeToString[rrtype]
	if !ok {
		typeStr = fmt.Sprintf("TYPE%d", rrtype)
	}
	rr, err := dns.NewRR(fmt.Sprintf("%s %d IN %s %s", dns.Fqdn(name), ttl, typeStr, data))
	if err != nil {
		return nil, fmt.Errorf("codec: parse rdata %q: %w", data, err)
	}
	return rr, nil
}
