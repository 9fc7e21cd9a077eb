package codec

import (
	"github.com/miekg/dns"
)

// DoHQuestion is a question item in the DoH JSON representation.
type DoHQuestion struct {
	Name string `json:"name"`
	Type uint16 `json:"type"`
}

// DoHRR is an answer/authority/additional item in the DoH JSON
// representation. TTL and Data are absent for empty rrsets.
type DoHRR struct {
	Name string  `json:"name"`
	Type uint16  `json:"type"`
	TTL  *uint32 `json:"TTL,omitempty"`
	Data string  `json:"data,omitempty"`
}

// DoHMessage mirrors the JSON replies of https://dns.google/resolve.
// AA is omitted and QR is implied, per that format; the remaining header
// flags travel as booleans.
type DoHMessage struct {
	Status int  `json:"Status"`
	TC     bool `json:"TC"`
	RD     bool `json:"RD"`
	RA     bool `json:"RA"`
	AD     bool `json:"AD"`
	CD     bool `json:"CD"`

	Question   []DoHQuestion `json:"Question"`
	Answer     []DoHRR       `json:"Answer,omitempty"`
	Authority  []DoHRR       `json:"Authority,omitempty"`
	Additional []DoHRR       `json:"Additional,omitempty"`
}

// ToDoHJSON converts a DNS message to its DoH JSON representation.
// The ECS client-subnet field is not encoded.
func ToDoHJSON(m *dns.Msg) *DoHMessage {
	doh := &DoHMessage{
		Status: m.Rcode,
		TC:     m.Truncated,
		RD:     m.RecursionDesired,
		RA:     m.RecursionAvailable,
		AD:     m.AuthenticatedData,
		CD:     m.CheckingDisabled,
	}

	for _, q := range m.Question {
		doh.Question = append(doh.Question, DoHQuestion{Name: q.Name, Type: q.Qtype})
	}
	doh.Answer = flattenSection(m.Answer)
	doh.Authority = flattenSection(m.Ns)
	doh.Additional = flattenSection(m.Extra)

	return doh
}

// FromDoHJSON reconstructs a DNS message from its DoH JSON representation.
// DoH JSON is only used in replies, so callers normally pass implyQR=true
// to set the QR bit the format leaves out. Class is fixed to IN; ECS is
// not decoded.
func FromDoHJSON(doh *DoHMessage, implyQR bool) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.Rcode = doh.Status
	m.Truncated = doh.TC
	m.RecursionDesired = doh.RD
	m.RecursionAvailable = doh.RA
	m.AuthenticatedData = doh.AD
	m.CheckingDisabled = doh.CD
	if implyQR {
		m.Response = true
	}

	for _, q := range doh.Question {
		m.Question = append(m.Question, dns.Question{
			Name:   dns.Fqdn(q.Name),
			Qtype:  q.Type,
			Qclass: dns.ClassINET,
		})
	}

	var err error
	if m.Answer, err = unflattenSection(doh.Answer); err != nil {
		return nil, err
	}
	if m.Ns, err = unflattenSection(doh.Authority); err != nil {
		return nil, err
	}
	if m.Extra, err = unflattenSection(doh.Additional); err != nil {
		return nil, err
	}

	return m, nil
}

func flattenSection(rrs []dns.RR) []DoHRR {
	var items []DoHRR
	for _, rr := range rrs {
		hdr := rr.Header()
		ttl := hdr.Ttl
		items = append(items, DoHRR{
			Name: hdr.Name,
			Type: hdr.Rrtype,
			TTL:  &ttl,
			Data: RDataText(rr),
		})
	}
	return items
}

func unflattenSection(items []DoHRR) ([]dns.RR, error) {
	var rrs []dns.RR
	for _, item := range items {
		if item.Data == "" {
			// A {name, type} item marks an empty rrset; there is no
			// record to materialize.
			continue
		}
		var ttl uint32
		if item.TTL != nil {
			ttl = *item.TTL
		}
		rr, err := newRR(item.Name, item.Type, ttl, item.Data)
		if err != nil {
			return nil, err
		}
		rrs = append(rrs, rr)
	}
	return rrs, nil
}
