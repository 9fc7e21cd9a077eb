// Package records converts per-type textual DNS record forms into typed
// results for the aggregation API.
package records

import (
	"encoding/json"

	"dnsdig/pkg/geo"
)

// Kind discriminates Record variants in JSON output.
type Kind string

// Record kinds.
const (
	KindMx  Kind = "MX"
	KindSoa Kind = "SOA"
	KindTxt Kind = "TXT"
	KindNs  Kind = "NS"
	KindIP  Kind = "IP"
	KindRaw Kind = "RAW"
)

// Record is the tagged union of parsed record types. JSON serialization
// of every variant carries a "kind" discriminator.
type Record interface {
	Kind() Kind
}

// Mx is a parsed MX record; the hostname has its trailing dot stripped.
type Mx struct {
	Priority uint16 `json:"priority"`
	Hostname string `json:"hostname"`
	TTL      uint32 `json:"ttl"`
}

func (Mx) Kind() Kind { return KindMx }

func (m Mx) MarshalJSON() ([]byte, error) {
	type alias Mx
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindMx, alias(m)})
}

// Soa is a parsed SOA record. Email has the first dot replaced by "@",
// matching how the zone format encodes the responsible mailbox.
type Soa struct {
	PrimaryNS string `json:"primaryNs"`
	Email     string `json:"email"`
	Serial    uint32 `json:"serial"`
	Refresh   uint32 `json:"refresh"`
	Retry     uint32 `json:"retry"`
	Expire    uint32 `json:"expire"`
	Minimum   uint32 `json:"minimum"`
	TTL       uint32 `json:"ttl"`
}

func (Soa) Kind() Kind { return KindSoa }

func (s Soa) MarshalJSON() ([]byte, error) {
	type alias Soa
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindSoa, alias(s)})
}

// Txt is a parsed TXT record with the double quotes stripped.
type Txt struct {
	Text string `json:"text"`
	TTL  uint32 `json:"ttl"`
}

func (Txt) Kind() Kind { return KindTxt }

func (t Txt) MarshalJSON() ([]byte, error) {
	type alias Txt
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindTxt, alias(t)})
}

// Ns is a parsed NS record; the hostname has its trailing dot stripped.
type Ns struct {
	Hostname string `json:"hostname"`
	TTL      uint32 `json:"ttl"`
}

func (Ns) Kind() Kind { return KindNs }

func (n Ns) MarshalJSON() ([]byte, error) {
	type alias Ns
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindNs, alias(n)})
}

// IP wraps a geo-enriched address record (A or AAAA).
type IP struct {
	geo.Location
}

func (IP) Kind() Kind { return KindIP }

func (i IP) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		geo.Location
	}{KindIP, i.Location})
}

// Raw carries record types the aggregator passes through untouched
// (PTR, CNAME, SRV and anything unrecognized).
type Raw struct {
	Data string `json:"data"`
	TTL  uint32 `json:"ttl"`
}

func (Raw) Kind() Kind { return KindRaw }

func (r Raw) MarshalJSON() ([]byte, error) {
	type alias Raw
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindRaw, alias(r)})
}
