package codec

import (
	"encoding/json"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResponse(t *testing.T) *dns.Msg {
	t.Helper()

	m := new(dns.Msg)
	m.SetQuestion("example.com.", dns.TypeA)
	m.Response = true
	m.RecursionDesired = true
	m.RecursionAvailable = true

	rr, err := dns.NewRR("example.com. 60 IN A 192.0.2.1")
	require.NoError(t, err)
	m.Answer = append(m.Answer, rr)

	return m
}

func TestToDoHJSON(t *testing.T) {
	m := testResponse(t)

	doh := ToDoHJSON(m)

	assert.Equal(t, 0, doh.Status)
	assert.True(t, doh.RD)
	assert.True(t, doh.RA)
	assert.False(t, doh.TC)

	require.Len(t, doh.Question, 1)
	assert.Equal(t, "example.com.", doh.Question[0].Name)
	assert.Equal(t, dns.TypeA, doh.Question[0].Type)

	require.Len(t, doh.Answer, 1)
	assert.Equal(t, "example.com.", doh.Answer[0].Name)
	assert.Equal(t, dns.TypeA, doh.Answer[0].Type)
	require.NotNil(t, doh.Answer[0].TTL)
	assert.Equal(t, uint32(60), *doh.Answer[0].TTL)
	assert.Equal(t, "192.0.2.1", doh.Answer[0].Data)
}

// Round-trip preserves rcode, question set and per-answer
// (name, type, TTL, rdata-text).
func TestDoHJSONRoundTrip(t *testing.T) {
	m := testResponse(t)
	soa, err := dns.NewRR("example.com. 1800 IN SOA ns1.example.com. hostmaster.example.com. 1 900 900 1800 60")
	require.NoError(t, err)
	m.Ns = append(m.Ns, soa)

	back, err := FromDoHJSON(ToDoHJSON(m), true)
	require.NoError(t, err)

	assert.Equal(t, m.Rcode, back.Rcode)
	assert.True(t, back.Response)
	assert.Equal(t, m.Question, back.Question)

	require.Len(t, back.Answer, 1)
	assert.Equal(t, m.Answer[0].Header().Name, back.Answer[0].Header().Name)
	assert.Equal(t, m.Answer[0].Header().Rrtype, back.Answer[0].Header().Rrtype)
	assert.Equal(t, m.Answer[0].Header().Ttl, back.Answer[0].Header().Ttl)
	assert.Equal(t, RDataText(m.Answer[0]), RDataText(back.Answer[0]))

	require.Len(t, back.Ns, 1)
	assert.Equal(t, RDataText(soa), RDataText(back.Ns[0]))
}

func TestFromDoHJSONImpliesQR(t *testing.T) {
	doh := &DoHMessage{Status: dns.RcodeNameError}

	m, err := FromDoHJSON(doh, true)
	require.NoError(t, err)
	assert.True(t, m.Response)
	assert.Equal(t, dns.RcodeNameError, m.Rcode)

	m, err = FromDoHJSON(doh, false)
	require.NoError(t, err)
	assert.False(t, m.Response)
}

func TestFromDoHJSONSkipsEmptyRRSets(t *testing.T) {
	// Empty rrsets travel as a bare {name, type} item.
	doh := &DoHMessage{
		Answer: []DoHRR{{Name: "example.com.", Type: dns.TypeA}},
	}

	m, err := FromDoHJSON(doh, true)
	require.NoError(t, err)
	assert.Empty(t, m.Answer)
}

func TestDoHJSONWireFormat(t *testing.T) {
	// The Google format this mirrors spells Status and TTL exactly so.
	m := testResponse(t)

	b, err := json.Marshal(ToDoHJSON(m))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))

	assert.Contains(t, raw, "Status")
	assert.Contains(t, raw, "Question")
	assert.Contains(t, raw, "Answer")
	assert.NotContains(t, raw, "AA")

	answers := raw["Answer"].([]any)
	first := answers[0].(map[string]any)
	assert.Contains(t, first, "TTL")
	assert.Contains(t, first, "data")
}
