package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"dnsdig/pkg/geo"
	"dnsdig/pkg/logging"
	"dnsdig/pkg/records"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnricher struct{}

func (stubEnricher) Lookup(ctx context.Context, ip string, ttl uint32) geo.Location {
	return geo.Location{IP: ip, TTL: ttl}
}

func newTestAggregator(t *testing.T, exchange ExchangeFunc) *Aggregator {
	t.Helper()
	parser := records.NewParser(stubEnricher{})
	return New(parser, logging.NewDefault(), WithExchange(exchange))
}

func resolverNames() []string {
	return []string{"cloudflare", "google", "opendns"}
}

func nxdomainExchange(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
	resp := new(dns.Msg)
	resp.SetRcode(m, dns.RcodeNameError)
	return resp, nil
}

func answerExchange(t *testing.T, rrText string) ExchangeFunc {
	rr, err := dns.NewRR(rrText)
	require.NoError(t, err)

	return func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
		resp := new(dns.Msg)
		resp.SetReply(m)
		resp.Answer = append(resp.Answer, dns.Copy(rr))
		return resp, nil
	}
}

func TestResolveNXDomain(t *testing.T) {
	a := newTestAggregator(t, nxdomainExchange)

	result, err := a.Resolve(context.Background(), "nosuchdomain.invalid", dns.TypeA, Options{})
	require.NoError(t, err)

	for _, name := range resolverNames() {
		assert.Empty(t, result.Records[name])
		assert.Contains(t, result.Metadata, name+": NXDOMAIN")
	}
	assert.Len(t, result.Metadata, 3)
}

func TestResolveMx(t *testing.T) {
	a := newTestAggregator(t, answerExchange(t, "google.com. 300 IN MX 10 smtp.google.com."))

	result, err := a.Resolve(context.Background(), "google.com", dns.TypeMX, Options{})
	require.NoError(t, err)

	assert.Empty(t, result.Metadata)
	for _, name := range resolverNames() {
		recs := result.Records[name]
		require.Len(t, recs, 1)
		assert.Equal(t, records.Mx{Priority: 10, Hostname: "smtp.google.com", TTL: 300}, recs[0])
	}
}

func TestResolveNoAnswer(t *testing.T) {
	a := newTestAggregator(t, func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
		resp := new(dns.Msg)
		resp.SetReply(m)
		return resp, nil
	})

	result, err := a.Resolve(context.Background(), "example.com", dns.TypeMX, Options{})
	require.NoError(t, err)

	for _, name := range resolverNames() {
		assert.Empty(t, result.Records[name])
		assert.Contains(t, result.Metadata, name+": NoAnswer")
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestResolveTimeout(t *testing.T) {
	a := newTestAggregator(t, func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
		return nil, timeoutError{}
	})

	result, err := a.Resolve(context.Background(), "example.com", dns.TypeA, Options{})
	require.NoError(t, err)

	for _, name := range resolverNames() {
		assert.Contains(t, result.Metadata, name+": Timeout")
	}
}

func TestResolveNetworkError(t *testing.T) {
	a := newTestAggregator(t, func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
		return nil, errors.New("connection refused")
	})

	result, err := a.Resolve(context.Background(), "example.com", dns.TypeA, Options{})
	require.NoError(t, err)

	for _, name := range resolverNames() {
		assert.Contains(t, result.Metadata, name+": NetworkError")
	}
}

func TestResolveParseError(t *testing.T) {
	// The parser sees SOA arity, but the rdata carries only two fields:
	// the rrtype is relabeled after construction.
	rr, err := dns.NewRR(`example.com. 60 IN MX 10 smtp.example.com.`)
	require.NoError(t, err)

	a := newTestAggregator(t, func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
		resp := new(dns.Msg)
		resp.SetReply(m)
		bad := dns.Copy(rr)
		bad.Header().Rrtype = dns.TypeSOA
		resp.Answer = append(resp.Answer, bad)
		return resp, nil
	})

	result, err := a.Resolve(context.Background(), "example.com", dns.TypeSOA, Options{})
	require.NoError(t, err)

	for _, name := range resolverNames() {
		assert.Empty(t, result.Records[name])
		assert.Contains(t, result.Metadata, name+": ParseError")
	}
}

// The result map's keys are always exactly the resolver set plus
// metadata, whatever the outcome.
func TestResultSchema(t *testing.T) {
	a := newTestAggregator(t, nxdomainExchange)

	result, err := a.Resolve(context.Background(), "example.com", dns.TypeA, Options{})
	require.NoError(t, err)

	b, err := json.Marshal(result)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))

	assert.ElementsMatch(t,
		[]string{"cloudflare", "google", "opendns", "metadata"},
		keys(m),
	)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestResolveExplicitNameserver(t *testing.T) {
	var mu sync.Mutex
	var addrs []string
	a := newTestAggregator(t, func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
		mu.Lock()
		addrs = append(addrs, addr)
		mu.Unlock()
		resp := new(dns.Msg)
		resp.SetRcode(m, dns.RcodeNameError)
		return resp, nil
	})

	_, err := a.Resolve(context.Background(), "example.com", dns.TypeA, Options{Nameserver: "9.9.9.9"})
	require.NoError(t, err)

	require.Len(t, addrs, 3)
	for _, addr := range addrs {
		assert.Equal(t, "9.9.9.9:53", addr)
	}
}

func TestResolveUsesMinimumChainTTL(t *testing.T) {
	cname, err := dns.NewRR("www.example.com. 30 IN CNAME example.com.")
	require.NoError(t, err)
	a1, err := dns.NewRR("example.com. 300 IN A 192.0.2.1")
	require.NoError(t, err)

	a := newTestAggregator(t, func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
		resp := new(dns.Msg)
		resp.SetReply(m)
		resp.Answer = append(resp.Answer, dns.Copy(cname), dns.Copy(a1))
		return resp, nil
	})

	result, err := a.Resolve(context.Background(), "www.example.com", dns.TypeA, Options{})
	require.NoError(t, err)

	recs := result.Records["google"]
	require.Len(t, recs, 1)
	ip := recs[0].(records.IP)
	assert.Equal(t, uint32(30), ip.TTL, "the chain's minimum TTL wins")
}
