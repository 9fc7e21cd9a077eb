// Package aggregator concurrently queries a fixed set of public
// recursive resolvers and collates typed records per resolver.
package aggregator

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"dnsdig/pkg/codec"
	"dnsdig/pkg/logging"
	"dnsdig/pkg/records"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
)

// metadataKey is the reserved result key describing non-error empty
// responses and categorized failures.
const metadataKey = "metadata"

// Outcome kinds reported in metadata entries.
const (
	kindNXDomain     = "NXDOMAIN"
	kindNoAnswer     = "NoAnswer"
	kindTimeout      = "Timeout"
	kindNetworkError = "NetworkError"
	kindParseError   = "ParseError"
)

// ExchangeFunc performs one stub query against a nameserver address.
// Injectable for tests; production uses a plain UDP dns.Client.
type ExchangeFunc func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error)

// Options adjust a single Resolve call.
type Options struct {
	// UseIPv6 selects the resolvers' IPv6 endpoints. It does not
	// constrain the queried record type.
	UseIPv6 bool

	// Nameserver, when set, overrides the per-resolver random pick.
	Nameserver string
}

// Result maps resolver names to their parsed records, plus metadata
// strings for empty or failed lookups. The key set is always the full
// resolver set plus "metadata".
type Result struct {
	Records  map[string][]records.Record
	Metadata []string
}

// MarshalJSON flattens the result into the map-of-lists wire shape.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Records)+1)
	for name, recs := range r.Records {
		out[name] = recs
	}
	out[metadataKey] = r.Metadata
	return json.Marshal(out)
}

// Aggregator fans one question out to every resolver in the set.
type Aggregator struct {
	set      map[string]Resolver
	parser   *records.Parser
	exchange ExchangeFunc
	logger   *logging.Logger
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithExchange replaces the stub-query transport.
func WithExchange(fn ExchangeFunc) Option {
	return func(a *Aggregator) { a.exchange = fn }
}

// WithSet replaces the resolver set.
func WithSet(set map[string]Resolver) Option {
	return func(a *Aggregator) { a.set = set }
}

// New creates an aggregator over the default resolver set.
func New(parser *records.Parser, logger *logging.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		set:      DefaultSet(),
		parser:   parser,
		exchange: defaultExchange(5 * time.Second),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func defaultExchange(timeout time.Duration) ExchangeFunc {
	return func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
		client := &dns.Client{Net: "udp", Timeout: timeout}
		resp, _, err := client.ExchangeContext(ctx, m, addr)
		return resp, err
	}
}

// Resolve queries every resolver concurrently for (qname, qtype) and
// returns once all have completed, successfully or not.
func (a *Aggregator) Resolve(ctx context.Context, qname string, qtype uint16, opts Options) (*Result, error) {
	result := &Result{
		Records:  make(map[string][]records.Record, len(a.set)),
		Metadata: []string{},
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	for name, resolver := range a.set {
		name, resolver := name, resolver
		g.Go(func() error {
			ns := opts.Nameserver
			if ns == "" {
				if opts.UseIPv6 {
					ns = resolver.Random6()
				} else {
					ns = resolver.Random()
				}
			}

			recs, kind := a.queryOne(ctx, ns, qname, qtype)

			mu.Lock()
			result.Records[name] = recs
			if kind != "" {
				result.Metadata = append(result.Metadata, name+": "+kind)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

// queryOne runs the stub query against one nameserver and parses the
// answers. A non-empty kind categorizes why the record list is empty.
func (a *Aggregator) queryOne(ctx context.Context, ns, qname string, qtype uint16) ([]records.Record, string) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(qname), qtype)
	m.RecursionDesired = true

	resp, err := a.exchange(ctx, m, net.JoinHostPort(ns, "53"))
	if err != nil {
		a.logger.Debug("Stub query failed", "nameserver", ns, "name", qname, "error", err)
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return []records.Record{}, kindTimeout
		}
		return []records.Record{}, kindNetworkError
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return []records.Record{}, kindNXDomain
	default:
		return []records.Record{}, dns.RcodeToString[resp.Rcode]
	}

	// The chaining result's TTL is the minimum across the answer chain,
	// CNAMEs included.
	var minTTL uint32
	var answers []dns.RR
	for _, rr := range resp.Answer {
		if ttl := rr.Header().Ttl; minTTL == 0 || ttl < minTTL {
			minTTL = ttl
		}
		if rr.Header().Rrtype == qtype {
			answers = append(answers, rr)
		}
	}
	if len(answers) == 0 {
		return []records.Record{}, kindNoAnswer
	}

	recs := make([]records.Record, 0, len(answers))
	for _, rr := range answers {
		rec, err := a.parser.Parse(ctx, qtype, codec.RDataText(rr), minTTL)
		if err != nil {
			a.logger.Debug("Failed to parse record", "nameserver", ns, "name", qname, "error", err)
			return []records.Record{}, kindParseError
		}
		recs = append(recs, rec)
	}

	return recs, ""
}
