// Package upstream issues forwarder queries to public recursive
// resolvers over encrypted transports (DoT or DoH).
package upstream

import (
	"context"
	"math/rand"

	"github.com/miekg/dns"
)

// Client is the upstream query contract shared by both transports.
type Client interface {
	Query(ctx context.Context, m *dns.Msg) (*dns.Msg, error)
}

// Endpoint is one upstream resolver address and the hostname used for
// TLS server-name verification.
type Endpoint struct {
	Addr     string
	Hostname string
}

// DefaultEndpoints is the stock upstream pool: Google and Cloudflare.
var DefaultEndpoints = []Endpoint{
	{Addr: "8.8.8.8", Hostname: "dns.google"},
	{Addr: "8.8.4.4", Hostname: "dns.google"},
	{Addr: "1.1.1.1", Hostname: "one.one.one.one"},
	{Addr: "1.0.0.1", Hostname: "one.one.one.one"},
}

// pick selects one endpoint at random; every query draws independently.
func pick(endpoints []Endpoint) Endpoint {
	return endpoints[rand.Intn(len(endpoints))]
}
