package upstream

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"dnsdig/pkg/logging"

	"github.com/miekg/dns"
)

// dotPort is the DNS-over-TLS port (RFC 7858).
const dotPort = "853"

// DoT queries upstream resolvers over TLS. Connections are short-lived,
// one per query; the answer cache absorbs enough load that handshake
// cost stays off the hot path.
type DoT struct {
	endpoints []Endpoint
	timeout   time.Duration
	logger    *logging.Logger
}

// NewDoT creates a DoT client over the given endpoints; an empty slice
// falls back to the default pool.
func NewDoT(endpoints []Endpoint, timeout time.Duration, logger *logging.Logger) *DoT {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}

	logger.Info("DoT upstream client initialized",
		"endpoints", len(endpoints),
		"timeout", timeout,
	)

	return &DoT{
		endpoints: endpoints,
		timeout:   timeout,
		logger:    logger,
	}
}

var _ Client = (*DoT)(nil)

// Query sends m to one randomly chosen upstream over TLS.
func (d *DoT) Query(ctx context.Context, m *dns.Msg) (*dns.Msg, error) {
	ep := pick(d.endpoints)

	client := &dns.Client{
		Net:     "tcp-tls",
		Timeout: d.timeout,
		TLSConfig: &tls.Config{
			ServerName: ep.Hostname,
		},
	}

	resp, rtt, err := client.ExchangeContext(ctx, m, net.JoinHostPort(ep.Addr, dotPort))
	if err != nil {
		return nil, fmt.Errorf("upstream: dot exchange with %s: %w", ep.Addr, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("upstream: nil response from %s", ep.Addr)
	}

	d.logger.Debug("DoT query completed",
		"upstream", ep.Addr,
		"rtt", rtt,
		"answers", len(resp.Answer),
	)

	return resp, nil
}
