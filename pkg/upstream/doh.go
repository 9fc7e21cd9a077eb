package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"dnsdig/pkg/codec"
	"dnsdig/pkg/logging"

	"github.com/miekg/dns"
)

// defaultDoHEndpoint is Google's JSON resolve API.
const defaultDoHEndpoint = "https://dns.google/resolve"

// bootstrapTTL is how long the resolved address of the DoH host is
// reused. Resolving it through ourselves would be circular, so the
// bootstrap goes through the system resolver, rarely.
const bootstrapTTL = 24 * time.Hour

// DoH queries the Google JSON resolve API over a single long-lived
// HTTPS client.
type DoH struct {
	endpoint string
	client   *http.Client
	logger   *logging.Logger
}

// NewDoH creates a DoH client against the given endpoint URL; empty
// selects the default. The underlying transport keeps a warm connection
// pool and caches the bootstrap DNS resolution for a day.
func NewDoH(endpoint string, timeout time.Duration, logger *logging.Logger) *DoH {
	if endpoint == "" {
		endpoint = defaultDoHEndpoint
	}

	dialer := &bootstrapDialer{
		dialer: &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		},
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	logger.Info("DoH upstream client initialized", "endpoint", endpoint, "timeout", timeout)

	return &DoH{
		endpoint: endpoint,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: logger,
	}
}

var _ Client = (*DoH)(nil)

// Query resolves m's question through the JSON API and reconstructs a
// wire message from the reply. Non-2xx statuses and malformed JSON are
// upstream errors.
func (d *DoH) Query(ctx context.Context, m *dns.Msg) (*dns.Msg, error) {
	if len(m.Question) == 0 {
		return nil, errors.New("upstream: message has no question")
	}
	q := m.Question[0]

	reqURL := fmt.Sprintf("%s?name=%s&type=%d", d.endpoint, url.QueryEscape(q.Name), q.Qtype)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: building doh request: %w", err)
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: doh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upstream: doh status %d", resp.StatusCode)
	}

	var doh codec.DoHMessage
	if err := json.NewDecoder(resp.Body).Decode(&doh); err != nil {
		return nil, fmt.Errorf("upstream: decoding doh json: %w", err)
	}

	out, err := codec.FromDoHJSON(&doh, true)
	if err != nil {
		return nil, fmt.Errorf("upstream: reconstructing message: %w", err)
	}

	// The JSON reply carries no transaction id or question echo beyond
	// what we asked; restore the question so callers see a normal reply.
	out.Question = []dns.Question{q}

	d.logger.Debug("DoH query completed",
		"name", q.Name,
		"type", q.Qtype,
		"status", doh.Status,
		"answers", len(out.Answer),
	)

	return out, nil
}

// bootstrapDialer resolves hostnames through the system resolver and
// pins the result for bootstrapTTL, so the forwarder never depends on
// itself to reach its own upstream.
type bootstrapDialer struct {
	dialer *net.Dialer

	mu       sync.Mutex
	resolved map[string]bootstrapEntry
}

type bootstrapEntry struct {
	addr      string
	expiresAt time.Time
}

func (b *bootstrapDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return b.dialer.DialContext(ctx, network, addr)
	}

	// IP literals need no bootstrap.
	if net.ParseIP(host) != nil {
		return b.dialer.DialContext(ctx, network, addr)
	}

	ip, err := b.resolve(ctx, host)
	if err != nil {
		return nil, err
	}

	return b.dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

func (b *bootstrapDialer) resolve(ctx context.Context, host string) (string, error) {
	now := time.Now()

	b.mu.Lock()
	if b.resolved == nil {
		b.resolved = make(map[string]bootstrapEntry)
	}
	entry, ok := b.resolved[host]
	b.mu.Unlock()

	if ok && now.Before(entry.expiresAt) {
		return entry.addr, nil
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil || len(ips) == 0 {
		if ok {
			// Stale is better than unreachable.
			return entry.addr, nil
		}
		return "", fmt.Errorf("upstream: bootstrap resolution of %q: %w", host, err)
	}

	b.mu.Lock()
	b.resolved[host] = bootstrapEntry{
		addr:      ips[0].String(),
		expiresAt: now.Add(bootstrapTTL),
	}
	b.mu.Unlock()

	return ips[0].String(), nil
}
