package forwarder

import (
	"context"
	"time"

	"dnsdig/pkg/cache"
	"dnsdig/pkg/codec"
	"dnsdig/pkg/logging"
	"dnsdig/pkg/upstream"

	"dnsdig/pkg/analytics"

	"github.com/miekg/dns"
)

// Handler resolves one datagram at a time: cache lookup, upstream fetch
// on miss, response, then latency recording. Decode failures, missing
// questions and upstream errors all drop the datagram without a reply;
// UDP clients retransmit.
type Handler struct {
	Cache     *cache.Cache
	Upstream  upstream.Client
	Recorder  *analytics.Recorder
	Blocklist Blocklist
	Logger    *logging.Logger

	// Timeout bounds one datagram's cache and upstream work.
	Timeout time.Duration
}

var _ dns.Handler = (*Handler)(nil)

// ServeDNS implements the dns.Handler interface. Each datagram runs in
// its own goroutine under the server, so handling here is synchronous.
func (h *Handler) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	start := time.Now()
	queriesTotal.Inc()

	if len(r.Question) == 0 {
		droppedTotal.WithLabelValues("no_question").Inc()
		return
	}
	q := r.Question[0]

	h.Logger.Info("Received query",
		"id", r.Id,
		"client", w.RemoteAddr().String(),
		"name", q.Name,
		"type", q.Qtype,
	)

	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()

	if h.Blocklist != nil {
		blocked, err := h.Blocklist.Blocked(ctx, q.Name)
		if err != nil {
			h.Logger.Warn("Blocklist check failed", "name", q.Name, "error", err)
		} else if blocked {
			blockedTotal.Inc()
			m := new(dns.Msg)
			m.SetRcode(r, dns.RcodeNameError)
			h.writeMsg(w, m)
			return
		}
	}

	resp, hit, err := h.resolve(ctx, r)
	if err != nil {
		h.Logger.Error("Upstream query failed", "id", r.Id, "name", q.Name, "error", err)
		droppedTotal.WithLabelValues("upstream_error").Inc()
		return
	}
	if hit {
		cacheHitsTotal.Inc()
	} else {
		cacheMissesTotal.Inc()
	}

	// Clients match replies to queries by id; the cached message keeps
	// whatever id the upstream fetch carried.
	resp.Id = r.Id

	elapsed := time.Since(start)
	resolveDuration.Observe(elapsed.Seconds())

	h.Logger.Info("Sending response",
		"id", r.Id,
		"name", q.Name,
		"type", q.Qtype,
		"took_ms", elapsed.Milliseconds(),
		"cache_hit", hit,
	)

	h.writeMsg(w, resp)

	// The response is already on the wire; recording stays off the
	// critical path.
	if h.Recorder != nil && len(resp.Answer) > 0 {
		h.Recorder.Record(q.Name, q.Qtype, float64(elapsed.Microseconds())/1000.0, resp.Answer[0].Header().Ttl)
	}
}

// resolve returns the response for r, from cache when possible. The hit
// flag reports whether the answer came from the cache.
func (h *Handler) resolve(ctx context.Context, r *dns.Msg) (*dns.Msg, bool, error) {
	q := r.Question[0]

	if h.Cache == nil {
		resp, err := h.Upstream.Query(ctx, r)
		return resp, false, err
	}

	key := cache.Key(q.Name, q.Qtype)
	raw, hit, err := h.Cache.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, time.Duration, error) {
		resp, err := h.Upstream.Query(ctx, r)
		if err != nil {
			return nil, 0, err
		}

		buf, err := codec.Encode(resp)
		if err != nil {
			return nil, 0, err
		}

		// Responses without answers are never cached; the entry TTL is
		// the first answer rrset's TTL.
		var ttl time.Duration
		if len(resp.Answer) > 0 {
			ttl = time.Duration(resp.Answer[0].Header().Ttl) * time.Second
		}
		return buf, ttl, nil
	})
	if err != nil {
		return nil, false, err
	}

	resp, err := codec.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	return resp, hit, nil
}

// writeMsg sends a reply, ignoring write failures; there is no way to
// notify the client at that point.
func (h *Handler) writeMsg(w dns.ResponseWriter, m *dns.Msg) {
	if err := w.WriteMsg(m); err != nil {
		h.Logger.Debug("Failed to write response", "error", err)
	}
}
