// Package forwarder is the DNS-over-UDP caching forwarder daemon.
package forwarder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dnsdig/pkg/logging"

	"github.com/miekg/dns"
)

// startupGrace is how long Start waits for an immediate listen error
// (bind failures surface within this window).
const startupGrace = 100 * time.Millisecond

// Server binds the UDP socket and dispatches datagrams to the handler.
// Each datagram is served on its own goroutine by the underlying server,
// so in-flight queries overlap freely; response order is not tied to
// request order.
type Server struct {
	addr    string
	handler *Handler
	logger  *logging.Logger

	mu      sync.Mutex
	udp     *dns.Server
	running bool
}

// New creates a server listening on addr.
func New(addr string, handler *Handler, logger *logging.Logger) *Server {
	return &Server{
		addr:    addr,
		handler: handler,
		logger:  logger,
	}
}

// Start binds the socket and begins serving. A bind failure (address in
// use) is returned to the caller, which treats it as fatal.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("forwarder: server already running")
	}
	s.running = true
	s.udp = &dns.Server{
		Addr:    s.addr,
		Net:     "udp",
		Handler: s.handler,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.udp.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("forwarder: failed to bind %s: %w", s.addr, err)
		}
		return nil
	case <-time.After(startupGrace):
	}

	s.logger.Info("UDP forwarder started", "address", s.addr)
	return nil
}

// Shutdown stops accepting datagrams and lets in-flight queries drain
// within the context's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	udp := s.udp
	s.running = false
	s.mu.Unlock()

	if udp == nil {
		return nil
	}

	if err := udp.ShutdownContext(ctx); err != nil {
		return fmt.Errorf("forwarder: shutdown: %w", err)
	}

	s.logger.Info("UDP forwarder stopped")
	return nil
}
