package forwarder

import (
	"context"
	"net"
	"testing"
	"time"

	"dnsdig/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerStartShutdown(t *testing.T) {
	h := newTestHandler(nil, &fakeUpstream{resp: testAnswer(t, 60)})
	s := New("127.0.0.1:0", h, logging.NewDefault())

	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}

func TestServerBindFailure(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	h := newTestHandler(nil, &fakeUpstream{resp: testAnswer(t, 60)})
	s := New(conn.LocalAddr().String(), h, logging.NewDefault())

	err = s.Start(context.Background())
	assert.ErrorContains(t, err, "failed to bind")
}

func TestServerDoubleStart(t *testing.T) {
	h := newTestHandler(nil, &fakeUpstream{resp: testAnswer(t, 60)})
	s := New("127.0.0.1:0", h, logging.NewDefault())

	require.NoError(t, s.Start(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	}()

	assert.Error(t, s.Start(context.Background()))
}

func TestShutdownBeforeStart(t *testing.T) {
	h := newTestHandler(nil, &fakeUpstream{resp: testAnswer(t, 60)})
	s := New("127.0.0.1:0", h, logging.NewDefault())

	assert.NoError(t, s.Shutdown(context.Background()))
}
