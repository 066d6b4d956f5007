package mock

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"syscall"
	"testing"

	"github.com/encodeous/sospf/protocol"
	"github.com/encodeous/sospf/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNetworkPipe(t *testing.T) {
	defer goleak.VerifyNone(t)
	n := NewNetwork()
	l, err := n.Listen(context.Background(), netip.MustParseAddrPort("127.0.0.1:0"))
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, uint16(40000), l.Addr().Port())

	done := make(chan *protocol.Packet)
	go func() {
		c, err := l.Accept()
		if !assert.NoError(t, err) {
			close(done)
			return
		}
		defer c.Close()
		p, err := c.Receive()
		assert.NoError(t, err)
		done <- p
	}()

	c, err := n.Connect(context.Background(), l.Addr())
	require.NoError(t, err)
	defer c.Close()
	src := state.RouterDesc{Addr: netip.MustParseAddrPort("127.0.0.1:1"), Id: "1.1.1.1"}
	require.NoError(t, c.Send(protocol.NewHello(src, "2.2.2.2", 1)))
	p := <-done
	require.NotNil(t, p)
	assert.Equal(t, src.Id, p.SrcId)
	assert.Equal(t, 1, n.Dials())
}

func TestNetworkRefused(t *testing.T) {
	n := NewNetwork()
	_, err := n.Connect(context.Background(), netip.MustParseAddrPort("127.0.0.1:9"))
	assert.True(t, errors.Is(err, syscall.ECONNREFUSED))

	addr := netip.MustParseAddrPort("127.0.0.1:9")
	l, err := n.Listen(context.Background(), addr)
	require.NoError(t, err)
	_, err = n.Listen(context.Background(), addr)
	assert.ErrorIs(t, err, syscall.EADDRINUSE)

	require.NoError(t, l.Close())
	_, err = l.Accept()
	assert.ErrorIs(t, err, net.ErrClosed)
	_, err = n.Connect(context.Background(), addr)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Equal(t, 2, n.Dials())
}
