package impl

import (
	"context"
	"net"
	"net/netip"

	"github.com/encodeous/sospf/protocol"
	"github.com/encodeous/sospf/state"
)

// TCPTransport carries each exchange over its own TCP connection
type TCPTransport struct{}

func (t *TCPTransport) Connect(ctx context.Context, addr netip.AddrPort) (protocol.Conn, error) {
	d := net.Dialer{Timeout: state.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return nil, err
	}
	return NewLink(conn), nil
}

func (t *TCPTransport) Listen(ctx context.Context, addr netip.AddrPort) (protocol.Listener, error) {
	config := net.ListenConfig{Control: reuseAddr}
	listener, err := config.Listen(ctx, "tcp", addr.String())
	if err != nil {
		return nil, err
	}
	return &TCPListener{listener}, nil
}

type TCPListener struct {
	net.Listener
}

func (l *TCPListener) Accept() (protocol.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return NewLink(conn), nil
}

func (l *TCPListener) Addr() netip.AddrPort {
	ap := l.Listener.Addr().(*net.TCPAddr).AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
