package mock

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"syscall"

	"github.com/encodeous/sospf/impl"
	"github.com/encodeous/sospf/protocol"
)

// Network is an in-memory protocol.Transport, every connection is a net.Pipe
type Network struct {
	mu        sync.Mutex
	listeners map[netip.AddrPort]*Listener
	nextPort  uint16
	dials     int
}

func NewNetwork() *Network {
	return &Network{
		listeners: make(map[netip.AddrPort]*Listener),
		nextPort:  40000,
	}
}

// Dials returns how many connections have been attempted, successful or not
func (n *Network) Dials() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dials
}

func (n *Network) Connect(ctx context.Context, addr netip.AddrPort) (protocol.Conn, error) {
	n.mu.Lock()
	n.dials++
	l, ok := n.listeners[addr]
	n.mu.Unlock()
	if !ok {
		return nil, &net.OpError{Op: "dial", Net: "pipe", Err: syscall.ECONNREFUSED}
	}
	local, remote := net.Pipe()
	select {
	case l.incoming <- remote:
		return impl.NewLink(local), nil
	case <-l.closed:
		local.Close()
		remote.Close()
		return nil, &net.OpError{Op: "dial", Net: "pipe", Err: syscall.ECONNREFUSED}
	case <-ctx.Done():
		local.Close()
		remote.Close()
		return nil, ctx.Err()
	}
}

func (n *Network) Listen(ctx context.Context, addr netip.AddrPort) (protocol.Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if addr.Port() == 0 {
		for {
			addr = netip.AddrPortFrom(addr.Addr(), n.nextPort)
			n.nextPort++
			if _, ok := n.listeners[addr]; !ok {
				break
			}
		}
	}
	if _, ok := n.listeners[addr]; ok {
		return nil, &net.OpError{Op: "listen", Net: "pipe", Err: syscall.EADDRINUSE}
	}
	l := &Listener{
		network:  n,
		addr:     addr,
		incoming: make(chan net.Conn),
		closed:   make(chan struct{}),
	}
	n.listeners[addr] = l
	return l, nil
}

type Listener struct {
	network  *Network
	addr     netip.AddrPort
	incoming chan net.Conn
	closed   chan struct{}
	once     sync.Once
}

func (l *Listener) Accept() (protocol.Conn, error) {
	select {
	case c := <-l.incoming:
		return impl.NewLink(c), nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

func (l *Listener) Addr() netip.AddrPort {
	return l.addr
}

func (l *Listener) Close() error {
	l.once.Do(func() {
		l.network.mu.Lock()
		delete(l.network.listeners, l.addr)
		l.network.mu.Unlock()
		close(l.closed)
	})
	return nil
}
