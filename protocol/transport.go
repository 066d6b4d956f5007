package protocol

import (
	"context"
	"net/netip"

	"github.com/google/uuid"
)

// Conn is a bidirectional, ordered stream of packets to one peer
type Conn interface {
	Id() uuid.UUID
	Send(p *Packet) error
	// Receive blocks until a whole packet has arrived
	Receive() (*Packet, error)
	Close() error
}

type Listener interface {
	Accept() (Conn, error)
	Addr() netip.AddrPort
	Close() error
}

// Transport moves packets between routers, it is the only way the router engine touches the network
type Transport interface {
	Connect(ctx context.Context, addr netip.AddrPort) (Conn, error)
	Listen(ctx context.Context, addr netip.AddrPort) (Listener, error)
}
