package impl

import (
	"net"
	"sync"

	"github.com/encodeous/sospf/protocol"
	"github.com/google/uuid"
)

// TCPLink frames packets over any stream connection
type TCPLink struct {
	id    uuid.UUID
	Conn  net.Conn
	mutex sync.Mutex
}

func NewLink(conn net.Conn) *TCPLink {
	return &TCPLink{id: uuid.New(), Conn: conn}
}

func (T *TCPLink) Close() error {
	return T.Conn.Close()
}

func (T *TCPLink) Id() uuid.UUID {
	return T.id
}

func (T *TCPLink) Receive() (*protocol.Packet, error) {
	return receive(T.Conn)
}

func (T *TCPLink) Send(p *protocol.Packet) error {
	T.mutex.Lock()
	defer T.mutex.Unlock()
	return send(T.Conn, p)
}
