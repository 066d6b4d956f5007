package impl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/encodeous/sospf/protocol"
)

var ErrFrameSize = errors.New("packet size is invalid")

func receive(r io.Reader) (*protocol.Packet, error) {
	var length uint32

	err := binary.Read(r, binary.BigEndian, &(length))
	if err != nil {
		return nil, err
	}

	if length == 0 || length > protocol.MaxPacketSize {
		return nil, fmt.Errorf("%w: %d", ErrFrameSize, length)
	}

	data := make([]byte, length)

	_, err = io.ReadFull(r, data)
	if err != nil {
		return nil, err
	}

	return protocol.Unmarshal(data)
}

// send writes the length and body with one Write, so a frame is never split across writers
func send(w io.Writer, p *protocol.Packet) error {
	out, err := p.Marshal()
	if err != nil {
		return err
	}

	if len(out) == 0 || len(out) > protocol.MaxPacketSize {
		return fmt.Errorf("%w: %d", ErrFrameSize, len(out))
	}

	frame := make([]byte, 4+len(out))
	binary.BigEndian.PutUint32(frame, uint32(len(out)))
	copy(frame[4:], out)

	_, err = w.Write(frame)
	return err
}
