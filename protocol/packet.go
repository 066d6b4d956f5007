package protocol

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/encodeous/sospf/state"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	Magic   = 0x53
	Version = 1
	// MaxPacketSize bounds a single frame on the wire
	MaxPacketSize = 1 << 20
	headerLen     = 3
)

var (
	ErrMalformed          = errors.New("malformed packet")
	ErrUnsupportedVersion = errors.New("unsupported packet version")
)

type PacketType uint8

const (
	TypeHello PacketType = iota
	TypeLSUpdate
)

func (t PacketType) String() string {
	switch t {
	case TypeHello:
		return "HELLO"
	case TypeLSUpdate:
		return "LS_UPDATE"
	default:
		return fmt.Sprintf("PacketType(%d)", uint8(t))
	}
}

// Packet is the single message exchanged between routers
type Packet struct {
	SrcAddr    netip.AddrPort
	SrcId      state.NodeId
	DstId      state.NodeId
	Type       PacketType
	NeighborId state.NodeId
	Weight     uint16      // HELLO only
	Lsas       []state.LSA // LS_UPDATE only
}

func NewHello(src state.RouterDesc, dst state.NodeId, weight uint16) *Packet {
	return &Packet{
		SrcAddr:    src.Addr,
		SrcId:      src.Id,
		DstId:      dst,
		Type:       TypeHello,
		NeighborId: src.Id,
		Weight:     weight,
	}
}

func NewLSUpdate(src state.RouterDesc, dst state.NodeId, lsas []state.LSA) *Packet {
	return &Packet{
		SrcAddr:    src.Addr,
		SrcId:      src.Id,
		DstId:      dst,
		Type:       TypeLSUpdate,
		NeighborId: src.Id,
		Lsas:       lsas,
	}
}

const (
	fieldSrcAddr    protowire.Number = 1
	fieldSrcId      protowire.Number = 2
	fieldDstId      protowire.Number = 3
	fieldNeighborId protowire.Number = 4
	fieldWeight     protowire.Number = 5
	fieldLsa        protowire.Number = 6

	fieldLsaOrigin protowire.Number = 1
	fieldLsaSeqno  protowire.Number = 2
	fieldLsaLink   protowire.Number = 3
	fieldLsaAck    protowire.Number = 4

	fieldLinkNeighbor protowire.Number = 1
	fieldLinkPort     protowire.Number = 2
	fieldLinkWeight   protowire.Number = 3
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendLinkDesc(b []byte, ld state.LinkDesc) []byte {
	b = appendString(b, fieldLinkNeighbor, string(ld.Neighbor))
	b = appendVarint(b, fieldLinkPort, protowire.EncodeZigZag(int64(ld.Port)))
	return appendVarint(b, fieldLinkWeight, uint64(ld.Weight))
}

func appendLSA(b []byte, lsa state.LSA) []byte {
	b = appendString(b, fieldLsaOrigin, string(lsa.Origin))
	b = appendVarint(b, fieldLsaSeqno, protowire.EncodeZigZag(int64(lsa.Seqno)))
	for _, ld := range lsa.Links {
		b = protowire.AppendTag(b, fieldLsaLink, protowire.BytesType)
		b = protowire.AppendBytes(b, appendLinkDesc(nil, ld))
	}
	return appendVarint(b, fieldLsaAck, protowire.EncodeBool(lsa.WithdrawalAck))
}

// Marshal encodes the packet body, without the frame length
func (p *Packet) Marshal() ([]byte, error) {
	if p.Type != TypeHello && p.Type != TypeLSUpdate {
		return nil, fmt.Errorf("%w: unknown type %s", ErrMalformed, p.Type)
	}
	b := []byte{Magic, Version, byte(p.Type)}
	if p.SrcAddr.IsValid() {
		b = appendString(b, fieldSrcAddr, p.SrcAddr.String())
	}
	b = appendString(b, fieldSrcId, string(p.SrcId))
	b = appendString(b, fieldDstId, string(p.DstId))
	b = appendString(b, fieldNeighborId, string(p.NeighborId))
	b = appendVarint(b, fieldWeight, uint64(p.Weight))
	for _, lsa := range p.Lsas {
		b = protowire.AppendTag(b, fieldLsa, protowire.BytesType)
		b = protowire.AppendBytes(b, appendLSA(nil, lsa))
	}
	if len(b) > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the maximum packet size", ErrMalformed, len(b))
	}
	return b, nil
}

// consumeFields walks every field in b, fn returns how many bytes of the value it consumed, or 0 to skip the field
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func expect(num protowire.Number, typ, want protowire.Type) error {
	if typ != want {
		return fmt.Errorf("%w: field %d has wire type %d", ErrMalformed, num, typ)
	}
	return nil
}

func consumeString(num protowire.Number, typ protowire.Type, b []byte, dst *string) (int, error) {
	if err := expect(num, typ, protowire.BytesType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeString(b)
	*dst = v
	return n, nil
}

func consumeVarint(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if err := expect(num, typ, protowire.VarintType); err != nil {
		return 0, 0, err
	}
	v, n := protowire.ConsumeVarint(b)
	return v, n, nil
}

func consumeBytes(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if err := expect(num, typ, protowire.BytesType); err != nil {
		return nil, 0, err
	}
	v, n := protowire.ConsumeBytes(b)
	return v, n, nil
}

func zigzag32(num protowire.Number, v uint64) (int32, error) {
	x := protowire.DecodeZigZag(v)
	if x < -1<<31 || x > 1<<31-1 {
		return 0, fmt.Errorf("%w: field %d overflows int32", ErrMalformed, num)
	}
	return int32(x), nil
}

func uint16Field(num protowire.Number, v uint64) (uint16, error) {
	if v > 0xffff {
		return 0, fmt.Errorf("%w: field %d overflows uint16", ErrMalformed, num)
	}
	return uint16(v), nil
}

func unmarshalLinkDesc(b []byte) (state.LinkDesc, error) {
	var ld state.LinkDesc
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldLinkNeighbor:
			var s string
			n, err := consumeString(num, typ, b, &s)
			ld.Neighbor = state.NodeId(s)
			return n, err
		case fieldLinkPort:
			v, n, err := consumeVarint(num, typ, b)
			if err != nil || n < 0 {
				return n, err
			}
			ld.Port, err = zigzag32(num, v)
			return n, err
		case fieldLinkWeight:
			v, n, err := consumeVarint(num, typ, b)
			if err != nil || n < 0 {
				return n, err
			}
			ld.Weight, err = uint16Field(num, v)
			return n, err
		}
		return 0, nil
	})
	return ld, err
}

func unmarshalLSA(b []byte) (state.LSA, error) {
	var lsa state.LSA
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldLsaOrigin:
			var s string
			n, err := consumeString(num, typ, b, &s)
			lsa.Origin = state.NodeId(s)
			return n, err
		case fieldLsaSeqno:
			v, n, err := consumeVarint(num, typ, b)
			if err != nil || n < 0 {
				return n, err
			}
			lsa.Seqno, err = zigzag32(num, v)
			return n, err
		case fieldLsaLink:
			v, n, err := consumeBytes(num, typ, b)
			if err != nil || n < 0 {
				return n, err
			}
			ld, err := unmarshalLinkDesc(v)
			if err != nil {
				return 0, err
			}
			lsa.Links = append(lsa.Links, ld)
			return n, nil
		case fieldLsaAck:
			v, n, err := consumeVarint(num, typ, b)
			lsa.WithdrawalAck = protowire.DecodeBool(v)
			return n, err
		}
		return 0, nil
	})
	return lsa, err
}

// Unmarshal decodes a packet body produced by Marshal
func Unmarshal(b []byte) (*Packet, error) {
	if len(b) < headerLen {
		return nil, fmt.Errorf("%w: short header", ErrMalformed)
	}
	if b[0] != Magic {
		return nil, fmt.Errorf("%w: bad magic 0x%02x", ErrMalformed, b[0])
	}
	if b[1] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, b[1])
	}
	p := &Packet{Type: PacketType(b[2])}
	if p.Type != TypeHello && p.Type != TypeLSUpdate {
		return nil, fmt.Errorf("%w: unknown type %s", ErrMalformed, p.Type)
	}
	err := consumeFields(b[headerLen:], func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldSrcAddr:
			var s string
			n, err := consumeString(num, typ, b, &s)
			if err != nil || n < 0 {
				return n, err
			}
			p.SrcAddr, err = netip.ParseAddrPort(s)
			if err != nil {
				return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			return n, nil
		case fieldSrcId, fieldDstId, fieldNeighborId:
			var s string
			n, err := consumeString(num, typ, b, &s)
			switch num {
			case fieldSrcId:
				p.SrcId = state.NodeId(s)
			case fieldDstId:
				p.DstId = state.NodeId(s)
			default:
				p.NeighborId = state.NodeId(s)
			}
			return n, err
		case fieldWeight:
			v, n, err := consumeVarint(num, typ, b)
			if err != nil || n < 0 {
				return n, err
			}
			p.Weight, err = uint16Field(num, v)
			return n, err
		case fieldLsa:
			v, n, err := consumeBytes(num, typ, b)
			if err != nil || n < 0 {
				return n, err
			}
			lsa, err := unmarshalLSA(v)
			if err != nil {
				return 0, err
			}
			p.Lsas = append(p.Lsas, lsa)
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
