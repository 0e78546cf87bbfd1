// Package wire frames the three membership messages into and out of byte
// buffers: JOINREQ, JOINREP, and HEARTBEAT. Encoding is little-endian
// throughout and must stay consistent between Encode and Decode — the two
// historically drifted in the reference implementation (see the pad-byte
// note below), which is exactly the bug this package exists to prevent.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"gossipmesh/internal/membership/addrcodec"
)

// Tag identifies the message kind carried by a frame's first byte.
type Tag byte

const (
	TagJoinReq    Tag = 0
	TagJoinRep    Tag = 1
	TagHeartbeat  Tag = 2
	tagSize           = 1
	hbPayloadSize     = addrcodec.Size + 8 + 1 // addr ‖ heartbeat ‖ pad
	countSize         = 4
	entrySize         = 4 + 2 + 8 + 8 // id ‖ port ‖ heartbeat ‖ timestamp
)

// ErrMalformedFrame is returned when a buffer is shorter than its tag and
// declared payload require, or a JOINREP's count overruns the buffer.
var ErrMalformedFrame = errors.New("wire: malformed frame")

// ErrUnknownTag is returned when a frame's leading byte is not one of the
// three known tags.
var ErrUnknownTag = errors.New("wire: unknown tag")

// JoinReq is sent by a joiner to the introducer (or by anyone announcing
// themselves for the first time).
type JoinReq struct {
	SenderAddr      addrcodec.Address
	SenderHeartbeat int64
}

// Heartbeat is the periodic liveness broadcast.
type Heartbeat struct {
	SenderAddr      addrcodec.Address
	SenderHeartbeat int64
}

// JoinRepEntry is one row of a JOINREP's membership snapshot.
type JoinRepEntry struct {
	ID        uint32
	Port      uint16
	Heartbeat int64
	Timestamp int64
}

// JoinRep carries the introducer's (or any replier's) full table snapshot
// back to the joiner.
type JoinRep struct {
	Entries []JoinRepEntry
}

// Encode renders m into its wire bytes. The concrete type of m must be one
// of JoinReq, Heartbeat, or JoinRep; any other type is a programmer error.
func Encode(m any) []byte {
	switch v := m.(type) {
	case JoinReq:
		return encodeHeartbeatShape(TagJoinReq, v.SenderAddr, v.SenderHeartbeat)
	case Heartbeat:
		return encodeHeartbeatShape(TagHeartbeat, v.SenderAddr, v.SenderHeartbeat)
	case JoinRep:
		return encodeJoinRep(v)
	default:
		panic(fmt.Sprintf("wire: Encode: unsupported message type %T", m))
	}
}

func encodeHeartbeatShape(tag Tag, addr addrcodec.Address, hb int64) []byte {
	buf := make([]byte, tagSize+hbPayloadSize)
	buf[0] = byte(tag)
	copy(buf[1:1+addrcodec.Size], addrcodec.Encode(addr))
	binary.LittleEndian.PutUint64(buf[1+addrcodec.Size:1+addrcodec.Size+8], uint64(hb))
	// trailing pad byte left zero; it exists only to preserve buffer-length
	// compatibility with the reference wire format.
	return buf
}

func encodeJoinRep(v JoinRep) []byte {
	buf := make([]byte, tagSize+countSize+len(v.Entries)*entrySize)
	buf[0] = byte(TagJoinRep)
	binary.LittleEndian.PutUint32(buf[1:1+countSize], uint32(len(v.Entries)))
	off := 1 + countSize
	for _, e := range v.Entries {
		binary.LittleEndian.PutUint32(buf[off:off+4], e.ID)
		binary.LittleEndian.PutUint16(buf[off+4:off+6], e.Port)
		binary.LittleEndian.PutUint64(buf[off+6:off+14], uint64(e.Heartbeat))
		binary.LittleEndian.PutUint64(buf[off+14:off+22], uint64(e.Timestamp))
		off += entrySize
	}
	return buf
}

// Decode parses a raw frame, dispatching on its leading tag byte.
func Decode(buf []byte) (any, error) {
	if len(buf) < tagSize {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}
	switch Tag(buf[0]) {
	case TagJoinReq:
		addr, hb, err := decodeHeartbeatShape(buf)
		if err != nil {
			return nil, err
		}
		return JoinReq{SenderAddr: addr, SenderHeartbeat: hb}, nil
	case TagHeartbeat:
		addr, hb, err := decodeHeartbeatShape(buf)
		if err != nil {
			return nil, err
		}
		return Heartbeat{SenderAddr: addr, SenderHeartbeat: hb}, nil
	case TagJoinRep:
		return decodeJoinRep(buf)
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownTag, buf[0])
	}
}

func decodeHeartbeatShape(buf []byte) (addrcodec.Address, int64, error) {
	if len(buf) < tagSize+hbPayloadSize {
		return addrcodec.Address{}, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedFrame, tagSize+hbPayloadSize, len(buf))
	}
	addr, err := addrcodec.Decode(buf[1 : 1+addrcodec.Size])
	if err != nil {
		return addrcodec.Address{}, 0, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	hb := int64(binary.LittleEndian.Uint64(buf[1+addrcodec.Size : 1+addrcodec.Size+8]))
	return addr, hb, nil
}

func decodeJoinRep(buf []byte) (JoinRep, error) {
	if len(buf) < tagSize+countSize {
		return JoinRep{}, fmt.Errorf("%w: truncated count", ErrMalformedFrame)
	}
	n := binary.LittleEndian.Uint32(buf[1 : 1+countSize])
	off := 1 + countSize
	need := off + int(n)*entrySize
	if need < 0 || len(buf) < need {
		return JoinRep{}, fmt.Errorf("%w: declared %d entries needs %d bytes, have %d", ErrMalformedFrame, n, need, len(buf))
	}

	entries := make([]JoinRepEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		id := binary.LittleEndian.Uint32(buf[off : off+4])
		port := binary.LittleEndian.Uint16(buf[off+4 : off+6])
		hb := int64(binary.LittleEndian.Uint64(buf[off+6 : off+14]))
		ts := int64(binary.LittleEndian.Uint64(buf[off+14 : off+22]))
		entries = append(entries, JoinRepEntry{ID: id, Port: port, Heartbeat: hb, Timestamp: ts})
		off += entrySize
	}
	return JoinRep{Entries: entries}, nil
}
