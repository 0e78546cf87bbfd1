// Package addrcodec defines the 6-byte wire address used throughout the
// membership protocol and the bit-exact codec for it.
package addrcodec

import (
	"encoding/binary"
	"fmt"
)

// Size is the on-wire byte length of an Address: a 4-byte id followed by a
// 2-byte port, little-endian.
const Size = 6

// Address is an opaque 6-byte peer identifier: (id uint32, port uint16).
// Two addresses are equal iff their bytes are equal.
type Address [Size]byte

// Null is the all-zero address.
var Null Address

// Introducer is the well-known bootstrap address every joiner contacts
// first: id=1, port=0.
var Introducer = New(1, 0)

// New builds an Address from its id and port fields.
func New(id uint32, port uint16) Address {
	var a Address
	binary.LittleEndian.PutUint32(a[0:4], id)
	binary.LittleEndian.PutUint16(a[4:6], port)
	return a
}

// ID returns the 4-byte id field.
func (a Address) ID() uint32 {
	return binary.LittleEndian.Uint32(a[0:4])
}

// Port returns the 2-byte port field.
func (a Address) Port() uint16 {
	return binary.LittleEndian.Uint16(a[4:6])
}

// Equal reports byte-wise equality.
func (a Address) Equal(b Address) bool {
	return a == b
}

// IsNull reports whether a is the all-zero address.
func (a Address) IsNull() bool {
	return a == Null
}

// Encode returns the 6-byte little-endian wire form of a.
func Encode(a Address) []byte {
	out := make([]byte, Size)
	copy(out, a[:])
	return out
}

// Decode reads a 6-byte little-endian address from buf. buf must be at
// least Size bytes.
func Decode(buf []byte) (Address, error) {
	if len(buf) < Size {
		return Address{}, fmt.Errorf("addrcodec: buffer too short: have %d want %d", len(buf), Size)
	}
	var a Address
	copy(a[:], buf[:Size])
	return a, nil
}

func (a Address) String() string {
	return fmt.Sprintf("%d:%d", a.ID(), a.Port())
}
