package wire

import (
	"errors"
	"testing"

	"gossipmesh/internal/membership/addrcodec"
)

func TestRoundTripJoinReq(t *testing.T) {
	m := JoinReq{SenderAddr: addrcodec.New(2, 51820), SenderHeartbeat: 7}
	got, err := Decode(Encode(m))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != any(m) {
		t.Fatalf("Decode(Encode(m)) = %v, want %v", got, m)
	}
}

func TestRoundTripHeartbeat(t *testing.T) {
	m := Heartbeat{SenderAddr: addrcodec.New(3, 51821), SenderHeartbeat: 99}
	got, err := Decode(Encode(m))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != any(m) {
		t.Fatalf("Decode(Encode(m)) = %v, want %v", got, m)
	}
}

func TestRoundTripJoinRep(t *testing.T) {
	tests := []JoinRep{
		{Entries: nil},
		{Entries: []JoinRepEntry{}},
		{Entries: []JoinRepEntry{
			{ID: 2, Port: 100, Heartbeat: 5, Timestamp: 3},
			{ID: 3, Port: 200, Heartbeat: 9, Timestamp: 8},
		}},
	}
	for _, m := range tests {
		decoded, err := Decode(Encode(m))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		got, ok := decoded.(JoinRep)
		if !ok {
			t.Fatalf("Decode() returned %T, want JoinRep", decoded)
		}
		if len(got.Entries) != len(m.Entries) {
			t.Fatalf("Entries length = %d, want %d", len(got.Entries), len(m.Entries))
		}
		for i := range m.Entries {
			if got.Entries[i] != m.Entries[i] {
				t.Fatalf("Entries[%d] = %v, want %v", i, got.Entries[i], m.Entries[i])
			}
		}
	}
}

func TestJoinReqPadByteLayout(t *testing.T) {
	m := JoinReq{SenderAddr: addrcodec.New(1, 2), SenderHeartbeat: 3}
	buf := Encode(m)
	wantLen := 1 + addrcodec.Size + 8 + 1
	if len(buf) != wantLen {
		t.Fatalf("len(Encode(JoinReq)) = %d, want %d (addr ‖ hb ‖ pad)", len(buf), wantLen)
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := Decode([]byte{99})
	if !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("Decode() error = %v, want ErrUnknownTag", err)
	}
}

func TestDecodeTruncatedHeartbeat(t *testing.T) {
	full := Encode(Heartbeat{SenderAddr: addrcodec.New(1, 2), SenderHeartbeat: 4})
	_, err := Decode(full[:len(full)-1])
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("Decode() error = %v, want ErrMalformedFrame", err)
	}
}

func TestDecodeTruncatedJoinRep(t *testing.T) {
	full := Encode(JoinRep{Entries: []JoinRepEntry{
		{ID: 1, Port: 2, Heartbeat: 3, Timestamp: 4},
		{ID: 5, Port: 6, Heartbeat: 7, Timestamp: 8},
	}})
	// One byte short of what the declared count demands.
	_, err := Decode(full[:len(full)-1])
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("Decode() error = %v, want ErrMalformedFrame", err)
	}
}

func TestDecodeEmptyBuffer(t *testing.T) {
	_, err := Decode(nil)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("Decode() error = %v, want ErrMalformedFrame", err)
	}
}
