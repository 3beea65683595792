package wire

import (
	"bytes"
	"math/rand"
	"testing"
)

func u32(v uint32) *uint32 { return &v }

func randStatus(r *rand.Rand) *Status {
	s := &Status{Version: randBytes(r, 1+r.Intn(8))}
	if r.Intn(2) == 0 {
		s.MTU = u32(r.Uint32())
	}
	if r.Intn(2) == 0 {
		s.CorrelationID = u32(r.Uint32())
	}
	if r.Intn(2) == 0 {
		s.Update = &UpdateStatus{Version: randBytes(r, 1+r.Intn(8)), Offset: r.Uint32()}
	}
	return s
}

func randBytes(r *rand.Rand, n int) []byte {
	b := make([]byte, n)
	r.Read(b)
	return b
}

func randCommand(r *rand.Rand) Command {
	var corr *uint32
	if r.Intn(2) == 0 {
		corr = u32(r.Uint32())
	}
	switch r.Intn(4) {
	case 0:
		w := &Wait{CorrelationIDValue: corr}
		if r.Intn(2) == 0 {
			w.Poll = u32(r.Uint32())
		}
		return w
	case 1:
		s := &Sync{Version: randBytes(r, 1+r.Intn(8)), CorrelationIDValue: corr}
		if r.Intn(2) == 0 {
			s.Poll = u32(r.Uint32())
		}
		return s
	case 2:
		return &Write{
			Version:            randBytes(r, 1+r.Intn(8)),
			CorrelationIDValue: corr,
			Offset:             r.Uint32(),
			Data:               randBytes(r, r.Intn(64)),
		}
	default:
		return &Swap{
			Version:            randBytes(r, 1+r.Intn(8)),
			CorrelationIDValue: corr,
			Checksum:           PadChecksum(randBytes(r, 32)),
		}
	}
}

// TestStatusBinaryRoundTrip exercises S8: encode/decode 1000 randomized
// Status frames and assert field-for-field equality.
func TestStatusBinaryRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		want := randStatus(r)
		b, err := EncodeStatusBinary(want)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeStatusBinary(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		assertStatusEqual(t, want, got)
	}
}

func TestCommandBinaryRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		want := randCommand(r)
		b, err := EncodeCommandBinary(want)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeCommandBinary(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		assertCommandEqual(t, want, got)
	}
}

func TestStatusJSONRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		want := randStatus(r)
		b, err := EncodeStatusJSON(want)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeStatusJSON(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		assertStatusEqual(t, want, got)
	}
}

func TestCommandJSONRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for i := 0; i < 200; i++ {
		want := randCommand(r)
		b, err := EncodeCommandJSON(want)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeCommandJSON(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		assertCommandEqual(t, want, got)
	}
}

// TestDecodeStatusBinaryStrict asserts invariant 7 / §4.1 strictness: a
// truncated array is a decode error, never a partially-populated Status.
func TestDecodeStatusBinaryStrict(t *testing.T) {
	full, err := EncodeStatusBinary(&Status{Version: []byte("1.0.0"), MTU: u32(64)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeStatusBinary(full[:len(full)-2]); err == nil {
		t.Fatalf("expected decode error for truncated frame")
	}
}

func TestDecodeCommandBinaryUnknownDiscriminant(t *testing.T) {
	if _, err := DecodeCommandBinary([]byte{0xFF}); err == nil {
		t.Fatalf("expected error for unknown discriminant")
	}
}

func TestPadChecksum(t *testing.T) {
	short := PadChecksum([]byte{0x01, 0x02})
	if short[0] != 0x01 || short[1] != 0x02 || short[31] != 0 {
		t.Fatalf("short checksum not left-aligned/zero-padded: %x", short)
	}

	long := make([]byte, 40)
	for i := range long {
		long[i] = byte(i)
	}
	padded := PadChecksum(long)
	if !bytes.Equal(padded[:], long[:32]) {
		t.Fatalf("long checksum not truncated to first 32 bytes: %x", padded)
	}
}

func assertStatusEqual(t *testing.T, want, got *Status) {
	t.Helper()
	if !bytes.Equal(want.Version, got.Version) {
		t.Fatalf("version mismatch: want %x got %x", want.Version, got.Version)
	}
	if !ptrU32Equal(want.MTU, got.MTU) {
		t.Fatalf("mtu mismatch: want %v got %v", want.MTU, got.MTU)
	}
	if !ptrU32Equal(want.CorrelationID, got.CorrelationID) {
		t.Fatalf("correlation_id mismatch: want %v got %v", want.CorrelationID, got.CorrelationID)
	}
	if (want.Update == nil) != (got.Update == nil) {
		t.Fatalf("update presence mismatch: want %v got %v", want.Update, got.Update)
	}
	if want.Update != nil {
		if !bytes.Equal(want.Update.Version, got.Update.Version) || want.Update.Offset != got.Update.Offset {
			t.Fatalf("update mismatch: want %+v got %+v", want.Update, got.Update)
		}
	}
}

func assertCommandEqual(t *testing.T, want, got Command) {
	t.Helper()
	if want.Type() != got.Type() {
		t.Fatalf("type mismatch: want %v got %v", want.Type(), got.Type())
	}
	if !ptrU32Equal(want.CorrelationID(), got.CorrelationID()) {
		t.Fatalf("correlation_id mismatch: want %v got %v", want.CorrelationID(), got.CorrelationID())
	}
	switch w := want.(type) {
	case *Wait:
		g := got.(*Wait)
		if !ptrU32Equal(w.Poll, g.Poll) {
			t.Fatalf("wait poll mismatch: want %v got %v", w.Poll, g.Poll)
		}
	case *Sync:
		g := got.(*Sync)
		if !bytes.Equal(w.Version, g.Version) || !ptrU32Equal(w.Poll, g.Poll) {
			t.Fatalf("sync mismatch: want %+v got %+v", w, g)
		}
	case *Write:
		g := got.(*Write)
		if !bytes.Equal(w.Version, g.Version) || w.Offset != g.Offset || !bytes.Equal(w.Data, g.Data) {
			t.Fatalf("write mismatch: want %+v got %+v", w, g)
		}
	case *Swap:
		g := got.(*Swap)
		if !bytes.Equal(w.Version, g.Version) || w.Checksum != g.Checksum {
			t.Fatalf("swap mismatch: want %+v got %+v", w, g)
		}
	}
}

func ptrU32Equal(a, b *uint32) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
