package link

import (
	"bytes"
	"testing"

	"github.com/vectorlink/m1proto/pkg/frame"
)

func encodeVector(t *testing.T, f frame.Frame) []byte {
	t.Helper()
	out := make([]byte, frame.WireLen(len(f.Payload)))
	if s := frame.Encode(f, out); !s.Ok() {
		t.Fatalf("encode vector: %v", s)
	}
	return out
}

func feed(p *Parser, raw []byte) [][]byte {
	var frames [][]byte
	for _, b := range raw {
		if out, done := p.Step(b); done {
			frames = append(frames, out)
		}
	}
	return frames
}

// TestParserS1HappyPath feeds the S1 non-reliable vector byte by byte
// and expects exactly one completed frame with matching stats.
func TestParserS1HappyPath(t *testing.T) {
	raw := encodeVector(t, frame.Frame{
		SourceID: 0x12,
		TargetID: 0x10,
		Attrs:    frame.Attributes{Reliable: frame.NotReliable},
		Payload:  []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
	})

	p := NewParser("test", 64)
	frames := feed(p, raw)

	if len(frames) != 1 {
		t.Fatalf("expected 1 completed frame, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], raw) {
		t.Fatalf("completed frame mismatch: got % x, want % x", frames[0], raw)
	}

	st := p.Stats()
	if st.TotalBytes != uint64(len(raw)) {
		t.Fatalf("total_bytes = %d, want %d", st.TotalBytes, len(raw))
	}
	if st.SofOk != 1 || st.Crc8Ok != 1 || st.Crc16Ok != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.Crc8Err != 0 || st.Crc16Err != 0 || st.LenOverflow != 0 {
		t.Fatalf("unexpected error counters: %+v", st)
	}
}

// TestParserNotFrameBytesBeforeSOF checks junk bytes ahead of a real
// frame are counted byte-for-byte with no state leak into the frame
// that follows, per §7/§8 boundary behavior.
func TestParserNotFrameBytesBeforeSOF(t *testing.T) {
	raw := encodeVector(t, frame.Frame{
		SourceID: 0x12,
		TargetID: 0x10,
		Payload:  []byte{0xAA},
	})
	junk := []byte{0x01, 0x02, 0x03}

	p := NewParser("test", 64)
	frames := feed(p, append(append([]byte{}, junk...), raw...))

	if len(frames) != 1 {
		t.Fatalf("expected 1 completed frame, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], raw) {
		t.Fatalf("frame mismatch after junk prefix: got % x, want % x", frames[0], raw)
	}
	if p.Stats().NotFrameBytes != uint64(len(junk)) {
		t.Fatalf("not_frame_bytes = %d, want %d", p.Stats().NotFrameBytes, len(junk))
	}
}

// TestParserS4CRC8Corruption takes the S1 vector and flips one bit in
// its crc8 byte (offset 11). The parser must not advance to payload
// parsing and must count exactly one crc8_err with no delivered frame.
func TestParserS4CRC8Corruption(t *testing.T) {
	raw := encodeVector(t, frame.Frame{
		SourceID: 0x12,
		TargetID: 0x10,
		Payload:  []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
	})
	raw[11] ^= 0x01

	p := NewParser("test", 64)
	frames := feed(p, raw)

	if len(frames) != 0 {
		t.Fatalf("expected no delivered frame on crc8 corruption, got %d", len(frames))
	}
	st := p.Stats()
	if st.Crc8Err != 1 {
		t.Fatalf("crc8_err = %d, want 1", st.Crc8Err)
	}
	if st.Crc8Ok != 0 {
		t.Fatalf("crc8_ok = %d, want 0", st.Crc8Ok)
	}
}

// TestParserSpuriousSOFInHeaderDoesNotRestart feeds a header containing
// a byte equal to SOF in a non-SOF position and checks the parser keeps
// treating it as header content rather than restarting the scan.
func TestParserSpuriousSOFInHeaderDoesNotRestart(t *testing.T) {
	raw := encodeVector(t, frame.Frame{
		SourceID: frame.SOF, // deliberately collides with SOF
		TargetID: 0x10,
		Payload:  []byte{0x01, 0x02},
	})

	p := NewParser("test", 64)
	frames := feed(p, raw)

	if len(frames) != 1 {
		t.Fatalf("expected 1 completed frame despite embedded SOF byte, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], raw) {
		t.Fatalf("frame mismatch: got % x, want % x", frames[0], raw)
	}
}

// TestParserLenOverflow builds a frame whose declared data_len exceeds
// the parser's cache capacity and checks it is silently drained and
// counted, with the parser resynchronizing to parse a following valid
// frame cleanly.
func TestParserLenOverflow(t *testing.T) {
	big := make([]byte, 40)
	for i := range big {
		big[i] = byte(i)
	}
	oversized := encodeVector(t, frame.Frame{
		SourceID: 0x12,
		TargetID: 0x10,
		Payload:  big,
	})

	good := encodeVector(t, frame.Frame{
		SourceID: 0x12,
		TargetID: 0x10,
		Payload:  []byte{0x09},
	})

	p := NewParser("test", 8) // cache capacity far smaller than `big`
	frames := feed(p, append(append([]byte{}, oversized...), good...))

	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 completed frame (the good one), got %d", len(frames))
	}
	if !bytes.Equal(frames[0], good) {
		t.Fatalf("unexpected frame delivered: % x", frames[0])
	}
	if p.Stats().LenOverflow != 1 {
		t.Fatalf("len_overflow = %d, want 1", p.Stats().LenOverflow)
	}
}

// TestParserCRC16Corruption flips a trailer byte and checks the frame
// is dropped with crc16_err incremented, not crc8_err.
func TestParserCRC16Corruption(t *testing.T) {
	raw := encodeVector(t, frame.Frame{
		SourceID: 0x12,
		TargetID: 0x10,
		Payload:  []byte{0x01, 0x02, 0x03},
	})
	raw[len(raw)-1] ^= 0xFF

	p := NewParser("test", 64)
	frames := feed(p, raw)

	if len(frames) != 0 {
		t.Fatalf("expected no delivered frame on crc16 corruption, got %d", len(frames))
	}
	st := p.Stats()
	if st.Crc16Err != 1 {
		t.Fatalf("crc16_err = %d, want 1", st.Crc16Err)
	}
	if st.Crc8Ok != 1 {
		t.Fatalf("crc8_ok = %d, want 1 (header was intact)", st.Crc8Ok)
	}
}
