package router

import (
	"testing"

	"github.com/vectorlink/m1proto/pkg/link"
	"github.com/vectorlink/m1proto/pkg/status"
)

type recordingDriver struct {
	txCalls [][]byte
}

func (d *recordingDriver) Tx(buf []byte) status.Status {
	cp := append([]byte(nil), buf...)
	d.txCalls = append(d.txCalls, cp)
	return status.OK
}
func (d *recordingDriver) Rx(buf []byte) (int, status.Status)   { return 0, status.OK }
func (d *recordingDriver) GetState() (link.State, status.Status) { return link.StateIdle, status.OK }

func TestIsLocal(t *testing.T) {
	ids := []uint8{0x12, 0x13}
	if !IsLocal(ids, 0x12) {
		t.Fatalf("0x12 should be local")
	}
	if IsLocal(ids, 0x10) {
		t.Fatalf("0x10 should not be local")
	}
}

func TestFindByTarget(t *testing.T) {
	routes := []Route{{TargetID: 0x10}, {TargetID: 0x11}}
	if idx, ok := FindByTarget(routes, 0x11); !ok || idx != 1 {
		t.Fatalf("FindByTarget(0x11) = (%d, %v), want (1, true)", idx, ok)
	}
	if _, ok := FindByTarget(routes, 0x99); ok {
		t.Fatalf("FindByTarget(0x99) should not match")
	}
}

// TestS6RouteForward checks a frame destined for a non-local target is
// forwarded unchanged onto the matching route's Tx driver.
func TestS6RouteForward(t *testing.T) {
	r2Driver := &recordingDriver{}
	routes := []Route{
		{Name: "r1", TargetID: 0x10},
		{Name: "r2", TargetID: 0x11, Tx: r2Driver},
	}

	raw := []byte{0x55, 0xDE, 0xAD, 0xBE, 0xEF}
	if s := Forward(routes, 0x11, raw); !s.Ok() {
		t.Fatalf("Forward: %v", s)
	}
	if len(r2Driver.txCalls) != 1 {
		t.Fatalf("expected exactly 1 Tx call on R2, got %d", len(r2Driver.txCalls))
	}
	got := r2Driver.txCalls[0]
	if len(got) != len(raw) {
		t.Fatalf("forwarded frame length mismatch: got %d, want %d", len(got), len(raw))
	}
	for i := range raw {
		if got[i] != raw[i] {
			t.Fatalf("forwarded bytes mutated at offset %d: got %#02x, want %#02x", i, got[i], raw[i])
		}
	}
}

func TestForwardNoRoute(t *testing.T) {
	routes := []Route{{TargetID: 0x10}}
	if s := Forward(routes, 0x99, []byte{0x01}); s != status.NotExist {
		t.Fatalf("Forward to unknown target = %v, want NOT_EXIST", s)
	}
}

func TestStampSeqWrapsModulo256(t *testing.T) {
	seqNext := []uint8{255}
	first := StampSeq(seqNext, 0)
	second := StampSeq(seqNext, 0)
	if first != 255 {
		t.Fatalf("first stamp = %d, want 255", first)
	}
	if second != 0 {
		t.Fatalf("second stamp = %d, want 0 (wrapped)", second)
	}
}

func TestSelectOutboundAutoSeqAdvances(t *testing.T) {
	routes := []Route{{TargetID: 0x10}}
	seqNext := []uint8{5}

	idx, seq, s := SelectOutbound(routes, seqNext, 0x10, true, 0)
	if !s.Ok() || idx != 0 || seq != 5 {
		t.Fatalf("SelectOutbound = (%d, %d, %v), want (0, 5, OK)", idx, seq, s)
	}
	if seqNext[0] != 6 {
		t.Fatalf("seqNext[0] = %d, want 6 after auto-stamp", seqNext[0])
	}

	// Retransmit path: autoSeq=false must preserve the caller-supplied
	// seq_num and must not advance the counter.
	idx, seq, s = SelectOutbound(routes, seqNext, 0x10, false, 5)
	if !s.Ok() || idx != 0 || seq != 5 {
		t.Fatalf("retransmit SelectOutbound = (%d, %d, %v), want (0, 5, OK)", idx, seq, s)
	}
	if seqNext[0] != 6 {
		t.Fatalf("seqNext[0] should not advance on retransmit, got %d", seqNext[0])
	}
}

func TestSelectOutboundNoRoute(t *testing.T) {
	var routes []Route
	var seqNext []uint8
	if _, _, s := SelectOutbound(routes, seqNext, 0x10, true, 0); s != status.NotExist {
		t.Fatalf("SelectOutbound with empty route table = %v, want NOT_EXIST", s)
	}
}
