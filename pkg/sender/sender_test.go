package sender

import (
	"testing"

	"github.com/vectorlink/m1proto/pkg/frame"
	"github.com/vectorlink/m1proto/pkg/link"
	"github.com/vectorlink/m1proto/pkg/packet"
	"github.com/vectorlink/m1proto/pkg/router"
	"github.com/vectorlink/m1proto/pkg/status"
	"github.com/vectorlink/m1proto/pkg/txpool"
)

type recordingDriver struct {
	txCalls [][]byte
}

func (d *recordingDriver) Tx(buf []byte) status.Status {
	d.txCalls = append(d.txCalls, append([]byte(nil), buf...))
	return status.OK
}
func (d *recordingDriver) Rx(buf []byte) (int, status.Status)    { return 0, status.OK }
func (d *recordingDriver) GetState() (link.State, status.Status) { return link.StateIdle, status.OK }

func TestSendEncodesAndTransmits(t *testing.T) {
	pool := txpool.New(1024)
	drv := &recordingDriver{}
	route := router.Route{Name: "r1", TargetID: 0x10, Tx: drv}

	pkt := packet.Packet{SourceID: 0x12, TargetID: 0x10, Payload: []byte{0x01, 0x02}}
	if s := Send(pool, route, pkt); !s.Ok() {
		t.Fatalf("Send: %v", s)
	}
	if len(drv.txCalls) != 1 {
		t.Fatalf("expected 1 Tx call, got %d", len(drv.txCalls))
	}
	if len(drv.txCalls[0]) != frame.WireLen(len(pkt.Payload)) {
		t.Fatalf("transmitted frame length = %d, want %d", len(drv.txCalls[0]), frame.WireLen(len(pkt.Payload)))
	}
	if pool.Used() != 0 {
		t.Fatalf("pool.Used() after Send = %d, want 0 (buffer always freed)", pool.Used())
	}
}

func TestSendNoSpace(t *testing.T) {
	pool := txpool.New(4) // too small for any real frame
	drv := &recordingDriver{}
	route := router.Route{Name: "r1", TargetID: 0x10, Tx: drv}

	pkt := packet.Packet{SourceID: 0x12, TargetID: 0x10, Payload: []byte{0x01}}
	if s := Send(pool, route, pkt); s != status.NoSpace {
		t.Fatalf("Send over budget = %v, want NO_SPACE", s)
	}
	if len(drv.txCalls) != 0 {
		t.Fatalf("driver should not be called when allocation fails")
	}
}
