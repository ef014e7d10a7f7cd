// Package packet defines the logical, send-side packet produced by the
// orchestrator and consumed by the router and link sender (§3.2).
package packet

import "github.com/vectorlink/m1proto/pkg/frame"

// DefaultRetryBudget and DefaultWaitMS are the compile-time defaults of
// §6.4 (ack_wait_ms=1000, max_retry=5).
const (
	DefaultRetryBudget = 5
	DefaultWaitMS      = 1000
)

// Packet is the send-side view described in §3.2. SourceID is filled in
// by the caller (or the stack, from its configured source id);
// SeqNum is filled from router.SelectOutbound's result. The egress
// route is not stored here: SelectOutbound returns its index.
type Packet struct {
	SourceID uint8
	TargetID uint8

	Version  uint8
	DataType uint8

	Attrs frame.Attributes

	SeqNum uint8
	AckNum uint8

	// AutoSeq records whether SeqNum is to be stamped from the route's
	// seq_next counter. The router does not read this field: stamping is
	// selected by the autoSeq argument of router.SelectOutbound.
	AutoSeq bool

	Payload []byte

	// RetryBudget and WaitDeadlineMS are meaningful only when
	// Attrs.Reliable == frame.ReliableRequest.
	RetryBudget    uint8
	WaitDeadlineMS int32
}

// ToFrame converts a routed packet into the wire-level frame the codec
// encodes. The caller must have already resolved SeqNum/AckNum.
func (p Packet) ToFrame() frame.Frame {
	return frame.Frame{
		Version:  p.Version,
		DataType: p.DataType,
		SourceID: p.SourceID,
		TargetID: p.TargetID,
		Attrs:    p.Attrs,
		SeqNum:   p.SeqNum,
		AckNum:   p.AckNum,
		Payload:  p.Payload,
	}
}
