// Package h1 is the thin application-protocol layer that sits on top
// of the M1 core (§1, §4.7, §6.2). It is a caller of pkg/stack, not
// part of the core: it registers itself under one data_type tag and
// demultiplexes further by its own cmd_type/cmd_id pair.
package h1

import (
	"github.com/vectorlink/m1proto/pkg/dispatch"
	"github.com/vectorlink/m1proto/pkg/frame"
	"github.com/vectorlink/m1proto/pkg/stack"
	"github.com/vectorlink/m1proto/pkg/status"
)

// Host identifiers from the original protocol's device map (§3 of
// SPEC_FULL.md); kept as named constants for examples and tests, since
// spec.md's S1-S3 scenarios address exactly these hosts.
const (
	HostMaster = 0x10
	HostSlave  = 0x11
	HostPC     = 0x12
	HostSource = HostPC
)

// DataType is the M1 data_type tag the H1 layer registers under.
// spec.md's S3 scenario dispatches a ping request to data_type=1.
const DataType = 1

// SendAttr distinguishes an H1 request from its response.
type SendAttr uint8

const (
	SendReq  SendAttr = 0
	SendResp SendAttr = 1
)

// RespAttr tells the receiver whether and when to respond.
type RespAttr uint8

const (
	RespNoAck     RespAttr = 0
	RespAckNow    RespAttr = 1
	RespAckFinish RespAttr = 2
)

const (
	CmdTypeCommon uint8 = 0

	CmdIDPing          uint8 = 0x00
	CmdIDGetDeviceInfo uint8 = 0x01
)

// FrameHead is the 3-byte H1 header carried as the first bytes of an M1
// frame's payload (h1_frame_head_t: send_attr:2, resp_attr:2,
// reserved_attr:4 packed into one byte, then cmd_type, cmd_id).
type FrameHead struct {
	SendAttr SendAttr
	RespAttr RespAttr
	CmdType  uint8
	CmdID    uint8
}

// Pack encodes the 3-byte header.
func (h FrameHead) Pack() [3]byte {
	var b [3]byte
	b[0] = byte(h.SendAttr&0x03) | byte(h.RespAttr&0x03)<<2
	b[1] = h.CmdType
	b[2] = h.CmdID
	return b
}

// UnpackFrameHead decodes the 3-byte header from the front of an M1
// payload. It returns SHORT-equivalent status.NoData if buf has fewer
// than 3 bytes.
func UnpackFrameHead(buf []byte) (FrameHead, []byte, status.Status) {
	if len(buf) < 3 {
		return FrameHead{}, nil, status.NoData
	}
	h := FrameHead{
		SendAttr: SendAttr(buf[0] & 0x03),
		RespAttr: RespAttr((buf[0] >> 2) & 0x03),
		CmdType:  buf[1],
		CmdID:    buf[2],
	}
	return h, buf[3:], status.OK
}

// CmdHandler processes one decoded H1 command body.
type CmdHandler func(sourceID, targetID uint8, body []byte) status.Status

// Layer demultiplexes M1's single DataType tag by (cmd_type, cmd_id).
// Only CmdTypeCommon is defined by this repo; a different cmd_type is
// dropped with NOT_EXIST exactly like an unregistered M1 data_type.
type Layer struct {
	handlers map[uint8]CmdHandler
}

// NewLayer creates an empty H1 command table.
func NewLayer() *Layer {
	return &Layer{handlers: make(map[uint8]CmdHandler)}
}

// Register installs h for cmdID under CmdTypeCommon.
func (l *Layer) Register(cmdID uint8, h CmdHandler) {
	l.handlers[cmdID] = h
}

// RxCallback returns the stack.RxCallback that wires this layer into a
// stack's dispatch table under DataType.
func (l *Layer) RxCallback() stack.RxCallback {
	return stack.RxCallback{DataType: DataType, Handler: l.dispatch}
}

func (l *Layer) dispatch(view dispatch.RxView) status.Status {
	head, body, s := UnpackFrameHead(view.Payload)
	if !s.Ok() {
		return s
	}
	if head.CmdType != CmdTypeCommon {
		return status.NotExist
	}
	h, ok := l.handlers[head.CmdID]
	if !ok {
		return status.NotExist
	}
	return h(view.SourceID, view.TargetID, body)
}

// send builds an H1 frame head + body and submits it through s.
func send(s *stack.Stack, sourceID, targetID uint8, reliable bool, head FrameHead, body []byte) status.Status {
	headBytes := head.Pack()
	payload := make([]byte, 0, 3+len(body))
	payload = append(payload, headBytes[:]...)
	payload = append(payload, body...)

	attrs := frame.Attributes{}
	if reliable {
		attrs.Reliable = frame.ReliableRequest
	}

	return s.Submit(stack.SubmitRequest{
		TargetIDs: []uint8{targetID},
		Version:   0,
		DataType:  DataType,
		Attrs:     attrs,
		Payload:   payload,
	})
}
