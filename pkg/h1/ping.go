package h1

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/vectorlink/m1proto/pkg/stack"
	"github.com/vectorlink/m1proto/pkg/status"
)

// PingPayload is the CBOR-encoded body of both h1_cmd_ping_req and
// h1_cmd_ping_resp, which share the same {size, data[]} shape in the
// original.
type PingPayload struct {
	Size uint8  `cbor:"size"`
	Data []byte `cbor:"data"`
}

// Ping sends a ping request carrying data to targetID and registers no
// response waiting — the response arrives asynchronously through the
// registered CmdIDPing handler on the SendResp side, exactly as the H1
// layer's request/response pair works in the original.
func Ping(s *stack.Stack, sourceID, targetID uint8, data []byte) status.Status {
	body, err := cbor.Marshal(PingPayload{Size: uint8(len(data)), Data: data})
	if err != nil {
		return status.Inval
	}
	head := FrameHead{SendAttr: SendReq, RespAttr: RespAckNow, CmdType: CmdTypeCommon, CmdID: CmdIDPing}
	return send(s, sourceID, targetID, false, head, body)
}

// PingResponder replies to every inbound ping request it is registered
// for, echoing the request payload back with SendResp set.
func PingResponder(s *stack.Stack) CmdHandler {
	return func(sourceID, targetID uint8, body []byte) status.Status {
		var req PingPayload
		if err := cbor.Unmarshal(body, &req); err != nil {
			return status.Inval
		}

		resp, err := cbor.Marshal(PingPayload{Size: req.Size, Data: req.Data})
		if err != nil {
			return status.Inval
		}

		head := FrameHead{SendAttr: SendResp, RespAttr: RespNoAck, CmdType: CmdTypeCommon, CmdID: CmdIDPing}
		// source_id/target_id swap: the responder is "targetID" from
		// the caller's point of view.
		return send(s, targetID, sourceID, false, head, resp)
	}
}
