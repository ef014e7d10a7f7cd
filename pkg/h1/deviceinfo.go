package h1

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/vectorlink/m1proto/pkg/stack"
	"github.com/vectorlink/m1proto/pkg/status"
)

// DeviceInfoID enumerates the requestable device info fields.
// H1_DEVICE_INFO_ID_NONE is the only id the original ever switches on.
type DeviceInfoID uint8

const DeviceInfoIDNone DeviceInfoID = 0

// DeviceInfoRequest is the CBOR body of h1_get_device_info_req_t.
type DeviceInfoRequest struct {
	ID DeviceInfoID `cbor:"id"`
}

// DeviceInfoResponse is the CBOR body of h1_get_device_info_resp_t.
type DeviceInfoResponse struct {
	ID     DeviceInfoID `cbor:"id"`
	Result uint8        `cbor:"result"`
	Size   uint8        `cbor:"size"`
	Data   []byte       `cbor:"data"`
}

// IsValid reports whether a device info response is well-formed. The
// original's h1_cmd_get_device_info_resp checks
// `resp->result = 0 && resp->size > 0 && strlen(resp->data) > 0`,
// which is an assignment inside a boolean context — it always
// evaluates false, and the branch guarded by it (the success path)
// never runs. The evidently intended check is an equality comparison;
// that is what this function implements (see DESIGN.md).
func (r DeviceInfoResponse) IsValid() bool {
	return r.Result == 0 && r.Size > 0 && len(r.Data) > 0
}

// GetDeviceInfo requests id from targetID.
func GetDeviceInfo(s *stack.Stack, sourceID, targetID uint8, id DeviceInfoID) status.Status {
	body, err := cbor.Marshal(DeviceInfoRequest{ID: id})
	if err != nil {
		return status.Inval
	}
	head := FrameHead{SendAttr: SendReq, RespAttr: RespAckNow, CmdType: CmdTypeCommon, CmdID: CmdIDGetDeviceInfo}
	return send(s, sourceID, targetID, false, head, body)
}

// DeviceInfoResponder answers a GetDeviceInfo request using lookup to
// resolve the requested field's value.
func DeviceInfoResponder(s *stack.Stack, lookup func(DeviceInfoID) (data []byte, ok bool)) CmdHandler {
	return func(sourceID, targetID uint8, body []byte) status.Status {
		var req DeviceInfoRequest
		if err := cbor.Unmarshal(body, &req); err != nil {
			return status.Inval
		}

		resp := DeviceInfoResponse{ID: req.ID, Result: 1}
		if data, ok := lookup(req.ID); ok {
			resp.Result = 0
			resp.Data = data
			resp.Size = uint8(len(data))
		}

		respBody, err := cbor.Marshal(resp)
		if err != nil {
			return status.Inval
		}

		head := FrameHead{SendAttr: SendResp, RespAttr: RespNoAck, CmdType: CmdTypeCommon, CmdID: CmdIDGetDeviceInfo}
		return send(s, targetID, sourceID, false, head, respBody)
	}
}
