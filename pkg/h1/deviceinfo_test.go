package h1

import (
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/vectorlink/m1proto/pkg/frame"
)

func TestDeviceInfoResponseIsValid(t *testing.T) {
	cases := []struct {
		name string
		resp DeviceInfoResponse
		want bool
	}{
		{"well formed", DeviceInfoResponse{Result: 0, Size: 3, Data: []byte{1, 2, 3}}, true},
		{"nonzero result", DeviceInfoResponse{Result: 1, Size: 3, Data: []byte{1, 2, 3}}, false},
		{"zero size", DeviceInfoResponse{Result: 0, Size: 0, Data: []byte{1, 2, 3}}, false},
		{"empty data", DeviceInfoResponse{Result: 0, Size: 1, Data: nil}, false},
	}
	for _, c := range cases {
		if got := c.resp.IsValid(); got != c.want {
			t.Errorf("%s: IsValid() = %v, want %v", c.name, got, c.want)
		}
	}
}

// TestDeviceInfoResponderKnownID checks a known device info id produces
// a Result==0 response with the looked-up bytes.
func TestDeviceInfoResponderKnownID(t *testing.T) {
	drv := &fakeDriver{}
	s := newTestStack(t, drv, 0x12, 0x10)

	lookup := func(id DeviceInfoID) ([]byte, bool) {
		if id == DeviceInfoIDNone {
			return []byte("device-x"), true
		}
		return nil, false
	}
	responder := DeviceInfoResponder(s, lookup)

	req := DeviceInfoRequest{ID: DeviceInfoIDNone}
	body, err := cbor.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if st := responder(0x10, 0x12, body); !st.Ok() {
		t.Fatalf("DeviceInfoResponder: %v", st)
	}

	if len(drv.txCalls) != 1 {
		t.Fatalf("expected 1 transmitted reply, got %d", len(drv.txCalls))
	}
	f, st := frame.Decode(drv.txCalls[0])
	if !st.Ok() {
		t.Fatalf("Decode: %v", st)
	}
	_, respBody, st := UnpackFrameHead(f.Payload)
	if !st.Ok() {
		t.Fatalf("UnpackFrameHead: %v", st)
	}
	var resp DeviceInfoResponse
	if err := cbor.Unmarshal(respBody, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.IsValid() {
		t.Fatalf("expected a valid response, got %+v", resp)
	}
	if !bytes.Equal(resp.Data, []byte("device-x")) {
		t.Fatalf("unexpected data: %q", resp.Data)
	}
}

// TestDeviceInfoResponderUnknownID checks an unresolvable id yields a
// nonzero Result and therefore an invalid response, per IsValid's
// typo-fixed semantics.
func TestDeviceInfoResponderUnknownID(t *testing.T) {
	drv := &fakeDriver{}
	s := newTestStack(t, drv, 0x12, 0x10)

	responder := DeviceInfoResponder(s, func(DeviceInfoID) ([]byte, bool) { return nil, false })

	body, err := cbor.Marshal(DeviceInfoRequest{ID: DeviceInfoID(5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if st := responder(0x10, 0x12, body); !st.Ok() {
		t.Fatalf("DeviceInfoResponder: %v", st)
	}

	f, st := frame.Decode(drv.txCalls[0])
	if !st.Ok() {
		t.Fatalf("Decode: %v", st)
	}
	_, respBody, st := UnpackFrameHead(f.Payload)
	if !st.Ok() {
		t.Fatalf("UnpackFrameHead: %v", st)
	}
	var resp DeviceInfoResponse
	if err := cbor.Unmarshal(respBody, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.IsValid() {
		t.Fatalf("an unresolved lookup must not produce a valid response")
	}
}
