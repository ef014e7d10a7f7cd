package frame

import (
	"encoding/binary"

	"github.com/vectorlink/m1proto/pkg/crc"
	"github.com/vectorlink/m1proto/pkg/status"
)

// Encode writes f into out per §3.1: header, payload, crc8 at offset
// 11, crc16 at the tail. out must be exactly WireLen(len(f.Payload))
// bytes; Encode returns INVAL otherwise. The crc8 field protects bytes
// [0..12) including itself; the crc16 field protects the whole frame
// up to its own position.
func Encode(f Frame, out []byte) status.Status {
	n := len(f.Payload)
	if len(out) != WireLen(n) {
		return status.Inval
	}

	out[0] = SOF
	out[1] = (f.Version & 0x0F) | (f.DataType&0x0F)<<4
	out[2] = f.SourceID
	out[3] = f.TargetID

	lsb, msb := f.Attrs.Pack()
	out[4] = lsb
	out[5] = msb

	binary.LittleEndian.PutUint16(out[6:8], uint16(n))
	out[8] = f.SeqNum
	out[9] = f.AckNum
	out[10] = 0 // reserved

	copy(out[HeaderSize:HeaderSize+n], f.Payload)

	if s := crc.PackU8(crc.HeaderTable, out[:HeaderSize]); !s.Ok() {
		return s
	}
	return crc.PackU16LE(crc.PayloadTable, out[:HeaderSize+n+TrailerSize])
}

// Decode parses the §3.1 fields out of buf into a Frame whose Payload
// aliases buf. It does not verify crc8/crc16 — that is the framer's
// (pkg/link) job while assembling the frame byte by byte. Decode
// returns SHORT-equivalent status.NoData if buf is shorter than the
// declared frame length.
func Decode(buf []byte) (Frame, status.Status) {
	if len(buf) < HeaderSize+TrailerSize {
		return Frame{}, status.NoData
	}

	dataLen := int(binary.LittleEndian.Uint16(buf[6:8]))
	if len(buf) < WireLen(dataLen) {
		return Frame{}, status.NoData
	}

	f := Frame{
		Version:  buf[1] & 0x0F,
		DataType: (buf[1] >> 4) & 0x0F,
		SourceID: buf[2],
		TargetID: buf[3],
		Attrs:    UnpackAttributes(buf[4], buf[5]),
		SeqNum:   buf[8],
		AckNum:   buf[9],
		Payload:  buf[HeaderSize : HeaderSize+dataLen],
	}

	return f, status.OK
}
