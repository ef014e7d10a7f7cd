// Package frame defines the on-wire M1 frame layout and the bit-packed
// attribute byte pair carried in its header.
package frame

// SOF is the constant start-of-frame marker. Any byte outside a frame
// equal to SOF begins a new parse attempt.
const SOF = 0x55

// HeaderSize is the number of header bytes covered by the crc8 field,
// crc8 itself included.
const HeaderSize = 12

// TrailerSize is the width in bytes of the crc16 trailer.
const TrailerSize = 2

// Overhead is the number of non-payload bytes in an encoded frame.
const Overhead = HeaderSize + TrailerSize

// Reliable is the two-bit delivery-attribute enumeration carried in
// attr_lsb.
type Reliable uint8

const (
	// NotReliable packets are sent best-effort; no ack is expected.
	NotReliable Reliable = 0
	// ReliableRequest packets require the receiver to ack.
	ReliableRequest Reliable = 1
	// Ack frames carry no payload and echo the acked seq_num in ack_num.
	Ack Reliable = 2
)

// Attributes is the decoded form of the two attribute bytes (attr_lsb,
// attr_msb) at offsets 4 and 5 of the header.
type Attributes struct {
	Reliable Reliable
	Fragment bool
	Encrypt  uint8 // 2 bits
	Priority uint8 // 3 bits
	Compress uint8 // 2 bits
}

// Pack encodes a into its two wire bytes (lsb, msb).
func (a Attributes) Pack() (lsb, msb byte) {
	lsb = byte(a.Reliable & 0x03)
	if a.Fragment {
		lsb |= 1 << 2
	}
	lsb |= (a.Encrypt & 0x03) << 3
	lsb |= (a.Priority & 0x07) << 5

	msb = a.Compress & 0x03

	return lsb, msb
}

// UnpackAttributes decodes the two wire attribute bytes into an
// Attributes value. The 6 reserved bits of attr_msb are discarded.
func UnpackAttributes(lsb, msb byte) Attributes {
	return Attributes{
		Reliable: Reliable(lsb & 0x03),
		Fragment: lsb&(1<<2) != 0,
		Encrypt:  (lsb >> 3) & 0x03,
		Priority: (lsb >> 5) & 0x07,
		Compress: msb & 0x03,
	}
}

// Frame is the decoded view of one on-wire M1 frame (§3.1). Payload
// aliases the bytes of the buffer it was decoded from or will be
// encoded into; callers must not retain it past the buffer's lifetime.
type Frame struct {
	Version  uint8
	DataType uint8
	SourceID uint8
	TargetID uint8
	Attrs    Attributes
	SeqNum   uint8
	AckNum   uint8
	Payload  []byte
}

// WireLen returns the total encoded length of a frame carrying
// payloadLen bytes.
func WireLen(payloadLen int) int {
	return Overhead + payloadLen
}
