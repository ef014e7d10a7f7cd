package crc

import "github.com/vectorlink/m1proto/pkg/status"

// PackU8 computes an 8-bit CRC over buf[:len(buf)-1] using t and writes
// it into the last byte of buf. t must be a width-8 table.
func PackU8(t Table, buf []byte) status.Status {
	if len(buf) < 1 {
		return status.Inval
	}
	crc := t.Compute(buf[:len(buf)-1])
	buf[len(buf)-1] = byte(crc)
	return status.OK
}

// VerifyU8 reports whether the trailing byte of buf matches the 8-bit
// CRC of the bytes preceding it.
func VerifyU8(t Table, buf []byte) bool {
	if len(buf) < 1 {
		return false
	}
	want := buf[len(buf)-1]
	got := byte(t.Compute(buf[:len(buf)-1]))
	return want == got
}

// PackU16LE computes a 16-bit CRC over buf[:len(buf)-2] using t and
// writes it little-endian into the last two bytes of buf, matching the
// wire frame's crc16 field (§3.1).
func PackU16LE(t Table, buf []byte) status.Status {
	if len(buf) < 2 {
		return status.Inval
	}
	crc := t.Compute(buf[:len(buf)-2])
	buf[len(buf)-2] = byte(crc)
	buf[len(buf)-1] = byte(crc >> 8)
	return status.OK
}

// VerifyU16LE reports whether the trailing two bytes of buf match the
// little-endian 16-bit CRC of the bytes preceding them.
func VerifyU16LE(t Table, buf []byte) bool {
	if len(buf) < 2 {
		return false
	}
	want := uint32(buf[len(buf)-2]) | uint32(buf[len(buf)-1])<<8
	got := t.Compute(buf[:len(buf)-2])
	return want == got
}
