package crc

// CRC8Maxim is CRC-8/MAXIM (poly 0x31, init 0x00, refin/refout, xorout
// 0x00): protects the 12-byte M1 header, the crc8 field itself included.
var CRC8Maxim = Model{
	Width:  Width8,
	Poly:   0x31,
	Init:   0x00,
	RefIn:  true,
	RefOut: true,
	XorOut: 0x00,
}

// CRC16Modbus is CRC-16/MODBUS (poly 0x8005, init 0xFFFF, refin/refout,
// xorout 0x0000): protects the header plus payload.
var CRC16Modbus = Model{
	Width:  Width16,
	Poly:   0x8005,
	Init:   0xFFFF,
	RefIn:  true,
	RefOut: true,
	XorOut: 0x0000,
}

// CRC16Ccitt is the model spec.md names CRC-16/CCITT, but it sets
// ref_in=ref_out=true, which the canonical CRC-16/CCITT-FALSE and
// CRC-16/XMODEM definitions both leave false. Kept here exactly as
// specified (see SPEC_FULL.md's Open Questions decisions) rather than silently
// corrected to a textbook CCITT variant — a frame built against this
// model would fail CRC against a "fixed" implementation.
var CRC16Ccitt = Model{
	Width:  Width16,
	Poly:   0x1021,
	Init:   0x0000,
	RefIn:  true,
	RefOut: true,
	XorOut: 0x0000,
}

// HeaderTable and PayloadTable are the nibble tables the codec uses on
// its hot path, built once at package init instead of per-call.
var (
	HeaderTable  = NewTable(CRC8Maxim)
	PayloadTable = NewTable(CRC16Modbus)
)
