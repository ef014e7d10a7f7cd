package crc

// Table is a 16-entry nibble lookup table for a Model, processing each
// input byte as two nibble steps instead of eight bit steps. It must
// produce results bit-identical to Bitwise for the same Model and input.
type Table struct {
	model Model
	rows  [16]uint32
}

// NewTable builds the 16-entry table for m. The table only depends on
// m.Width and m.Poly; Init/RefIn/RefOut/XorOut are applied by Compute,
// not baked into the table, matching the split between
// crc8_lookup_init's table selection and crc8_lookup_update's per-call
// ref_in/ref_out handling.
func NewTable(m Model) Table {
	t := Table{model: m}
	topBit := uint32(1) << (uint32(m.Width) - 1)
	highShift := uint32(m.Width) - 4

	for i := uint32(0); i < 16; i++ {
		crc := i << highShift
		for j := 0; j < 4; j++ {
			if crc&topBit != 0 {
				crc = ((crc << 1) ^ m.Poly) & mask(m.Width)
			} else {
				crc = (crc << 1) & mask(m.Width)
			}
		}
		t.rows[i] = crc
	}

	return t
}

// Compute runs buf through the nibble table, two lookups per byte (high
// nibble then low nibble), the same order as crc8_lookup_update and
// crc16_lookup_update.
func (t Table) Compute(buf []byte) uint32 {
	m := t.model
	w := uint32(m.Width)
	reg := m.Init & mask(m.Width)
	nibbleShift := w - 4

	for _, b := range buf {
		in := b
		if m.RefIn {
			in = ReverseByte(in)
		}
		data := uint32(in)

		reg = t.rows[((data<<(w-8))^reg)>>nibbleShift&0x0F] ^ ((reg << 4) & mask(m.Width))
		reg = t.rows[((data<<(w-4))^reg)>>nibbleShift&0x0F] ^ ((reg << 4) & mask(m.Width))
	}

	if m.RefOut {
		switch m.Width {
		case Width8:
			reg = uint32(ReverseByte(uint8(reg)))
		case Width16:
			reg = uint32(ReverseUint16(uint16(reg)))
		default:
			reg = ReverseUint32(reg)
		}
	}

	return (reg ^ m.XorOut) & mask(m.Width)
}
