package link

import (
	"encoding/binary"
	"log"

	"github.com/vectorlink/m1proto/pkg/crc"
	"github.com/vectorlink/m1proto/pkg/frame"
)

// parserState is one of AWAIT_SOF, IN_HEADER, IN_PAYLOAD from §3.3.
type parserState int

const (
	awaitSOF parserState = iota
	inHeader
	inPayload
)

// Stats are the per-link counters required by §4.3, readable without
// resetting the parser.
type Stats struct {
	TotalBytes    uint64
	NotFrameBytes uint64
	SofOk         uint64
	Crc8Ok        uint64
	Crc8Err       uint64
	Crc16Ok       uint64
	Crc16Err      uint64
	LenOverflow   uint64
}

// Parser is the per-link byte-at-a-time framer state machine of §4.3.
// It is not internally synchronized; the orchestrator's coarse lock
// serializes calls into it (§5).
type Parser struct {
	name       string
	cache      []byte
	index      int
	state      parserState
	frameLen   int
	stats      Stats
	maxPkgSize int
}

func roundUp4(n int) int {
	return (n + 3) &^ 3
}

// NewParser allocates a parser whose cache is sized to
// header+maxPkgSize+trailer, rounded up to a 4-byte multiple, per §3.3.
// name is used only in log lines.
func NewParser(name string, maxPkgSize int) *Parser {
	capacity := roundUp4(frame.HeaderSize + maxPkgSize + frame.TrailerSize)
	return &Parser{
		name:       name,
		cache:      make([]byte, capacity),
		maxPkgSize: maxPkgSize,
	}
}

// Stats returns a snapshot of the parser's counters.
func (p *Parser) Stats() Stats {
	return p.stats
}

// Name returns the label the parser was constructed with.
func (p *Parser) Name() string {
	return p.name
}

// Step feeds one byte through the state machine. When a frame completes
// and passes both CRCs, Step returns a copy of its raw bytes and true.
// CRC and overflow failures are counted and logged, never returned as
// an error — §4.3 and §7 both specify these are silently dropped.
func (p *Parser) Step(b byte) ([]byte, bool) {
	p.stats.TotalBytes++

	switch p.state {
	case awaitSOF:
		if b == frame.SOF {
			p.cache[0] = b
			p.index = 1
			p.state = inHeader
			p.stats.SofOk++
		} else {
			p.stats.NotFrameBytes++
		}

	case inHeader:
		if p.index < len(p.cache) {
			p.cache[p.index] = b
		}
		p.index++
		if p.index == frame.HeaderSize {
			if crc.VerifyU8(crc.HeaderTable, p.cache[:frame.HeaderSize]) {
				dataLen := int(binary.LittleEndian.Uint16(p.cache[6:8]))
				p.frameLen = frame.WireLen(dataLen)
				p.state = inPayload
				p.stats.Crc8Ok++
			} else {
				log.Printf("%s: RX Error: invalid header CRC8", p.name)
				p.state = awaitSOF
				p.stats.Crc8Err++
			}
		}

	case inPayload:
		if p.frameLen > len(p.cache) {
			if p.index < p.frameLen-1 {
				p.index++
			} else {
				log.Printf("%s: RX Error: frame length %d exceeds cache capacity %d", p.name, p.frameLen, len(p.cache))
				p.state = awaitSOF
				p.stats.LenOverflow++
			}
			break
		}

		p.cache[p.index] = b
		p.index++
		if p.index == p.frameLen {
			if crc.VerifyU16LE(crc.PayloadTable, p.cache[:p.frameLen]) {
				p.stats.Crc16Ok++
				p.state = awaitSOF
				out := make([]byte, p.frameLen)
				copy(out, p.cache[:p.frameLen])
				return out, true
			}
			log.Printf("%s: RX Error: invalid trailer CRC16", p.name)
			p.stats.Crc16Err++
			p.state = awaitSOF
		}
	}

	return nil, false
}
