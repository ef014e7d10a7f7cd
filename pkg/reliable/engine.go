// Package reliable implements the reliable-delivery engine of §4.6:
// retry/timeout tracking for packets sent with reliable=1, deduplicated
// payload storage across multiple targets, and ack synthesis/matching.
package reliable

import (
	"log"

	"github.com/vectorlink/m1proto/pkg/frame"
	"github.com/vectorlink/m1proto/pkg/packet"
	"github.com/vectorlink/m1proto/pkg/router"
	"github.com/vectorlink/m1proto/pkg/sender"
	"github.com/vectorlink/m1proto/pkg/status"
	"github.com/vectorlink/m1proto/pkg/txpool"
)

// trackingState mirrors the per-record state machine of §4.6: ARMED
// while wait_ms > 0, FIRING during the tick iteration that finds it
// expired, RETIRED once removed from the list.
type trackingState int

const (
	armed trackingState = iota
	firing
	retired
)

// payloadRecord is the shared, reference-counted backing storage for a
// reliable payload sent to N targets (§4.6).
type payloadRecord struct {
	refs  int
	bytes []byte
}

// Record is one outstanding reliable send.
type Record struct {
	SourceID uint8
	TargetID uint8
	SeqNum   uint8
	AckNum   uint8
	Attrs    frame.Attributes
	Version  uint8
	DataType uint8

	RetryRemaining uint8
	WaitMS         int32

	state   trackingState
	payload *payloadRecord
}

// AbnormalFunc is invoked once per tracking record whose retries are
// exhausted, mirroring the stack's optional tx_abnormal callback.
type AbnormalFunc func(rec Record)

// Engine owns wait_ack_list and a stray-ack counter. It is not
// internally synchronized; the orchestrator's coarse lock serializes
// all calls (§5).
type Engine struct {
	pool      *txpool.Pool
	waitAcks  []*Record
	strayAcks uint64
	onAbnorm  AbnormalFunc
}

// New creates an engine drawing shared payload allocations from pool.
// onAbnormal may be nil.
func New(pool *txpool.Pool, onAbnormal AbnormalFunc) *Engine {
	return &Engine{pool: pool, onAbnorm: onAbnormal}
}

// WaitAckLen reports the number of outstanding tracking records.
func (e *Engine) WaitAckLen() int {
	return len(e.waitAcks)
}

// StrayAcks reports the number of inbound ack frames that matched no
// tracking record.
func (e *Engine) StrayAcks() uint64 {
	return e.strayAcks
}

// Send implements the reliable send path of §4.6 step 1-3: one shared
// payload record backs a tracking record per target. Routing/seq
// stamping for each target is delegated to route+seq via outbound so
// the same seq_next value that is recorded here is the one that goes
// on the wire.
func (e *Engine) Send(routes []router.Route, seqNext []uint8, sourceID uint8, targetIDs []uint8, version, dataType uint8, attrs frame.Attributes, payload []byte, retryBudget uint8, waitMS int32) status.Status {
	buf, s := e.pool.Alloc(len(payload))
	if !s.Ok() {
		return s
	}
	copy(buf, payload)
	rec := &payloadRecord{bytes: buf}

	attrs.Reliable = frame.ReliableRequest

	var firstErr status.Status = status.OK
	for _, targetID := range targetIDs {
		idx, seq, s := router.SelectOutbound(routes, seqNext, targetID, true, 0)
		if !s.Ok() {
			log.Printf("reliable: no route for target %#02x, skipping", targetID)
			if firstErr.Ok() {
				firstErr = s
			}
			continue
		}

		track := &Record{
			SourceID:       sourceID,
			TargetID:       targetID,
			SeqNum:         seq,
			Attrs:          attrs,
			Version:        version,
			DataType:       dataType,
			RetryRemaining: retryBudget,
			WaitMS:         waitMS,
			state:          armed,
			payload:        rec,
		}
		rec.refs++
		e.waitAcks = append(e.waitAcks, track)

		pkt := packet.Packet{
			SourceID: sourceID,
			TargetID: targetID,
			Version:  version,
			DataType: dataType,
			Attrs:    attrs,
			SeqNum:   seq,
			Payload:  rec.bytes,
		}
		if s := sender.Send(e.pool, routes[idx], pkt); !s.Ok() {
			log.Printf("reliable: send to %#02x failed: %v", targetID, s)
		}
	}

	// Step 3: success is returned even if some individual transmits
	// failed; the tick-driven retry path will pick those up.
	return status.OK
}

// Tick drives the retry/timeout state machine once, at freq_hz, per
// §4.6's tick path.
func (e *Engine) Tick(routes []router.Route, seqNext []uint8, freqHz int) {
	if freqHz <= 0 {
		return
	}
	step := int32(1000 / freqHz)

	kept := e.waitAcks[:0]
	for _, rec := range e.waitAcks {
		rec.WaitMS -= step
		if rec.WaitMS > 0 {
			kept = append(kept, rec)
			continue
		}

		rec.state = firing
		rec.RetryRemaining--
		if rec.RetryRemaining == 0 {
			log.Printf("reliable: timeout seq=%d target=%#02x, retries exhausted", rec.SeqNum, rec.TargetID)
			rec.state = retired
			e.release(rec)
			if e.onAbnorm != nil {
				e.onAbnorm(*rec)
			}
			continue
		}

		rec.WaitMS = packet.DefaultWaitMS
		rec.state = armed

		idx, _, s := router.SelectOutbound(routes, seqNext, rec.TargetID, false, rec.SeqNum)
		if !s.Ok() {
			log.Printf("reliable: retransmit seq=%d: no route for target %#02x", rec.SeqNum, rec.TargetID)
			kept = append(kept, rec)
			continue
		}

		pkt := packet.Packet{
			SourceID: rec.SourceID,
			TargetID: rec.TargetID,
			Version:  rec.Version,
			DataType: rec.DataType,
			Attrs:    rec.Attrs,
			SeqNum:   rec.SeqNum,
			Payload:  rec.payload.bytes,
		}
		if s := sender.Send(e.pool, routes[idx], pkt); !s.Ok() {
			log.Printf("reliable: retransmit to %#02x failed: %v", rec.TargetID, s)
		}
		kept = append(kept, rec)
	}
	e.waitAcks = kept
}

// HandleInboundReliable synthesizes and sends an ack for a received
// reliable=1 frame, per §4.6's receiver-side behavior. The ack itself
// is not reliable.
func HandleInboundReliable(routes []router.Route, seqNext []uint8, pool *txpool.Pool, f frame.Frame) status.Status {
	ack := packet.Packet{
		SourceID: f.TargetID,
		TargetID: f.SourceID,
		Version:  f.Version,
		DataType: f.DataType,
		Attrs:    frame.Attributes{Reliable: frame.Ack},
		SeqNum:   0,
		AckNum:   f.SeqNum,
	}

	idx, seq, s := router.SelectOutbound(routes, seqNext, ack.TargetID, false, 0)
	if !s.Ok() {
		log.Printf("reliable: cannot ack seq=%d from %#02x: no route", f.SeqNum, f.SourceID)
		return s
	}
	ack.SeqNum = seq

	return sender.Send(pool, routes[idx], ack)
}

// HandleInboundAck matches an inbound reliable=2 frame against
// wait_ack_list, releasing the tracking record on a match and counting
// a stray ack otherwise, per §4.6's sender-side behavior.
func (e *Engine) HandleInboundAck(f frame.Frame) status.Status {
	for i, rec := range e.waitAcks {
		if rec.SeqNum == f.AckNum && rec.TargetID == f.SourceID && rec.SourceID == f.TargetID {
			rec.state = retired
			e.release(rec)
			e.waitAcks = append(e.waitAcks[:i], e.waitAcks[i+1:]...)
			return status.OK
		}
	}
	e.strayAcks++
	return status.NotExist
}

// release decrements the shared payload's refcount, freeing it back to
// the pool when the last tracking record using it is retired.
func (e *Engine) release(rec *Record) {
	rec.payload.refs--
	if rec.payload.refs == 0 {
		e.pool.Free(rec.payload.bytes)
	}
}

// Drain removes every outstanding tracking record, releasing their
// payload records, for orchestrator teardown.
func (e *Engine) Drain() {
	for _, rec := range e.waitAcks {
		e.release(rec)
	}
	e.waitAcks = nil
}
