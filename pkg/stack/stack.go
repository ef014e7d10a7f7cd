// Package stack implements the orchestrator of §4.8: the owner of all
// mutable M1 state, with init/tick/submit/teardown entry points and the
// single coarse lock §5 requires.
package stack

import (
	"log"
	"sync"

	"github.com/rs/xid"

	"github.com/vectorlink/m1proto/pkg/dispatch"
	"github.com/vectorlink/m1proto/pkg/frame"
	"github.com/vectorlink/m1proto/pkg/link"
	"github.com/vectorlink/m1proto/pkg/packet"
	"github.com/vectorlink/m1proto/pkg/reliable"
	"github.com/vectorlink/m1proto/pkg/router"
	"github.com/vectorlink/m1proto/pkg/sender"
	"github.com/vectorlink/m1proto/pkg/status"
	"github.com/vectorlink/m1proto/pkg/txpool"
)

const sharedScratchMin = 128

type parserEntry struct {
	driver     link.Driver
	parser     *link.Parser
	readFreqHz int
}

// Stack owns every piece of mutable state named in §3.4 behind a
// single mutex: seq_next, the pool, wait_ack_list (inside the reliable
// engine), the dispatch table, and every link parser. Both the tick
// thread and caller goroutines calling Submit take this same lock.
type Stack struct {
	mu sync.Mutex

	cfg Config

	initialized bool
	tickCount   uint64

	sourceIDs []uint8
	routes    []router.Route
	seqNext   []uint8

	parsers  []*parserEntry
	dispatch *dispatch.Table
	pool     *txpool.Pool
	reliable *reliable.Engine

	rxScratch []byte

	onAbnormal func(packet.Packet)
}

// New creates an uninitialized Stack.
func New() *Stack {
	return &Stack{}
}

// OnAbnormal registers the optional tx_abnormal callback invoked when a
// reliable packet's retries are exhausted.
func (s *Stack) OnAbnormal(f func(packet.Packet)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAbnormal = f
}

// Init performs the one-time setup of §4.8. Subsequent calls are
// idempotent no-ops. Missing required input fails with INVAL.
func (s *Stack) Init(cfg Config) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return status.OK
	}

	if cfg.Name == "" || cfg.TxPoolBytes <= 0 || len(cfg.Routes) == 0 || len(cfg.SourceIDs) == 0 {
		return status.Inval
	}

	s.cfg = cfg
	s.pool = txpool.New(cfg.TxPoolBytes)
	s.sourceIDs = append([]uint8(nil), cfg.SourceIDs...)
	s.routes = append([]router.Route(nil), cfg.Routes...)
	s.seqNext = make([]uint8, len(s.routes))

	s.dispatch = dispatch.NewTable()
	for _, cb := range cfg.RxCallbacks {
		s.dispatch.Register(cb.DataType, cb.Handler)
	}

	seen := make(map[link.Driver]*parserEntry)
	maxPkg := 0
	for _, r := range s.routes {
		if r.MaxPkgSize > maxPkg {
			maxPkg = r.MaxPkgSize
		}
		if _, ok := seen[r.Rx]; ok {
			continue
		}
		entry := &parserEntry{
			driver:     r.Rx,
			parser:     link.NewParser(r.Name, r.MaxPkgSize),
			readFreqHz: r.ReadFreqHz,
		}
		seen[r.Rx] = entry
		s.parsers = append(s.parsers, entry)
	}

	scratchLen := frame.WireLen(maxPkg)
	if scratchLen < sharedScratchMin {
		scratchLen = sharedScratchMin
	}
	s.rxScratch = make([]byte, scratchLen)

	s.reliable = reliable.New(s.pool, func(rec reliable.Record) {
		if s.onAbnormal != nil {
			s.onAbnormal(packet.Packet{
				SourceID: rec.SourceID,
				TargetID: rec.TargetID,
				Version:  rec.Version,
				DataType: rec.DataType,
				Attrs:    rec.Attrs,
				SeqNum:   rec.SeqNum,
			})
		}
	})

	s.initialized = true
	log.Printf("%s: stack initialized: %d routes, %d source ids, pool=%d bytes", cfg.Name, len(s.routes), len(s.sourceIDs), cfg.TxPoolBytes)
	return status.OK
}

// GetRouteTable is the supplemented read-only accessor named in
// SPEC_FULL.md §3 (m1_get_route_table in the original).
func (s *Stack) GetRouteTable() []router.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]router.Route, len(s.routes))
	copy(out, s.routes)
	return out
}

// LinkStats returns a snapshot of every distinct inbound link's framer
// counters, keyed by the route name that first registered that link,
// for pkg/metrics and pkg/linkstate to publish.
func (s *Stack) LinkStats() map[string]link.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]link.Stats, len(s.parsers))
	for _, pe := range s.parsers {
		out[pe.parser.Name()] = pe.parser.Stats()
	}
	return out
}

// ReliableStats reports the reliable engine's outstanding tracking
// record count and stray-ack counter.
func (s *Stack) ReliableStats() (waitAckLen int, strayAcks uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reliable == nil {
		return 0, 0
	}
	return s.reliable.WaitAckLen(), s.reliable.StrayAcks()
}

// Tick runs §4.3's per-parser scheduling and then one reliable-engine
// tick, per §4.8. freqHz must be a multiple of every route's
// ReadFreqHz.
func (s *Stack) Tick(freqHz int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized || freqHz <= 0 {
		return
	}
	s.tickCount++

	for _, pe := range s.parsers {
		period := 1
		if pe.readFreqHz > 0 {
			period = freqHz / pe.readFreqHz
			if period <= 0 {
				period = 1
			}
		}
		if s.tickCount%uint64(period) != 0 {
			continue
		}
		s.pollParser(pe)
	}

	s.reliable.Tick(s.routes, s.seqNext, freqHz)
}

func (s *Stack) pollParser(pe *parserEntry) {
	n, st := pe.driver.Rx(s.rxScratch)
	if !st.Ok() {
		return
	}
	for i := 0; i < n; i++ {
		raw, done := pe.parser.Step(s.rxScratch[i])
		if done {
			s.deliverRaw(raw)
		}
	}
}

// deliverRaw implements the inbound half of C4/C6/C7: decode, then
// local-dispatch-or-forward.
func (s *Stack) deliverRaw(raw []byte) {
	f, st := frame.Decode(raw)
	if !st.Ok() {
		log.Printf("%s: dropping undecodable frame: %v", s.cfg.Name, st)
		return
	}

	if !router.IsLocal(s.sourceIDs, f.TargetID) {
		if st := router.Forward(s.routes, f.TargetID, raw); !st.Ok() {
			log.Printf("%s: no route to forward frame for target %#02x", s.cfg.Name, f.TargetID)
		}
		return
	}

	switch f.Attrs.Reliable {
	case frame.ReliableRequest:
		if st := reliable.HandleInboundReliable(s.routes, s.seqNext, s.pool, f); !st.Ok() {
			log.Printf("%s: failed to ack seq=%d from %#02x: %v", s.cfg.Name, f.SeqNum, f.SourceID, st)
		}
	case frame.Ack:
		if st := s.reliable.HandleInboundAck(f); !st.Ok() {
			log.Printf("%s: stray ack seq=%d from %#02x", s.cfg.Name, f.AckNum, f.SourceID)
		}
		return
	}

	view := dispatch.RxView{SourceID: f.SourceID, TargetID: f.TargetID, Payload: f.Payload}
	if st := s.dispatch.Dispatch(f.DataType, view); !st.Ok() {
		log.Printf("%s: dispatch data_type=%d dropped: %v", s.cfg.Name, f.DataType, st)
	}
}

// SubmitRequest is the caller-facing send request for Submit. TargetIDs
// holds one or more destinations; reliable sends fan out to all of
// them sharing one payload record (§4.6); non-reliable sends use only
// TargetIDs[0].
type SubmitRequest struct {
	TargetIDs []uint8
	Version   uint8
	DataType  uint8
	Attrs     frame.Attributes
	Payload   []byte
	AutoSeq   bool
	SeqNum    uint8
}

// Submit implements §4.8's submit entry point: validate init, build the
// logical packet, and dispatch to the reliable send path or the direct
// outbound routing path.
func (s *Stack) Submit(req SubmitRequest) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return status.NotImplemented
	}
	if len(req.TargetIDs) == 0 {
		return status.Inval
	}

	id := xid.New()

	if req.Attrs.Reliable == frame.ReliableRequest {
		log.Printf("%s: submit[%s] reliable to %d target(s), data_type=%d", s.cfg.Name, id, len(req.TargetIDs), req.DataType)
		return s.reliable.Send(s.routes, s.seqNext, s.localSourceID(req.TargetIDs[0]), req.TargetIDs, req.Version, req.DataType, req.Attrs, req.Payload, s.cfg.maxRetry(), s.cfg.ackWaitMS())
	}

	targetID := req.TargetIDs[0]
	idx, seq, st := router.SelectOutbound(s.routes, s.seqNext, targetID, req.AutoSeq, req.SeqNum)
	if !st.Ok() {
		log.Printf("%s: submit[%s] no route for target %#02x", s.cfg.Name, id, targetID)
		return st
	}

	pkt := packet.Packet{
		SourceID: s.localSourceID(targetID),
		TargetID: targetID,
		Version:  req.Version,
		DataType: req.DataType,
		Attrs:    req.Attrs,
		SeqNum:   seq,
		AckNum:   req.SeqNum,
		Payload:  req.Payload,
	}
	return sender.Send(s.pool, s.routes[idx], pkt)
}

// localSourceID returns the stack's first configured source id. All
// S1-S6 scenarios and every route in practice use a single local
// identity per stack instance.
func (s *Stack) localSourceID(uint8) uint8 {
	if len(s.sourceIDs) == 0 {
		return 0
	}
	return s.sourceIDs[0]
}

// Shutdown drains wait_ack_list, releasing outstanding payload records,
// per §4.8's teardown contract.
func (s *Stack) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	s.reliable.Drain()
	s.initialized = false
	log.Printf("%s: stack shut down", s.cfg.Name)
}
