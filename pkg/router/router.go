// Package router implements the inbound local-vs-forward decision and
// the outbound route/seq-stamp selection of §4.4. It holds no state of
// its own: the route table and per-route sequence counters are owned
// by the orchestrator (pkg/stack) and passed in on every call, serialized
// by the orchestrator's coarse lock.
package router

import (
	"github.com/vectorlink/m1proto/pkg/link"
	"github.com/vectorlink/m1proto/pkg/status"
)

// Route binds a target host id to an egress/ingress link pair, per
// §3.4. The routing table is built once at init and never mutated at
// runtime.
type Route struct {
	Name       string
	TargetID   uint8
	HostName   string
	Tx         link.Driver
	Rx         link.Driver
	ReadFreqHz int
	MaxPkgSize int
}

// IsLocal reports whether targetID matches one of the stack's own
// source ids.
func IsLocal(sourceIDs []uint8, targetID uint8) bool {
	for _, id := range sourceIDs {
		if id == targetID {
			return true
		}
	}
	return false
}

// FindByTarget linear-scans routes for one whose TargetID matches.
func FindByTarget(routes []Route, targetID uint8) (int, bool) {
	for i, r := range routes {
		if r.TargetID == targetID {
			return i, true
		}
	}
	return -1, false
}

// Forward submits raw frame bytes unchanged through the route matching
// targetID's tx handle. Returns NOT_EXIST if no route matches.
func Forward(routes []Route, targetID uint8, raw []byte) status.Status {
	idx, ok := FindByTarget(routes, targetID)
	if !ok {
		return status.NotExist
	}
	return routes[idx].Tx.Tx(raw)
}

// StampSeq returns seqNext[idx] and advances it by one, wrapping mod
// 256 via uint8 overflow.
func StampSeq(seqNext []uint8, idx int) uint8 {
	s := seqNext[idx]
	seqNext[idx]++
	return s
}

// SelectOutbound resolves the egress route for targetID. When autoSeq
// is set the returned sequence number is read from seqNext and the
// counter is advanced; otherwise seq is returned unchanged (the
// reliable engine's retransmit path retains the original seq_num).
func SelectOutbound(routes []Route, seqNext []uint8, targetID uint8, autoSeq bool, seq uint8) (idx int, outSeq uint8, s status.Status) {
	idx, ok := FindByTarget(routes, targetID)
	if !ok {
		return -1, 0, status.NotExist
	}
	if autoSeq {
		outSeq = StampSeq(seqNext, idx)
	} else {
		outSeq = seq
	}
	return idx, outSeq, status.OK
}
