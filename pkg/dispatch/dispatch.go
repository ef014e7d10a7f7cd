// Package dispatch implements the upper-layer dispatch surface of
// §4.7: a data_type-indexed handler table invoked synchronously on the
// tick thread.
package dispatch

import "github.com/vectorlink/m1proto/pkg/status"

// RxView is the typed view handlers receive, per §6.2. Handlers must
// not retain Payload past their return.
type RxView struct {
	SourceID uint8
	TargetID uint8
	Payload  []byte
}

// Handler processes one dispatched frame.
type Handler func(RxView) status.Status

// maxDataTypesFor returns the next-higher multiple of 16 covering tag,
// per §4.7 (data_type is a 4-bit wire field, so this is always 16, but
// the computation is kept general for a redefined wider tag space).
func maxDataTypesFor(largestTag int) int {
	return ((largestTag / 16) + 1) * 16
}

// Table is the data_type-indexed handler array.
type Table struct {
	handlers []Handler
}

// NewTable builds a table sized to cover the largest data_type value
// that will ever be registered. The wire format's 4-bit data_type
// nibble bounds this at 16 slots.
func NewTable() *Table {
	return &Table{handlers: make([]Handler, maxDataTypesFor(15))}
}

// Register installs h for dataType, growing the table if dataType is
// beyond its current span (never needed for the 4-bit wire tag, kept
// for a redefined wider tag space per §9's re-architecture guidance).
func (t *Table) Register(dataType uint8, h Handler) {
	need := maxDataTypesFor(int(dataType))
	if need > len(t.handlers) {
		grown := make([]Handler, need)
		copy(grown, t.handlers)
		t.handlers = grown
	}
	t.handlers[dataType] = h
}

// Dispatch invokes the handler registered for view's data_type tag. A
// data_type past the table bound is rejected INVAL; an unregistered tag
// is dropped NOT_EXIST, matching §4.7 exactly.
func (t *Table) Dispatch(dataType uint8, view RxView) status.Status {
	if int(dataType) >= len(t.handlers) {
		return status.Inval
	}
	h := t.handlers[dataType]
	if h == nil {
		return status.NotExist
	}
	return h(view)
}
