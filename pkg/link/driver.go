// Package link defines the boundary contract between the M1 stack and
// a concrete byte-oriented transport, and the per-link framer that
// reconstructs frames from a transport's byte stream.
package link

import "github.com/vectorlink/m1proto/pkg/status"

// State reports a driver's coarse operating condition.
type State int

const (
	StateIdle State = iota
	StateBusy
	StateError
)

// Driver is the external collaborator every route's tx_handle/rx_handle
// must satisfy (§6.1). Implementations must not retain buf past the
// call that passed it and must never block.
type Driver interface {
	// Tx consumes buf in full and returns OK, or an error status if the
	// link refused it.
	Tx(buf []byte) status.Status

	// Rx fills up to len(buf) bytes, returning the count actually
	// delivered. OK with n==0 means no data was available; Rx never
	// blocks.
	Rx(buf []byte) (n int, s status.Status)

	// GetState reports idle/busy/error. Implementations that cannot
	// observe link state return StateIdle, status.NotImplemented.
	GetState() (State, status.Status)
}
