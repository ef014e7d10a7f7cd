package stack

import (
	"github.com/vectorlink/m1proto/pkg/dispatch"
	"github.com/vectorlink/m1proto/pkg/packet"
	"github.com/vectorlink/m1proto/pkg/router"
)

// RxCallback maps one data_type tag to its handler, per §6.4.
type RxCallback struct {
	DataType uint8
	Handler  dispatch.Handler
}

// Config is the orchestrator's init-time configuration (§6.4). There
// are no environment variables, persisted state, or CLI surface here —
// every option is passed in by the caller.
type Config struct {
	Name string

	// TxPoolBytes is the total byte budget for transient send buffers
	// and reliable-engine payload records; must be at least 4KiB for a
	// two-route, small-payload configuration.
	TxPoolBytes int

	Routes      []router.Route
	RxCallbacks []RxCallback
	SourceIDs   []uint8

	// AckWaitMS and MaxRetry override the compile-time defaults
	// (1000ms / 5 retries) of §6.4. Zero means "use the default".
	AckWaitMS int32
	MaxRetry  uint8
}

func (c Config) ackWaitMS() int32 {
	if c.AckWaitMS > 0 {
		return c.AckWaitMS
	}
	return packet.DefaultWaitMS
}

func (c Config) maxRetry() uint8 {
	if c.MaxRetry > 0 {
		return c.MaxRetry
	}
	return packet.DefaultRetryBudget
}
