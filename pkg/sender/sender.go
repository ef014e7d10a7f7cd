// Package sender implements the link sender of §4.5: build the on-wire
// buffer for a routed packet and submit it to the route's driver.
package sender

import (
	"github.com/vectorlink/m1proto/pkg/frame"
	"github.com/vectorlink/m1proto/pkg/packet"
	"github.com/vectorlink/m1proto/pkg/router"
	"github.com/vectorlink/m1proto/pkg/status"
	"github.com/vectorlink/m1proto/pkg/txpool"
)

// Send allocates a wire buffer from pool, encodes pkt into it, and
// submits it through route.Tx. The buffer is always released before
// Send returns, including on failure.
func Send(pool *txpool.Pool, route router.Route, pkt packet.Packet) status.Status {
	n := len(pkt.Payload)
	buf, s := pool.Alloc(frame.WireLen(n))
	if !s.Ok() {
		return s
	}
	defer pool.Free(buf)

	if s := frame.Encode(pkt.ToFrame(), buf); !s.Ok() {
		return s
	}

	return route.Tx.Tx(buf)
}
