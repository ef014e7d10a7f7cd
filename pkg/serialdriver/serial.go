// Package serialdriver backs a link.Driver with a real serial port via
// go.bug.st/serial, replacing the tarm/serial port the teacher used
// directly (see DESIGN.md).
package serialdriver

import (
	"fmt"
	"log"
	"time"

	"go.bug.st/serial"

	"github.com/vectorlink/m1proto/pkg/link"
	"github.com/vectorlink/m1proto/pkg/status"
)

// Serial is a link.Driver backed by a real serial port opened with
// go.bug.st/serial. Rx never blocks: the port's read timeout is set to
// a short poll interval and a zero-byte read is reported as OK/n=0.
type Serial struct {
	name string
	port serial.Port
}

// Open opens devicePath at baud 8N1 and wraps it as a link.Driver.
func Open(name, devicePath string, baud int) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(devicePath, mode)
	if err != nil {
		return nil, fmt.Errorf("serialdriver: open %s: %v", devicePath, err)
	}

	// A short read timeout keeps Rx effectively non-blocking: the tick
	// thread calls Rx once per scheduled pass and must not stall the
	// other routes behind a blocking read.
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("serialdriver: set read timeout on %s: %v", devicePath, err)
	}

	return &Serial{name: name, port: port}, nil
}

const readTimeout = 50 * time.Millisecond

// Tx writes buf in full to the port.
func (s *Serial) Tx(buf []byte) status.Status {
	n, err := s.port.Write(buf)
	if err != nil {
		log.Printf("%s: TX Error: %v", s.name, err)
		return status.IO
	}
	if n != len(buf) {
		log.Printf("%s: TX Error: short write %d/%d", s.name, n, len(buf))
		return status.IO
	}
	return status.OK
}

// Rx fills up to len(buf) bytes from the port. A read timeout is
// reported as OK with n==0, matching the "no data" contract of §6.1.
func (s *Serial) Rx(buf []byte) (int, status.Status) {
	n, err := s.port.Read(buf)
	if err != nil {
		log.Printf("%s: RX Error: %v", s.name, err)
		return 0, status.IO
	}
	return n, status.OK
}

// GetState always reports idle; go.bug.st/serial exposes no busy/error
// signal short of a failed read/write.
func (s *Serial) GetState() (link.State, status.Status) {
	return link.StateIdle, status.NotImplemented
}

// Close releases the underlying port.
func (s *Serial) Close() error {
	return s.port.Close()
}
