// Command m1gwd is the M1/H1 gateway daemon: it owns two serial routes
// to MASTER and SLAVE hosts, ticks the stack, publishes link/reliable
// counters to Redis and Prometheus, and drains an outbound command
// queue from Redis.
package main

import (
	"encoding/hex"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vectorlink/m1proto/pkg/frame"
	"github.com/vectorlink/m1proto/pkg/h1"
	"github.com/vectorlink/m1proto/pkg/linkstate"
	"github.com/vectorlink/m1proto/pkg/metrics"
	"github.com/vectorlink/m1proto/pkg/packet"
	"github.com/vectorlink/m1proto/pkg/router"
	"github.com/vectorlink/m1proto/pkg/serialdriver"
	"github.com/vectorlink/m1proto/pkg/stack"
)

var (
	masterDevice = flag.String("master-serial", "/dev/ttyUSB0", "Serial device path for the MASTER route")
	masterBaud   = flag.Int("master-baud", 115200, "Baud rate for the MASTER route")
	slaveDevice  = flag.String("slave-serial", "/dev/ttyUSB1", "Serial device path for the SLAVE route")
	slaveBaud    = flag.Int("slave-baud", 115200, "Baud rate for the SLAVE route")

	redisAddr = flag.String("redis-addr", "localhost:6379", "Redis server address")
	queueKey  = flag.String("command-queue", "m1:submit", "Redis list polled for outbound submit commands")

	txPoolBytes = flag.Int("tx-pool-bytes", 8192, "Byte budget for the tx_pool arena")
	maxPkgSize  = flag.Int("max-pkg-size", 256, "Largest accepted payload per route, bytes")
	tickHz      = flag.Int("tick-hz", 100, "Orchestrator tick frequency in Hz")

	ackWaitMS = flag.Int("ack-wait-ms", 0, "Reliable-ack wait override in milliseconds (0 = default 1000)")
	maxRetry  = flag.Int("max-retry", 0, "Reliable retry budget override (0 = default 5)")

	metricsAddr = flag.String("metrics-addr", ":9090", "Address to serve /metrics on")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting m1gwd")

	masterLink, err := serialdriver.Open("master", *masterDevice, *masterBaud)
	if err != nil {
		log.Fatalf("Failed to open MASTER serial link: %v", err)
	}
	defer masterLink.Close()

	slaveLink, err := serialdriver.Open("slave", *slaveDevice, *slaveBaud)
	if err != nil {
		log.Fatalf("Failed to open SLAVE serial link: %v", err)
	}
	defer slaveLink.Close()

	stk := stack.New()

	h1Layer := h1.NewLayer()
	h1Layer.Register(h1.CmdIDPing, h1.PingResponder(stk))
	h1Layer.Register(h1.CmdIDGetDeviceInfo, h1.DeviceInfoResponder(stk, func(id h1.DeviceInfoID) ([]byte, bool) {
		if id == h1.DeviceInfoIDNone {
			return []byte("m1gwd"), true
		}
		return nil, false
	}))

	cfg := stack.Config{
		Name:        "m1gwd",
		TxPoolBytes: *txPoolBytes,
		SourceIDs:   []uint8{h1.HostPC},
		Routes: []router.Route{
			{Name: "master", TargetID: h1.HostMaster, Tx: masterLink, Rx: masterLink, ReadFreqHz: *tickHz, MaxPkgSize: *maxPkgSize},
			{Name: "slave", TargetID: h1.HostSlave, Tx: slaveLink, Rx: slaveLink, ReadFreqHz: *tickHz, MaxPkgSize: *maxPkgSize},
		},
		RxCallbacks: []stack.RxCallback{h1Layer.RxCallback()},
		AckWaitMS:   int32(*ackWaitMS),
		MaxRetry:    uint8(*maxRetry),
	}

	if s := stk.Init(cfg); !s.Ok() {
		log.Fatalf("Failed to initialize stack: %v", s)
	}

	stk.OnAbnormal(func(p packet.Packet) {
		log.Printf("m1gwd: reliable send to %#02x seq=%d abandoned after retry exhaustion", p.TargetID, p.SeqNum)
	})

	redisClient, err := linkstate.Connect(*redisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Printf("Connected to Redis at %s", *redisAddr)

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewCollector(stk))
	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		log.Printf("Serving metrics on %s/metrics", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	stopCh := make(chan struct{})
	commands := make(chan string, 16)
	go redisClient.WatchCommands(*queueKey, commands, stopCh)
	go func() {
		for cmd := range commands {
			handleSubmitCommand(stk, cmd)
		}
	}()

	statsTicker := time.NewTicker(time.Second)
	defer statsTicker.Stop()
	go func() {
		for range statsTicker.C {
			for name, st := range stk.LinkStats() {
				if err := redisClient.PublishStats(name, st); err != nil {
					log.Printf("linkstate: publish stats for %s: %v", name, err)
				}
			}
			waitAckLen, strayAcks := stk.ReliableStats()
			if err := redisClient.PublishReliableCounters(waitAckLen, strayAcks); err != nil {
				log.Printf("linkstate: publish reliable counters: %v", err)
			}
		}
	}()

	tickPeriod := time.Second / time.Duration(*tickHz)
	tickTicker := time.NewTicker(tickPeriod)
	defer tickTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Ticking at %d Hz", *tickHz)
	for {
		select {
		case <-tickTicker.C:
			stk.Tick(*tickHz)
		case <-sigCh:
			close(stopCh)
			stk.Shutdown()
			log.Printf("Shutting down")
			return
		}
	}
}

// handleSubmitCommand parses a queue entry of the form
// "targetHex:payloadHex" and submits it as a non-reliable data frame
// with data_type 0.
func handleSubmitCommand(stk *stack.Stack, cmd string) {
	parts := strings.SplitN(cmd, ":", 2)
	if len(parts) != 2 {
		log.Printf("m1gwd: malformed submit command %q", cmd)
		return
	}

	targetID, err := strconv.ParseUint(parts[0], 16, 8)
	if err != nil {
		log.Printf("m1gwd: bad target id in %q: %v", cmd, err)
		return
	}

	payload, err := hex.DecodeString(parts[1])
	if err != nil {
		log.Printf("m1gwd: bad payload hex in %q: %v", cmd, err)
		return
	}

	s := stk.Submit(stack.SubmitRequest{
		TargetIDs: []uint8{uint8(targetID)},
		DataType:  0,
		Attrs:     frame.Attributes{Reliable: frame.NotReliable},
		Payload:   payload,
	})
	if !s.Ok() {
		log.Printf("m1gwd: submit to %#02x failed: %v", targetID, s)
	}
}
