// Package metrics exposes a stack's link and reliable-engine counters
// as Prometheus metrics, via a custom Collector in the same
// Describe/Collect shape as the teacher pack's TCPInfoCollector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vectorlink/m1proto/pkg/stack"
)

// statDesc pairs a Desc with the function that reads its current value
// off a link.Stats snapshot.
type statDesc struct {
	desc    *prometheus.Desc
	valueOf func(linkStatsSnapshot) float64
}

type linkStatsSnapshot struct {
	totalBytes, notFrameBytes, sofOk                  uint64
	crc8Ok, crc8Err, crc16Ok, crc16Err, lenOverflow uint64
}

// Collector reports per-link framer counters and the reliable engine's
// outstanding/stray-ack counters for one Stack.
type Collector struct {
	stack *stack.Stack

	linkDescs     []statDesc
	waitAckDesc   *prometheus.Desc
	strayAckDesc  *prometheus.Desc
}

// NewCollector builds a Collector over s, labeling every per-link
// metric with the link's route name.
func NewCollector(s *stack.Stack) *Collector {
	c := &Collector{stack: s}

	mk := func(name, help string, valueOf func(linkStatsSnapshot) float64) statDesc {
		return statDesc{
			desc:    prometheus.NewDesc("m1_link_"+name, help, []string{"link"}, nil),
			valueOf: valueOf,
		}
	}

	c.linkDescs = []statDesc{
		mk("total_bytes_total", "Total bytes observed by the framer.", func(s linkStatsSnapshot) float64 { return float64(s.totalBytes) }),
		mk("not_frame_bytes_total", "Bytes discarded while scanning for SOF.", func(s linkStatsSnapshot) float64 { return float64(s.notFrameBytes) }),
		mk("sof_ok_total", "Start-of-frame markers locked onto.", func(s linkStatsSnapshot) float64 { return float64(s.sofOk) }),
		mk("crc8_ok_total", "Headers that passed CRC-8.", func(s linkStatsSnapshot) float64 { return float64(s.crc8Ok) }),
		mk("crc8_err_total", "Headers that failed CRC-8.", func(s linkStatsSnapshot) float64 { return float64(s.crc8Err) }),
		mk("crc16_ok_total", "Frames that passed CRC-16.", func(s linkStatsSnapshot) float64 { return float64(s.crc16Ok) }),
		mk("crc16_err_total", "Frames that failed CRC-16.", func(s linkStatsSnapshot) float64 { return float64(s.crc16Err) }),
		mk("len_overflow_total", "Frames dropped for exceeding the parser's cache capacity.", func(s linkStatsSnapshot) float64 { return float64(s.lenOverflow) }),
	}

	c.waitAckDesc = prometheus.NewDesc("m1_reliable_wait_ack_records", "Outstanding reliable tracking records.", nil, nil)
	c.strayAckDesc = prometheus.NewDesc("m1_reliable_stray_acks_total", "Inbound ack frames matching no tracking record.", nil, nil)

	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	for _, d := range c.linkDescs {
		descs <- d.desc
	}
	descs <- c.waitAckDesc
	descs <- c.strayAckDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	for name, st := range c.stack.LinkStats() {
		snap := linkStatsSnapshot{
			totalBytes:    st.TotalBytes,
			notFrameBytes: st.NotFrameBytes,
			sofOk:         st.SofOk,
			crc8Ok:        st.Crc8Ok,
			crc8Err:       st.Crc8Err,
			crc16Ok:       st.Crc16Ok,
			crc16Err:      st.Crc16Err,
			lenOverflow:   st.LenOverflow,
		}
		for _, d := range c.linkDescs {
			metrics <- prometheus.MustNewConstMetric(d.desc, prometheus.CounterValue, d.valueOf(snap), name)
		}
	}

	waitAckLen, strayAcks := c.stack.ReliableStats()
	metrics <- prometheus.MustNewConstMetric(c.waitAckDesc, prometheus.GaugeValue, float64(waitAckLen))
	metrics <- prometheus.MustNewConstMetric(c.strayAckDesc, prometheus.CounterValue, float64(strayAcks))
}
