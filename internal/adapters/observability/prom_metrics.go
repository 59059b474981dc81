package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	discards *prometheus.CounterVec
	verbose  bool
}

// NewPromObs registers every node metric with the default registerer.
// When verbose is false, LogInfo is silent.
func NewPromObs(verbose bool) *PromObs {
	p := &PromObs{
		counters: map[string]prometheus.Counter{},
		gauges:   map[string]prometheus.Gauge{},
		histos:   map[string]prometheus.Observer{},
		verbose:  verbose,
	}

	var collectors []prometheus.Collector
	counter := func(name, help string) {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		p.counters[name] = c
		collectors = append(collectors, c)
	}
	gauge := func(name, help string) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		p.gauges[name] = g
		collectors = append(collectors, g)
	}

	counter(ports.MetricAmbientSamples, "Ambient samples recorded.")
	counter(ports.MetricAmbientErrors, "Ambient reads that failed or timed out on the bus.")
	counter(ports.MetricTxPackets, "Packets transmitted on the radio.")
	counter(ports.MetricTxFailed, "Transmit attempts that failed; the packet was discarded.")
	counter(ports.MetricEncodeFailed, "Outgoing packets that could not be framed.")
	counter(ports.MetricRxFrames, "Frames read from the radio.")
	counter(ports.MetricRxDiscarded, "Received frames that failed to decode.")
	counter(ports.MetricRxIgnored, "Decoded packets with an unhandled discriminator.")
	counter(ports.MetricDirectoryReject, "Nodeinfo packets from new peers rejected by a full directory.")
	counter(ports.MetricSinkErrors, "Telemetry sink deliveries that returned an error.")
	counter(ports.MetricSinkDropped, "Messages dropped because a sink's dispatch queue was full.")
	counter(ports.MetricJournalWritten, "Records appended to the journal.")
	counter(ports.MetricJournalFailed, "Journal appends that failed or timed out on the storage lock.")

	gauge(ports.MetricDirectoryNodes, "Peers resident in the node directory.")
	gauge(ports.MetricJournalSizeBytes, "Size of the journal on disk.")
	gauge(ports.MetricUptimeSeconds, "Node uptime.")
	gauge(ports.MetricGoroutines, "Goroutines in the node process.")

	for _, m := range domain.EventModalities {
		for _, suffix := range ports.ModalitySuffixes {
			name := ports.ModalityMetric(m, suffix)
			help := fmt.Sprintf("%s sensor %s.", m, strings.ReplaceAll(suffix, "_", " "))
			if suffix == ports.SuffixQueueLength {
				gauge(name, help)
			} else {
				counter(name, help)
			}
		}
	}
	for _, field := range ports.EnvironmentGauges {
		gauge(ports.EnvironmentMetric(field), "Current environmental "+strings.ReplaceAll(field, "_", " ")+".")
	}

	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricTxLatency,
		Help:    "Time spent in a single radio transmit.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	p.histos[ports.MetricTxLatency] = latency

	p.discards = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shoreline_discards_total",
		Help: "Frames and events thrown away, by pipeline stage.",
	}, []string{"stage"})

	collectors = append(collectors, latency, p.discards)
	prometheus.MustRegister(collectors...)
	return p
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	if p.verbose {
		log.Printf("INFO: %s%s", msg, formatFields(fields))
	}
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDiscard(stage string, raw []byte, err error) {
	p.discards.WithLabelValues(stage).Inc()
	if err != nil && p.verbose {
		log.Printf("DISCARD stage=%s err=%v frame=%q", stage, err, truncate(raw, 64))
	}
}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

var _ ports.Observability = (*PromObs)(nil)
