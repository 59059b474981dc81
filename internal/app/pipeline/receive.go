package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/shared"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/directory"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/protocol/mesh"
)

type ReceiveStats struct {
	Frames    uint64 `json:"frames"`
	Discarded uint64 `json:"discarded"`
	Nodes     uint64 `json:"nodes"`
	Rejected  uint64 `json:"rejected"`
	Routed    uint64 `json:"routed"`
	Ignored   uint64 `json:"ignored"`
}

// ReceiveLoop polls the radio and dispatches decoded packets to the node
// directory or the telemetry sink.
type ReceiveLoop struct {
	shared   *shared.Context
	radio    ports.Radio
	dir      *directory.Directory
	sink     ports.TelemetrySink
	obs      ports.Observability
	interval time.Duration
	now      func() time.Time

	frames    atomic.Uint64
	discarded atomic.Uint64
	nodes     atomic.Uint64
	rejected  atomic.Uint64
	routed    atomic.Uint64
	ignored   atomic.Uint64
}

func NewReceiveLoop(sc *shared.Context, radio ports.Radio, dir *directory.Directory, sink ports.TelemetrySink, interval time.Duration, obs ports.Observability) *ReceiveLoop {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &ReceiveLoop{
		shared:   sc,
		radio:    radio,
		dir:      dir,
		sink:     sink,
		obs:      obs,
		interval: interval,
		now:      time.Now,
	}
}

// Poll makes one non-blocking read attempt and re-arms receive afterwards.
// It reports whether a frame was present. Decode failures are counted and
// returned; they never stop the loop.
func (r *ReceiveLoop) Poll(ctx context.Context) (bool, error) {
	frame, link, ok := r.read()
	if !ok {
		return false, nil
	}
	r.frames.Add(1)
	r.obs.IncCounter(ports.MetricRxFrames, 1)

	pkt, pl, err := mesh.Decode(frame)
	if err != nil {
		r.discarded.Add(1)
		r.obs.IncCounter(ports.MetricRxDiscarded, 1)
		r.obs.RecordDiscard("rx_decode", frame, err)
		return true, err
	}
	pkt.RxTime = r.now()
	pkt.RSSI = link.RSSI
	pkt.SNR = link.SNR

	r.dispatch(ctx, pkt, pl)
	return true, nil
}

func (r *ReceiveLoop) read() ([]byte, domain.LinkQuality, bool) {
	r.shared.Transceiver.Lock()
	defer r.shared.Transceiver.Unlock()

	frame, link, ok := r.radio.ReceiveAvailable()
	if err := r.radio.StartReceive(); err != nil {
		r.obs.LogError("radio_rearm_failed", err)
	}
	return frame, link, ok
}

func (r *ReceiveLoop) dispatch(ctx context.Context, pkt domain.MeshPacket, pl mesh.Payload) {
	switch pkt.PayloadType {
	case domain.PayloadNodeInfo:
		r.upsertNode(pkt, pl)
	case domain.PayloadTelemetry, domain.PayloadEvent:
		r.route(ctx, pkt, pl)
	default:
		r.ignored.Add(1)
		r.obs.IncCounter(ports.MetricRxIgnored, 1)
	}
}

func (r *ReceiveLoop) upsertNode(pkt domain.MeshPacket, pl mesh.Payload) {
	info, err := pl.NodeInfo()
	if err != nil {
		r.ignored.Add(1)
		return
	}
	id := info.ID
	if _, ok := pl.NodeID("id"); !ok {
		id = pkt.From
	}

	node := domain.Node{
		ID:        id,
		Name:      info.Name,
		ShortName: info.ShortName,
		Latitude:  info.Latitude,
		Longitude: info.Longitude,
		LastSeen:  pkt.RxTime,
		RSSI:      pkt.RSSI,
		SNR:       pkt.SNR,
	}
	if !r.dir.Upsert(node) {
		r.rejected.Add(1)
		r.obs.IncCounter(ports.MetricDirectoryReject, 1)
		return
	}
	r.nodes.Add(1)
	r.obs.SetGauge(ports.MetricDirectoryNodes, float64(r.dir.Len()))
	r.obs.LogInfo("node_seen",
		ports.Field{Key: "id", Value: id.String()},
		ports.Field{Key: "name", Value: node.Name},
		ports.Field{Key: "rssi", Value: node.RSSI})
}

func (r *ReceiveLoop) route(ctx context.Context, pkt domain.MeshPacket, pl mesh.Payload) {
	r.routed.Add(1)
	if r.sink == nil {
		return
	}
	msg := domain.Message{
		Direction: domain.Inbound,
		Peer:      pkt.From,
		Kind:      pl.Type,
		Packet:    pkt,
		Fields:    pl.Normalized(),
		At:        pkt.RxTime,
	}
	if err := r.sink.Accept(ctx, msg); err != nil {
		r.obs.IncCounter(ports.MetricSinkErrors, 1)
		r.obs.LogError("sink_accept_failed", err, ports.Field{Key: "sink", Value: r.sink.Name()})
	}
}

// Run polls until ctx is done. A present frame is followed immediately by
// another poll; an idle radio waits one interval.
func (r *ReceiveLoop) Run(ctx context.Context) error {
	if err := r.radio.StartReceive(); err != nil {
		r.obs.LogError("radio_arm_failed", err)
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		got, _ := r.Poll(ctx)
		if got {
			select {
			case <-ctx.Done():
				return nil
			default:
				continue
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *ReceiveLoop) Stats() ReceiveStats {
	return ReceiveStats{
		Frames:    r.frames.Load(),
		Discarded: r.discarded.Load(),
		Nodes:     r.nodes.Load(),
		Rejected:  r.rejected.Load(),
		Routed:    r.routed.Load(),
		Ignored:   r.ignored.Load(),
	}
}
