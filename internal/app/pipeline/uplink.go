package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/shared"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/protocol/mesh"
)

// ErrNoSample is returned when telemetry is due before any ambient sample exists.
var ErrNoSample = errors.New("pipeline: no environmental sample yet")

type UplinkConfig struct {
	Self     domain.Identity
	HopLimit uint8
	Format   mesh.Format
}

type UplinkStats struct {
	Sent       uint64    `json:"sent"`
	TxFailed   uint64    `json:"tx_failed"`
	Forwarded  uint64    `json:"forwarded"`
	Announces  uint64    `json:"announces"`
	Telemetry  uint64    `json:"telemetry"`
	Discarded  uint64    `json:"discarded"`
	LastSentAt time.Time `json:"last_sent_at"`
}

// UplinkCoordinator is the only consumer of the uplink queues and the only
// sender on the radio. Lanes are drained round-robin, one event per turn,
// so a busy modality cannot starve the others.
type UplinkCoordinator struct {
	cfg    UplinkConfig
	shared *shared.Context
	radio  ports.Radio
	sink   ports.TelemetrySink
	pol    ports.Policy
	obs    ports.Observability

	started   time.Time
	now       func() time.Time
	newID     func() uint32
	lanes     []*shared.Lane
	cursor    int
	announce  chan struct{}
	telemetry chan struct{}

	sent       atomic.Uint64
	txFailed   atomic.Uint64
	forwarded  atomic.Uint64
	announces  atomic.Uint64
	telemetryN atomic.Uint64
	discarded  atomic.Uint64
	lastSent   atomic.Int64
}

func NewUplinkCoordinator(cfg UplinkConfig, sc *shared.Context, radio ports.Radio, sink ports.TelemetrySink, pol ports.Policy, obs ports.Observability) *UplinkCoordinator {
	if cfg.HopLimit == 0 {
		cfg.HopLimit = mesh.DefaultHopLimit
	}
	if cfg.Format == "" {
		cfg.Format = mesh.FormatJSON
	}
	return &UplinkCoordinator{
		cfg:       cfg,
		shared:    sc,
		radio:     radio,
		sink:      sink,
		pol:       pol,
		obs:       obs,
		started:   time.Now(),
		now:       time.Now,
		newID:     randomPacketID,
		lanes:     sc.Lanes(),
		announce:  make(chan struct{}, 1),
		telemetry: make(chan struct{}, 1),
	}
}

// RequestAnnounce schedules a self-announcement without blocking.
// It reports false when one is already pending.
func (u *UplinkCoordinator) RequestAnnounce() bool { return trigger(u.announce) }

// RequestTelemetry schedules a telemetry broadcast without blocking.
func (u *UplinkCoordinator) RequestTelemetry() bool { return trigger(u.telemetry) }

func trigger(ch chan struct{}) bool {
	select {
	case ch <- struct{}{}:
		return true
	default:
		return false
	}
}

func (u *UplinkCoordinator) Announce(ctx context.Context) error {
	payload := mesh.NewNodeInfo(u.cfg.Self, u.uptime()).Render(u.cfg.Format)
	if err := u.send(ctx, domain.PayloadNodeInfo, payload); err != nil {
		return err
	}
	u.announces.Add(1)
	return nil
}

// BroadcastTelemetry sends a snapshot of the current EnvironmentalSample.
func (u *UplinkCoordinator) BroadcastTelemetry(ctx context.Context) error {
	sample, ok := u.shared.Environment.Snapshot()
	if !ok {
		return ErrNoSample
	}
	payload := mesh.TelemetryPayload{ID: u.cfg.Self.ID, Sample: sample, UptimeMS: u.uptime().Milliseconds()}.Render(u.cfg.Format)
	if err := u.send(ctx, domain.PayloadTelemetry, payload); err != nil {
		return err
	}
	u.telemetryN.Add(1)
	return nil
}

// DrainOnce forwards at most one event, starting at the lane after the one
// served last. It reports whether an event was dequeued.
func (u *UplinkCoordinator) DrainOnce(ctx context.Context) bool {
	n := len(u.lanes)
	for i := 0; i < n; i++ {
		idx := (u.cursor + i) % n
		lane := u.lanes[idx]
		ev, ok := lane.Uplink.TryReceive()
		if !ok {
			continue
		}
		u.cursor = (idx + 1) % n
		u.obs.SetGauge(ports.ModalityMetric(lane.Modality, ports.SuffixQueueLength), float64(lane.Uplink.Len()))
		u.forward(ctx, ev)
		return true
	}
	return false
}

func (u *UplinkCoordinator) forward(ctx context.Context, ev domain.SensorEvent) {
	payload, err := mesh.EventPayload{ID: u.cfg.Self.ID, Event: ev, UptimeMS: u.uptime().Milliseconds()}.Render(u.cfg.Format)
	if err != nil {
		u.discarded.Add(1)
		u.obs.RecordDiscard("uplink_render", nil, err)
		return
	}
	if err := u.send(ctx, domain.PayloadEvent, payload); err == nil {
		u.forwarded.Add(1)
	}
}

// send frames the payload, transmits once and re-arms receive whatever the outcome.
// A failed transmit is logged and the packet is discarded.
func (u *UplinkCoordinator) send(ctx context.Context, typ domain.PayloadType, payload string) error {
	pkt := domain.MeshPacket{
		From:        u.cfg.Self.ID,
		To:          domain.BroadcastID,
		HopLimit:    u.cfg.HopLimit,
		HopStart:    u.cfg.HopLimit,
		ID:          u.newID(),
		PayloadType: typ,
		Payload:     payload,
	}
	frame, err := mesh.EncodePacket(pkt)
	if err != nil {
		u.discarded.Add(1)
		u.obs.IncCounter(ports.MetricEncodeFailed, 1)
		u.obs.RecordDiscard("uplink_encode", []byte(payload), err)
		return err
	}

	start := time.Now()
	err = u.transmit(ctx, frame)
	if err != nil {
		u.txFailed.Add(1)
		u.obs.IncCounter(ports.MetricTxFailed, 1)
		u.obs.LogError("radio_transmit_failed", err,
			ports.Field{Key: "type", Value: typ.String()},
			ports.Field{Key: "id", Value: fmt.Sprintf("%x", pkt.ID)})
		return err
	}
	u.obs.ObserveLatency(ports.MetricTxLatency, time.Since(start).Seconds())
	u.obs.IncCounter(ports.MetricTxPackets, 1)
	u.sent.Add(1)
	u.lastSent.Store(u.now().UnixNano())

	u.deliver(ctx, pkt)
	return nil
}

func (u *UplinkCoordinator) transmit(ctx context.Context, frame []byte) error {
	u.shared.Transceiver.Lock()
	defer u.shared.Transceiver.Unlock()

	err := u.radio.Transmit(ctx, frame)
	if rerr := u.radio.StartReceive(); rerr != nil {
		u.obs.LogError("radio_rearm_failed", rerr)
	}
	return err
}

func (u *UplinkCoordinator) deliver(ctx context.Context, pkt domain.MeshPacket) {
	if u.sink == nil {
		return
	}
	pl, err := mesh.ParsePayload(pkt.Payload)
	if err != nil {
		return
	}
	msg := domain.Message{
		Direction: domain.Outbound,
		Peer:      pkt.To,
		Kind:      pl.Type,
		Packet:    pkt,
		Fields:    pl.Normalized(),
		At:        u.now(),
	}
	if err := u.sink.Accept(ctx, msg); err != nil {
		u.obs.IncCounter(ports.MetricSinkErrors, 1)
		u.obs.LogError("sink_accept_failed", err, ports.Field{Key: "sink", Value: u.sink.Name()})
	}
}

// Run announces once, then serves triggers and drains lanes until ctx is done.
func (u *UplinkCoordinator) Run(ctx context.Context) error {
	if err := u.Announce(ctx); err != nil {
		u.obs.LogError("startup_announce_failed", err)
	}

	sleep := u.pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-u.announce:
			_ = u.Announce(ctx)
			continue
		case <-u.telemetry:
			if err := u.BroadcastTelemetry(ctx); errors.Is(err, ErrNoSample) {
				u.obs.LogInfo("telemetry_skipped", ports.Field{Key: "reason", Value: err.Error()})
			}
			continue
		default:
		}

		if !u.DrainOnce(ctx) {
			time.Sleep(sleep)
		}
	}
}

func (u *UplinkCoordinator) Stats() UplinkStats {
	s := UplinkStats{
		Sent:      u.sent.Load(),
		TxFailed:  u.txFailed.Load(),
		Forwarded: u.forwarded.Load(),
		Announces: u.announces.Load(),
		Telemetry: u.telemetryN.Load(),
		Discarded: u.discarded.Load(),
	}
	if ns := u.lastSent.Load(); ns != 0 {
		s.LastSentAt = time.Unix(0, ns)
	}
	return s
}

func (u *UplinkCoordinator) Self() domain.Identity { return u.cfg.Self }

func (u *UplinkCoordinator) uptime() time.Duration { return u.now().Sub(u.started) }
