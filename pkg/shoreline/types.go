package shoreline

import (
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/httpapi"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// SensorDriver acquires events for one modality (position, acoustic, visual).
type SensorDriver = ports.SensorDriver

// AmbientDriver produces the current environmental sample.
type AmbientDriver = ports.AmbientDriver

// Bus is the shared two-wire bus handed to drivers while the bus lock is held.
type Bus = ports.Bus

// Radio is the half-duplex mesh transceiver.
type Radio = ports.Radio

// TelemetrySink receives every message sent or received by the node.
type TelemetrySink = ports.TelemetrySink

// Journal is the durable event log.
type Journal = ports.Journal

type (
	JournalRecord  = ports.JournalRecord
	JournalStats   = ports.JournalStats
	JournalEntryID = ports.JournalEntryID
)

// Observability emits metrics and log lines.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

type (
	Message             = domain.Message
	Node                = domain.Node
	NodeID              = domain.NodeID
	Identity            = domain.Identity
	Modality            = domain.Modality
	SensorEvent         = domain.SensorEvent
	PositionFix         = domain.PositionFix
	AcousticDetection   = domain.AcousticDetection
	VisualDetection     = domain.VisualDetection
	EnvironmentalSample = domain.EnvironmentalSample
	LinkQuality         = domain.LinkQuality
)

// Status is the node overview served at /api/v1/state.
type Status = httpapi.Status

const (
	ModalityPosition = domain.ModalityPosition
	ModalityAcoustic = domain.ModalityAcoustic
	ModalityVisual   = domain.ModalityVisual
	ModalityAmbient  = domain.ModalityAmbient
)
