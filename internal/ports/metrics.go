package ports

import "github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"

// Metric names shared by the pipeline and the observability adapters.
const (
	MetricAmbientSamples   = "shoreline_ambient_samples_total"
	MetricAmbientErrors    = "shoreline_ambient_errors_total"
	MetricTxPackets        = "shoreline_tx_packets_total"
	MetricTxFailed         = "shoreline_tx_failed_total"
	MetricTxLatency        = "shoreline_tx_latency_seconds"
	MetricEncodeFailed     = "shoreline_encode_failed_total"
	MetricRxFrames         = "shoreline_rx_frames_total"
	MetricRxDiscarded      = "shoreline_rx_discarded_total"
	MetricRxIgnored        = "shoreline_rx_ignored_total"
	MetricDirectoryNodes   = "shoreline_directory_nodes"
	MetricDirectoryReject  = "shoreline_directory_rejected_total"
	MetricSinkErrors       = "shoreline_sink_errors_total"
	MetricSinkDropped      = "shoreline_sink_dropped_total"
	MetricJournalWritten   = "shoreline_journal_written_total"
	MetricJournalFailed    = "shoreline_journal_failed_total"
	MetricJournalSizeBytes = "shoreline_journal_size_bytes"
	MetricUptimeSeconds    = "shoreline_uptime_seconds"
	MetricGoroutines       = "shoreline_goroutines"
)

// Per-modality metric suffixes.
const (
	SuffixPublished      = "published_total"
	SuffixDropped        = "dropped_total"
	SuffixJournalDropped = "journal_dropped_total"
	SuffixBusTimeouts    = "bus_timeouts_total"
	SuffixAcquireErrors  = "acquire_errors_total"
	SuffixInvalid        = "invalid_total"
	SuffixQueueLength    = "queue_length"
)

// ModalitySuffixes lists every per-modality metric suffix.
var ModalitySuffixes = []string{
	SuffixPublished, SuffixDropped, SuffixJournalDropped,
	SuffixBusTimeouts, SuffixAcquireErrors, SuffixInvalid, SuffixQueueLength,
}

// EnvironmentGauges lists the gauge suffixes updated from each ambient sample.
var EnvironmentGauges = []string{
	"water_temp", "air_temp", "humidity", "pressure", "wind_speed",
	"wind_dir", "wave_height", "water_quality", "battery",
}

func ModalityMetric(m domain.Modality, suffix string) string {
	return "shoreline_" + m.String() + "_" + suffix
}

func EnvironmentMetric(field string) string {
	return "shoreline_env_" + field
}
