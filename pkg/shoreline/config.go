package shoreline

import (
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/opcua"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/radio"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// NodeConfig describes this node on the mesh.
	NodeConfig = config.NodeConfig
	// PolicyConfig controls queue capacities and lock timeouts.
	PolicyConfig = config.PolicyConfig
	// ScheduleConfig holds cron specs and polling intervals.
	ScheduleConfig = config.ScheduleConfig
	// SensorsConfig selects a driver per modality.
	SensorsConfig = config.SensorsConfig
	// RadioConfig selects the radio transport.
	RadioConfig = config.RadioConfig
	// ZMQConfig configures the ZeroMQ air medium.
	ZMQConfig = radio.ZMQConfig
	// OPCUAConfig holds the weather-station connection and tag mapping.
	OPCUAConfig = opcua.Config
	// OPCUANodeConfig maps a station tag to an environmental field.
	OPCUANodeConfig = opcua.NodeConfig
	DirectoryConfig = config.DirectoryConfig
	JournalConfig   = config.JournalConfig
	SinksConfig     = config.SinksConfig
	TimescaleConfig = config.TimescaleConfig
	MongoConfig     = config.MongoConfig
	KafkaConfig     = config.KafkaConfig
	HTTPConfig      = config.HTTPConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a fully simulated node configuration.
func DefaultConfig() *Config {
	return config.Default()
}
