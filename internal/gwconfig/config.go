// Package gwconfig loads and validates the gateway's YAML configuration,
// mirroring config.go's Config/LoadConfig shape from the teacher while
// carrying the AES67 constants the original config.py hard-coded as module
// globals.
package gwconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	SampleRate       = 48000
	Channels         = 2
	BitDepth         = 24
	PayloadType      = 96
	SamplesPerPacket = 48
	SAPGroup         = "239.255.255.255"
	SAPPort          = 9875
	SDPOriginUser    = "SSQ"
	SDPSessionPrefix = "AES67"
)

const (
	EnvSAPSourceIP = "SAP_SRC_IP"
	EnvPTPGMID     = "PTP_GMID"
	EnvPTPDomain   = "PTP_DOMAIN"
	EnvMcastIface  = "MCAST_IFACE"
	EnvNDILib      = "NDI_LIB"
)

// Config is the root gateway configuration.
type Config struct {
	Slots      []SlotConfig     `yaml:"slots"`
	SAP        SAPConfig        `yaml:"sap"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Server     ServerConfig     `yaml:"server"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	MCP        MCPConfig        `yaml:"mcp"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SlotConfig configures one of up to four NDI-to-AES67 pipelines.
type SlotConfig struct {
	SlotID          int    `yaml:"slot_id"`
	NDISourceName   string `yaml:"ndi_source_name"`
	AES67StreamName string `yaml:"aes67_stream_name"`
	McastIP         string `yaml:"mcast_ip"`
	McastPort       int    `yaml:"mcast_port"`
}

// SAPConfig holds the SAP announcement settings read from the config file.
// LoadConfig defaults IntervalSeconds to 1.0, but the slot runtimes do not
// read it: each slot's own announcer always announces once per second.
type SAPConfig struct {
	IntervalSeconds float64 `yaml:"interval_seconds"`
}

// MonitorConfig enables an additional L16 monitor RTP flow per slot,
// supplementing the AES67 L24 flow (spec.md §9's MONITOR_ENABLE feature).
type MonitorConfig struct {
	Enabled     bool   `yaml:"enabled"`
	McastIPBase string `yaml:"mcast_ip_base"`
	PortBase    int    `yaml:"port_base"`
}

// ServerConfig configures the HTTP control-plane surface (spec.md §4.7).
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// PrometheusConfig is parsed from the config file. The HTTP server always
// serves /metrics; Enabled is not consulted.
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MQTTConfig configures optional status publishing, mirroring the
// teacher's mqtt_publisher.go settings. The TLS surface is simplified to a
// single enable flag (no client-certificate loading) since this gateway has
// no equivalent of the teacher's multi-tenant broker deployments.
type MQTTConfig struct {
	Enabled                bool   `yaml:"enabled"`
	Broker                 string `yaml:"broker"`
	ClientID               string `yaml:"client_id"`
	TopicPrefix            string `yaml:"topic_prefix"`
	Username               string `yaml:"username"`
	Password               string `yaml:"password"`
	PublishIntervalSeconds int    `yaml:"publish_interval_seconds"`
	TLSEnabled             bool   `yaml:"tls_enabled"`
}

// MCPConfig controls the Model Context Protocol tool server.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig is parsed from the config file. Debug logging is switched
// by the -debug flag and the DEBUG environment variable; Debug here is not
// consulted.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// DefaultSlots mirrors the original DEFAULT_SLOTS fallback used when a
// config file defines no slots at all.
func DefaultSlots() []SlotConfig {
	defaults := []struct {
		ip   string
		port int
	}{
		{"239.69.0.10", 5004},
		{"239.69.0.11", 5004},
		{"239.69.0.12", 5004},
		{"239.69.0.13", 5004},
	}
	slots := make([]SlotConfig, len(defaults))
	for i, d := range defaults {
		slots[i] = SlotConfig{
			SlotID:          i + 1,
			AES67StreamName: fmt.Sprintf("AES67-Slot%d", i+1),
			McastIP:         d.ip,
			McastPort:       d.port,
		}
	}
	return slots
}

// LoadConfig reads and parses a YAML config file, falling back to the
// default four slots when none are configured.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if len(cfg.Slots) == 0 {
		cfg.Slots = DefaultSlots()
	}
	if cfg.SAP.IntervalSeconds <= 0 {
		cfg.SAP.IntervalSeconds = 1.0
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8000"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the invariants spec.md §3 requires of a slot list:
// at most 4 slots, 1-4 slot IDs with no duplicates, and unique multicast
// (ip, port) endpoints across slots. The monitor flow's derived endpoints
// are not checked.
func (c *Config) Validate() error {
	if len(c.Slots) > 4 {
		return fmt.Errorf("gwconfig: at most 4 slots are supported, got %d", len(c.Slots))
	}

	seenSlotID := make(map[int]bool, len(c.Slots))
	seenEndpoint := make(map[string]int, len(c.Slots))

	for _, s := range c.Slots {
		if s.SlotID < 1 || s.SlotID > 4 {
			return fmt.Errorf("gwconfig: slot_id %d out of range 1-4", s.SlotID)
		}
		if seenSlotID[s.SlotID] {
			return fmt.Errorf("gwconfig: duplicate slot_id %d", s.SlotID)
		}
		seenSlotID[s.SlotID] = true

		if s.McastIP == "" || s.McastPort == 0 {
			return fmt.Errorf("gwconfig: slot %d missing mcast_ip/mcast_port", s.SlotID)
		}
		endpoint := fmt.Sprintf("%s:%d", s.McastIP, s.McastPort)
		if other, dup := seenEndpoint[endpoint]; dup {
			return fmt.Errorf("gwconfig: slots %d and %d share multicast endpoint %s", other, s.SlotID, endpoint)
		}
		seenEndpoint[endpoint] = s.SlotID

		if s.AES67StreamName == "" {
			return fmt.Errorf("gwconfig: slot %d missing aes67_stream_name", s.SlotID)
		}
	}

	return nil
}

// SAPSourceIP resolves the optional SAP/SDP originating source IP override.
func SAPSourceIP() string { return os.Getenv(EnvSAPSourceIP) }

// PTPIdentity resolves the optional PTP grandmaster identity and domain
// used only to populate the SDP ts-refclk attribute.
func PTPIdentity() (gmid, domain string) {
	return os.Getenv(EnvPTPGMID), os.Getenv(EnvPTPDomain)
}

// NDILibraryPath resolves the NDI_LIB override for the shared library
// location, empty when unset (the ndi package then searches default names).
func NDILibraryPath() string { return os.Getenv(EnvNDILib) }
