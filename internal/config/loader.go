package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultParticipantID is used when PARTICIPANT_ID is not set.
	DefaultParticipantID = "unknown"

	EnvParticipantID = "PARTICIPANT_ID"
	EnvListenAddr    = "LISTEN_ADDR"
	EnvLogLevel      = "LOG_LEVEL"
	EnvNATSURL       = "NATS_URL"

	envPrefix = "SIDECAR"
)

type IdentityConfig struct {
	ParticipantID string `mapstructure:"participant_id" yaml:"participant_id"`
}

type MetricsConfig struct {
	Namespace         string    `mapstructure:"namespace" yaml:"namespace"`
	LatencyBuckets    []float64 `mapstructure:"latency_buckets" yaml:"latency_buckets"`
	RuntimeCollectors bool      `mapstructure:"runtime_collectors" yaml:"runtime_collectors"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text | json
}

type DedupeConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Size    int  `mapstructure:"size" yaml:"size"`
}

type NATSConfig struct {
	// Empty URL disables NATS ingestion.
	URL     string `mapstructure:"url" yaml:"url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
	Name    string `mapstructure:"name" yaml:"name"`
}

type AppConfig struct {
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Dedupe   DedupeConfig   `mapstructure:"dedupe" yaml:"dedupe"`
	NATS     NATSConfig     `mapstructure:"nats" yaml:"nats"`
}

// DefaultLatencyBuckets are the bucket bounds of the transfer latency
// histogram unless configured otherwise.
func DefaultLatencyBuckets() []float64 {
	return []float64{.005, .01, .025, .05, .075, .1, .25, .5, .75, 1, 2.5, 5, 7.5, 10}
}

func setDefaults(v *viper.Viper) {
	server := DefaultServerConfig()

	v.SetDefault("identity.participant_id", DefaultParticipantID)

	v.SetDefault("server.listen_addr", server.ListenAddr)
	v.SetDefault("server.read_header_timeout", server.ReadHeaderTimeout)
	v.SetDefault("server.read_timeout", server.ReadTimeout)
	v.SetDefault("server.write_timeout", server.WriteTimeout)
	v.SetDefault("server.idle_timeout", server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", server.MaxBodyBytes)

	v.SetDefault("metrics.namespace", "dataspace")
	v.SetDefault("metrics.latency_buckets", DefaultLatencyBuckets())
	v.SetDefault("metrics.runtime_collectors", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("dedupe.enabled", true)
	v.SetDefault("dedupe.size", 10000)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "dataspace.events.transfer")
	v.SetDefault("nats.name", "observability-sidecar")
}

// Load builds the configuration from defaults, the optional YAML file at path
// and the environment. Environment variables win over the file.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"identity.participant_id": EnvParticipantID,
		"server.listen_addr":      EnvListenAddr,
		"logging.level":           EnvLogLevel,
		"nats.url":                EnvNATSURL,
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := NewConfigValidator().Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) normalize() {
	c.Identity.ParticipantID = strings.TrimSpace(c.Identity.ParticipantID)
	if c.Identity.ParticipantID == "" {
		c.Identity.ParticipantID = DefaultParticipantID
	}
	if len(c.Metrics.LatencyBuckets) == 0 {
		c.Metrics.LatencyBuckets = DefaultLatencyBuckets()
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Dump renders the effective configuration as YAML.
func Dump(cfg *AppConfig) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
