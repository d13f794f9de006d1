package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ConfigValidator checks a loaded configuration. Errors abort startup,
// warnings are only logged.
type ConfigValidator struct {
	errors   []string
	warnings []string
}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		errors:   []string{},
		warnings: []string{},
	}
}

// Validate checks the configuration for issues
func (v *ConfigValidator) Validate(cfg *AppConfig) error {
	v.errors = []string{}
	v.warnings = []string{}

	if cfg == nil {
		return fmt.Errorf("configuration validation failed: nil config")
	}

	v.validateIdentity(cfg)
	v.validateServer(cfg)
	v.validateMetrics(cfg)
	v.validateDedupe(cfg)
	v.validateNATS(cfg)

	for _, w := range v.warnings {
		logrus.Warnf("Configuration warning: %s", w)
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

// Warnings returns the warnings of the last Validate call.
func (v *ConfigValidator) Warnings() []string {
	return append([]string(nil), v.warnings...)
}

func (v *ConfigValidator) validateIdentity(cfg *AppConfig) {
	if cfg.Identity.ParticipantID == DefaultParticipantID {
		v.warnings = append(v.warnings,
			fmt.Sprintf("%s not set, series are labelled participant=%q", EnvParticipantID, DefaultParticipantID))
	}
}

func (v *ConfigValidator) validateServer(cfg *AppConfig) {
	s := cfg.Server
	if strings.TrimSpace(s.ListenAddr) == "" {
		v.errors = append(v.errors, "server.listen_addr is required")
	}
	if s.MaxBodyBytes <= 0 {
		v.errors = append(v.errors, "server.max_body_bytes must be positive")
	}
	if s.ReadHeaderTimeout < 0 || s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 {
		v.errors = append(v.errors, "server timeouts must not be negative")
	}
	if s.ShutdownTimeout <= 0 {
		v.errors = append(v.errors, "server.shutdown_timeout must be positive")
	}
}

func (v *ConfigValidator) validateMetrics(cfg *AppConfig) {
	if strings.TrimSpace(cfg.Metrics.Namespace) == "" {
		v.warnings = append(v.warnings, "metrics.namespace is empty, series names are unprefixed")
	}
	b := cfg.Metrics.LatencyBuckets
	for i := 1; i < len(b); i++ {
		if b[i] <= b[i-1] {
			v.errors = append(v.errors, "metrics.latency_buckets must be strictly increasing")
			return
		}
	}
}

func (v *ConfigValidator) validateDedupe(cfg *AppConfig) {
	if cfg.Dedupe.Enabled && cfg.Dedupe.Size <= 0 {
		v.errors = append(v.errors, "dedupe.size must be positive when dedupe is enabled")
	}
}

func (v *ConfigValidator) validateNATS(cfg *AppConfig) {
	if cfg.NATS.URL == "" {
		return
	}
	if strings.TrimSpace(cfg.NATS.Subject) == "" {
		v.errors = append(v.errors, "nats.subject is required when nats.url is set")
	}
}
