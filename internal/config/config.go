package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"skipgraph/internal/configloader"
	"skipgraph/internal/logger"
)

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"`
	Mode     string           `yaml:"mode"`
	File     FileLoggerConfig `yaml:"file"`
}

// SkipGraphConfig sizes the identifier space and the search/join
// protocol.
type SkipGraphConfig struct {
	IDBits         int           `yaml:"idBits"`
	Levels         int           `yaml:"levels"`
	HopLimit       int           `yaml:"hopLimit"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// RepairConfig tunes the best-effort neighbor liveness loop.
type RepairConfig struct {
	Interval    time.Duration `yaml:"interval"`
	PingTimeout time.Duration `yaml:"pingTimeout"`
}

type Route53Config struct {
	HostedZoneID string `yaml:"hostedZoneId"`
	DomainSuffix string `yaml:"domainSuffix"`
	TTL          int64  `yaml:"ttl"`
	Region       string `yaml:"region"`
}

type BootstrapConfig struct {
	Mode    string        `yaml:"mode"`
	Peers   []string      `yaml:"peers"`
	Route53 Route53Config `yaml:"route53"`
}

type NodeConfig struct {
	Id   string `yaml:"id"`
	Mode string `yaml:"mode"` // "public" or "private", used to auto-pick an advertised IP
	Bind string `yaml:"bind"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	SkipGraph SkipGraphConfig `yaml:"skipGraph"`
	Repair    RepairConfig    `yaml:"repair"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Node      NodeConfig      `yaml:"node"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoadConfig loads the configuration from a YAML file at the given
// path. It performs only syntactic parsing; call ValidateConfig
// afterward to check the structural correctness of the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := configloader.LoadYAML(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Supported overrides:
//
//	NODE_ID, NODE_BIND, NODE_HOST, NODE_PORT
//	SKIPGRAPH_ID_BITS, SKIPGRAPH_LEVELS, SKIPGRAPH_HOP_LIMIT, SKIPGRAPH_REQUEST_TIMEOUT
//	REPAIR_INTERVAL, PING_TIMEOUT
//	BOOTSTRAP_MODE, BOOTSTRAP_PEERS
//	ROUTE53_ZONE_ID, ROUTE53_SUFFIX, ROUTE53_TTL, ROUTE53_REGION
//	TRACING_ENABLED, TRACING_EXPORTER, TRACING_ENDPOINT
//	LOGGER_ENABLED, LOGGER_LEVEL, LOGGER_ENCODING, LOGGER_MODE, LOGGER_FILE_PATH
func (cfg *Config) ApplyEnvOverrides() {
	configloader.OverrideString(&cfg.Node.Id, "NODE_ID")
	configloader.OverrideString(&cfg.Node.Bind, "NODE_BIND")
	if cfg.Node.Bind == "" {
		cfg.Node.Bind = "0.0.0.0"
	}
	configloader.OverrideString(&cfg.Node.Host, "NODE_HOST")
	configloader.OverrideInt(&cfg.Node.Port, "NODE_PORT")

	configloader.OverrideInt(&cfg.SkipGraph.IDBits, "SKIPGRAPH_ID_BITS")
	configloader.OverrideInt(&cfg.SkipGraph.Levels, "SKIPGRAPH_LEVELS")
	configloader.OverrideInt(&cfg.SkipGraph.HopLimit, "SKIPGRAPH_HOP_LIMIT")
	configloader.OverrideDuration(&cfg.SkipGraph.RequestTimeout, "SKIPGRAPH_REQUEST_TIMEOUT")

	configloader.OverrideDuration(&cfg.Repair.Interval, "REPAIR_INTERVAL")
	configloader.OverrideDuration(&cfg.Repair.PingTimeout, "PING_TIMEOUT")

	configloader.OverrideString(&cfg.Bootstrap.Mode, "BOOTSTRAP_MODE")
	configloader.OverrideStringSlice(&cfg.Bootstrap.Peers, "BOOTSTRAP_PEERS")
	configloader.OverrideString(&cfg.Bootstrap.Route53.HostedZoneID, "ROUTE53_ZONE_ID")
	configloader.OverrideString(&cfg.Bootstrap.Route53.DomainSuffix, "ROUTE53_SUFFIX")
	configloader.OverrideInt64(&cfg.Bootstrap.Route53.TTL, "ROUTE53_TTL")
	configloader.OverrideString(&cfg.Bootstrap.Route53.Region, "ROUTE53_REGION")

	configloader.OverrideBool(&cfg.Telemetry.Tracing.Enabled, "TRACING_ENABLED")
	configloader.OverrideString(&cfg.Telemetry.Tracing.Exporter, "TRACING_EXPORTER")
	configloader.OverrideString(&cfg.Telemetry.Tracing.Endpoint, "TRACING_ENDPOINT")

	configloader.OverrideBool(&cfg.Logger.Active, "LOGGER_ENABLED")
	configloader.OverrideString(&cfg.Logger.Level, "LOGGER_LEVEL")
	configloader.OverrideString(&cfg.Logger.Encoding, "LOGGER_ENCODING")
	configloader.OverrideString(&cfg.Logger.Mode, "LOGGER_MODE")
	configloader.OverrideString(&cfg.Logger.File.Path, "LOGGER_FILE_PATH")
}

// ValidateConfig performs structural validation of the loaded
// configuration, accumulating every problem found into a single
// error rather than failing on the first one.
func (cfg *Config) ValidateConfig() error {
	var errs []string

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
		if cfg.Logger.File.MaxSize < 0 || cfg.Logger.File.MaxBackups < 0 || cfg.Logger.File.MaxAge < 0 {
			errs = append(errs, "logger.file.* values must be non-negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	if cfg.SkipGraph.IDBits <= 0 || cfg.SkipGraph.IDBits%8 != 0 {
		errs = append(errs, "skipGraph.idBits must be a positive multiple of 8")
	}
	if cfg.SkipGraph.Levels <= 0 {
		errs = append(errs, "skipGraph.levels must be > 0")
	}
	if cfg.SkipGraph.HopLimit < 0 {
		errs = append(errs, "skipGraph.hopLimit must be >= 0")
	}
	if cfg.SkipGraph.RequestTimeout <= 0 {
		errs = append(errs, "skipGraph.requestTimeout must be > 0")
	}
	if cfg.Repair.Interval <= 0 {
		errs = append(errs, "repair.interval must be > 0")
	}
	if cfg.Repair.PingTimeout <= 0 {
		errs = append(errs, "repair.pingTimeout must be > 0")
	}

	switch cfg.Bootstrap.Mode {
	case "route53":
		if cfg.Bootstrap.Route53.HostedZoneID == "" {
			errs = append(errs, "bootstrap.route53.hostedZoneId is required when mode=route53")
		}
		if cfg.Bootstrap.Route53.DomainSuffix == "" {
			errs = append(errs, "bootstrap.route53.domainSuffix is required when mode=route53")
		}
		if cfg.Bootstrap.Route53.TTL <= 0 {
			errs = append(errs, "bootstrap.route53.ttl must be > 0 when mode=route53")
		}
	case "static":
		for _, p := range cfg.Bootstrap.Peers {
			if _, _, err := net.SplitHostPort(p); err != nil {
				errs = append(errs, fmt.Sprintf("invalid peer address %q in bootstrap.peers: %v", p, err))
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid bootstrap.mode: %s (must be route53 or static)", cfg.Bootstrap.Mode))
	}

	if cfg.Node.Port < 0 || cfg.Node.Port > 65535 {
		errs = append(errs, fmt.Sprintf("node.port must be in [0,65535], got %d", cfg.Node.Port))
	}
	switch cfg.Node.Mode {
	case "public", "private":
	default:
		errs = append(errs, fmt.Sprintf("invalid node.mode: %s (must be public or private)", cfg.Node.Mode))
	}

	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
		if cfg.Telemetry.Tracing.Endpoint == "" {
			errs = append(errs, "telemetry.tracing.endpoint is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogConfig prints the loaded configuration at DEBUG level, useful
// for confirming how a deployment was actually configured.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.active", cfg.Logger.Active),
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),

		logger.F("skipGraph.idBits", cfg.SkipGraph.IDBits),
		logger.F("skipGraph.levels", cfg.SkipGraph.Levels),
		logger.F("skipGraph.hopLimit", cfg.SkipGraph.HopLimit),
		logger.F("skipGraph.requestTimeout", cfg.SkipGraph.RequestTimeout.String()),

		logger.F("repair.interval", cfg.Repair.Interval.String()),
		logger.F("repair.pingTimeout", cfg.Repair.PingTimeout.String()),

		logger.F("bootstrap.mode", cfg.Bootstrap.Mode),
		logger.F("bootstrap.peers", cfg.Bootstrap.Peers),
		logger.F("bootstrap.route53.hostedZoneId", cfg.Bootstrap.Route53.HostedZoneID),
		logger.F("bootstrap.route53.domainSuffix", cfg.Bootstrap.Route53.DomainSuffix),

		logger.F("node.id", cfg.Node.Id),
		logger.F("node.mode", cfg.Node.Mode),
		logger.F("node.bind", cfg.Node.Bind),
		logger.F("node.host", cfg.Node.Host),
		logger.F("node.port", cfg.Node.Port),

		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
		logger.F("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter),
		logger.F("telemetry.tracing.endpoint", cfg.Telemetry.Tracing.Endpoint),
	)
}
