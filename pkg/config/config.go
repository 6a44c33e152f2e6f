// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Broker, Storage, OCR, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Broker  BrokerConfig  `yaml:"broker"`
	Storage StorageConfig `yaml:"storage"`
	OCR     OCRConfig     `yaml:"ocr"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the ingestion service.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
}

// UnmarshalYAML decodes ServerConfig, parsing durations from strings like
// "30s" (yaml.v3 has no native time.Duration support). Absent keys keep the
// values already present, so defaults survive partial config files.
func (s *ServerConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Port            *int    `yaml:"port"`
		ReadTimeout     *string `yaml:"readTimeout"`
		WriteTimeout    *string `yaml:"writeTimeout"`
		RequestTimeout  *string `yaml:"requestTimeout"`
		ShutdownTimeout *string `yaml:"shutdownTimeout"`
		MaxUploadBytes  *int64  `yaml:"maxUploadBytes"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Port != nil {
		s.Port = *raw.Port
	}
	if raw.MaxUploadBytes != nil {
		s.MaxUploadBytes = *raw.MaxUploadBytes
	}
	for _, f := range []struct {
		src *string
		dst *time.Duration
	}{
		{raw.ReadTimeout, &s.ReadTimeout},
		{raw.WriteTimeout, &s.WriteTimeout},
		{raw.RequestTimeout, &s.RequestTimeout},
		{raw.ShutdownTimeout, &s.ShutdownTimeout},
	} {
		if f.src == nil {
			continue
		}
		d, err := time.ParseDuration(*f.src)
		if err != nil {
			return fmt.Errorf("parsing duration %q: %w", *f.src, err)
		}
		*f.dst = d
	}
	return nil
}

// BrokerConfig holds RabbitMQ connection parameters and the fixed publish
// destination. The exchange must already exist on the broker; the publisher
// declares it passively and never creates it.
type BrokerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routingKey"`
}

// URL returns an amqp:// connection URL for the broker.
func (b BrokerConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", b.User, b.Password, b.Host, b.Port)
}

// StorageConfig holds the shared-volume layout used to hand documents to
// downstream workers, plus the dispatcher's queue sizing.
type StorageConfig struct {
	SharedRoot    string `yaml:"sharedRoot"`
	DeadLetterDir string `yaml:"deadLetterDir"`
	QueueSize     int    `yaml:"queueSize"`
	Workers       int    `yaml:"workers"`
}

// OCRConfig identifies the Document AI processor used for text extraction.
// All three fields are required; there are no defaults.
type OCRConfig struct {
	ProjectID   string `yaml:"projectId"`
	Location    string `yaml:"location"`
	ProcessorID string `yaml:"processorId"`
}

// Validate reports a configuration error if any processor field is missing.
func (o OCRConfig) Validate() error {
	if o.ProjectID == "" {
		return fmt.Errorf("ocr: projectId is required (set GOOGLE_OCR_PROJECT_ID)")
	}
	if o.Location == "" {
		return fmt.Errorf("ocr: location is required (set GOOGLE_OCR_LOCATION)")
	}
	if o.ProcessorID == "" {
		return fmt.Errorf("ocr: processorId is required (set GOOGLE_OCR_PROCESSOR_ID)")
	}
	return nil
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with defaults matching the compose stack the
// broker container ships with. Only broker and storage parameters have
// defaults; the OCR processor triple must always be supplied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  25 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Broker: BrokerConfig{
			Host:       "ai-message-broker",
			Port:       5672,
			User:       "guest",
			Password:   "guest",
			Exchange:   "ai_system_exchange",
			RoutingKey: "request",
		},
		Storage: StorageConfig{
			SharedRoot:    "/shared_data",
			DeadLetterDir: "deadletter",
			QueueSize:     256,
			Workers:       4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads environment variables and overrides the
// corresponding config fields. The broker and OCR variables keep the names
// the rest of the deployment already uses.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INGEST_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RABBITMQ_HOST"); v != "" {
		cfg.Broker.Host = v
	}
	if v := os.Getenv("RABBITMQ_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Broker.Port = port
		}
	}
	if v := os.Getenv("RABBITMQ_USER"); v != "" {
		cfg.Broker.User = v
	}
	if v := os.Getenv("RABBITMQ_PASS"); v != "" {
		cfg.Broker.Password = v
	}
	if v := os.Getenv("INGEST_EXCHANGE"); v != "" {
		cfg.Broker.Exchange = v
	}
	if v := os.Getenv("INGEST_ROUTING_KEY"); v != "" {
		cfg.Broker.RoutingKey = v
	}
	if v := os.Getenv("SHARED_VOLUME_PATH"); v != "" {
		cfg.Storage.SharedRoot = v
	}
	if v := os.Getenv("GOOGLE_OCR_PROJECT_ID"); v != "" {
		cfg.OCR.ProjectID = v
	}
	if v := os.Getenv("GOOGLE_OCR_LOCATION"); v != "" {
		cfg.OCR.Location = v
	}
	if v := os.Getenv("GOOGLE_OCR_PROCESSOR_ID"); v != "" {
		cfg.OCR.ProcessorID = v
	}
	if v := os.Getenv("INGEST_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INGEST_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("INGEST_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
