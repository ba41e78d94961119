// Package config handles application configuration loading from YAML files
// with environment variable overrides.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "reliefapp/internal/utils"
	"reliefapp/internal/version"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Email Configuration
	Email EmailConfig `json:"email" yaml:"email"`

	// Export Configuration
	Export ExportConfig `json:"export" yaml:"export"`

	// Collaboration Configuration
	Collab CollabConfig `json:"collab" yaml:"collab"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port           string   `json:"port" yaml:"port"`
	AdminUsername  string   `json:"admin_username" yaml:"admin_username"`
	AdminPassword  string   `json:"admin_password" yaml:"admin_password"`
	SessionSecret  string   `json:"session_secret" yaml:"session_secret"`
	Debug          bool     `json:"debug" yaml:"debug"`
	LogLevel       string   `json:"log_level" yaml:"log_level"`
	BackendBaseURL string   `json:"backend_base_url" yaml:"backend_base_url"`
	AppBaseURL     string   `json:"app_base_url" yaml:"app_base_url"`
	CORSOrigins    []string `json:"cors_origins" yaml:"cors_origins"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`       // Maximum number of open connections to the database
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`       // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"` // Maximum amount of time a connection may be reused
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "http://localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "relief-backend"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`   // Default: true
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`   // Default: true
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`   // Default: true
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"`     // Default: 1.0 (100%)
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`       // Use autoexport-based SDK setup
}

// EmailConfig represents email/SMTP configuration
type EmailConfig struct {
	SMTP    SMTPConfig `json:"smtp" yaml:"smtp"`
	Enabled bool       `json:"enabled" yaml:"enabled"`
}

// SMTPConfig represents SMTP server configuration
type SMTPConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	FromAddress string `json:"from_address" yaml:"from_address"`
	FromName    string `json:"from_name" yaml:"from_name"`
}

// ExportConfig represents export orchestration configuration
type ExportConfig struct {
	// MaxConcurrent limits the number of exports rendering at the same time.
	// Additional requests wait for a slot. Zero means no limit.
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`
	// BrandTitle is printed in document headers and HTML page titles.
	BrandTitle string `json:"brand_title" yaml:"brand_title"`
	// RecordRetention controls how long completed export records are kept
	// before the admin cleanup command removes them.
	RecordRetention time.Duration `json:"record_retention" yaml:"record_retention"`
}

// CollabConfig represents collaborative editing websocket configuration
type CollabConfig struct {
	PingInterval   time.Duration `json:"ping_interval" yaml:"ping_interval"`       // Interval between server pings
	WriteWait      time.Duration `json:"write_wait" yaml:"write_wait"`             // Deadline for a single websocket write
	PongWait       time.Duration `json:"pong_wait" yaml:"pong_wait"`               // How long to wait for a pong before dropping
	MaxMessageSize int64         `json:"max_message_size" yaml:"max_message_size"` // Maximum inbound message size in bytes
}

// ShareLinkURL builds the public URL for a share token, anchored at the
// configured app base URL.
func (c *Config) ShareLinkURL(token string) string {
	base := strings.TrimRight(c.Server.AppBaseURL, "/")
	return base + "/shared/" + token
}

// ExportMaxConcurrent returns the configured export concurrency limit,
// falling back to the default when unset.
func (c *Config) ExportMaxConcurrent() int {
	if c.Export.MaxConcurrent > 0 {
		return c.Export.MaxConcurrent
	}
	return DefaultExportMaxConcurrent
}

// ExportBrandTitle returns the configured brand title with a default fallback
func (c *Config) ExportBrandTitle() string {
	if c.Export.BrandTitle != "" {
		return c.Export.BrandTitle
	}
	return DefaultBrandTitle
}

// ExportRecordRetention returns the export record retention window with a
// default fallback
func (c *Config) ExportRecordRetention() time.Duration {
	if c.Export.RecordRetention > 0 {
		return c.Export.RecordRetention
	}
	return DefaultExportRetention
}

// CollabPingInterval returns the configured ping interval with a default fallback
func (c *Config) CollabPingInterval() time.Duration {
	if c.Collab.PingInterval > 0 {
		return c.Collab.PingInterval
	}
	return DefaultCollabPingInterval
}

// CollabPongWait returns the configured pong wait with a default fallback
func (c *Config) CollabPongWait() time.Duration {
	if c.Collab.PongWait > 0 {
		return c.Collab.PongWait
	}
	return DefaultCollabPongWait
}

// CollabWriteWait returns the configured write deadline with a default fallback
func (c *Config) CollabWriteWait() time.Duration {
	if c.Collab.WriteWait > 0 {
		return c.Collab.WriteWait
	}
	return DefaultCollabWriteWait
}

// CollabMaxMessageSize returns the configured message size limit with a default fallback
func (c *Config) CollabMaxMessageSize() int64 {
	if c.Collab.MaxMessageSize > 0 {
		return c.Collab.MaxMessageSize
	}
	return DefaultCollabMaxMessageSize
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	// Load config from YAML file
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	// Override with environment variables
	config.overrideFromEnv()

	if config.OpenTelemetry.ServiceVersion == "" {
		config.OpenTelemetry.ServiceVersion = version.Version
	}

	return config, nil
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		// Get the yaml tag for the field
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		// Convert yaml tag to environment variable name
		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if uintVal, err := strconv.ParseUint(envVal, 10, 64); err == nil {
					field.SetUint(uintVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Handle string slices (like CORS_ORIGINS)
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			// Recursively process nested structs with the field name as prefix
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		case reflect.Ptr:
			// Handle pointer to struct
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file with potential local overrides
func loadConfigWithOverrides() (result0 *Config, err error) {
	// Try to load from environment variable first
	if envPath := os.Getenv("RELIEF_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	// If no environment variable is set, try default config.yaml
	return loadConfigFromFile("config.yaml")
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
