package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// globalConfig stores the configuration loaded with command-line overrides
// This allows other packages to access the same configuration that was loaded by the server
var (
	globalConfig *Config
	configMutex  sync.Mutex
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	RDP      RDPConfig      `json:"rdp" yaml:"rdp"`
	Security SecurityConfig `json:"security" yaml:"security"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// LoadOptions holds command-line override options. The pointer fields
// follow a nil-means-unset convention: nil leaves the env/file/default
// resolution alone, a non-nil value forces that value regardless of what
// the environment or config file say.
type LoadOptions struct {
	Host              string
	Port              string
	LogLevel          string
	ConfigFile        string
	SkipTLSValidation bool
	AllowAnyTLSServer bool
	TLSServerName     string
	UseNLA            *bool
	EnableRFX         *bool
	EnableUDP         *bool
	PreferPCMAudio    *bool
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string        `json:"host" yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`
	Port         string        `json:"port" yaml:"port" env:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout" env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `json:"idleTimeout" yaml:"idleTimeout" env:"SERVER_IDLE_TIMEOUT" default:"120s"`
}

// RDPConfig holds RDP-specific configuration
type RDPConfig struct {
	DefaultWidth  int           `json:"defaultWidth" yaml:"defaultWidth" env:"RDP_DEFAULT_WIDTH" default:"1024"`
	DefaultHeight int           `json:"defaultHeight" yaml:"defaultHeight" env:"RDP_DEFAULT_HEIGHT" default:"768"`
	MaxWidth      int           `json:"maxWidth" yaml:"maxWidth" env:"RDP_MAX_WIDTH" default:"3840"`
	MaxHeight     int           `json:"maxHeight" yaml:"maxHeight" env:"RDP_MAX_HEIGHT" default:"2160"`
	BufferSize    int           `json:"bufferSize" yaml:"bufferSize" env:"RDP_BUFFER_SIZE" default:"65536"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout" env:"RDP_TIMEOUT" default:"10s"`
	EnableUDP     bool          `json:"enableUDP" yaml:"enableUDP" env:"RDP_ENABLE_UDP" default:"false"`
	EnableRFX     bool          `json:"enableRFX" yaml:"enableRFX" env:"RDP_ENABLE_RFX" default:"false"`
	// PreferPCMAudio selects uncompressed PCM over compressed audio formats
	// when negotiating RDPSND formats with the server.
	PreferPCMAudio bool `json:"preferPCMAudio" yaml:"preferPCMAudio" env:"RDP_PREFER_PCM_AUDIO" default:"true"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	AllowedOrigins     []string `json:"allowedOrigins" yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" default:""`
	MaxConnections     int      `json:"maxConnections" yaml:"maxConnections" env:"MAX_CONNECTIONS" default:"100"`
	EnableRateLimit    bool     `json:"enableRateLimit" yaml:"enableRateLimit" env:"ENABLE_RATE_LIMIT" default:"true"`
	RateLimitPerMinute int      `json:"rateLimitPerMinute" yaml:"rateLimitPerMinute" env:"RATE_LIMIT_PER_MINUTE" default:"60"`
	EnableTLS          bool     `json:"enableTLS" yaml:"enableTLS" env:"ENABLE_TLS" default:"false"`
	TLSCertFile        string   `json:"tlsCertFile" yaml:"tlsCertFile" env:"TLS_CERT_FILE" default:""`
	TLSKeyFile         string   `json:"tlsKeyFile" yaml:"tlsKeyFile" env:"TLS_KEY_FILE" default:""`
	MinTLSVersion      string   `json:"minTLSVersion" yaml:"minTLSVersion" env:"MIN_TLS_VERSION" default:"1.2"`
	SkipTLSValidation  bool     `json:"skipTLSValidation" yaml:"skipTLSValidation" env:"SKIP_TLS_VALIDATION" default:"false"`
	TLSServerName      string   `json:"tlsServerName" yaml:"tlsServerName" env:"TLS_SERVER_NAME" default:""`
	UseNLA             bool     `json:"useNLA" yaml:"useNLA" env:"USE_NLA" default:"true"`
	// AllowAnyTLSServer gates whether TLSServerName may override the
	// RDP host's own name for certificate validation (disables SNI
	// enforcement). Off by default since it widens what a presented
	// certificate will be accepted for.
	AllowAnyTLSServer bool `json:"allowAnyTLSServer" yaml:"allowAnyTLSServer" env:"ALLOW_ANY_TLS_SERVER" default:"false"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `json:"level" yaml:"level" env:"LOG_LEVEL" default:"info"`
	Format       string `json:"format" yaml:"format" env:"LOG_FORMAT" default:"text"`
	EnableCaller bool   `json:"enableCaller" yaml:"enableCaller" env:"LOG_ENABLE_CALLER" default:"false"`
	File         string `json:"file" yaml:"file" env:"LOG_FILE" default:""`
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	return LoadWithOverrides(LoadOptions{})
}

// LoadWithOverrides loads configuration from, in increasing priority: the
// built-in defaults, an optional YAML config file (opts.ConfigFile),
// environment variables, and finally command-line overrides in opts.
func LoadWithOverrides(opts LoadOptions) (*Config, error) {
	fileConfig, err := loadConfigFile(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	config := &Config{}

	// Server config
	config.Server.Host = resolveString("SERVER_HOST", opts.Host, fileConfig.Server.Host, "0.0.0.0")
	config.Server.Port = resolveString("SERVER_PORT", opts.Port, fileConfig.Server.Port, "8080")
	config.Server.ReadTimeout = resolveDuration("SERVER_READ_TIMEOUT", fileConfig.Server.ReadTimeout, 30*time.Second)
	config.Server.WriteTimeout = resolveDuration("SERVER_WRITE_TIMEOUT", fileConfig.Server.WriteTimeout, 30*time.Second)
	config.Server.IdleTimeout = resolveDuration("SERVER_IDLE_TIMEOUT", fileConfig.Server.IdleTimeout, 120*time.Second)

	// RDP config
	config.RDP.DefaultWidth = resolveInt("RDP_DEFAULT_WIDTH", fileConfig.RDP.DefaultWidth, 1024)
	config.RDP.DefaultHeight = resolveInt("RDP_DEFAULT_HEIGHT", fileConfig.RDP.DefaultHeight, 768)
	config.RDP.MaxWidth = resolveInt("RDP_MAX_WIDTH", fileConfig.RDP.MaxWidth, 3840)
	config.RDP.MaxHeight = resolveInt("RDP_MAX_HEIGHT", fileConfig.RDP.MaxHeight, 2160)
	config.RDP.BufferSize = resolveInt("RDP_BUFFER_SIZE", fileConfig.RDP.BufferSize, 65536)
	config.RDP.Timeout = resolveDuration("RDP_TIMEOUT", fileConfig.RDP.Timeout, 10*time.Second)
	config.RDP.EnableUDP = resolveBool("RDP_ENABLE_UDP", fileConfig.RDP.EnableUDP, false)
	if opts.EnableUDP != nil {
		config.RDP.EnableUDP = *opts.EnableUDP
	}
	config.RDP.EnableRFX = resolveBool("RDP_ENABLE_RFX", fileConfig.RDP.EnableRFX, false)
	if opts.EnableRFX != nil {
		config.RDP.EnableRFX = *opts.EnableRFX
	}
	config.RDP.PreferPCMAudio = resolveBool("RDP_PREFER_PCM_AUDIO", fileConfig.RDP.PreferPCMAudio, true)
	if opts.PreferPCMAudio != nil {
		config.RDP.PreferPCMAudio = *opts.PreferPCMAudio
	}

	// Security config
	config.Security.AllowedOrigins = resolveStringSlice("ALLOWED_ORIGINS", fileConfig.Security.AllowedOrigins, []string{})
	config.Security.MaxConnections = resolveInt("MAX_CONNECTIONS", fileConfig.Security.MaxConnections, 100)
	config.Security.EnableRateLimit = resolveBool("ENABLE_RATE_LIMIT", fileConfig.Security.EnableRateLimit, true)
	config.Security.RateLimitPerMinute = resolveInt("RATE_LIMIT_PER_MINUTE", fileConfig.Security.RateLimitPerMinute, 60)
	config.Security.EnableTLS = resolveBool("ENABLE_TLS", fileConfig.Security.EnableTLS, false)
	config.Security.TLSCertFile = resolveString("TLS_CERT_FILE", "", fileConfig.Security.TLSCertFile, "")
	config.Security.TLSKeyFile = resolveString("TLS_KEY_FILE", "", fileConfig.Security.TLSKeyFile, "")
	config.Security.MinTLSVersion = resolveString("MIN_TLS_VERSION", "", fileConfig.Security.MinTLSVersion, "1.2")
	config.Security.SkipTLSValidation = resolveBool("SKIP_TLS_VALIDATION", fileConfig.Security.SkipTLSValidation, false) || opts.SkipTLSValidation
	config.Security.TLSServerName = resolveString("TLS_SERVER_NAME", opts.TLSServerName, fileConfig.Security.TLSServerName, "")
	config.Security.AllowAnyTLSServer = resolveBool("ALLOW_ANY_TLS_SERVER", fileConfig.Security.AllowAnyTLSServer, false) || opts.AllowAnyTLSServer
	// NLA enabled by default for security; set USE_NLA=false to disable
	config.Security.UseNLA = resolveBool("USE_NLA", fileConfig.Security.UseNLA, true)
	if opts.UseNLA != nil {
		config.Security.UseNLA = *opts.UseNLA
	}

	// Logging config
	config.Logging.Level = resolveString("LOG_LEVEL", opts.LogLevel, fileConfig.Logging.Level, "info")
	config.Logging.Format = resolveString("LOG_FORMAT", "", fileConfig.Logging.Format, "text")
	config.Logging.EnableCaller = resolveBool("LOG_ENABLE_CALLER", fileConfig.Logging.EnableCaller, false)
	config.Logging.File = resolveString("LOG_FILE", "", fileConfig.Logging.File, "")

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Store the configuration globally so other packages can access it
	configMutex.Lock()
	globalConfig = config
	configMutex.Unlock()

	return config, nil
}

// loadConfigFile reads and parses an optional YAML config file, returning a
// zero-value Config when path is empty. File values sit below environment
// variables and command-line overrides but above built-in defaults.
func loadConfigFile(path string) (*Config, error) {
	fileConfig := &Config{}
	if path == "" {
		return fileConfig, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, fileConfig); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return fileConfig, nil
}

// GetGlobalConfig returns the globally stored configuration
// This should be used by packages that need access to the configuration
// loaded by the server with command-line overrides
func GetGlobalConfig() *Config {
	configMutex.Lock()
	defer configMutex.Unlock()
	return globalConfig
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}

	// Validate RDP config
	if c.RDP.DefaultWidth <= 0 || c.RDP.DefaultHeight <= 0 {
		return fmt.Errorf("default dimensions must be positive")
	}

	if c.RDP.MaxWidth < c.RDP.DefaultWidth || c.RDP.MaxHeight < c.RDP.DefaultHeight {
		return fmt.Errorf("max dimensions must be >= default dimensions")
	}

	if c.RDP.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive")
	}

	// Validate security config
	if c.Security.EnableTLS {
		if c.Security.TLSCertFile == "" || c.Security.TLSKeyFile == "" {
			return fmt.Errorf("TLS certificate and key files must be specified when TLS is enabled")
		}

		if _, err := os.Stat(c.Security.TLSCertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file does not exist: %s", c.Security.TLSCertFile)
		}

		if _, err := os.Stat(c.Security.TLSKeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file does not exist: %s", c.Security.TLSKeyFile)
		}
	}

	if c.Security.MaxConnections <= 0 {
		return fmt.Errorf("max connections must be positive")
	}

	if c.Security.RateLimitPerMinute <= 0 {
		return fmt.Errorf("rate limit per minute must be positive")
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}

	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// resolveString picks, in priority order, the command-line override, the
// environment variable, the YAML file value, then the built-in default.
func resolveString(envKey, override, fileValue, defaultValue string) string {
	if override != "" {
		return override
	}
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

func resolveInt(envKey string, fileValue, defaultValue int) int {
	if value := os.Getenv(envKey); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	if fileValue != 0 {
		return fileValue
	}
	return defaultValue
}

func resolveBool(envKey string, fileValue, defaultValue bool) bool {
	if value := os.Getenv(envKey); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	if fileValue {
		return true
	}
	return defaultValue
}

func resolveDuration(envKey string, fileValue, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(envKey); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	if fileValue != 0 {
		return fileValue
	}
	return defaultValue
}

func resolveStringSlice(envKey string, fileValue, defaultValue []string) []string {
	if value := os.Getenv(envKey); value != "" {
		return splitString(value, ",")
	}
	if len(fileValue) > 0 {
		return fileValue
	}
	return defaultValue
}

// getEnvWithDefault returns the environment variable at key, or defaultValue
// when unset.
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceWithDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return splitString(value, ",")
	}
	return defaultValue
}

// getOverrideOrEnv returns the command-line override value, the environment
// variable, or defaultValue, in that priority order.
func getOverrideOrEnv(override, envKey, defaultValue string) string {
	if override != "" {
		return override
	}
	return getEnvWithDefault(envKey, defaultValue)
}

func splitString(s, sep string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
