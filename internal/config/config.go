package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-web2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxAddrLength   = 255
	MaxPathLength   = 4096
	MaxFlagLength   = 512
	MaxLevelLength  = 10 // "debug", "info", "warn", "error"
	MaxFormatLength = 10 // "json", "console"; paper formats fit as well
	MaxMarginLength = 20 // "12.5mm"
)

// Defaults.
const (
	DefaultAddr             = ":3000"
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultMaxBodyBytes     = 1 << 20
	DefaultScratchRoot      = "temp/browser"
	DefaultLaunchTimeout    = 30 * time.Second
	DefaultOperationTimeout = 30 * time.Second
	DefaultCleanupAttempts  = 5
	DefaultCleanupBackoff   = 100 * time.Millisecond
	DefaultPDFFormat        = "A4"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsPath      = "/metrics"

	maxCleanupAttempts = 20
)

// Duration is a time.Duration written as "30s" or "1m30s" in YAML.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the whole service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Browser BrowserConfig `yaml:"browser"`
	PDF     PDFConfig     `yaml:"pdf"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	RequestTimeout  Duration `yaml:"requestTimeout"` // 0 = bounded only by the client
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64    `yaml:"maxBodyBytes"`
}

// BrowserConfig defines how browser sessions are started and reclaimed.
type BrowserConfig struct {
	Bin              string   `yaml:"bin"` // empty = look up an installed browser
	ScratchRoot      string   `yaml:"scratchRoot"`
	LaunchTimeout    Duration `yaml:"launchTimeout"`
	OperationTimeout Duration `yaml:"operationTimeout"`
	CleanupAttempts  int      `yaml:"cleanupAttempts"`
	CleanupBackoff   Duration `yaml:"cleanupBackoff"`
	Flags            []string `yaml:"flags"` // extra command line switches, "name" or "name=value"
}

// PDFConfig defines the print options used when a request carries none.
type PDFConfig struct {
	Format          string `yaml:"format"`
	Landscape       bool   `yaml:"landscape"`
	PrintBackground bool   `yaml:"printBackground"`
	Margin          string `yaml:"margin"` // applied to all four sides, e.g. "10mm"
}

// LogConfig defines logger construction.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
		Browser: BrowserConfig{
			ScratchRoot:      DefaultScratchRoot,
			LaunchTimeout:    Duration(DefaultLaunchTimeout),
			OperationTimeout: Duration(DefaultOperationTimeout),
			CleanupAttempts:  DefaultCleanupAttempts,
			CleanupBackoff:   Duration(DefaultCleanupBackoff),
		},
		PDF: PDFConfig{
			Format: DefaultPDFFormat,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}

// Validate checks field lengths and value ranges.
// Called automatically by LoadConfig, but available for callers
// who build a Config by hand or apply overrides after loading.
func (c *Config) Validate() error {
	lengths := []struct {
		field string
		value string
		max   int
	}{
		{"server.addr", c.Server.Addr, MaxAddrLength},
		{"browser.bin", c.Browser.Bin, MaxPathLength},
		{"browser.scratchRoot", c.Browser.ScratchRoot, MaxPathLength},
		{"pdf.format", c.PDF.Format, MaxFormatLength},
		{"pdf.margin", c.PDF.Margin, MaxMarginLength},
		{"log.level", c.Log.Level, MaxLevelLength},
		{"log.format", c.Log.Format, MaxFormatLength},
		{"metrics.path", c.Metrics.Path, MaxPathLength},
	}
	for _, l := range lengths {
		if err := validateFieldLength(l.field, l.value, l.max); err != nil {
			return err
		}
	}
	for i, flag := range c.Browser.Flags {
		if err := validateFieldLength(fmt.Sprintf("browser.flags[%d]", i), flag, MaxFlagLength); err != nil {
			return err
		}
		if strings.TrimSpace(strings.TrimLeft(flag, "-")) == "" {
			return fmt.Errorf("%w: browser.flags[%d] is empty", ErrInvalidValue, i)
		}
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalidValue)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: server.maxBodyBytes must be positive", ErrInvalidValue)
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("%w: server.requestTimeout must not be negative", ErrInvalidValue)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server.shutdownTimeout must be positive", ErrInvalidValue)
	}
	if c.Browser.ScratchRoot == "" {
		return fmt.Errorf("%w: browser.scratchRoot is required", ErrInvalidValue)
	}
	if c.Browser.LaunchTimeout <= 0 {
		return fmt.Errorf("%w: browser.launchTimeout must be positive", ErrInvalidValue)
	}
	if c.Browser.OperationTimeout <= 0 {
		return fmt.Errorf("%w: browser.operationTimeout must be positive", ErrInvalidValue)
	}
	if c.Browser.CleanupAttempts < 1 || c.Browser.CleanupAttempts > maxCleanupAttempts {
		return fmt.Errorf("%w: browser.cleanupAttempts must be between 1 and %d", ErrInvalidValue, maxCleanupAttempts)
	}
	if c.Browser.CleanupBackoff < 0 {
		return fmt.Errorf("%w: browser.cleanupBackoff must not be negative", ErrInvalidValue)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q (want debug, info, warn or error)", ErrInvalidValue, c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.format %q (want json or console)", ErrInvalidValue, c.Log.Format)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path must start with /", ErrInvalidValue)
	}

	return nil
}

// validateFieldLength returns an error if value exceeds maxLength characters.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s is %d characters (max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads a configuration file by name or path. Fields the file
// leaves out keep their DefaultConfig values.
// A value containing a path separator is read as is; otherwise it is
// looked up as name.yaml or name.yml in the working directory and then in
// the user config directory under web2pdf/.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.ReadFileStrict(configPath, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode renders the configuration as YAML.
func (c *Config) Encode() ([]byte, error) {
	return yamlutil.Encode(c)
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\") || strings.HasSuffix(s, ".yaml") || strings.HasSuffix(s, ".yml")
}

// resolveConfigPath searches for a config file by name in standard locations.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	tried := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		local := name + ext
		if fileExists(local) {
			return local, nil
		}
		tried = append(tried, local)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "web2pdf", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			tried = append(tried, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
