package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-web2pdf/internal/config"
)

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath       string        // WEB2PDF_CONFIG: config file name or path
	Addr             string        // WEB2PDF_ADDR: listen address
	RequestTimeout   time.Duration // WEB2PDF_REQUEST_TIMEOUT: per-request render timeout
	BrowserBin       string        // WEB2PDF_BROWSER_BIN: browser executable
	ScratchRoot      string        // WEB2PDF_SCRATCH_ROOT: browser profile root
	LaunchTimeout    time.Duration // WEB2PDF_LAUNCH_TIMEOUT: browser launch timeout
	OperationTimeout time.Duration // WEB2PDF_OPERATION_TIMEOUT: wait and navigation timeout
	LogLevel         string        // WEB2PDF_LOG_LEVEL: debug, info, warn, error
	LogFormat        string        // WEB2PDF_LOG_FORMAT: json, console
	PDFFormat        string        // WEB2PDF_PDF_FORMAT: default paper format
	Metrics          *bool         // WEB2PDF_METRICS: enable the metrics endpoint
}

// knownEnvVars lists valid WEB2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"WEB2PDF_CONFIG":            true,
	"WEB2PDF_ADDR":              true,
	"WEB2PDF_REQUEST_TIMEOUT":   true,
	"WEB2PDF_BROWSER_BIN":       true,
	"WEB2PDF_SCRATCH_ROOT":      true,
	"WEB2PDF_LAUNCH_TIMEOUT":    true,
	"WEB2PDF_OPERATION_TIMEOUT": true,
	"WEB2PDF_LOG_LEVEL":         true,
	"WEB2PDF_LOG_FORMAT":        true,
	"WEB2PDF_PDF_FORMAT":        true,
	"WEB2PDF_METRICS":           true,
	"WEB2PDF_CONTAINER":         true,
}

// loadEnvConfig reads configuration from environment variables.
// Unparsable durations and booleans are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath:  os.Getenv("WEB2PDF_CONFIG"),
		Addr:        os.Getenv("WEB2PDF_ADDR"),
		BrowserBin:  os.Getenv("WEB2PDF_BROWSER_BIN"),
		ScratchRoot: os.Getenv("WEB2PDF_SCRATCH_ROOT"),
		LogLevel:    os.Getenv("WEB2PDF_LOG_LEVEL"),
		LogFormat:   os.Getenv("WEB2PDF_LOG_FORMAT"),
		PDFFormat:   os.Getenv("WEB2PDF_PDF_FORMAT"),
	}

	cfg.RequestTimeout = envDuration("WEB2PDF_REQUEST_TIMEOUT")
	cfg.LaunchTimeout = envDuration("WEB2PDF_LAUNCH_TIMEOUT")
	cfg.OperationTimeout = envDuration("WEB2PDF_OPERATION_TIMEOUT")

	if v := os.Getenv("WEB2PDF_METRICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics = &b
		}
	}

	return cfg
}

// envDuration parses a positive duration, returning 0 when unset or invalid.
func envDuration(name string) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// warnUnknownEnvVars logs warnings for unrecognized WEB2PDF_* variables.
// Helps catch typos like WEB2PDF_ADRR instead of WEB2PDF_ADDR.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "WEB2PDF_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Set variables override the file, and flags are applied afterwards:
// CLI flags > env vars > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if env.RequestTimeout > 0 {
		cfg.Server.RequestTimeout = config.Duration(env.RequestTimeout)
	}
	if env.BrowserBin != "" {
		cfg.Browser.Bin = env.BrowserBin
	}
	if env.ScratchRoot != "" {
		cfg.Browser.ScratchRoot = env.ScratchRoot
	}
	if env.LaunchTimeout > 0 {
		cfg.Browser.LaunchTimeout = config.Duration(env.LaunchTimeout)
	}
	if env.OperationTimeout > 0 {
		cfg.Browser.OperationTimeout = config.Duration(env.OperationTimeout)
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	if env.PDFFormat != "" {
		cfg.PDF.Format = env.PDFFormat
	}
	if env.Metrics != nil {
		cfg.Metrics.Enabled = *env.Metrics
	}
}
