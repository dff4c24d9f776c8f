package main

import (
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	web2pdf "github.com/alnah/go-web2pdf"
	"github.com/alnah/go-web2pdf/internal/config"
	"github.com/alnah/go-web2pdf/internal/logging"
)

// loadBaseConfig returns the config file named by --config or
// WEB2PDF_CONFIG with environment overrides applied, or the defaults
// when neither is set.
func loadBaseConfig(configFlag string) (*config.Config, error) {
	env := loadEnvConfig()

	name := configFlag
	if name == "" {
		name = env.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvConfig(env, cfg)
	return cfg, nil
}

// pdfDefaults converts the pdf section of the config into print options.
func pdfDefaults(c config.PDFConfig) (web2pdf.PDFOptions, error) {
	m := web2pdf.Length(strings.TrimSpace(c.Margin))
	opts := web2pdf.PDFOptions{
		Format:          c.Format,
		Landscape:       c.Landscape,
		PrintBackground: c.PrintBackground,
		Margin:          web2pdf.Margin{Top: m, Right: m, Bottom: m, Left: m},
	}
	if err := opts.Validate(); err != nil {
		return web2pdf.PDFOptions{}, fmt.Errorf("%w: pdf: %v", config.ErrInvalidValue, err)
	}
	return opts, nil
}

// newRenderer builds a Renderer from the effective configuration.
// rec may be nil.
func newRenderer(cfg *config.Config, logger *zap.Logger, env *Environment, rec web2pdf.Recorder) (*web2pdf.Renderer, error) {
	defaults, err := pdfDefaults(cfg.PDF)
	if err != nil {
		return nil, err
	}

	engine := env.Engine
	if engine == nil {
		engine = &web2pdf.RodEngine{
			Bin:    cfg.Browser.Bin,
			Flags:  cfg.Browser.Flags,
			Logger: logging.Component(logger, "browser"),
		}
	}

	opts := []web2pdf.Option{
		web2pdf.WithEngine(engine),
		web2pdf.WithLogger(logger),
		web2pdf.WithScratchRoot(cfg.Browser.ScratchRoot),
		web2pdf.WithLaunchTimeout(cfg.Browser.LaunchTimeout.Std()),
		web2pdf.WithOperationTimeout(cfg.Browser.OperationTimeout.Std()),
		web2pdf.WithCleanupRetry(cfg.Browser.CleanupAttempts, cfg.Browser.CleanupBackoff.Std()),
		web2pdf.WithDefaultPDFOptions(defaults),
	}
	if rec != nil {
		opts = append(opts, web2pdf.WithRecorder(rec))
	}
	return web2pdf.NewRenderer(opts...), nil
}

// newLogger builds the process logger from the config.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidValue, err)
	}
	return logger, nil
}

// configFromFlags loads the base config and layers the common and
// browser flags on top.
func configFromFlags(fs *flag.FlagSet, common *commonFlags, browser *browserFlags) (*config.Config, error) {
	cfg, err := loadBaseConfig(common.config)
	if err != nil {
		return nil, err
	}
	applyCommonFlags(fs, common, cfg)
	applyBrowserFlags(fs, browser, cfg)
	return cfg, nil
}
