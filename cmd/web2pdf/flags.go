package main

import (
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-web2pdf/internal/config"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	logLevel  string
	logFormat string
}

// browserFlags holds browser session flags.
type browserFlags struct {
	bin              string
	scratchRoot      string
	launchTimeout    time.Duration
	operationTimeout time.Duration
	flags            []string
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common         commonFlags
	browser        browserFlags
	addr           string
	requestTimeout time.Duration
	noMetrics      bool
}

// renderFlags holds flags for the render command.
type renderFlags struct {
	common     commonFlags
	browser    browserFlags
	output     string
	pdfOptions string
	operations string
	plan       bool
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: json, console")
}

func addBrowserFlags(fs *flag.FlagSet, f *browserFlags) {
	fs.StringVar(&f.bin, "browser-bin", "", "browser executable")
	fs.StringVar(&f.scratchRoot, "scratch-root", "", "directory holding browser profiles")
	fs.DurationVar(&f.launchTimeout, "launch-timeout", 0, "browser launch timeout")
	fs.DurationVar(&f.operationTimeout, "operation-timeout", 0, "default timeout of waits and navigations")
	fs.StringArrayVar(&f.flags, "browser-flag", nil, "extra browser switch, repeatable")
}

// newFlagSet creates a flag set that reports errors instead of exiting.
func newFlagSet(name string, w io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { usage(w) }
	return fs
}

// parseError wraps a pflag error so it maps to the usage exit code.
// flag.ErrHelp is passed through untouched.
func parseError(err error) error {
	if err == nil || err == flag.ErrHelp {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

func parseServeFlags(args []string, w io.Writer) (*serveFlags, *flag.FlagSet, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve", w, printServeUsage)
	addCommonFlags(fs, &f.common)
	addBrowserFlags(fs, &f.browser)
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address")
	fs.DurationVar(&f.requestTimeout, "request-timeout", 0, "per-request render timeout")
	fs.BoolVar(&f.noMetrics, "no-metrics", false, "disable the metrics endpoint")

	if err := fs.Parse(args); err != nil {
		return nil, nil, parseError(err)
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("%w: serve takes no arguments, got %q", ErrUsage, fs.Args())
	}
	return f, fs, nil
}

func parseRenderFlags(args []string, w io.Writer) (*renderFlags, []string, *flag.FlagSet, error) {
	f := &renderFlags{}
	fs := newFlagSet("render", w, printRenderUsage)
	addCommonFlags(fs, &f.common)
	addBrowserFlags(fs, &f.browser)
	fs.StringVarP(&f.output, "output", "o", "", "output file, - for stdout")
	fs.StringVar(&f.pdfOptions, "pdf-options", "", "print options as JSON, or @file")
	fs.StringVar(&f.operations, "operations", "", "operation list as JSON, or @file")
	fs.BoolVar(&f.plan, "plan", false, "print the normalized plan instead of rendering")

	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, parseError(err)
	}
	return f, fs.Args(), fs, nil
}

// applyCommonFlags overrides config values with explicitly set flags.
func applyCommonFlags(fs *flag.FlagSet, f *commonFlags, cfg *config.Config) {
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
}

// applyBrowserFlags overrides config values with explicitly set flags.
func applyBrowserFlags(fs *flag.FlagSet, f *browserFlags, cfg *config.Config) {
	if fs.Changed("browser-bin") {
		cfg.Browser.Bin = f.bin
	}
	if fs.Changed("scratch-root") {
		cfg.Browser.ScratchRoot = f.scratchRoot
	}
	if fs.Changed("launch-timeout") {
		cfg.Browser.LaunchTimeout = config.Duration(f.launchTimeout)
	}
	if fs.Changed("operation-timeout") {
		cfg.Browser.OperationTimeout = config.Duration(f.operationTimeout)
	}
	if fs.Changed("browser-flag") {
		cfg.Browser.Flags = append(cfg.Browser.Flags, f.flags...)
	}
}

// applyServeFlags overrides config values with explicitly set serve flags.
func applyServeFlags(fs *flag.FlagSet, f *serveFlags, cfg *config.Config) {
	applyCommonFlags(fs, &f.common, cfg)
	applyBrowserFlags(fs, &f.browser, cfg)
	if fs.Changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if fs.Changed("request-timeout") {
		cfg.Server.RequestTimeout = config.Duration(f.requestTimeout)
	}
	if f.noMetrics {
		cfg.Metrics.Enabled = false
	}
}
