package main

import (
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
)

// runConfig prints the effective configuration as YAML, after the file,
// the environment and the flags have been applied.
func runConfig(args []string, env *Environment) error {
	f := &serveFlags{}
	fs := newFlagSet("config", env.Stderr, printConfigUsage)
	addCommonFlags(fs, &f.common)
	addBrowserFlags(fs, &f.browser)
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address")
	fs.DurationVar(&f.requestTimeout, "request-timeout", 0, "per-request render timeout")
	fs.BoolVar(&f.noMetrics, "no-metrics", false, "disable the metrics endpoint")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return parseError(err)
	}

	cfg, err := loadBaseConfig(f.common.config)
	if err != nil {
		return err
	}
	applyServeFlags(fs, f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	out, err := cfg.Encode()
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = env.Stdout.Write(out)
	return err
}
