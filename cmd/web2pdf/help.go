package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: web2pdf [command] [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Run the HTTP render service (default)")
	fmt.Fprintln(w, "  render     Render one URL to a PDF file")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  doctor     Check the browser and the host")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'web2pdf help <command>' for details on a specific command.")
}

func printCommonFlags(w io.Writer) {
	fmt.Fprintln(w, "General:")
	fmt.Fprintln(w, "  -c, --config <name>           Config file name or path")
	fmt.Fprintln(w, "      --log-level <s>           Log level: debug, info, warn, error")
	fmt.Fprintln(w, "      --log-format <s>          Log format: json, console")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Browser:")
	fmt.Fprintln(w, "      --browser-bin <path>      Browser executable (default: look up)")
	fmt.Fprintln(w, "      --scratch-root <dir>      Directory holding browser profiles")
	fmt.Fprintln(w, "      --launch-timeout <d>      Browser launch timeout (e.g. 30s)")
	fmt.Fprintln(w, "      --operation-timeout <d>   Default wait and navigation timeout")
	fmt.Fprintln(w, "      --browser-flag <s>        Extra browser switch, repeatable")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: web2pdf [serve] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run the HTTP service. POST /print renders a page to PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <addr>             Listen address (default :3000)")
	fmt.Fprintln(w, "      --request-timeout <d>     Per-request render timeout (0 = none)")
	fmt.Fprintln(w, "      --no-metrics              Disable the metrics endpoint")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: web2pdf render [url] -o <file> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render one page to PDF without starting the service.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  url    Destination (optional if --operations contains goto)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render:")
	fmt.Fprintln(w, "  -o, --output <path>           Output file, - for stdout")
	fmt.Fprintln(w, "      --pdf-options <json>      Print options, inline or @file")
	fmt.Fprintln(w, "      --operations <json>       Operation list, inline or @file")
	fmt.Fprintln(w, "      --plan                    Print the normalized plan and exit")
	fmt.Fprintln(w)
	printCommonFlags(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Example:")
	fmt.Fprintln(w, `  web2pdf render https://example.com -o page.pdf --pdf-options '{"format":"Letter"}'`)
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: web2pdf config [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the effective configuration as YAML. Accepts the serve flags.")
	fmt.Fprintln(w, "Precedence: flags > WEB2PDF_* environment > config file > defaults.")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: web2pdf doctor [--json] [-c <config>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that a browser can be found and the scratch root is writable.")
	fmt.Fprintln(w, "Exits with 1 when an error is found.")
}

// runHelp prints help for a command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}
	switch args[0] {
	case "serve":
		printServeUsage(env.Stdout)
	case "render":
		printRenderUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version", "help":
		printUsage(env.Stdout)
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
