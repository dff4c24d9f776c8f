// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"path/filepath"
	"strings"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

// ForBrowserLaunch returns hints for browser start failures.
// Detects CI/Docker environment and suggests the relevant settings.
func ForBrowserLaunch(bin string) string {
	var hints []string

	if bin == "" {
		hints = append(hints, "install Chrome/Chromium or set WEB2PDF_BROWSER_BIN")
	} else {
		hints = append(hints, "check that "+bin+" is executable")
	}

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	// Slim images usually lack the shared memory and fonts Chromium expects.
	if inCI || IsInContainer() {
		hints = append(hints, "in containers, try --browser-flag disable-dev-shm-usage")
	}

	hints = append(hints, "run 'web2pdf doctor' for details")
	return formatHints(hints)
}

// ForLaunchTimeout returns a hint about slow browser starts.
func ForLaunchTimeout() string {
	return format("cold starts can be slow on small hosts, raise --launch-timeout")
}

// ForOperationTimeout returns a hint about waits and navigations that ran out of time.
func ForOperationTimeout() string {
	return format("pass a timeout to the operation or raise --operation-timeout")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in the user config directory.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"
	userDir := string(filepath.Separator) + "web2pdf" + string(filepath.Separator)

	for _, p := range searchedPaths {
		if strings.Contains(p, userDir) {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForScratchRoot returns hints for scratch directory failures.
func ForScratchRoot() string {
	return format("check that the scratch root is writable, or set --scratch-root")
}

// ForOutput returns hints for output file errors.
func ForOutput() string {
	return format("check parent directory exists and is writable")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
