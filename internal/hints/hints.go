// Package hints provides actionable error hints for the command line tool.
// Hints are formatted as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// IsInContainer reports whether the process runs inside Docker.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser launch or connect failures,
// based on the CI and container environment.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about raising the page load timeout.
func ForTimeout() string {
	return format("for heavy pages, use --timeout flag")
}

// ForConfigNotFound suggests --config and a user config location among
// the searched paths.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-html2pdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStyleNotFound lists the available styles.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForMargin describes the accepted margin shapes.
func ForMargin() string {
	return format("margin takes 1, 2 or 4 non-negative numbers (top, right, bottom, left)")
}

// ForBackend lists the available rendering backends.
func ForBackend(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("backends: " + strings.Join(available, ", "))
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
