package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-html2pdf/internal/assets"
	"github.com/alnah/go-html2pdf/internal/hints"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"`
	Chrome   chromeInfo `json:"chrome"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
	Remote  string `json:"remote_url,omitempty"`
}

type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

type systemInfo struct {
	TempWritable bool     `json:"temp_writable"`
	Styles       []string `json:"styles"`
}

// doctorProbe is what the checks read from the host.
type doctorProbe struct {
	getenv      func(string) string
	lookPath    func() (string, bool)
	version     func(bin string) (string, error)
	inContainer func() bool
	tempDir     string
}

func defaultProbe(getenv func(string) string) doctorProbe {
	return doctorProbe{
		getenv:      getenv,
		lookPath:    launcher.LookPath,
		version:     chromeVersion,
		inContainer: hints.IsInContainer,
		tempDir:     os.TempDir(),
	}
}

// runDoctorCmd prints the diagnosis. Warnings still exit 0.
func runDoctorCmd(args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	jsonOutput := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	result := runDoctor(defaultProbe(env.Getenv))
	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

func runDoctor(p doctorProbe) *doctorResult {
	result := &doctorResult{
		Status: statusReady,
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  p.getenv("ROD_NO_SANDBOX"),
			BrowserBin: p.getenv("ROD_BROWSER_BIN"),
		},
		System: systemInfo{Styles: assets.EmbeddedStyles()},
	}

	checkChrome(result, p)
	checkEnvironment(result, p)
	checkSystem(result, p)

	switch {
	case len(result.Errors) > 0:
		result.Status = statusErrors
	case len(result.Warnings) > 0:
		result.Status = statusWarnings
	}
	return result
}

// checkChrome locates Chrome. A remote browser makes a local one optional.
func checkChrome(result *doctorResult, p doctorProbe) {
	result.Chrome.Remote = p.getenv("HTML2PDF_REMOTE_URL")
	result.Chrome.Sandbox = result.Env.NoSandbox != "1"

	bin := result.Env.BrowserBin
	if bin == "" {
		var found bool
		if bin, found = p.lookPath(); !found {
			missing := "Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN"
			if result.Chrome.Remote != "" {
				result.Warnings = append(result.Warnings, missing)
			} else {
				result.Errors = append(result.Errors, missing)
			}
			return
		}
	}
	if _, err := os.Stat(bin); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Chrome not found at %s", bin))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = bin
	v, err := p.version(bin)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get Chrome version: %v", err))
		return
	}
	result.Chrome.Version = v
}

func chromeVersion(bin string) (string, error) {
	out, err := exec.Command(bin, "--version").Output() // #nosec G204 -- browser path from env or launcher
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// checkEnvironment detects containers and CI, where Chrome needs its
// sandbox disabled.
func checkEnvironment(result *doctorResult, p doctorProbe) {
	result.Env.Container, result.Env.ContainerHint = isContainer(p)

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if p.getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer returns whether a container was detected and which signal
// said so.
func isContainer(p doctorProbe) (bool, string) {
	switch {
	case p.getenv("HTML2PDF_CONTAINER") == "1":
		return true, "HTML2PDF_CONTAINER=1"
	case p.inContainer():
		return true, "/.dockerenv"
	case p.getenv("container") != "":
		return true, "container=" + p.getenv("container")
	case p.getenv("KUBERNETES_SERVICE_HOST") != "":
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory rasterizers write into.
func checkSystem(result *doctorResult, p doctorProbe) {
	probe := filepath.Join(p.tempDir, "html2pdf-doctor-test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Temp directory not writable: %s", p.tempDir))
		return
	}
	_ = os.Remove(probe)
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "html2pdf doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	switch {
	case r.Chrome.Found:
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	case r.Chrome.Remote != "":
		fmt.Fprintf(w, "  [OK] Remote: %s\n", r.Chrome.Remote)
	default:
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintf(w, "  [OK] Styles: %s\n", strings.Join(r.System.Styles, ", "))
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", e)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to convert")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
