package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: html2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Convert HTML or Markdown files to PDF (default)")
	fmt.Fprintln(w, "  doctor     Check the browser and environment")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'html2pdf help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: html2pdf [convert] <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render HTML or Markdown in headless Chrome, slice it into pages and")
	fmt.Fprintln(w, "write a PDF of page images with clickable links.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    File or directory (optional if config has input.defaultDir)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file or directory")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel browsers (0 = auto)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Page load timeout (e.g. 30s, 2m)")
	fmt.Fprintln(w, "  -s, --selector <css>      Convert only the first matching element")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Page:")
	fmt.Fprintln(w, "  -p, --page-size <s>       Paper format: a0-a6, letter, legal, tabloid, ledger")
	fmt.Fprintln(w, "      --orientation <s>     portrait or landscape")
	fmt.Fprintln(w, "      --unit <s>            mm, pt, cm or in")
	fmt.Fprintln(w, "  -m, --margin <list>       1, 2 or 4 numbers: \"10\", \"10,20\", \"10,20,10,20\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "      --backend <s>         rod (default) or chromedp")
	fmt.Fprintln(w, "      --remote-url <url>    Use a running browser")
	fmt.Fprintln(w, "      --scale <f>           Device pixel ratio (default 2)")
	fmt.Fprintln(w, "      --background <color>  Capture background (default #ffffff)")
	fmt.Fprintln(w, "      --image-type <s>      jpeg (default) or png")
	fmt.Fprintln(w, "      --quality <f>         JPEG quality in (0, 1]")
	fmt.Fprintln(w, "      --no-links            Do not add clickable link areas")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Styling:")
	fmt.Fprintln(w, "      --style <name>        default, markdown or minimal")
	fmt.Fprintln(w, "      --css <path>          Extra CSS file")
	fmt.Fprintln(w, "      --asset-path <dir>    Directory holding custom styles/")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Metadata:")
	fmt.Fprintln(w, "      --title <s>           PDF title")
	fmt.Fprintln(w, "      --subject <s>         PDF subject")
	fmt.Fprintln(w, "      --author <s>          PDF author")
	fmt.Fprintln(w, "      --keywords <s>        PDF keywords")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show timing and debug logs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  HTML2PDF_CONFIG, HTML2PDF_STYLE, HTML2PDF_TIMEOUT, HTML2PDF_INPUT_DIR,")
	fmt.Fprintln(w, "  HTML2PDF_OUTPUT_DIR, HTML2PDF_PAGE_SIZE, HTML2PDF_BACKEND,")
	fmt.Fprintln(w, "  HTML2PDF_REMOTE_URL, HTML2PDF_WORKERS")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "doctor":
		fmt.Fprintln(env.Stdout, "Usage: html2pdf doctor [--json]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Check that Chrome is installed and the environment can run it.")
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: html2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: html2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "%v: %s\n", ErrUnknownCommand, args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
