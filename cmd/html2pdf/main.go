package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ErrUnknownCommand is returned for an unrecognized subcommand.
var ErrUnknownCommand = errors.New("unknown command")

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], DefaultEnv()))
}

// runMain dispatches the subcommand and returns the process exit code.
// Arguments that do not name a command are handed to convert.
func runMain(ctx context.Context, args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	switch args[0] {
	case "help", "-h", "--help":
		return runHelp(args[1:], env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "html2pdf %s\n", Version)
		return ExitSuccess
	case "doctor":
		return runDoctorCmd(args[1:], env)
	case "convert":
		return runConvertCmd(ctx, args[1:], env)
	default:
		return runConvertCmd(ctx, args, env)
	}
}

// runConvertCmd parses the convert flags, sets up logging and signals,
// and runs the batch.
func runConvertCmd(ctx context.Context, args []string, env *Environment) int {
	flags, positional, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\nRun 'html2pdf help convert' for usage.\n", err)
		return ExitUsage
	}

	logger := newLogger(env.Stderr, flags.common.verbose, flags.common.quiet)
	defer func() { _ = logger.Sync() }()

	// maxprocs.Set only fails on an invalid GOMAXPROCS, in which case the
	// runtime default stays.
	_, _ = maxprocs.Set(maxprocs.Logger(logger.Sugar().Debugf))

	ctx, stop := notifyContext(ctx)
	defer stop()

	if err := runConvert(ctx, positional, flags, env, logger); err != nil {
		if errors.Is(err, ErrConversion) {
			fmt.Fprintf(env.Stderr, "error: %v\n", err)
		} else {
			fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		}
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// newLogger builds a console logger on w. Verbose enables debug output;
// quiet keeps errors only; otherwise warnings and up are shown.
func newLogger(w io.Writer, verbose, quiet bool) *zap.Logger {
	level := zapcore.WarnLevel
	switch {
	case verbose:
		level = zapcore.DebugLevel
	case quiet:
		level = zapcore.ErrorLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	if verbose {
		return zap.New(core, zap.AddCaller())
	}
	return zap.New(core)
}
