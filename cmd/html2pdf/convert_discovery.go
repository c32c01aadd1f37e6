package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-html2pdf/internal/config"
	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// Sentinel errors for file discovery.
var (
	ErrInvalidExtension   = errors.New("file must be HTML (.html, .htm, .xhtml) or Markdown (.md, .markdown)")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// FileToConvert is one source and the PDF it becomes.
type FileToConvert struct {
	InputPath  string
	OutputPath string
}

// discoverFiles lists the sources under inputPath. A file is taken as is
// when its extension is supported; a directory is walked recursively and
// unsupported files are skipped.
func discoverFiles(inputPath, outputDir string) ([]FileToConvert, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !fileutil.IsSource(inputPath) {
			return nil, fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(inputPath))
		}
		return []FileToConvert{{InputPath: inputPath, OutputPath: resolveOutputPath(inputPath, outputDir, "")}}, nil
	}

	var files []FileToConvert
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() || !fileutil.IsSource(path) {
			return nil
		}
		files = append(files, FileToConvert{InputPath: path, OutputPath: resolveOutputPath(path, outputDir, inputPath)})
		return nil
	})
	return files, err
}

// resolveOutputPath returns the PDF path for inputPath. An outputDir ending
// in .pdf is a file name; otherwise the source's directory layout below
// baseInputDir is kept inside outputDir.
func resolveOutputPath(inputPath, outputDir, baseInputDir string) string {
	if outputDir == "" {
		return fileutil.OutputPath(inputPath, "")
	}
	if strings.EqualFold(filepath.Ext(outputDir), ".pdf") {
		return outputDir
	}
	if baseInputDir != "" {
		if rel, err := filepath.Rel(baseInputDir, inputPath); err == nil {
			return fileutil.OutputPath(inputPath, filepath.Join(outputDir, filepath.Dir(rel)))
		}
	}
	return fileutil.OutputPath(inputPath, outputDir)
}

// resolveInputPath picks the positional argument, then input.defaultDir.
func resolveInputPath(args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Input.DefaultDir != "" {
		return cfg.Input.DefaultDir, nil
	}
	return "", ErrNoInput
}

// resolveOutputDir picks the --output flag, then output.defaultDir.
func resolveOutputDir(flagOutput string, cfg *config.Config) string {
	if flagOutput != "" {
		return flagOutput
	}
	return cfg.Output.DefaultDir
}

// validateWorkers checks an explicit worker count. Zero means auto.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > config.MaxWorkers {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, config.MaxWorkers)
	}
	return nil
}
