// Package raster converts report PDFs into ordered page images for the
// vision model, shelling out to poppler.
package raster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Config for the poppler-backed rasterizer.
type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	DPI       int    // rasterization DPI, default 200
	MaxPages  int    // 0 = no limit
}

// Result holds the rasterized pages for one document, in page order.
type Result struct {
	Pages []string // absolute paths to page images, first page first
	// HasText records whether the PDF carried an extractable text layer.
	// Diagnostic only: the pipeline always proceeds through the image path.
	HasText bool
}

// Rasterizer turns a PDF path into ordered page images. The returned
// cleanup func removes every temporary artifact and must be called on all
// exit paths.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string) (*Result, func(), error)
}

// Poppler rasterizes through pdftoppm, one JPEG per page.
type Poppler struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Poppler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	return &Poppler{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Rasterize renders every page of the PDF into a scoped temp directory.
// Failure to parse or render the document is a ConversionError; the engine
// treats it as terminal.
func (p *Poppler) Rasterize(ctx context.Context, pdfPath string) (*Result, func(), error) {
	tmpDir, err := os.MkdirTemp("", "sa-pages-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			// Cleanup failures are logged, never escalated.
			p.logger.Warn("raster.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -jpeg <in.pdf> <tmp/page>
	_, errb, err := p.runner.Run(ctx, p.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", p.cfg.DPI), "-jpeg", pdfPath, prefix)
	if err != nil {
		cleanup()
		return nil, nil, &ConversionError{Path: pdfPath, Stderr: string(errb), Cause: err}
	}

	// collect generated jpegs (prefix-1.jpg, prefix-2.jpg, ...);
	// pdftoppm zero-pads page numbers so a lexical sort is page order
	matches, _ := filepath.Glob(prefix + "-*.jpg")
	sort.Strings(matches)
	if p.cfg.MaxPages > 0 && len(matches) > p.cfg.MaxPages {
		matches = matches[:p.cfg.MaxPages]
	}
	if len(matches) == 0 {
		cleanup()
		return nil, nil, &ConversionError{Path: pdfPath, Stderr: "pdftoppm produced no images", Cause: fmt.Errorf("no pages rendered")}
	}

	res := &Result{Pages: matches, HasText: p.probeText(ctx, pdfPath)}
	p.logger.Info("raster.ok", "path", pdfPath, "pages", len(res.Pages), "has_text", res.HasText)
	return res, cleanup, nil
}

// probeText checks for an embedded text layer. The result is recorded for
// diagnostics only; it never changes which pipeline runs.
func (p *Poppler) probeText(ctx context.Context, pdfPath string) bool {
	// pdftotext -enc UTF-8 <path> -
	out, _, err := p.runner.Run(ctx, p.cfg.Pdftotext, "-enc", "UTF-8", pdfPath, "-")
	if err != nil {
		p.logger.Debug("raster.text_probe_failed", "path", pdfPath, "error", err)
		return false
	}
	return strings.TrimSpace(string(out)) != ""
}

// ConversionError means poppler could not parse or render the document.
type ConversionError struct {
	Path   string
	Stderr string
	Cause  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("rasterize %s: %v", e.Path, e.Cause)
}

func (e *ConversionError) Unwrap() error { return e.Cause }
