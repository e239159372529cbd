// Package pdf extracts plain text from PDF uploads.
//
// Text is read in-process with github.com/ledongthuc/pdf. When that yields
// nothing (scanned layouts, unusual encodings) and poppler's pdftotext is on
// PATH, the file is handed to pdftotext instead.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
	"github.com/custodia-labs/loom-gateway/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// ErrPDFToolNotFound is returned when the pdftotext fallback is needed but not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner executes external commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor implements driven.TextExtractor for PDF files.
type Extractor struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// New creates an extractor that shells out to the system pdftotext as a fallback.
func New() *Extractor {
	return NewWithRunner(execRunner{})
}

// NewWithRunner creates an extractor with a custom fallback runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner, lookPath: exec.LookPath}
}

// CheckAvailable reports whether the pdftotext fallback can be used.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// Extract returns the text of all pages joined by blank lines.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", domain.ErrExtractionFailed, filename)
	}

	text, err := readPages(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if err != nil {
		logger.Debug("pdf: in-process extraction of %s failed: %v", filename, err)
	}

	fallback, ferr := e.pdftotext(ctx, data)
	switch {
	case ferr == nil:
		return fallback, nil
	case errors.Is(ferr, ErrPDFToolNotFound) && err == nil:
		// Parsed cleanly but carried no text layer.
		return text, nil
	case errors.Is(ferr, ErrPDFToolNotFound):
		return "", fmt.Errorf("%w: %s: %v", domain.ErrExtractionFailed, filename, err)
	default:
		return "", fmt.Errorf("%w: %s: %v", domain.ErrExtractionFailed, filename, ferr)
	}
}

// readPages extracts text with the pure Go reader. The reader panics on
// some malformed inputs, so panics are turned into errors.
func readPages(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n\n"), nil
}

func (e *Extractor) pdftotext(ctx context.Context, data []byte) (string, error) {
	if _, err := e.lookPath("pdftotext"); err != nil {
		return "", ErrPDFToolNotFound
	}

	tmp, err := os.CreateTemp("", "loom-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(out), nil
}

// InstallInstructions returns instructions for installing pdftotext.
func InstallInstructions() string {
	return `pdftotext is an optional fallback for PDFs without a readable text layer.

Install it with:
  macOS:  brew install poppler
  Ubuntu: apt install poppler-utils
  Fedora: dnf install poppler-utils`
}
