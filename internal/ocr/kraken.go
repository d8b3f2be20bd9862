package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const krakenBinary = "kraken"

// Kraken runs the kraken CLI over one image at a time:
//
//	kraken -i <input> <output> binarize segment -bl ocr -m <model>
//
// The -bl flag selects baseline segmentation, which matches baseline-trained
// recognizers.
type Kraken struct {
	model string
}

// NewKraken builds a kraken engine bound to an already-resolved model.
func NewKraken(model string) *Kraken {
	return &Kraken{model: model}
}

// Name identifies the engine in work identities and output records.
func (k *Kraken) Name() string { return "kraken" }

// Recognize runs OCR on a single image and returns the recognized text,
// which may be empty for blank pages.
func (k *Kraken) Recognize(ctx context.Context, imagePath string) (Result, error) {
	start := time.Now()

	outDir, err := os.MkdirTemp("", "barnacle-kraken-")
	if err != nil {
		return Result{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(outDir)
	outPath := filepath.Join(outDir, "out.txt")

	cmd := exec.CommandContext(ctx, krakenBinary,
		"-i", imagePath, outPath,
		"binarize", "segment", "-bl", "ocr", "-m", k.model,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Result{}, &Error{Engine: k.Name(), Retryable: false,
				Err: errors.New("kraken CLI not found on PATH")}
		}
		if ctx.Err() != nil {
			return Result{}, &Error{Engine: k.Name(), Retryable: true, Err: ctx.Err()}
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return Result{}, &Error{Engine: k.Name(), Retryable: true,
			Err: fmt.Errorf("kraken failed: %s", detail)}
	}

	text, err := os.ReadFile(outPath)
	if err != nil {
		if os.IsNotExist(err) {
			// kraken exits zero without writing output for some inputs.
			return Result{
				Elapsed:  time.Since(start),
				Warnings: []string{"kraken produced no output file"},
			}, nil
		}
		return Result{}, fmt.Errorf("read kraken output: %w", err)
	}

	return Result{
		Text:    string(text),
		Elapsed: time.Since(start),
	}, nil
}

// KrakenResolver resolves model references for the kraken backend. DOI-like
// references are installed via `kraken get` when auto-install is enabled;
// anything else passes through unchanged.
type KrakenResolver struct {
	AutoInstall bool
}

var modelFilesRe = regexp.MustCompile(`\(model files:\s*([^\)]+)\)`)

// Resolve installs the model if needed and returns the model actually loaded.
func (r *KrakenResolver) Resolve(ctx context.Context, modelRef string) (string, error) {
	looksLikeDOI := strings.HasPrefix(modelRef, "10.") || strings.Contains(modelRef, "zenodo.")
	if !looksLikeDOI || !r.AutoInstall {
		return modelRef, nil
	}

	cmd := exec.CommandContext(ctx, krakenBinary, "get", modelRef)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", errors.New("kraken CLI not found on PATH")
		}
		return "", fmt.Errorf("kraken get %s: %s", modelRef, strings.TrimSpace(combined.String()))
	}

	// Best-effort parse of the "(model files: foo.mlmodel)" line.
	if m := modelFilesRe.FindStringSubmatch(combined.String()); m != nil {
		fields := strings.Fields(m[1])
		if len(fields) > 0 {
			return strings.TrimSuffix(fields[0], ","), nil
		}
	}
	return modelRef, nil
}
