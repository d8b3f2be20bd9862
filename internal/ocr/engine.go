// Package ocr defines the recognition engine contract consumed by the
// pipeline worker, and the kraken and tesseract backends that satisfy it.
// The worker depends only on the interfaces here; everything global or
// process-external (installed kraken models, tesseract training data) stays
// behind them.
package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/pulibrary/barnacle/internal/config"
)

// Result is the outcome of recognizing one page image.
type Result struct {
	Text     string
	Elapsed  time.Duration
	Warnings []string
}

// Engine converts a page image into text. Implementations are configured
// with their model up front so a single engine value processes every page
// of a manifest identically.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (Result, error)
}

// ModelResolver turns a model reference (a DOI, an installed model name, or
// a filesystem path) into the model identifier actually loaded. Resolution
// may mutate process-external state (eg. installing a model), so it runs
// once, before any page is attempted.
type ModelResolver interface {
	Resolve(ctx context.Context, modelRef string) (string, error)
}

// Error is a recognition failure with enough detail to classify it as
// retryable or fatal. The pipeline never retries; the classification is for
// the external scheduler.
type Error struct {
	Engine    string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Engine, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FromConfig builds the configured engine and resolves its model reference.
// The returned string is the resolved model recorded in every work identity.
func FromConfig(ctx context.Context, cfg config.EngineConfig) (Engine, string, error) {
	switch cfg.Backend {
	case config.BackendKraken:
		resolver := &KrakenResolver{AutoInstall: cfg.ModelAutoInstall}
		resolved, err := resolver.Resolve(ctx, cfg.Model)
		if err != nil {
			return nil, "", fmt.Errorf("resolve model %q: %w", cfg.Model, err)
		}
		return NewKraken(resolved), resolved, nil
	case config.BackendTesseract:
		engine := NewTesseract(cfg.Languages)
		return engine, engine.ModelResolved(), nil
	default:
		return nil, "", fmt.Errorf("unknown engine backend %q", cfg.Backend)
	}
}
