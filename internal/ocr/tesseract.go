package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text via the gosseract client. It is the
// self-contained alternative to the kraken backend for material covered by
// standard tesseract training data.
type Tesseract struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseract builds a tesseract engine with optional language hints.
func NewTesseract(languages []string) *Tesseract {
	return &Tesseract{
		languages:     append([]string(nil), languages...),
		clientFactory: gosseract.NewClient,
	}
}

// Name identifies the engine in work identities and output records.
func (t *Tesseract) Name() string { return "tesseract" }

// ModelResolved renders the effective model identity. Tesseract has no
// model reference to install; its trained-data selection is the languages.
func (t *Tesseract) ModelResolved() string {
	if len(t.languages) == 0 {
		return "eng"
	}
	return strings.Join(t.languages, "+")
}

// Recognize runs OCR on a single image and returns the recognized text.
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &Error{Engine: t.Name(), Retryable: true, Err: err}
	}
	start := time.Now()

	client := t.clientFactory()
	defer client.Close()

	if err := client.SetImage(imagePath); err != nil {
		return Result{}, &Error{Engine: t.Name(), Retryable: false,
			Err: fmt.Errorf("set image: %w", err)}
	}
	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return Result{}, &Error{Engine: t.Name(), Retryable: false,
				Err: fmt.Errorf("set languages: %w", err)}
		}
	}

	text, err := client.Text()
	if err != nil {
		return Result{}, &Error{Engine: t.Name(), Retryable: true,
			Err: fmt.Errorf("recognize text: %w", err)}
	}

	return Result{
		Text:    text,
		Elapsed: time.Since(start),
	}, nil
}
