package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/pulibrary/barnacle/internal/config"
	"github.com/pulibrary/barnacle/internal/fetcher"
	"github.com/pulibrary/barnacle/internal/imagecache"
	"github.com/pulibrary/barnacle/internal/ocr"
	"github.com/pulibrary/barnacle/internal/robots"
	"github.com/pulibrary/barnacle/pkg/types"
)

// Traverser is the manifest-traversal contract the worker consumes.
type Traverser interface {
	Traverse(ctx context.Context, ref string) ([]types.PageDescriptor, error)
}

// ImageFetcher retrieves page image bytes.
type ImageFetcher interface {
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// WorkerOptions wires the collaborators a Worker needs. Traverser, Engine,
// Fetcher, Cache and Logger are required; Limiter and Robots are optional.
type WorkerOptions struct {
	Traverser Traverser
	Engine    ocr.Engine
	EngineCfg types.EngineConfiguration
	Fetcher   ImageFetcher
	Cache     *imagecache.Cache
	Limiter   *fetcher.HostLimiter
	Robots    *robots.Agent
	Logger    *slog.Logger

	// MaxPages caps attempted pages per manifest; zero means unlimited.
	// Pages skipped via the resume index never consume the budget, so a
	// capped run still converges to completion across resubmissions.
	MaxPages int

	// RecordFailures writes degraded records for failed pages instead of
	// only logging them.
	RecordFailures bool

	Provenance config.ProvenanceConfig
}

// Worker processes one manifest end to end: build the resume index, traverse,
// then fetch and recognize each page not already completed, appending one
// record per page. A worker owns its output artifact exclusively for the
// duration of ProcessManifest; that exclusivity comes from work assignment,
// never from locking.
type Worker struct {
	opts WorkerOptions
}

// NewWorker validates required collaborators and returns a Worker.
func NewWorker(opts WorkerOptions) (*Worker, error) {
	if opts.Traverser == nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("traverser is required")}
	}
	if opts.Engine == nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("engine is required")}
	}
	if opts.Fetcher == nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("image fetcher is required")}
	}
	if opts.Cache == nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("image cache is required")}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Worker{opts: opts}, nil
}

// ProcessManifest runs the full pipeline for one manifest, appending records
// to the artifact at outputLocation. Per-page failures are absorbed: they are
// counted, logged, and optionally recorded, and the next page proceeds. Only
// traversal failures, output write failures and context cancellation abort
// the manifest. The returned summary is valid even when err is non-nil.
func (w *Worker) ProcessManifest(ctx context.Context, manifestRef, outputLocation string) (types.Summary, error) {
	start := time.Now()
	summary := types.Summary{
		ManifestReference: manifestRef,
		RunID:             uuid.NewString(),
	}
	logger := w.opts.Logger.With("manifest", manifestRef, "run_id", summary.RunID)

	index, err := BuildResumeIndex(outputLocation, logger)
	if err != nil {
		return summary, fmt.Errorf("build resume index for %s: %w", outputLocation, err)
	}
	if len(index) > 0 {
		logger.Info("resuming from existing artifact", "location", outputLocation, "completed", len(index))
	}

	pages, err := w.opts.Traverser.Traverse(ctx, manifestRef)
	if err != nil {
		return summary, &TraversalError{ManifestReference: manifestRef, Err: err}
	}
	logger.Info("traversed manifest", "pages", len(pages))

	writer := NewRecordWriter(outputLocation)
	defer writer.Close()

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, err
		}

		key := WorkKey(manifestRef, page.CanvasID, w.opts.EngineCfg, page.ImageRequest)
		if index.Contains(key) {
			summary.PagesSkipped++
			logger.Debug("page already recorded", "canvas", page.CanvasID, "index", page.CanvasIndex)
			continue
		}
		if w.opts.MaxPages > 0 && summary.PagesAttempted >= w.opts.MaxPages {
			logger.Info("page limit reached", "max_pages", w.opts.MaxPages)
			break
		}
		summary.PagesAttempted++

		rec := w.newRecord(key, manifestRef, page)
		result, pageErr := w.processPage(ctx, page)
		rec.ElapsedMS = result.Elapsed.Milliseconds()
		rec.Warnings = result.Warnings

		if pageErr != nil {
			if ctx.Err() != nil {
				summary.Elapsed = time.Since(start)
				return summary, ctx.Err()
			}
			summary.PagesFailed++
			logger.Warn("page failed", "canvas", page.CanvasID, "index", page.CanvasIndex, "error", pageErr)
			if w.opts.RecordFailures {
				rec.Errors = []string{pageErr.Error()}
				rec.CreatedAt = time.Now().UTC()
				if err := writer.Append(rec); err != nil {
					summary.Elapsed = time.Since(start)
					return summary, err
				}
			}
			continue
		}

		rec.Text = result.Text
		rec.CreatedAt = time.Now().UTC()
		if err := writer.Append(rec); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, err
		}
		index.Add(key)
		summary.PagesSucceeded++
		logger.Debug("page recognized", "canvas", page.CanvasID, "index", page.CanvasIndex,
			"chars", len(result.Text), "elapsed_ms", rec.ElapsedMS)
	}

	summary.Elapsed = time.Since(start)
	logger.Info("manifest complete",
		"attempted", summary.PagesAttempted,
		"skipped", summary.PagesSkipped,
		"succeeded", summary.PagesSucceeded,
		"failed", summary.PagesFailed,
		"elapsed", summary.Elapsed)
	return summary, nil
}

func (w *Worker) newRecord(key, manifestRef string, page types.PageDescriptor) types.OutputRecord {
	return types.OutputRecord{
		WorkKey:           key,
		ManifestReference: manifestRef,
		CanvasID:          page.CanvasID,
		CanvasIndex:       page.CanvasIndex,
		PageLabel:         page.Label,
		ImageURL:          page.ImageRequest.URL(),
		Engine:            w.opts.EngineCfg,
		IIIF:              page.ImageRequest,
		SourceMetadataID:  w.opts.Provenance.SourceMetadataID,
		ARK:               w.opts.Provenance.ARK,
	}
}

// processPage obtains the page image (cache first, then fetch) and runs
// recognition on it.
func (w *Worker) processPage(ctx context.Context, page types.PageDescriptor) (ocr.Result, error) {
	if page.ImageRequest.ServiceID == "" {
		return ocr.Result{}, fmt.Errorf("canvas %s has no image service", page.CanvasID)
	}
	imageURL := page.ImageRequest.URL()

	imagePath, err := w.obtainImage(ctx, imageURL, page.ImageRequest.Format)
	if err != nil {
		return ocr.Result{}, &PageFetchError{ImageURL: imageURL, Err: err}
	}

	result, err := w.opts.Engine.Recognize(ctx, imagePath)
	if err != nil {
		return result, err
	}
	return result, nil
}

// obtainImage returns a local filesystem path for the image, downloading and
// caching it on a miss. A cache hit bypasses robots and rate limiting since
// no request is made.
func (w *Worker) obtainImage(ctx context.Context, imageURL, format string) (string, error) {
	if path, ok := w.opts.Cache.Get(imageURL, format); ok {
		return path, nil
	}

	if w.opts.Robots != nil && !w.opts.Robots.AllowedURL(ctx, imageURL) {
		return "", fmt.Errorf("blocked by robots.txt")
	}
	if w.opts.Limiter != nil {
		parsed, err := url.Parse(imageURL)
		if err != nil {
			return "", fmt.Errorf("parse image url: %w", err)
		}
		if err := w.opts.Limiter.Wait(ctx, parsed.Host); err != nil {
			return "", err
		}
	}

	data, err := w.opts.Fetcher.FetchBytes(ctx, imageURL)
	if err != nil {
		return "", err
	}
	path, err := w.opts.Cache.Put(imageURL, format, data)
	if err != nil {
		return "", fmt.Errorf("cache image: %w", err)
	}
	return path, nil
}
