package types

import (
	"strings"
	"time"
)

// ImageRequest holds the fully resolved IIIF Image API parameters needed to
// fetch the pixel data for one page.
type ImageRequest struct {
	ServiceID string `json:"service_id"`
	Region    string `json:"region"`
	Size      string `json:"size"`
	Rotation  string `json:"rotation"`
	Quality   string `json:"quality"`
	Format    string `json:"format"`
}

// URL renders the IIIF Image API request URL:
// {service}/{region}/{size}/{rotation}/{quality}.{format}
func (r ImageRequest) URL() string {
	base := strings.TrimRight(r.ServiceID, "/")
	return base + "/" + r.Region + "/" + r.Size + "/" + r.Rotation + "/" + r.Quality + "." + r.Format
}

// PageDescriptor is one page of a manifest as produced by traversal. It is
// transient: descriptors are never persisted directly.
type PageDescriptor struct {
	CanvasID     string
	CanvasIndex  int
	Label        string
	ImageRequest ImageRequest
}

// EngineConfiguration describes how recognition was invoked. Two runs with
// different configurations are not interchangeable and carry distinct work
// identities.
type EngineConfiguration struct {
	Engine        string `json:"engine"`
	ModelRef      string `json:"model_ref"`
	ModelResolved string `json:"model_resolved"`
}

// OutputRecord is one completed (or, optionally, failed) page. Records are
// append-only: once written they are never mutated or deleted.
type OutputRecord struct {
	WorkKey           string              `json:"work_key"`
	ManifestReference string              `json:"manifest_reference"`
	CanvasID          string              `json:"canvas_id"`
	CanvasIndex       int                 `json:"canvas_index"`
	PageLabel         string              `json:"page_label,omitempty"`
	ImageURL          string              `json:"image_url"`
	Engine            EngineConfiguration `json:"engine"`
	IIIF              ImageRequest        `json:"iiif"`
	Text              string              `json:"text"`
	ElapsedMS         int64               `json:"elapsed_ms"`
	CreatedAt         time.Time           `json:"created_at"`
	Warnings          []string            `json:"warnings,omitempty"`
	Errors            []string            `json:"errors,omitempty"`
	SourceMetadataID  string              `json:"source_metadata_id,omitempty"`
	ARK               string              `json:"ark,omitempty"`
}

// Failed reports whether the record captures a failed page rather than a
// recognition result.
func (r OutputRecord) Failed() bool {
	return len(r.Errors) > 0
}

// WorkItem pairs a manifest with its deterministically derived output
// location. One work item maps to exactly one worker invocation.
type WorkItem struct {
	ManifestReference string
	OutputLocation    string
}

// Summary aggregates the outcome of processing one manifest.
type Summary struct {
	ManifestReference string
	RunID             string
	PagesAttempted    int
	PagesSkipped      int
	PagesSucceeded    int
	PagesFailed       int
	Elapsed           time.Duration
}
