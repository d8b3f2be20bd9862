package pipeline

import "fmt"

// TraversalError means the manifest could not be fetched, parsed, or did not
// have the structure the pipeline requires. Nothing was attempted, so the
// manifest carries zero output risk.
type TraversalError struct {
	ManifestReference string
	Err               error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("traverse %s: %v", e.ManifestReference, e.Err)
}

func (e *TraversalError) Unwrap() error { return e.Err }

// PageFetchError is a page-local failure to obtain image bytes. The manifest
// continues with the next page.
type PageFetchError struct {
	ImageURL string
	Err      error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("fetch image %s: %v", e.ImageURL, e.Err)
}

func (e *PageFetchError) Unwrap() error { return e.Err }

// OutputWriteError is a durable-storage failure. It aborts the manifest:
// once an append fails the resume guarantee can no longer be trusted.
type OutputWriteError struct {
	Location string
	Err      error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("write output %s: %v", e.Location, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }

// ConfigurationError is a fatal setup failure (eg. an unresolvable model
// reference) surfaced before any traversal begins.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
