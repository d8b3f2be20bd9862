package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pulibrary/barnacle/pkg/types"
)

// RecordWriter appends output records to one artifact, one JSON object per
// line. The destination is opened in append mode on first use and is never
// truncated, so a writer pointed at an existing artifact extends it. Each
// record is flushed to durable storage before Append returns: a crash right
// after a successful Append leaves that record visible to the next resume
// index build.
//
// One artifact has exactly one writer for its lifetime; that invariant is
// enforced by work assignment, not by locking.
type RecordWriter struct {
	location string
	file     *os.File
}

// NewRecordWriter prepares a writer for the artifact at location. Nothing is
// created on disk until the first Append, so a manifest that fails before
// producing output leaves no artifact behind.
func NewRecordWriter(location string) *RecordWriter {
	return &RecordWriter{location: location}
}

// Location returns the artifact path this writer appends to.
func (w *RecordWriter) Location() string {
	return w.location
}

// Append serializes the record as one line, writes it in a single call, and
// syncs the file before returning.
func (w *RecordWriter) Append(rec types.OutputRecord) error {
	if w.file == nil {
		if err := os.MkdirAll(filepath.Dir(w.location), 0o755); err != nil {
			return &OutputWriteError{Location: w.location, Err: fmt.Errorf("create output directory: %w", err)}
		}
		fh, err := os.OpenFile(w.location, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return &OutputWriteError{Location: w.location, Err: fmt.Errorf("open artifact: %w", err)}
		}
		w.file = fh
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return &OutputWriteError{Location: w.location, Err: fmt.Errorf("encode record: %w", err)}
	}
	data = append(data, '\n')

	if _, err := w.file.Write(data); err != nil {
		return &OutputWriteError{Location: w.location, Err: fmt.Errorf("append record: %w", err)}
	}
	if err := w.file.Sync(); err != nil {
		return &OutputWriteError{Location: w.location, Err: fmt.Errorf("sync artifact: %w", err)}
	}
	return nil
}

// Close releases the underlying file, if one was opened.
func (w *RecordWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
