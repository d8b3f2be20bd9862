package pipeline

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pulibrary/barnacle/pkg/types"
)

// OutputLocation derives the artifact path for a manifest: the SHA-1 hex of
// the manifest reference under outputDir, with a .jsonl extension. The
// mapping is a pure function of the reference, so re-running expansion is
// idempotent and needs no persisted lookup table, and any two collections
// sharing a manifest reference share resume state.
func OutputLocation(manifestRef, outputDir string) string {
	sum := sha1.Sum([]byte(manifestRef))
	return filepath.Join(outputDir, hex.EncodeToString(sum[:])+".jsonl")
}

// CollectionExpander is the collection-mode traversal contract the expander
// consumes.
type CollectionExpander interface {
	IsCollection(ctx context.Context, ref string) (bool, error)
	ExpandCollection(ctx context.Context, ref string) ([]string, error)
}

// Expander turns a collection reference or a flat manifest list into
// independent per-manifest work items, each with a deterministic output
// location. Expansion runs once, off the hot path, before work is handed to
// the external scheduler.
type Expander struct {
	traverser CollectionExpander
	outputDir string
}

// NewExpander builds an expander writing artifact locations under outputDir.
func NewExpander(traverser CollectionExpander, outputDir string) *Expander {
	return &Expander{traverser: traverser, outputDir: outputDir}
}

// Expand resolves ref (a collection or a single manifest) into work items in
// collection order.
func (e *Expander) Expand(ctx context.Context, ref string) ([]types.WorkItem, error) {
	isCollection, err := e.traverser.IsCollection(ctx, ref)
	if err != nil {
		return nil, &TraversalError{ManifestReference: ref, Err: err}
	}

	refs := []string{ref}
	if isCollection {
		refs, err = e.traverser.ExpandCollection(ctx, ref)
		if err != nil {
			return nil, &TraversalError{ManifestReference: ref, Err: err}
		}
	}
	return e.ExpandList(refs), nil
}

// ExpandList maps manifest references to work items, preserving order.
func (e *Expander) ExpandList(refs []string) []types.WorkItem {
	items := make([]types.WorkItem, 0, len(refs))
	for _, ref := range refs {
		items = append(items, types.WorkItem{
			ManifestReference: ref,
			OutputLocation:    OutputLocation(ref, e.outputDir),
		})
	}
	return items
}

// ReadReferenceList reads manifest references one per line, skipping blank
// lines and # comments.
func ReadReferenceList(r io.Reader) ([]string, error) {
	var refs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reference list: %w", err)
	}
	return refs, nil
}

// WriteWorkItems renders one tab-separated item per line:
// manifest_reference<TAB>output_location. The output is a pure function of
// the items, so two expansions of unchanged input are byte-identical.
func WriteWorkItems(w io.Writer, items []types.WorkItem) error {
	for _, item := range items {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", item.ManifestReference, item.OutputLocation); err != nil {
			return fmt.Errorf("write work item: %w", err)
		}
	}
	return nil
}

// ReadWorkItems parses a work-item list produced by WriteWorkItems.
func ReadWorkItems(r io.Reader) ([]types.WorkItem, error) {
	var items []types.WorkItem
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		fields := strings.Split(raw, "\t")
		if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
			return nil, fmt.Errorf("work item list line %d: expected manifest<TAB>output_location", line)
		}
		items = append(items, types.WorkItem{
			ManifestReference: fields[0],
			OutputLocation:    fields[1],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read work item list: %w", err)
	}
	return items, nil
}
