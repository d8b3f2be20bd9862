package iiif

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pulibrary/barnacle/internal/config"
	"github.com/pulibrary/barnacle/internal/fetcher"
	"github.com/pulibrary/barnacle/pkg/types"
)

// Traverser loads IIIF resources and yields page descriptors with fully
// resolved image requests. It satisfies the manifest-traversal contract the
// pipeline worker and collection expander depend on.
type Traverser struct {
	client *fetcher.Client
	params config.IIIFConfig
}

// NewTraverser builds a traverser using the given HTTP client and Image API
// request parameters.
func NewTraverser(client *fetcher.Client, params config.IIIFConfig) *Traverser {
	return &Traverser{client: client, params: params}
}

// Traverse loads the manifest behind ref and returns its pages in reading
// order. Canvas identifiers are stable across repeated traversals of the
// same manifest content. A canvas without a usable image service yields a
// descriptor with an empty service reference; callers decide how to count it.
func (t *Traverser) Traverse(ctx context.Context, ref string) ([]types.PageDescriptor, error) {
	manifest, err := t.LoadManifest(ctx, ref)
	if err != nil {
		return nil, err
	}

	canvases := manifest.Canvases()
	if len(canvases) == 0 {
		return nil, fmt.Errorf("%s: manifest has no canvases", ref)
	}
	pages := make([]types.PageDescriptor, 0, len(canvases))
	for i, canvas := range canvases {
		desc := types.PageDescriptor{
			CanvasID:    canvas.ID,
			CanvasIndex: i,
			Label:       canvas.Label.String(),
		}
		if svc := canvas.PrimaryImageService(); svc != nil {
			desc.ImageRequest = types.ImageRequest{
				ServiceID: svc.ID,
				Region:    t.params.Region,
				Size:      t.params.Size,
				Rotation:  t.params.Rotation,
				Quality:   t.params.Quality,
				Format:    t.params.Format,
			}
		}
		pages = append(pages, desc)
	}
	return pages, nil
}

// IsCollection reports whether ref points at a collection rather than a
// single manifest. Only the root @type is inspected.
func (t *Traverser) IsCollection(ctx context.Context, ref string) (bool, error) {
	raw, err := t.loadRaw(ctx, ref)
	if err != nil {
		return false, err
	}
	var probe typeProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false, fmt.Errorf("decode %s: %w", ref, err)
	}
	return probe.Type == TypeCollection, nil
}

// ExpandCollection loads the collection behind ref and returns the manifest
// references it contains, in collection order.
func (t *Traverser) ExpandCollection(ctx context.Context, ref string) ([]string, error) {
	collection, err := t.LoadCollection(ctx, ref)
	if err != nil {
		return nil, err
	}
	return collection.ManifestIDs(), nil
}

// LoadManifest loads and parses a manifest from a URL or file path.
func (t *Traverser) LoadManifest(ctx context.Context, ref string) (*Manifest, error) {
	raw, err := t.loadRaw(ctx, ref)
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", ref, err)
	}
	if manifest.Type != TypeManifest {
		return nil, fmt.Errorf("%s: unexpected root @type %q", ref, manifest.Type)
	}
	return &manifest, nil
}

// LoadCollection loads and parses a collection from a URL or file path.
func (t *Traverser) LoadCollection(ctx context.Context, ref string) (*Collection, error) {
	raw, err := t.loadRaw(ctx, ref)
	if err != nil {
		return nil, err
	}
	var collection Collection
	if err := json.Unmarshal(raw, &collection); err != nil {
		return nil, fmt.Errorf("decode collection %s: %w", ref, err)
	}
	if collection.Type != TypeCollection {
		return nil, fmt.Errorf("%s: unexpected root @type %q", ref, collection.Type)
	}
	return &collection, nil
}

func (t *Traverser) loadRaw(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		raw, err := t.client.FetchBytes(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", ref, err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return raw, nil
}
