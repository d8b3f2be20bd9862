// Package iiif implements the subset of the IIIF Presentation API 2.1 the
// pipeline needs: loading manifests and collections, walking canvases in
// reading order, and resolving Image API request URLs.
package iiif

import (
	"encoding/json"
	"fmt"
)

// Resource @type values recognised at the document root.
const (
	TypeManifest   = "sc:Manifest"
	TypeCollection = "sc:Collection"
)

// ImageService is an IIIF Image API service descriptor attached to an image
// resource. Its @id is the base of every image request URL.
type ImageService struct {
	ID      string          `json:"@id"`
	Type    string          `json:"@type,omitempty"`
	Profile json.RawMessage `json:"profile,omitempty"`
}

// ImageResource is the image content linked to a canvas via an annotation.
type ImageResource struct {
	ID      string      `json:"@id,omitempty"`
	Type    string      `json:"@type,omitempty"`
	Format  string      `json:"format,omitempty"`
	Width   int         `json:"width,omitempty"`
	Height  int         `json:"height,omitempty"`
	Service ServiceList `json:"service,omitempty"`
}

// FirstService returns the first image service, or nil if none is present.
func (r ImageResource) FirstService() *ImageService {
	if len(r.Service) == 0 {
		return nil
	}
	return &r.Service[0]
}

// ServiceList absorbs the IIIF 2.1 quirk of `service` being either a single
// object or an array.
type ServiceList []ImageService

func (s *ServiceList) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*s = nil
		return nil
	}
	if data[0] == '[' {
		var list []ImageService
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("decode service list: %w", err)
		}
		*s = list
		return nil
	}
	var single ImageService
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("decode service: %w", err)
	}
	*s = ServiceList{single}
	return nil
}

// Annotation links a canvas to its image content.
type Annotation struct {
	ID         string        `json:"@id,omitempty"`
	Type       string        `json:"@type,omitempty"`
	Motivation string        `json:"motivation,omitempty"`
	Resource   ImageResource `json:"resource"`
	On         string        `json:"on,omitempty"`
}

// Canvas is one page of a manifest. It has a stable identifier and links to
// one or more images via annotations.
type Canvas struct {
	ID     string       `json:"@id"`
	Type   string       `json:"@type"`
	Label  Label        `json:"label,omitempty"`
	Width  int          `json:"width,omitempty"`
	Height int          `json:"height,omitempty"`
	Images []Annotation `json:"images,omitempty"`
}

// PrimaryImageService returns the image service of the canvas's first image
// annotation, or nil if the canvas carries no usable image.
func (c Canvas) PrimaryImageService() *ImageService {
	if len(c.Images) == 0 {
		return nil
	}
	return c.Images[0].Resource.FirstService()
}

// Sequence is an ordered list of canvases defining a reading order.
type Sequence struct {
	ID       string   `json:"@id,omitempty"`
	Type     string   `json:"@type"`
	Canvases []Canvas `json:"canvases,omitempty"`
}

// Manifest represents a single compound object (a book, a manuscript).
type Manifest struct {
	ID        string                       `json:"@id"`
	Type      string                       `json:"@type"`
	Label     Label                        `json:"label,omitempty"`
	Metadata  []map[string]json.RawMessage `json:"metadata,omitempty"`
	Sequences []Sequence                   `json:"sequences,omitempty"`
}

// Canvases returns all canvases across all sequences, in reading order.
func (m Manifest) Canvases() []Canvas {
	var result []Canvas
	for _, seq := range m.Sequences {
		result = append(result, seq.Canvases...)
	}
	return result
}

// ManifestRef is a manifest entry inside a collection, carrying only the
// reference and label, not the full manifest body.
type ManifestRef struct {
	ID    string `json:"@id"`
	Type  string `json:"@type,omitempty"`
	Label Label  `json:"label,omitempty"`
}

// Collection groups manifests (and possibly nested collections).
type Collection struct {
	ID          string                       `json:"@id"`
	Type        string                       `json:"@type"`
	Label       Label                        `json:"label,omitempty"`
	Manifests   []ManifestRef                `json:"manifests,omitempty"`
	Collections []map[string]json.RawMessage `json:"collections,omitempty"`
}

// ManifestIDs extracts the manifest references of the collection, skipping
// entries without an @id.
func (c Collection) ManifestIDs() []string {
	ids := make([]string, 0, len(c.Manifests))
	for _, m := range c.Manifests {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// typeProbe decodes only the root @type, used to classify a document before
// committing to a full parse.
type typeProbe struct {
	Type string `json:"@type"`
}
