package iiif

import "fmt"

// Issue describes one structural problem that would prevent the pipeline
// from processing a resource.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// ValidateManifest checks the minimal structure the pipeline needs, not full
// IIIF 2.1 compliance: at least one sequence and one canvas, and every
// canvas backed by an image with an Image API service.
func ValidateManifest(m *Manifest) []Issue {
	var issues []Issue

	if len(m.Sequences) == 0 {
		return append(issues, Issue{"sequences", "missing or empty sequences[]"})
	}

	canvasCount := 0
	for si, seq := range m.Sequences {
		for ci, canvas := range seq.Canvases {
			canvasCount++

			if len(canvas.Images) == 0 {
				issues = append(issues, Issue{
					fmt.Sprintf("sequences[%d].canvases[%d].images", si, ci),
					"canvas missing images[]",
				})
				continue
			}
			if canvas.PrimaryImageService() == nil {
				issues = append(issues, Issue{
					fmt.Sprintf("sequences[%d].canvases[%d].images[0].resource.service", si, ci),
					"image resource missing IIIF Image API service",
				})
			}
		}
	}
	if canvasCount == 0 {
		issues = append(issues, Issue{"sequences[*].canvases", "no canvases found"})
	}
	return issues
}

// ValidateCollection checks that a collection references at least one
// manifest and that every entry carries an @id.
func ValidateCollection(c *Collection) []Issue {
	var issues []Issue

	if len(c.Manifests) == 0 {
		issues = append(issues, Issue{"manifests", "empty manifests[]"})
	}
	for i, m := range c.Manifests {
		if m.ID == "" {
			issues = append(issues, Issue{fmt.Sprintf("manifests[%d].@id", i), "missing @id"})
		}
	}
	return issues
}
