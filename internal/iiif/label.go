package iiif

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Label is a IIIF 2.1 display label flattened to plain text. Presentation
// 2.1 allows labels to be a bare string, a language map ({"@value": ...,
// "@language": ...}), or a list of either, and permits limited embedded
// markup in the value. Decoding keeps the first usable value and strips any
// markup.
type Label string

func (l *Label) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = Label(stripMarkup(flattenLabel(raw)))
	return nil
}

// String returns the flattened label text.
func (l Label) String() string {
	return string(l)
}

func flattenLabel(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		if value, ok := v["@value"].(string); ok {
			return value
		}
		return ""
	case []any:
		for _, item := range v {
			if text := flattenLabel(item); text != "" {
				return text
			}
		}
		return ""
	default:
		return ""
	}
}

// stripMarkup flattens embedded HTML to its text content and collapses
// whitespace. Values without markup pass through untouched.
func stripMarkup(value string) string {
	if !strings.ContainsAny(value, "<&") {
		return strings.TrimSpace(value)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
