package iiif

import (
	"encoding/json"
	"testing"
)

func TestLabelForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare string", `"p. 12"`, "p. 12"},
		{"language map", `{"@value":"Seite 12","@language":"de"}`, "Seite 12"},
		{"list of strings", `["p. 12","page twelve"]`, "p. 12"},
		{"list of maps", `[{"@value":"folio 3r"},{"@value":"f. 3r"}]`, "folio 3r"},
		{"list skips empties", `["",{"@value":"p. 4"}]`, "p. 4"},
		{"number ignored", `12`, ""},
		{"null", `null`, ""},
		{"markup stripped", `"<span>p. <b>12</b></span>"`, "p. 12"},
		{"entity decoded", `"Frères &amp; Soeurs"`, "Frères & Soeurs"},
		{"whitespace collapsed", `"<p>  p.\n 12  </p>"`, "p. 12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var label Label
			if err := json.Unmarshal([]byte(tt.raw), &label); err != nil {
				t.Fatal(err)
			}
			if label.String() != tt.want {
				t.Fatalf("got %q, want %q", label.String(), tt.want)
			}
		})
	}
}
