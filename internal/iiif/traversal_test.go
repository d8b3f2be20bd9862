package iiif

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pulibrary/barnacle/internal/config"
	"github.com/pulibrary/barnacle/internal/fetcher"
)

func testParams() config.IIIFConfig {
	return config.IIIFConfig{
		Region:   "full",
		Size:     "!3000,3000",
		Rotation: "0",
		Quality:  "default",
		Format:   "jpg",
	}
}

func newTestTraverser(t *testing.T) *Traverser {
	t.Helper()
	client, err := fetcher.New(fetcher.Options{UserAgent: "barnacle-test/1.0"})
	if err != nil {
		t.Fatal(err)
	}
	return NewTraverser(client, testParams())
}

func manifestJSON(id string, canvases int) string {
	body := fmt.Sprintf(`{"@id":%q,"@type":"sc:Manifest","sequences":[{"@type":"sc:Sequence","canvases":[`, id)
	for i := 0; i < canvases; i++ {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{
			"@id": "%s/canvas/%d",
			"@type": "sc:Canvas",
			"label": "p. %d",
			"images": [{
				"@type": "oa:Annotation",
				"resource": {"service": {"@id": "https://img.example.org/iiif/%d"}}
			}]
		}`, id, i, i+1, i)
	}
	return body + `]}]}`
}

func TestTraverseResolvesPages(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, manifestJSON(srv.URL+"/manifest.json", 2))
	}))
	defer srv.Close()

	pages, err := newTestTraverser(t).Traverse(context.Background(), srv.URL+"/manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}

	first := pages[0]
	if first.CanvasIndex != 0 || first.CanvasID != srv.URL+"/manifest.json/canvas/0" {
		t.Fatalf("unexpected first page: %+v", first)
	}
	if first.Label != "p. 1" {
		t.Fatalf("unexpected label: %q", first.Label)
	}
	if first.ImageRequest.ServiceID != "https://img.example.org/iiif/0" {
		t.Fatalf("unexpected service: %+v", first.ImageRequest)
	}
	wantURL := "https://img.example.org/iiif/0/full/!3000,3000/0/default.jpg"
	if got := first.ImageRequest.URL(); got != wantURL {
		t.Fatalf("image url = %q, want %q", got, wantURL)
	}
}

func TestTraverseServicelessCanvas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"@id": "m", "@type": "sc:Manifest",
			"sequences": [{"@type":"sc:Sequence","canvases":[
				{"@id": "c1", "@type": "sc:Canvas"}
			]}]
		}`)
	}))
	defer srv.Close()

	pages, err := newTestTraverser(t).Traverse(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected the canvas to be reported, got %d pages", len(pages))
	}
	if pages[0].ImageRequest.ServiceID != "" {
		t.Fatalf("expected empty service for imageless canvas: %+v", pages[0])
	}
}

func TestTraverseEmptyManifestFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"@id":"m","@type":"sc:Manifest","sequences":[]}`)
	}))
	defer srv.Close()

	if _, err := newTestTraverser(t).Traverse(context.Background(), srv.URL); err == nil {
		t.Fatal("manifest without canvases must fail traversal")
	}
}

func TestTraverseRejectsWrongRootType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"@id":"c","@type":"sc:Collection","manifests":[]}`)
	}))
	defer srv.Close()

	if _, err := newTestTraverser(t).Traverse(context.Background(), srv.URL); err == nil {
		t.Fatal("traversing a collection as a manifest must fail")
	}
}

func TestTraverseHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := newTestTraverser(t).Traverse(context.Background(), srv.URL+"/missing.json"); err == nil {
		t.Fatal("expected error for 404 manifest")
	}
}

func TestTraverseLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(manifestJSON("https://example.org/m", 1)), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := newTestTraverser(t).Traverse(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page from local manifest, got %d", len(pages))
	}
}

func TestIsCollectionAndExpand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/collection.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"@id": "c", "@type": "sc:Collection",
			"manifests": [
				{"@id": "https://example.org/m1.json", "@type": "sc:Manifest"},
				{"@id": "https://example.org/m2.json", "@type": "sc:Manifest"}
			]
		}`)
	})
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, manifestJSON("m", 1))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	traverser := newTestTraverser(t)
	ctx := context.Background()

	isCol, err := traverser.IsCollection(ctx, srv.URL+"/collection.json")
	if err != nil {
		t.Fatal(err)
	}
	if !isCol {
		t.Fatal("collection not recognised")
	}

	isCol, err = traverser.IsCollection(ctx, srv.URL+"/manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	if isCol {
		t.Fatal("manifest misclassified as collection")
	}

	refs, err := traverser.ExpandCollection(ctx, srv.URL+"/collection.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 || refs[0] != "https://example.org/m1.json" {
		t.Fatalf("unexpected refs: %v", refs)
	}
}
