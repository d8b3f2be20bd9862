package imagecache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPathShardedAndDeterministic(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	url := "https://img.example.org/iiif/1/full/full/0/default.jpg"
	a := c.Path(url, "jpg")
	b := c.Path(url, "jpg")
	if a != b {
		t.Fatalf("path not deterministic: %s vs %s", a, b)
	}
	if !strings.HasSuffix(a, ".jpg") {
		t.Fatalf("expected format extension: %s", a)
	}
	shard := filepath.Base(filepath.Dir(a))
	if len(shard) != 2 {
		t.Fatalf("expected two-char shard dir, got %q", shard)
	}

	if c.Path("https://img.example.org/iiif/2/full/full/0/default.jpg", "jpg") == a {
		t.Fatal("distinct urls must map to distinct paths")
	}
}

func TestPutThenGet(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	url := "https://img.example.org/iiif/1/full/full/0/default.jpg"

	if _, ok := c.Get(url, "jpg"); ok {
		t.Fatal("unexpected hit before put")
	}

	path, err := c.Put(url, "jpg", []byte("image bytes"))
	if err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get(url, "jpg")
	if !ok || got != path {
		t.Fatalf("expected hit at %s, got %s (hit=%v)", path, got, ok)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "image bytes" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestPutKeepsExistingEntry(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	url := "https://img.example.org/iiif/1/full/full/0/default.jpg"

	if _, err := c.Put(url, "jpg", []byte("first writer")); err != nil {
		t.Fatal(err)
	}
	path, err := c.Put(url, "jpg", []byte("second writer"))
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first writer" {
		t.Fatalf("existing entry was replaced: %q", data)
	}
}

func TestNewRequiresDir(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for blank cache dir")
	}
}
