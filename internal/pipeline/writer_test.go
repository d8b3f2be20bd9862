package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pulibrary/barnacle/pkg/types"
)

func TestRecordWriterLazyOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "artifact.jsonl")
	w := NewRecordWriter(path)
	defer w.Close()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("artifact must not exist before the first append")
	}
}

func TestRecordWriterAppendsAndSyncs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "artifact.jsonl")
	w := NewRecordWriter(path)
	defer w.Close()

	if err := w.Append(types.OutputRecord{WorkKey: "aaa", Text: "one"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(types.OutputRecord{WorkKey: "bbb", Text: "two"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}
	if !strings.Contains(lines[0], `"work_key":"aaa"`) || !strings.Contains(lines[1], `"work_key":"bbb"`) {
		t.Fatalf("unexpected content: %q", string(data))
	}
}

func TestRecordWriterNeverTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.jsonl")
	existing := `{"work_key":"old","text":"from an earlier run"}` + "\n"
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewRecordWriter(path)
	defer w.Close()
	if err := w.Append(types.OutputRecord{WorkKey: "new"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), existing) {
		t.Fatalf("existing records were overwritten: %q", string(data))
	}
	if !strings.Contains(string(data), `"work_key":"new"`) {
		t.Fatalf("new record missing: %q", string(data))
	}
}

func TestRecordWriterWrapsWriteFailures(t *testing.T) {
	dir := t.TempDir()
	// Point the writer at a directory so the open fails.
	w := NewRecordWriter(dir)
	defer w.Close()

	err := w.Append(types.OutputRecord{WorkKey: "aaa"})
	if err == nil {
		t.Fatal("expected error appending to a directory path")
	}
	if _, ok := err.(*OutputWriteError); !ok {
		t.Fatalf("expected *OutputWriteError, got %T: %v", err, err)
	}
}
