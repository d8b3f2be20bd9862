package fetcher

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchBytesSetsHeaders(t *testing.T) {
	var gotUA, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Figgy-Token")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client, err := New(Options{
		UserAgent: "barnacle-test/1.0",
		Headers:   map[string]string{"X-Figgy-Token": "secret"},
	})
	if err != nil {
		t.Fatal(err)
	}

	body, err := client.FetchBytes(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
	if gotUA != "barnacle-test/1.0" {
		t.Fatalf("user agent not sent: %q", gotUA)
	}
	if gotCustom != "secret" {
		t.Fatalf("custom header not sent: %q", gotCustom)
	}
}

func TestFetchBytesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("compressed payload"))
		gz.Close()
	}))
	defer srv.Close()

	client, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	body, err := client.FetchBytes(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "compressed payload" {
		t.Fatalf("gzip body not decoded: %q", body)
	}
}

func TestFetchBytesNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	client, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.FetchBytes(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "410") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestFetchBytesBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	client, err := New(Options{MaxBodyBytes: 1024})
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.FetchBytes(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "exceeds limit") {
		t.Fatalf("expected body limit error, got %v", err)
	}
}

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"@type":"sc:Manifest"}`))
	}))
	defer srv.Close()

	client, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Type string `json:"@type"`
	}
	if err := client.FetchJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatal(err)
	}
	if out.Type != "sc:Manifest" {
		t.Fatalf("unexpected decode: %+v", out)
	}
}

func TestHostLimiterDelay(t *testing.T) {
	limiter := NewHostLimiter(50*time.Millisecond, RateLimiterSettings{})
	ctx := context.Background()

	if err := limiter.Wait(ctx, "img.example.org"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := limiter.Wait(ctx, "img.example.org"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("second request not delayed, waited %v", elapsed)
	}

	// A different host is not throttled by the first one.
	start = time.Now()
	if err := limiter.Wait(ctx, "other.example.org"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Fatalf("unrelated host throttled for %v", elapsed)
	}
}

func TestHostLimiterCancelledContext(t *testing.T) {
	limiter := NewHostLimiter(time.Minute, RateLimiterSettings{})
	ctx := context.Background()

	if err := limiter.Wait(ctx, "img.example.org"); err != nil {
		t.Fatal(err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := limiter.Wait(cancelled, "img.example.org"); err == nil {
		t.Fatal("expected context error while waiting out the delay")
	}
}

func TestHostLimiterNilAndEmptyHost(t *testing.T) {
	var limiter *HostLimiter
	if err := limiter.Wait(context.Background(), "img.example.org"); err != nil {
		t.Fatalf("nil limiter must be a no-op: %v", err)
	}
	limiter = NewHostLimiter(time.Hour, RateLimiterSettings{})
	if err := limiter.Wait(context.Background(), ""); err != nil {
		t.Fatalf("empty host must be a no-op: %v", err)
	}
}
