package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pulibrary/barnacle/internal/config"
)

func newRobotsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte(body))
			return
		}
		w.Write([]byte("page"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() config.RobotsConfig {
	return config.RobotsConfig{
		Respect:   true,
		UserAgent: "barnacle/1.0",
		CacheTTL:  config.DurationFrom(time.Hour),
	}
}

func TestAllowedRespectsDisallow(t *testing.T) {
	srv := newRobotsServer(t, "User-agent: *\nDisallow: /iiif/restricted/\n")
	agent := NewAgent(testConfig(), srv.Client())
	ctx := context.Background()

	if !agent.AllowedURL(ctx, srv.URL+"/iiif/open/full/full/0/default.jpg") {
		t.Fatal("open path should be allowed")
	}
	if agent.AllowedURL(ctx, srv.URL+"/iiif/restricted/full/full/0/default.jpg") {
		t.Fatal("disallowed path should be blocked")
	}
}

func TestDisabledAgentAllowsEverything(t *testing.T) {
	cfg := testConfig()
	cfg.Respect = false
	agent := NewAgent(cfg, nil)

	if !agent.AllowedURL(context.Background(), "https://img.example.org/anything") {
		t.Fatal("respect=false must allow without fetching")
	}
}

func TestOverrideBypassesRules(t *testing.T) {
	srv := newRobotsServer(t, "User-agent: *\nDisallow: /\n")
	cfg := testConfig()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Overrides = []string{u.Hostname()}

	agent := NewAgent(cfg, srv.Client())
	if !agent.AllowedURL(context.Background(), srv.URL+"/iiif/whatever") {
		t.Fatal("override host must bypass a blanket disallow")
	}
}

func TestFailOpenOnFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	agent := NewAgent(testConfig(), srv.Client())
	if !agent.AllowedURL(context.Background(), srv.URL+"/iiif/page") {
		t.Fatal("robots fetch failure must not block")
	}
}

func TestRulesCachedPerHost(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fetches.Add(1)
		}
		w.Write([]byte("User-agent: *\nAllow: /\n"))
	}))
	defer srv.Close()

	agent := NewAgent(testConfig(), srv.Client())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if !agent.AllowedURL(ctx, srv.URL+"/iiif/page") {
			t.Fatal("unexpected block")
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("robots.txt fetched %d times, want 1", got)
	}
}

func TestMalformedURLRejected(t *testing.T) {
	agent := NewAgent(testConfig(), nil)
	if agent.AllowedURL(context.Background(), "://not-a-url") {
		t.Fatal("unparseable url must be rejected")
	}
	if agent.AllowedURL(context.Background(), "/relative/path") {
		t.Fatal("relative url must be rejected")
	}
}
