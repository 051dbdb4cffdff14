package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/riddlematch/api"
	"github.com/wricardo/mcp-training/riddlematch/game/engine"
	"github.com/wricardo/mcp-training/riddlematch/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Riddle Match Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	settings, err := loadSettings(flag.NewFlagSet("test", flag.ContinueOnError))
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}

	if settings.Port != 8080 || settings.Host != "localhost" {
		t.Errorf("Unexpected address %s:%d", settings.Host, settings.Port)
	}
	if settings.CatalogDir != "catalogs" {
		t.Errorf("Expected catalog dir 'catalogs', got %q", settings.CatalogDir)
	}
	if settings.RateLimitRPS != 20 || settings.RateLimitBurst != 40 {
		t.Errorf("Unexpected rate limit %d/%d", settings.RateLimitRPS, settings.RateLimitBurst)
	}
	if settings.SessionTTL != 24*time.Hour {
		t.Errorf("Expected 24h session TTL, got %s", settings.SessionTTL)
	}
}

func TestLoadSettingsFromEnv(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("CATALOG_DIR", "/tmp/riddles")
	t.Setenv("RATE_LIMIT_RPS", "0")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("NGROK_AUTH_TOKEN", "alt-token")

	settings, err := loadSettings(flag.NewFlagSet("test", flag.ContinueOnError))
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}

	if settings.Port != 9191 || settings.CatalogDir != "/tmp/riddles" {
		t.Errorf("Env not applied: %+v", settings)
	}
	if settings.RateLimitRPS != 0 {
		t.Errorf("Expected rate limiting disabled, got %d", settings.RateLimitRPS)
	}
	if settings.SessionTTL != 30*time.Minute {
		t.Errorf("Expected 30m TTL, got %s", settings.SessionTTL)
	}
	if settings.NgrokAuthToken != "alt-token" {
		t.Errorf("Expected fallback ngrok token, got %q", settings.NgrokAuthToken)
	}
}

func TestLoadSettingsFlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "9191")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("port", 0, "")
	if err := fs.Parse([]string{"-port", "7070"}); err != nil {
		t.Fatal(err)
	}

	original := *port
	*port = 7070
	defer func() { *port = original }()

	settings, err := loadSettings(fs)
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	if settings.Port != 7070 {
		t.Errorf("Expected flag to win, got %d", settings.Port)
	}
}

func TestLoadSettingsInvalid(t *testing.T) {
	t.Setenv("PORT", "70000")
	if _, err := loadSettings(flag.NewFlagSet("test", flag.ContinueOnError)); err == nil {
		t.Error("Expected error for out of range port")
	}

	t.Setenv("PORT", "not-a-number")
	if _, err := loadSettings(flag.NewFlagSet("test", flag.ContinueOnError)); err == nil {
		t.Error("Expected error for non-numeric port")
	}
}

func writeCatalogDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data, _ := json.Marshal(engine.DefaultCatalog())
	if err := os.WriteFile(filepath.Join(dir, "community.json"), data, 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
	return dir
}

func TestInitializeServices(t *testing.T) {
	settings := &Settings{CatalogDir: writeCatalogDir(t), SessionTTL: time.Hour}

	gameService, err := initializeServices(settings, nil)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if gameService == nil {
		t.Fatal("Expected game service to be initialized")
	}
}

func TestInitializeServices_InvalidCatalogDir(t *testing.T) {
	settings := &Settings{CatalogDir: "/non/existent/path", SessionTTL: time.Hour}

	if _, err := initializeServices(settings, nil); err == nil {
		t.Error("Expected error for non-existent catalog directory")
	}
}

func TestMCPEndpoint(t *testing.T) {
	gameService, err := initializeServices(&Settings{CatalogDir: writeCatalogDir(t), SessionTTL: time.Hour}, nil)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	apiServer := api.NewServer(gameService, nil)
	backend := httptest.NewServer(apiServer)
	defer backend.Close()

	router := newRouter(apiServer, mcp.NewClient(backend.URL))

	t.Run("rejects GET", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", w.Code)
		}
	})

	t.Run("lists tools", func(t *testing.T) {
		body := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", bytes.NewReader(body)))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte(`"reveal_riddle"`)) {
			t.Errorf("Expected reveal_riddle in tool list, got %s", w.Body.String())
		}
	})

	t.Run("API still mounted", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})
}

// closeTracker counts closed response bodies
type closeTracker struct {
	status int
	closed int
}

type trackedBody struct {
	*bytes.Reader
	tracker *closeTracker
}

func (b trackedBody) Close() error {
	b.tracker.closed++
	return nil
}

func (c *closeTracker) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: c.status,
		Body:       trackedBody{Reader: bytes.NewReader([]byte(`{}`)), tracker: c},
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func TestExternalAPIAvailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"healthy", http.StatusOK, true},
		{"not found still counts as a server", http.StatusNotFound, true},
		{"server error", http.StatusInternalServerError, false},
		{"unavailable", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &closeTracker{status: tt.status}
			client := &http.Client{Transport: tracker}

			if got := externalAPIAvailable(client, "http://api.test"); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if tracker.closed != 1 {
				t.Errorf("Expected the response body to be closed once, got %d", tracker.closed)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		if externalAPIAvailable(&http.Client{Timeout: time.Second}, url) {
			t.Error("Expected a closed server to be unavailable")
		}
	})
}
