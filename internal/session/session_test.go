package session

import (
	"os"
	"path/filepath"
	"testing"

	"aqualink/internal/config"
)

func TestOpen_InlineToken(t *testing.T) {
	sess, err := Open(&config.Config{
		API: config.APIConfig{BaseURL: "http://localhost:8000", AuthToken: "inline-tok"},
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if sess.BaseURL() != "http://localhost:8000" {
		t.Errorf("BaseURL = %s", sess.BaseURL())
	}
	if sess.Token() != "inline-tok" {
		t.Errorf("Token = %s", sess.Token())
	}
	if !sess.IsOpen() {
		t.Error("Expected session open")
	}
	if sess.ID() == "" {
		t.Error("Expected a session id")
	}
}

func TestOpen_TokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("file-tok\n"), 0600); err != nil {
		t.Fatalf("Failed to write token file: %v", err)
	}

	sess, err := Open(&config.Config{
		API: config.APIConfig{BaseURL: "http://x", AuthTokenFile: path},
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if sess.Token() != "file-tok" {
		t.Errorf("Token = %s", sess.Token())
	}
}

func TestOpen_MissingTokenFile(t *testing.T) {
	_, err := Open(&config.Config{
		API: config.APIConfig{BaseURL: "http://x", AuthTokenFile: "/nonexistent/token"},
	})
	if err == nil {
		t.Error("Expected error for missing token file")
	}
}

func TestClose_ClearsCredentials(t *testing.T) {
	sess, err := Open(&config.Config{
		API: config.APIConfig{BaseURL: "http://x", AuthToken: "secret"},
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	sess.Close()
	if sess.IsOpen() {
		t.Error("Expected session closed")
	}
	if sess.Token() != "" {
		t.Error("Closed session must not return a token")
	}
}

func TestOpen_UniqueIDs(t *testing.T) {
	cfg := &config.Config{API: config.APIConfig{BaseURL: "http://x"}}

	a, _ := Open(cfg)
	b, _ := Open(cfg)
	if a.ID() == b.ID() {
		t.Error("Two sessions share an id")
	}
}
