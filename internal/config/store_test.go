package config

import (
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStore_GetSetSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	s.Set("editor", "vim")
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.GetString("editor", ""); got != "vim" {
		t.Errorf("expected editor=vim after reload, got %q", got)
	}
}

func TestStore_GetDefault(t *testing.T) {
	s := tempStore(t)

	if got := s.Get("missing_key", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for missing key, got %v", got)
	}
	if got := s.GetBool(KeyAutoUpdateCheck, false); got != true {
		t.Errorf("expected auto_update_check default true, got %v", got)
	}
	if got := s.GetBool(KeyAutoInstallUpdates, true); got != false {
		t.Errorf("expected auto_install_updates default false, got %v", got)
	}
}

func TestStore_Connections(t *testing.T) {
	s := tempStore(t)

	if len(s.Connections()) != 0 {
		t.Fatal("expected no connections in fresh store")
	}

	conn := Connection{Host: "example.com", Port: 2222, Username: "deploy"}
	if err := s.SaveConnection("prod", conn); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	conns := reloaded.Connections()
	got, ok := conns["prod"]
	if !ok {
		t.Fatal("saved connection missing after reload")
	}
	if got.Host != "example.com" || got.Port != 2222 || got.Username != "deploy" {
		t.Errorf("unexpected connection %+v", got)
	}

	if err := reloaded.DeleteConnection("prod"); err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Connections()) != 0 {
		t.Error("connection still present after delete")
	}
}

func TestStore_Shortcuts(t *testing.T) {
	s := tempStore(t)

	if err := s.SaveShortcut("restart-nginx", Shortcut{Command: "sudo systemctl restart nginx"}); err != nil {
		t.Fatal(err)
	}

	shortcuts := s.Shortcuts()
	sc, ok := shortcuts["restart-nginx"]
	if !ok {
		t.Fatal("saved shortcut missing")
	}
	if sc.Category != "General" {
		t.Errorf("expected default category General, got %q", sc.Category)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}

	// Save must create the directory.
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("settings file not created: %v", err)
	}
}
