package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/sftpdeck/sftpdeck/internal/config"
)

func resetConnectionFlags(t *testing.T) {
	t.Helper()
	cfgFile = ""
	hostFlag = ""
	portFlag = 0
	userFlag = ""
	passwordFlag = ""
	connectionFlag = ""
	t.Cleanup(func() {
		cfgFile = ""
		hostFlag = ""
		portFlag = 0
		userFlag = ""
		passwordFlag = ""
		connectionFlag = ""
	})
}

func TestConnectionParams_FlagsOnly(t *testing.T) {
	resetConnectionFlags(t)
	hostFlag = "example.com"
	userFlag = "deploy"
	passwordFlag = "hunter2"

	conn, err := connectionParams()
	if err != nil {
		t.Fatal(err)
	}
	if conn.Host != "example.com" || conn.Username != "deploy" {
		t.Errorf("unexpected connection: %+v", conn)
	}
	if conn.Port != 22 {
		t.Errorf("expected default port 22, got %d", conn.Port)
	}
}

func TestConnectionParams_SavedProfile(t *testing.T) {
	resetConnectionFlags(t)
	cfgFile = filepath.Join(t.TempDir(), "config.json")

	store, err := config.Load(cfgFile)
	if err != nil {
		t.Fatal(err)
	}
	err = store.SaveConnection("prod", config.Connection{
		Host: "prod.example.com", Port: 2222, Username: "ops", Password: "secret",
	})
	if err != nil {
		t.Fatal(err)
	}

	connectionFlag = "prod"
	conn, err := connectionParams()
	if err != nil {
		t.Fatal(err)
	}
	if conn.Host != "prod.example.com" || conn.Port != 2222 || conn.Username != "ops" {
		t.Errorf("profile not applied: %+v", conn)
	}
}

func TestConnectionParams_FlagsOverrideProfile(t *testing.T) {
	resetConnectionFlags(t)
	cfgFile = filepath.Join(t.TempDir(), "config.json")

	store, err := config.Load(cfgFile)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveConnection("prod", config.Connection{
		Host: "prod.example.com", Port: 2222, Username: "ops",
	}); err != nil {
		t.Fatal(err)
	}

	connectionFlag = "prod"
	userFlag = "admin"
	conn, err := connectionParams()
	if err != nil {
		t.Fatal(err)
	}
	if conn.Username != "admin" {
		t.Errorf("explicit flag should win, got %q", conn.Username)
	}
	if conn.Host != "prod.example.com" {
		t.Errorf("profile host should fill the gap, got %q", conn.Host)
	}
}

func TestConnectionParams_MissingHost(t *testing.T) {
	resetConnectionFlags(t)
	userFlag = "deploy"

	_, err := connectionParams()
	if err == nil || !strings.Contains(err.Error(), "host") {
		t.Fatalf("expected missing-host error, got %v", err)
	}
}

func TestConnectionParams_UnknownProfile(t *testing.T) {
	resetConnectionFlags(t)
	cfgFile = filepath.Join(t.TempDir(), "config.json")
	connectionFlag = "nope"

	_, err := connectionParams()
	if err == nil {
		t.Fatal("expected error for unknown profile")
	}
}
