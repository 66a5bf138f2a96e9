package update

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fastApplier() *Applier {
	a := NewApplier(nil)
	a.Attempts = 2
	a.Pause = time.Millisecond
	return a
}

func TestApply_ReplacesExecutableAndRemovesSafetyCopies(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app")
	newBinary := filepath.Join(dir, "app-new")

	if err := os.WriteFile(target, []byte("old build"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newBinary, []byte("new build"), 0755); err != nil {
		t.Fatal(err)
	}
	backup, err := BackupExecutable(target)
	if err != nil {
		t.Fatal(err)
	}

	if err := fastApplier().Apply(newBinary, target, backup); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new build" {
		t.Errorf("target content = %q, want new build", data)
	}
	if _, err := os.Stat(target + ".old"); !os.IsNotExist(err) {
		t.Error(".old copy should be removed after a confirmed replace")
	}
	if _, err := os.Stat(backup); !os.IsNotExist(err) {
		t.Error("backup should be removed after a confirmed replace")
	}
}

func TestApply_FailureRestoresOriginalBitForBit(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app")
	original := []byte("original build bytes")

	if err := os.WriteFile(target, original, 0755); err != nil {
		t.Fatal(err)
	}
	backup, err := BackupExecutable(target)
	if err != nil {
		t.Fatal(err)
	}

	missing := filepath.Join(dir, "does-not-exist")
	if err := fastApplier().Apply(missing, target, backup); err == nil {
		t.Fatal("expected apply to fail for a missing new binary")
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("target must still exist after rollback: %v", err)
	}
	if string(data) != string(original) {
		t.Errorf("rollback content = %q, want %q", data, original)
	}
	if _, err := os.Stat(backup); !os.IsNotExist(err) {
		t.Error("backup should be removed after a completed rollback")
	}
	if _, err := os.Stat(target + ".old"); !os.IsNotExist(err) {
		t.Error(".old copy should be removed after a completed rollback")
	}
}

func TestApply_FailureWithoutMoveAsideUsesBackup(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app")
	original := []byte("v1")

	if err := os.WriteFile(target, original, 0755); err != nil {
		t.Fatal(err)
	}
	backup, err := BackupExecutable(target)
	if err != nil {
		t.Fatal(err)
	}
	// Force the rename to fail by occupying the ".old" name with a
	// non-empty directory.
	old := target + ".old"
	if err := os.MkdirAll(filepath.Join(old, "x"), 0755); err != nil {
		t.Fatal(err)
	}

	missing := filepath.Join(dir, "does-not-exist")
	if err := fastApplier().Apply(missing, target, backup); err == nil {
		t.Fatal("expected apply to fail")
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v1" {
		t.Errorf("expected backup restore, got %q", data)
	}
	if _, err := os.Stat(backup); !os.IsNotExist(err) {
		t.Error("backup should be removed after a completed rollback")
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("occupied .old should be cleared after a completed rollback")
	}
}

func TestBackupExecutable_CopiesContent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app")
	if err := os.WriteFile(target, []byte("payload"), 0755); err != nil {
		t.Fatal(err)
	}

	backup, err := BackupExecutable(target)
	if err != nil {
		t.Fatal(err)
	}
	if backup != target+".backup" {
		t.Errorf("backup path = %q", backup)
	}
	data, err := os.ReadFile(backup)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("backup content = %q", data)
	}
}

func TestCleanupLeftovers_NoEnvFlagIsNoop(t *testing.T) {
	os.Unsetenv("SFTPDECK_CLEANUP_OLD")
	// Must return without touching anything when the flag is unset.
	CleanupLeftovers()
}

func TestCleanupLeftovers_RemovesStagedDownloadDir(t *testing.T) {
	staging := DownloadDir()
	if err := os.MkdirAll(staging, 0755); err != nil {
		t.Fatal(err)
	}
	helper := filepath.Join(staging, "app-v2")
	if err := os.WriteFile(helper, []byte("helper"), 0755); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SFTPDECK_CLEANUP_OLD", "1")
	CleanupLeftovers()

	if _, err := os.Stat(staging); !os.IsNotExist(err) {
		t.Error("staged download directory should be removed")
	}
}
