package transfer

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestOpenForEdit_ChecksOutScratchCopy(t *testing.T) {
	fs := newFakeFS()
	fs.addFile("/etc/motd", []byte("welcome"))
	e := testEngine(fs)

	sess, err := e.OpenForEdit(context.Background(), "/etc/motd")
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	data, err := os.ReadFile(sess.LocalPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "welcome" {
		t.Errorf("scratch content = %q, want welcome", data)
	}
	if base := sess.LocalPath; !strings.HasSuffix(base, "motd") {
		t.Errorf("scratch copy should keep the remote base name, got %q", base)
	}

	modified, err := sess.Modified()
	if err != nil {
		t.Fatal(err)
	}
	if modified {
		t.Error("fresh checkout must not report as modified")
	}
}

func TestOpenForEdit_MissingRemoteLeavesNoScratch(t *testing.T) {
	fs := newFakeFS()
	e := testEngine(fs)

	if _, err := e.OpenForEdit(context.Background(), "/nope.txt"); err == nil {
		t.Fatal("expected error for a missing remote file")
	}
}

func TestSyncBack_UploadsOnlyWhenChanged(t *testing.T) {
	fs := newFakeFS()
	fs.addFile("/notes.txt", []byte("v1"))
	e := testEngine(fs)

	sess, err := e.OpenForEdit(context.Background(), "/notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	synced, err := sess.SyncBack(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if synced {
		t.Error("unchanged copy must not be re-uploaded")
	}

	if err := os.WriteFile(sess.LocalPath, []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}
	synced, err = sess.SyncBack(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !synced {
		t.Fatal("changed copy should upload")
	}
	if string(fs.files["/notes.txt"]) != "v2" {
		t.Errorf("remote content = %q, want v2", fs.files["/notes.txt"])
	}

	// A second pass with no further edits stays quiet.
	synced, err = sess.SyncBack(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if synced {
		t.Error("already-synced copy must not upload again")
	}
}

func TestWatch_PushesSavesUntilCancelled(t *testing.T) {
	fs := newFakeFS()
	fs.addFile("/conf.ini", []byte("old"))
	e := testEngine(fs)

	sess, err := e.OpenForEdit(context.Background(), "/conf.ini")
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	synced := make(chan error, 4)
	done := make(chan struct{})
	go func() {
		sess.Watch(ctx, 5*time.Millisecond, func(err error) { synced <- err })
		close(done)
	}()

	if err := os.WriteFile(sess.LocalPath, []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-synced:
		if err != nil {
			t.Fatalf("sync reported error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never pushed the save")
	}

	fs.mu.Lock()
	remote := string(fs.files["/conf.ini"])
	fs.mu.Unlock()
	if remote != "new" {
		t.Errorf("remote content = %q, want new", remote)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}

func TestClose_RemovesScratchCopy(t *testing.T) {
	fs := newFakeFS()
	fs.addFile("/a.txt", []byte("x"))
	e := testEngine(fs)

	sess, err := e.OpenForEdit(context.Background(), "/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(sess.LocalPath); !os.IsNotExist(err) {
		t.Error("scratch copy should be gone after Close")
	}
}
