package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeFileInfo struct {
	name string
	size int64
	dir  bool
}

func (f fakeFileInfo) Name() string { return f.name }
func (f fakeFileInfo) Size() int64  { return f.size }
func (f fakeFileInfo) Mode() os.FileMode {
	if f.dir {
		return os.ModeDir | 0755
	}
	return 0644
}
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return f.dir }
func (f fakeFileInfo) Sys() interface{}   { return nil }

// fakeFS is an in-memory RemoteFS.
type fakeFS struct {
	mu    sync.Mutex
	dirs  map[string]bool
	files map[string][]byte

	failWrite map[string]bool // OpenWrite refuses these paths
	failRead  map[string]bool // OpenRead refuses these paths
	flakyRead map[string]int  // OpenRead fails this many times, then succeeds
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		dirs:      map[string]bool{"/": true},
		files:     map[string][]byte{},
		failWrite: map[string]bool{},
		failRead:  map[string]bool{},
		flakyRead: map[string]int{},
	}
}

func (f *fakeFS) addDir(p string) { f.dirs[p] = true }
func (f *fakeFS) addFile(p string, data []byte) {
	f.files[p] = data
}

func (f *fakeFS) Stat(p string) (os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirs[p] {
		return fakeFileInfo{name: path.Base(p), dir: true}, nil
	}
	if data, ok := f.files[p]; ok {
		return fakeFileInfo{name: path.Base(p), size: int64(len(data))}, nil
	}
	return nil, os.ErrNotExist
}

func (f *fakeFS) ReadDir(p string) ([]os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirs[p] {
		return nil, os.ErrNotExist
	}
	var infos []os.FileInfo
	for d := range f.dirs {
		if d != p && path.Dir(d) == p {
			infos = append(infos, fakeFileInfo{name: path.Base(d), dir: true})
		}
	}
	for name, data := range f.files {
		if path.Dir(name) == p {
			infos = append(infos, fakeFileInfo{name: path.Base(name), size: int64(len(data))})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

func (f *fakeFS) Mkdir(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirs[p] {
		return os.ErrExist
	}
	f.dirs[p] = true
	return nil
}

func (f *fakeFS) OpenRead(p string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead[p] {
		return nil, errors.New("read refused")
	}
	if f.flakyRead[p] > 0 {
		f.flakyRead[p]--
		return nil, errors.New("connection reset")
	}
	data, ok := f.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFS) OpenWrite(p string) (io.WriteCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite[p] {
		return nil, errors.New("write refused")
	}
	f.files[p] = nil
	return &fakeWriter{fs: f, path: p}, nil
}

// fakeWriter flushes every Write straight into the store so partial
// content is observable after a cancelled transfer.
type fakeWriter struct {
	fs   *fakeFS
	path string
}

func (w *fakeWriter) Write(p []byte) (int, error) {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.files[w.path] = append(w.fs.files[w.path], p...)
	return len(p), nil
}

func (w *fakeWriter) Close() error { return nil }

func testEngine(fs *fakeFS) *Engine {
	e := NewEngine(fs, nil, nil)
	cfg := e.retryCfg
	cfg.Interval = time.Millisecond
	e.SetRetryConfig(cfg)
	return e
}

func writeLocalTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestUploadFile_CopiesBytesAndReportsProgress(t *testing.T) {
	fs := newFakeFS()
	e := testEngine(fs)
	e.chunk = 4

	local := filepath.Join(t.TempDir(), "data.bin")
	content := []byte("0123456789")
	if err := os.WriteFile(local, content, 0644); err != nil {
		t.Fatal(err)
	}

	var reports [][2]int64
	sink := func(done, total int64) bool {
		reports = append(reports, [2]int64{done, total})
		return true
	}

	if err := e.UploadFile(context.Background(), local, "/data.bin", sink); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(fs.files["/data.bin"], content) {
		t.Errorf("remote content mismatch: %q", fs.files["/data.bin"])
	}
	if len(reports) == 0 {
		t.Fatal("expected progress reports")
	}
	last := reports[len(reports)-1]
	if last[0] != int64(len(content)) || last[1] != int64(len(content)) {
		t.Errorf("final report %v, want (%d,%d)", last, len(content), len(content))
	}
	for i := 1; i < len(reports); i++ {
		if reports[i][0] <= reports[i-1][0] {
			t.Errorf("progress not monotonic: %v", reports)
		}
	}
}

func TestUploadFile_SinkCancelLeavesPartialFile(t *testing.T) {
	fs := newFakeFS()
	e := testEngine(fs)
	e.chunk = 4

	local := filepath.Join(t.TempDir(), "data.bin")
	content := []byte("0123456789abcdef")
	if err := os.WriteFile(local, content, 0644); err != nil {
		t.Fatal(err)
	}

	calls := 0
	sink := func(done, total int64) bool {
		calls++
		return calls < 2 // cancel on the second chunk
	}

	err := e.UploadFile(context.Background(), local, "/data.bin", sink)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	got := fs.files["/data.bin"]
	if len(got) == 0 || len(got) >= len(content) {
		t.Errorf("expected partial remote file, got %d of %d bytes", len(got), len(content))
	}
}

func TestDownloadFile_CopiesBytes(t *testing.T) {
	fs := newFakeFS()
	fs.addFile("/report.txt", []byte("quarterly numbers"))
	e := testEngine(fs)

	local := filepath.Join(t.TempDir(), "report.txt")
	if err := e.DownloadFile(context.Background(), "/report.txt", local, nil); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "quarterly numbers" {
		t.Errorf("local content mismatch: %q", data)
	}
}

func TestDownloadFile_RetriesTransientFailure(t *testing.T) {
	fs := newFakeFS()
	fs.addFile("/flaky.txt", []byte("ok"))
	e := testEngine(fs)

	fs.flakyRead["/flaky.txt"] = 2

	local := filepath.Join(t.TempDir(), "flaky.txt")
	if err := e.DownloadFile(context.Background(), "/flaky.txt", local, nil); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	data, err := os.ReadFile(local)
	if err != nil || string(data) != "ok" {
		t.Errorf("expected content after retried download, got %q err=%v", data, err)
	}
}

func TestUploadFolder_PartialFailureContinuesSiblings(t *testing.T) {
	fs := newFakeFS()
	e := testEngine(fs)

	local := t.TempDir()
	writeLocalTree(t, local, map[string]string{
		"a.txt":      "alpha",
		"b.txt":      "bravo",
		"sub/c.txt":  "charlie",
		"sub/deep/d": "delta",
	})
	fs.failWrite["/dest/b.txt"] = true

	job, err := e.UploadFolder(context.Background(), local, "/dest", nil)
	if err != nil {
		t.Fatalf("partial failure must not raise a job error, got %v", err)
	}
	if job.TotalItems != 4 {
		t.Errorf("expected 4 total items, got %d", job.TotalItems)
	}
	if job.CompletedItems != 3 {
		t.Errorf("expected 3 completed, got %d", job.CompletedItems)
	}
	if len(job.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %v", job.Failures)
	}
	if !job.Partial() {
		t.Error("job should report partial")
	}
	if string(fs.files["/dest/sub/deep/d"]) != "delta" {
		t.Error("deep file should have transferred")
	}
}

func TestUploadFolder_EmptyDirCreatesDestinationWithoutProgress(t *testing.T) {
	fs := newFakeFS()
	e := testEngine(fs)

	local := t.TempDir()
	reports := 0
	sink := func(done, total int64) bool { reports++; return true }

	job, err := e.UploadFolder(context.Background(), local, "/empty", sink)
	if err != nil {
		t.Fatal(err)
	}
	if !fs.dirs["/empty"] {
		t.Error("destination directory should exist")
	}
	if reports != 0 {
		t.Errorf("empty transfer must emit no progress, got %d reports", reports)
	}
	if job.TotalItems != 0 || job.Partial() {
		t.Errorf("expected clean empty job, got total=%d partial=%v", job.TotalItems, job.Partial())
	}
}

func TestUploadFolder_SinkCancelStopsBetweenFiles(t *testing.T) {
	fs := newFakeFS()
	e := testEngine(fs)

	local := t.TempDir()
	writeLocalTree(t, local, map[string]string{
		"a.txt": "1", "b.txt": "2", "c.txt": "3", "d.txt": "4",
	})

	sink := func(done, total int64) bool { return done < 2 }

	job, err := e.UploadFolder(context.Background(), local, "/dest", sink)
	if err != nil {
		t.Fatal(err)
	}
	if !job.Cancelled() {
		t.Fatal("job should be cancelled")
	}
	if job.CompletedItems != 2 {
		t.Errorf("expected exactly 2 completed files, got %d", job.CompletedItems)
	}
}

func TestUploadFolder_UnreadableSourceIsTotalFailure(t *testing.T) {
	fs := newFakeFS()
	e := testEngine(fs)

	_, err := e.UploadFolder(context.Background(), filepath.Join(t.TempDir(), "missing"), "/dest", nil)
	if err == nil {
		t.Fatal("expected error for unreadable source root")
	}
}

func TestDownloadFolder_MirrorsTreeAndRecordsFailures(t *testing.T) {
	fs := newFakeFS()
	fs.addDir("/src")
	fs.addDir("/src/docs")
	fs.addFile("/src/a.txt", []byte("alpha"))
	fs.addFile("/src/docs/b.txt", []byte("bravo"))
	fs.addFile("/src/docs/c.txt", []byte("charlie"))
	fs.failRead["/src/docs/b.txt"] = true
	e := testEngine(fs)

	local := filepath.Join(t.TempDir(), "mirror")
	job, err := e.DownloadFolder(context.Background(), "/src", local, nil)
	if err != nil {
		t.Fatal(err)
	}
	if job.TotalItems != 3 || job.CompletedItems != 2 {
		t.Errorf("expected 2/3 completed, got %d/%d", job.CompletedItems, job.TotalItems)
	}
	if len(job.Failures) != 1 || job.Failures[0].Path != "/src/docs/b.txt" {
		t.Errorf("unexpected failures: %v", job.Failures)
	}

	data, err := os.ReadFile(filepath.Join(local, "docs", "c.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "charlie" {
		t.Errorf("mirrored content mismatch: %q", data)
	}
}

func TestDownloadFolder_SinkCancelLeavesOnlyCompletedFiles(t *testing.T) {
	fs := newFakeFS()
	fs.addDir("/src")
	fs.addFile("/src/a.txt", []byte("1"))
	fs.addFile("/src/b.txt", []byte("2"))
	fs.addFile("/src/c.txt", []byte("3"))
	fs.addFile("/src/d.txt", []byte("4"))
	e := testEngine(fs)

	sink := func(done, total int64) bool { return done < 2 }

	local := filepath.Join(t.TempDir(), "mirror")
	job, err := e.DownloadFolder(context.Background(), "/src", local, sink)
	if err != nil {
		t.Fatal(err)
	}
	if !job.Cancelled() {
		t.Fatal("job should be cancelled")
	}
	if job.CompletedItems != 2 {
		t.Errorf("expected exactly 2 completed files, got %d", job.CompletedItems)
	}

	// The destination holds the completed files and nothing else: no
	// partially-written third file.
	entries, err := os.ReadDir(local)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	want := []string{"a.txt", "b.txt"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("destination contents = %v, want %v", names, want)
	}
	if _, err := os.Stat(filepath.Join(local, "c.txt")); !os.IsNotExist(err) {
		t.Error("no partial file may exist past the cancellation point")
	}
}

func TestDownloadFolder_EmptyRemoteCreatesLocalDir(t *testing.T) {
	fs := newFakeFS()
	fs.addDir("/empty")
	e := testEngine(fs)

	local := filepath.Join(t.TempDir(), "empty")
	job, err := e.DownloadFolder(context.Background(), "/empty", local, nil)
	if err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(local)
	if err != nil || !fi.IsDir() {
		t.Errorf("expected local directory, err=%v", err)
	}
	if job.TotalItems != 0 {
		t.Errorf("expected 0 items, got %d", job.TotalItems)
	}
}
