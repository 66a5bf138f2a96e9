package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliergopher/grab/v3"

	"github.com/sftpdeck/sftpdeck/internal/constants"
)

// DownloadDir is the staging directory for downloaded artifacts. The
// helper binary lives here between Install and the post-relaunch
// cleanup.
func DownloadDir() string {
	return filepath.Join(os.TempDir(), constants.AppName+"-update")
}

// DownloadProgress receives running byte counts during an artifact
// download. Returning false cancels the download and removes the
// partial file.
type DownloadProgress func(done, total int64) bool

// Download fetches the artifact into destDir and returns the path of
// the downloaded file.
func Download(ctx context.Context, artifact *Artifact, destDir string, progress DownloadProgress) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := grab.NewRequest(destDir, artifact.DownloadURL)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}
	req = req.WithContext(ctx)

	client := grab.NewClient()
	resp := client.Do(req)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	cancelled := false
	for done := false; !done; {
		select {
		case <-ticker.C:
			if progress != nil && !progress(resp.BytesComplete(), resp.Size()) {
				cancelled = true
				cancel()
			}
		case <-resp.Done:
			done = true
		}
	}

	if err := resp.Err(); err != nil {
		// Whatever grab managed to write is useless now.
		_ = os.Remove(resp.Filename)
		if cancelled {
			return "", fmt.Errorf("download cancelled")
		}
		return "", fmt.Errorf("download failed: %w", err)
	}

	if progress != nil {
		progress(resp.BytesComplete(), resp.Size())
	}
	return resp.Filename, nil
}
