// Package update implements the self-update engine: release-feed
// checking, artifact download, and atomic executable replacement with
// backup and rollback.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/sftpdeck/sftpdeck/internal/constants"
)

// Artifact describes one downloadable release.
type Artifact struct {
	Version     string
	AssetName   string
	DownloadURL string
	Changelog   string
	Critical    bool
	Prerelease  bool
	PublishedAt time.Time
}

// githubRelease mirrors the fields we read from the GitHub
// latest-release endpoint.
type githubRelease struct {
	TagName     string        `json:"tag_name"`
	Body        string        `json:"body"`
	Prerelease  bool          `json:"prerelease"`
	PublishedAt time.Time     `json:"published_at"`
	Assets      []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// newFeedClient builds the retrying HTTP client used for update checks.
// Check failures are non-fatal, so the retry budget is small.
func newFeedClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = nil
	return client
}

// fetchLatestRelease downloads and decodes the release feed.
func fetchLatestRelease(ctx context.Context, client *retryablehttp.Client, feedURL string) (*githubRelease, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("update check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("update check failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read release feed: %w", err)
	}

	var rel githubRelease
	if err := json.Unmarshal(data, &rel); err != nil {
		return nil, fmt.Errorf("failed to parse release feed: %w", err)
	}
	return &rel, nil
}

// IsCritical reports whether a changelog marks the release as critical.
func IsCritical(changelog string) bool {
	lower := strings.ToLower(changelog)
	for _, kw := range constants.UpdateCriticalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isInstallerAsset reports whether the asset is a full installer rather
// than a bare executable.
func isInstallerAsset(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "setup") || strings.Contains(lower, "installer")
}

// isExecutableAsset filters out archives, packages, and checksum files.
func isExecutableAsset(name, goos string) bool {
	lower := strings.ToLower(name)
	if goos == "windows" {
		return strings.HasSuffix(lower, ".exe")
	}
	for _, ext := range []string{".zip", ".tar.gz", ".tgz", ".deb", ".rpm", ".dmg", ".exe", ".sha256", ".txt", ".sig", ".json"} {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}

// selectAsset picks the asset to install for the given platform:
// an installer first, then a platform-tagged executable, then any
// executable. Returns false when nothing fits.
func selectAsset(assets []githubAsset, goos string) (githubAsset, bool) {
	for _, a := range assets {
		if isInstallerAsset(a.Name) && isExecutableAsset(a.Name, goos) {
			return a, true
		}
	}
	for _, a := range assets {
		if strings.Contains(strings.ToLower(a.Name), goos) && isExecutableAsset(a.Name, goos) {
			return a, true
		}
	}
	for _, a := range assets {
		if isExecutableAsset(a.Name, goos) {
			return a, true
		}
	}
	return githubAsset{}, false
}

// releaseToArtifact converts a feed entry into an installable artifact.
// Returns false when the release carries no usable asset.
func releaseToArtifact(rel *githubRelease) (*Artifact, bool) {
	asset, ok := selectAsset(rel.Assets, runtime.GOOS)
	if !ok {
		return nil, false
	}
	return &Artifact{
		Version:     strings.TrimPrefix(rel.TagName, "v"),
		AssetName:   asset.Name,
		DownloadURL: asset.BrowserDownloadURL,
		Changelog:   rel.Body,
		Critical:    IsCritical(rel.Body),
		Prerelease:  rel.Prerelease,
		PublishedAt: rel.PublishedAt,
	}, true
}
