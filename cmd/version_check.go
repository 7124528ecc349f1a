package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrVersionCheckFailed = errors.New("version check failed")

const (
	latestReleaseURL    = "https://api.github.com/repos/tabulario/tabletool/releases/latest"
	versionCheckTimeout = 5 * time.Second
	versionCacheTTL     = 24 * time.Hour
)

// VersionCheckResult is what the background update check hands back to
// the command driver. Error is informational; a failed check never
// blocks the run.
type VersionCheckResult struct {
	UpdateAvailable bool
	CurrentVersion  string
	LatestVersion   string
	ReleaseURL      string
	Error           error
}

// githubRelease is the subset of the releases API response we read
type githubRelease struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
}

// checkForUpdates compares the running version against the newest GitHub
// release, consulting an on-disk cache so at most one request per day
// leaves the machine. Development builds skip the check entirely.
func checkForUpdates(ctx context.Context, currentVersion string) VersionCheckResult {
	result := VersionCheckResult{CurrentVersion: currentVersion}

	if currentVersion == "dev" || currentVersion == "" {
		return result
	}

	if cached := readVersionCache(); cached != nil && time.Since(cached.Timestamp) < versionCacheTTL {
		result.UpdateAvailable = cached.UpdateAvailable
		result.LatestVersion = cached.LatestVersion
		result.ReleaseURL = cached.ReleaseURL
		return result
	}

	release, err := fetchLatestRelease(ctx, currentVersion)
	if err != nil {
		result.Error = err
		return result
	}

	result.LatestVersion = strings.TrimPrefix(release.TagName, "v")
	result.ReleaseURL = release.HTMLURL
	result.UpdateAvailable = compareVersions(result.LatestVersion, strings.TrimPrefix(currentVersion, "v")) > 0

	writeVersionCache(versionCache{
		UpdateAvailable: result.UpdateAvailable,
		LatestVersion:   result.LatestVersion,
		ReleaseURL:      result.ReleaseURL,
		Timestamp:       time.Now(),
	})

	return result
}

func fetchLatestRelease(ctx context.Context, currentVersion string) (*githubRelease, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, latestReleaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// GitHub rejects requests without a User-Agent
	req.Header.Set("User-Agent", fmt.Sprintf("tabletool/%s", currentVersion))

	client := &http.Client{Timeout: versionCheckTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrVersionCheckFailed, resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release: %w", err)
	}
	return &release, nil
}

// compareVersions returns 1, -1 or 0 as v1 is newer than, older than or
// equal to v2
func compareVersions(v1, v2 string) int {
	a, b := parseVersion(v1), parseVersion(v2)
	for i := 0; i < 3; i++ {
		switch {
		case a[i] > b[i]:
			return 1
		case a[i] < b[i]:
			return -1
		}
	}
	return 0
}

// parseVersion reads up to major.minor.patch; absent or malformed
// components parse as zero
func parseVersion(version string) [3]int {
	var parts [3]int
	for i, component := range strings.SplitN(version, ".", 3) {
		var num int
		_, _ = fmt.Sscanf(component, "%d", &num)
		parts[i] = num
	}
	return parts
}

type versionCache struct {
	UpdateAvailable bool      `json:"update_available"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseURL      string    `json:"release_url"`
	Timestamp       time.Time `json:"timestamp"`
}

func versionCachePath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".tabletool", "version_check.json")
}

// readVersionCache returns nil for a missing or unreadable cache; the
// caller falls through to a live check
func readVersionCache() *versionCache {
	data, err := os.ReadFile(versionCachePath())
	if err != nil {
		return nil
	}
	var cache versionCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil
	}
	return &cache
}

// writeVersionCache is best-effort; a read-only home directory just
// means the next run checks again
func writeVersionCache(cache versionCache) {
	path := versionCachePath()
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	data, err := json.Marshal(cache)
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o600)
}

func formatUpdateMessage(result VersionCheckResult) string {
	return fmt.Sprintf("Update available: v%s → v%s (visit %s)",
		result.CurrentVersion, result.LatestVersion, result.ReleaseURL)
}
