// Package release resolves server versions against the GitHub release index.
package release

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/greeddj/go-roslyn/internal/roslyn/mirror"
	"github.com/greeddj/go-roslyn/internal/roslyn/store"
	"github.com/greeddj/go-roslyn/internal/roslyn/toolchain"
)

// releaseAsset represents one downloadable file attached to a release.
type releaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Digest             string `json:"digest"`
}

// releaseEntry represents one release in the index response.
type releaseEntry struct {
	TagName    string         `json:"tag_name"`
	Draft      bool           `json:"draft"`
	Prerelease bool           `json:"prerelease"`
	Assets     []releaseAsset `json:"assets"`
}

// AssetName returns the release asset filename for the current platform.
// Unsupported platforms fail here, before any network traffic.
func AssetName() (string, error) {
	return assetNameFor(runtime.GOOS, runtime.GOARCH)
}

func assetNameFor(goos, goarch string) (string, error) {
	var arch string
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	default:
		return "", fmt.Errorf("%w: %s", helpers.ErrUnsupportedArch, goarch)
	}

	var osPart, ext string
	switch goos {
	case "darwin":
		osPart, ext = "apple-darwin", "tar.gz"
	case "linux":
		osPart, ext = "unknown-linux-gnu", "tar.gz"
	case "windows":
		osPart, ext = "pc-windows-msvc", "zip"
	default:
		return "", fmt.Errorf("%w: %s", helpers.ErrUnsupportedOS, goos)
	}

	return fmt.Sprintf("%s-%s-%s.%s", helpers.ServerBinaryName, arch, osPart, ext), nil
}

// Resolve selects a server version from the release index of repo. An empty
// or "*" constraint takes the newest release; otherwise the highest tag
// satisfying the constraint wins. Drafts are always skipped, prereleases only
// included on request.
func Resolve(
	ctx context.Context,
	deps *infra.Infra,
	st *store.Store,
	repo, constraint string,
	prerelease bool,
	policy mirror.Policy,
) (toolchain.Version, error) {
	assetName, err := AssetName()
	if err != nil {
		return toolchain.Version{}, err
	}

	url := fmt.Sprintf("%s/%s/releases?per_page=%d", helpers.ReleaseAPIBase, repo, helpers.ReleasePageSize)
	var releases []releaseEntry
	if err := mirror.FetchJSONWithCachePolicy(ctx, deps.HTTP, url, st, &releases, policy); err != nil {
		return toolchain.Version{}, fmt.Errorf("failed to fetch releases for %s: %w", repo, err)
	}

	candidates := filterReleases(releases, prerelease)
	if len(candidates) == 0 {
		return toolchain.Version{}, fmt.Errorf("%w: %s", helpers.ErrNoReleases, repo)
	}

	selected, err := selectRelease(candidates, constraint)
	if err != nil {
		return toolchain.Version{}, err
	}

	for _, asset := range selected.Assets {
		if asset.Name == assetName {
			return toolchain.Version{
				Tag:    selected.TagName,
				URL:    asset.BrowserDownloadURL,
				Digest: normalizeDigest(asset.Digest),
			}, nil
		}
	}
	return toolchain.Version{}, fmt.Errorf("%w: %s in release %s", helpers.ErrNoMatchingAsset, assetName, selected.TagName)
}

// filterReleases drops drafts and, unless requested, prereleases.
func filterReleases(releases []releaseEntry, prerelease bool) []releaseEntry {
	candidates := make([]releaseEntry, 0, len(releases))
	for _, entry := range releases {
		if entry.Draft {
			continue
		}
		if entry.Prerelease && !prerelease {
			continue
		}
		candidates = append(candidates, entry)
	}
	return candidates
}

// selectRelease picks a release for the constraint. The index is served
// newest-first, so the unconstrained case is simply the first entry.
func selectRelease(candidates []releaseEntry, constraint string) (releaseEntry, error) {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" || constraint == "*" {
		return candidates[0], nil
	}
	parsed, err := semver.NewConstraint(constraint)
	if err != nil {
		return releaseEntry{}, fmt.Errorf("failed to parse version constraint %q: %w", constraint, err)
	}

	var (
		best        releaseEntry
		bestVersion *semver.Version
	)
	for _, entry := range candidates {
		version, err := semver.NewVersion(strings.TrimPrefix(entry.TagName, "v"))
		if err != nil {
			continue
		}
		if !parsed.Check(version) {
			continue
		}
		if bestVersion == nil || version.GreaterThan(bestVersion) {
			best = entry
			bestVersion = version
		}
	}
	if bestVersion == nil {
		return releaseEntry{}, fmt.Errorf("%w: %s", helpers.ErrNoVersionSatisfiesConstraint, constraint)
	}
	return best, nil
}

// normalizeDigest strips the algorithm prefix from a GitHub asset digest.
func normalizeDigest(digest string) string {
	return strings.TrimPrefix(strings.TrimSpace(digest), "sha256:")
}
