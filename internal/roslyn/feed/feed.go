// Package feed resolves server versions by querying a NuGet package feed
// through the dotnet CLI.
package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/greeddj/go-roslyn/internal/roslyn/notify"
	"github.com/greeddj/go-roslyn/internal/roslyn/toolchain"
	"github.com/tidwall/gjson"
)

// latestVersionPath reads the first package of the first search result. The
// feed returns results for a single exact package ID, so position zero is the
// package we asked about; no cross-result version comparison happens here.
const latestVersionPath = "searchResult.0.packages.0.latestVersion"

const outputExcerptLimit = 512

// Resolve queries the feed for the latest (pre)release version of packageID.
func Resolve(ctx context.Context, deps *infra.Infra, notifier *notify.Notifier, packageID, sourceURL string) (toolchain.Version, error) {
	dotnetPath, err := deps.LookPath(helpers.DotnetCommand)
	if err != nil {
		notifier.WarnOnce("%s was not found on PATH; it is required to resolve and install the language server", helpers.DotnetCommand)
		return toolchain.Version{}, fmt.Errorf("%w: %s", helpers.ErrDotnetNotFound, helpers.DotnetCommand)
	}

	runCtx, cancel := context.WithTimeout(ctx, helpers.SubprocessDefaultTimeout)
	defer cancel()

	out, err := deps.Exec(runCtx, "", dotnetPath,
		"package", "search", packageID,
		"--source", sourceURL,
		"--prerelease",
		"--format", "json",
	)
	if err != nil {
		return toolchain.Version{}, fmt.Errorf("%w: %s: %s", helpers.ErrFeedUnavailable, err, outputExcerpt(out))
	}

	version := strings.TrimSpace(gjson.GetBytes(out, latestVersionPath).String())
	if version == "" {
		return toolchain.Version{}, fmt.Errorf("%w: %s", helpers.ErrVersionFieldMissing, packageID)
	}
	return toolchain.Version{Tag: version}, nil
}

// outputExcerpt trims subprocess output to a reportable size.
func outputExcerpt(out []byte) string {
	excerpt := strings.TrimSpace(string(out))
	if len(excerpt) > outputExcerptLimit {
		excerpt = excerpt[:outputExcerptLimit] + "…"
	}
	if excerpt == "" {
		return "(no output)"
	}
	return excerpt
}
