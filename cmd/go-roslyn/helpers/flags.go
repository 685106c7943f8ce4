package helpers

import (
	"github.com/urfave/cli/v2"
)

// CommonFlags defines shared CLI flags for all commands.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Verbose output",
			EnvVars: []string{"GO_ROSLYN_VERBOSE"},
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Quiet mode, not working with verbose",
			EnvVars: []string{"GO_ROSLYN_QUIET"},
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Enable dry-run mode",
		},
		&cli.StringFlag{
			Name:    "container-dir",
			Usage:   "Container directory holding cached server versions",
			Value:   defaultContainerDir(),
			EnvVars: []string{"GO_ROSLYN_CONTAINER_DIR"},
		},
		&cli.StringFlag{
			Name:    "settings",
			Usage:   "Path to go-roslyn.toml settings file",
			EnvVars: []string{"GO_ROSLYN_SETTINGS"},
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: json or yaml",
			Value:   "json",
			EnvVars: []string{"GO_ROSLYN_FORMAT"},
		},
	}
}

// ServerFlags defines CLI flags for version resolution and acquisition.
func ServerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Usage:   "Release repository (owner/name) for prebuilt server archives",
			EnvVars: []string{"GO_ROSLYN_REPO"},
		},
		&cli.StringFlag{
			Name:    "version",
			Usage:   "Version constraint, exact tag or semver range, empty for newest",
			EnvVars: []string{"GO_ROSLYN_VERSION"},
		},
		&cli.BoolFlag{
			Name:    "prerelease",
			Usage:   "Consider prerelease versions",
			EnvVars: []string{"GO_ROSLYN_PRERELEASE"},
		},
		&cli.BoolFlag{
			Name:    "use-feed",
			Usage:   "Resolve and install through the package feed instead of the release index",
			EnvVars: []string{"GO_ROSLYN_USE_FEED"},
		},
		&cli.StringFlag{
			Name:    "feed-package",
			Usage:   "Package ID to resolve on the feed",
			EnvVars: []string{"GO_ROSLYN_FEED_PACKAGE"},
		},
		&cli.StringFlag{
			Name:    "feed-source",
			Usage:   "Package feed source URL",
			EnvVars: []string{"GO_ROSLYN_FEED_SOURCE"},
		},
		&cli.BoolFlag{
			Name:    "no-system",
			Usage:   "Ignore a server already installed on PATH",
			EnvVars: []string{"GO_ROSLYN_NO_SYSTEM"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Timeout duration",
			Value:   defaultTimeout,
			EnvVars: []string{"GO_ROSLYN_TIMEOUT"},
		},
		&cli.BoolFlag{
			Name:    "no-cache",
			Usage:   "Disable local caching",
			EnvVars: []string{"GO_ROSLYN_NO_CACHE"},
		},
		&cli.BoolFlag{
			Name:    "refresh",
			Usage:   "Refresh the release index, ignoring cached responses",
			EnvVars: []string{"GO_ROSLYN_REFRESH"},
		},
		&cli.BoolFlag{
			Name:    "clear-cache",
			Usage:   "Clear local cache state before running",
			EnvVars: []string{"GO_ROSLYN_CLEAR_CACHE"},
		},
	}
}

// S3Flags defines CLI flags for S3 archive-mirror configuration.
func S3Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "s3-bucket",
			Usage:   "S3 bucket name for the archive mirror, if defined enables S3 mirroring",
			EnvVars: []string{"GO_ROSLYN_S3_BUCKET"},
		},
		&cli.StringFlag{
			Name:    "s3-region",
			Usage:   "S3 region for the archive mirror",
			EnvVars: []string{"GO_ROSLYN_S3_REGION"},
		},
		&cli.StringFlag{
			Name:    "s3-prefix",
			Usage:   "S3 key prefix for the archive mirror",
			EnvVars: []string{"GO_ROSLYN_S3_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "s3-access-key",
			Usage:   "S3 access key for the archive mirror",
			EnvVars: []string{"GO_ROSLYN_S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID"},
		},
		&cli.StringFlag{
			Name:    "s3-secret-key",
			Usage:   "S3 secret key for the archive mirror",
			EnvVars: []string{"GO_ROSLYN_S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "s3-endpoint",
			Usage:   "S3 endpoint for the archive mirror",
			EnvVars: []string{"GO_ROSLYN_S3_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "s3-session-token",
			Usage:   "S3 session token for the archive mirror",
			EnvVars: []string{"GO_ROSLYN_S3_SESSION_TOKEN", "AWS_SESSION_TOKEN"},
		},
		&cli.BoolFlag{
			Name:    "s3-path-style-disabled",
			Usage:   "Path style addressing for S3",
			EnvVars: []string{"GO_ROSLYN_S3_PATH_STYLE_DISABLED"},
		},
	}
}
