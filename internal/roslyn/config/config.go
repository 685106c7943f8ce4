package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/urfave/cli/v2"
)

// Config holds runtime settings for toolchain operations.
type Config struct {
	Verbose          bool
	Quiet            bool
	ContainerDir     string
	Repo             string
	Constraint       string
	Prerelease       bool
	FeedPackageID    string
	FeedSource       string
	UseFeed          bool
	NoSystem         bool
	ClearCache       bool
	NoCache          bool
	Refresh          bool
	DryRun           bool
	Format           string
	Timeout          time.Duration
	S3Mirror         S3MirrorConfig
	SettingsPath     string
	SettingsDirUsed  bool
	SettingsRepoUsed bool
}

// IsNoCache reports whether cache reads and writes are disabled.
func (c *Config) IsNoCache() bool {
	if c == nil {
		return false
	}
	return c.NoCache
}

// IsRefresh reports whether cache refresh is requested.
func (c *Config) IsRefresh() bool {
	if c == nil {
		return false
	}
	return c.Refresh
}

// Build builds Config from CLI flags and the optional settings file.
func Build(c *cli.Context) (*Config, error) {
	cfg := newConfigFromCLI(c)
	applyTimeout(cfg, c)

	settings, settingsPath, err := loadSettingsFromCLI(c)
	if err != nil {
		return nil, err
	}
	applySettings(cfg, c, settings, settingsPath)

	s3Cfg, err := loadS3MirrorConfig(c)
	if err != nil {
		return nil, err
	}
	cfg.S3Mirror = s3Cfg

	return cfg, nil
}

func newConfigFromCLI(c *cli.Context) *Config {
	cfg := &Config{
		Constraint:    c.String("version"),
		Prerelease:    c.Bool("prerelease"),
		FeedPackageID: c.String("feed-package"),
		FeedSource:    c.String("feed-source"),
		UseFeed:       c.Bool("use-feed"),
		NoSystem:      c.Bool("no-system"),
		ClearCache:    c.Bool("clear-cache"),
		NoCache:       c.Bool("no-cache"),
		Refresh:       c.Bool("refresh"),
		DryRun:        c.Bool("dry-run"),
		Format:        c.String("format"),
	}
	cfg.Verbose = c.Bool("verbose")
	cfg.Quiet = !cfg.Verbose && c.Bool("quiet")
	return cfg
}

func applyTimeout(cfg *Config, c *cli.Context) {
	cfg.Timeout = c.Duration("timeout")
	cfg.Timeout = max(cfg.Timeout, helpers.FetchDefaultTimeout)
}

func loadSettingsFromCLI(c *cli.Context) (settingsFile, string, error) {
	settings, settingsPath, err := loadSettings(c.String("settings"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return settings, "", fmt.Errorf("failed to load settings file: %w", err)
	}
	return settings, settingsPath, nil
}

func applySettings(cfg *Config, c *cli.Context, settings settingsFile, settingsPath string) {
	if settingsPath != "" {
		cfg.SettingsPath = settingsPath
	}
	if settings.Server.ContainerDir != "" {
		cfg.ContainerDir = settings.Server.ContainerDir
		cfg.SettingsDirUsed = true
	} else {
		cfg.ContainerDir = c.String("container-dir")
	}
	if settings.Server.Repo != "" {
		cfg.Repo = settings.Server.Repo
		cfg.SettingsRepoUsed = true
	} else {
		cfg.Repo = c.String("repo")
	}
	if cfg.FeedPackageID == "" {
		cfg.FeedPackageID = settings.Feed.PackageID
	}
	if cfg.FeedSource == "" {
		cfg.FeedSource = settings.Feed.Source
	}
	if cfg.FeedPackageID == "" {
		cfg.FeedPackageID = helpers.DefaultFeedPackageID
	}
	if cfg.FeedSource == "" {
		cfg.FeedSource = helpers.DefaultFeedSource
	}
	if cfg.Repo == "" {
		cfg.Repo = helpers.DefaultReleaseRepo
	}
}

// serverSettings maps the [server] section from go-roslyn.toml.
type serverSettings struct {
	Repo         string `toml:"repo"`
	ContainerDir string `toml:"container_dir"`
}

// feedSettings maps the [feed] section from go-roslyn.toml.
type feedSettings struct {
	PackageID string `toml:"package_id"`
	Source    string `toml:"source"`
}

// settingsFile represents the parsed go-roslyn.toml structure.
type settingsFile struct {
	Server serverSettings `toml:"server"`
	Feed   feedSettings   `toml:"feed"`
}

// loadSettings loads go-roslyn.toml if it exists.
func loadSettings(settingsPath string) (settingsFile, string, error) {
	settings := settingsFile{}
	if _, err := os.Stat(settingsPath); err != nil {
		return settings, "", err
	}
	if _, err := toml.DecodeFile(settingsPath, &settings); err != nil {
		return settings, "", fmt.Errorf("failed to parse %s: %w", helpers.SettingsFileName, err)
	}
	return settings, settingsPath, nil
}
