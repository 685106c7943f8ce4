package helpers

import "time"

const (
	// DirMod is the default permission for created directories.
	DirMod = 0o755
	// FileMod is the default permission for created files.
	FileMod = 0o644
	// BinMod is the permission applied to cached server binaries on non-Windows hosts.
	BinMod = 0o755

	// ServerBinaryName is the language-server executable name without extension.
	ServerBinaryName = "csharp-language-server"
	// VersionDirPrefix prefixes per-version directories inside the container directory.
	VersionDirPrefix = "roslyn"
	// MetadataFileName is the sidecar file written next to a cached binary.
	MetadataFileName = "metadata"
	// MetadataVersion is the current sidecar metadata format version.
	MetadataVersion = 1
	// WarmupArg is passed to the freshly installed binary so it prefetches its own caches.
	WarmupArg = "--download"
	// LivenessArg is used to check that a cached binary still executes.
	LivenessArg = "--version"

	// DotnetCommand is the build-tool executable this tool shells out to.
	DotnetCommand = "dotnet"
	// RestoreProjectFileName is the synthesized project used for feed-mediated installs.
	RestoreProjectFileName = "ServerDownload.csproj"

	// ReleaseAPIBase is the release index endpoint prefix.
	ReleaseAPIBase = "https://api.github.com/repos"
	// ReleasePageSize bounds how many releases a single index query returns.
	ReleasePageSize = 30
	// DefaultReleaseRepo is the GitHub repository publishing server binaries.
	DefaultReleaseRepo = "SofusA/csharp-language-server"
	// DefaultFeedPackageID is the NuGet package carrying the language server.
	DefaultFeedPackageID = "Microsoft.CodeAnalysis.LanguageServer"
	// DefaultFeedSource is the NuGet feed queried by the feed resolver.
	DefaultFeedSource = "https://pkgs.dev.azure.com/azure-public/vside/_packaging/vs-impl/nuget/v3/index.json"
	// SettingsFileName is the optional TOML settings file looked up next to flags.
	SettingsFileName = "go-roslyn.toml"

	// CacheReleaseListTTL is the TTL for cached release index responses before revalidation.
	CacheReleaseListTTL = 10 * time.Minute

	// ArchiveMaxEntrySize caps a single archive entry size during extraction.
	ArchiveMaxEntrySize = int64(512 << 20) // 512 MiB per file
	// ArchiveMaxTotalSize caps total extracted bytes per archive.
	ArchiveMaxTotalSize = int64(4 << 30) // 4 GiB per archive

	// FetchDefaultTimeout is the overall HTTP client timeout.
	FetchDefaultTimeout = 30 * time.Second
	// FetchDialContextTimeout is the dial timeout for outbound connections.
	FetchDialContextTimeout = 10 * time.Second
	// FetchDialContextKeepAlive is the TCP keep-alive for dials.
	FetchDialContextKeepAlive = 30 * time.Second
	// FetchForceAttemptHTTP2 enables HTTP/2 attempts when possible.
	FetchForceAttemptHTTP2 = true
	// FetchMaxIdleConns is the maximum number of idle connections.
	FetchMaxIdleConns = 100
	// FetchMaxIdleConnsPerHost limits idle connections per host.
	FetchMaxIdleConnsPerHost = 10
	// FetchIdleConnTimeout is the idle connection timeout.
	FetchIdleConnTimeout = 30 * time.Second
	// FetchTLSHandshakeTimeout is the TLS handshake timeout.
	FetchTLSHandshakeTimeout = 3 * time.Second
	// FetchExpectContinueTimeout is the expect-continue timeout.
	FetchExpectContinueTimeout = 1 * time.Second

	// SubprocessDefaultTimeout bounds package-search and msbuild invocations.
	SubprocessDefaultTimeout = 2 * time.Minute

	// StoreSnapshotSchemaVersion is the current snapshot schema version.
	StoreSnapshotSchemaVersion = 1
	// StoreDBLock is the cache lock file name.
	StoreDBLock = ".go-roslyn.lock"
	// StoreDBLocal is the local snapshot database filename.
	StoreDBLocal = "go-roslyn.db"

	// StoreBucketMeta is the bucket name for snapshot metadata.
	StoreBucketMeta = "meta"
	// StoreBucketAPICache is the bucket name for release index response cache entries.
	StoreBucketAPICache = "api_cache"
	// StoreBucketInstalled is the bucket name for acquired toolchain versions.
	StoreBucketInstalled = "installed"
	// StoreBucketContainers is the bucket name for the container directory registry.
	StoreBucketContainers = "containers"

	// StoreMetaSchemaVersion is the metadata key for the snapshot schema version.
	StoreMetaSchemaVersion = "schema_version"
	// StoreMetaLastRun is the metadata key for the last run time.
	StoreMetaLastRun = "last_run"
)
