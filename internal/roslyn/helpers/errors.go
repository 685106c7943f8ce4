package helpers

import "errors"

var (
	// ErrUnsupportedOS indicates the host OS has no published server build.
	ErrUnsupportedOS = errors.New("unsupported operating system")
	// ErrUnsupportedArch indicates the host CPU architecture has no published server build.
	ErrUnsupportedArch = errors.New("unsupported architecture")
	// ErrNoReleases indicates the release index returned no usable releases.
	ErrNoReleases = errors.New("no releases available")
	// ErrNoMatchingAsset indicates no release asset matched the expected name.
	ErrNoMatchingAsset = errors.New("no matching release asset")
	// ErrNoVersionSatisfiesConstraint indicates no release tag satisfies the requested constraint.
	ErrNoVersionSatisfiesConstraint = errors.New("no version satisfies constraint")

	// ErrDotnetNotFound indicates the dotnet CLI is not on the search path.
	ErrDotnetNotFound = errors.New("dotnet executable not found")
	// ErrFeedUnavailable indicates the package feed search subprocess failed.
	ErrFeedUnavailable = errors.New("package feed unavailable")
	// ErrVersionFieldMissing indicates the feed search result lacks a version field.
	ErrVersionFieldMissing = errors.New("version field missing in search result")
	// ErrRestoreFailed indicates a build-tool restore exited non-zero.
	ErrRestoreFailed = errors.New("restore failed")

	// ErrDownloadFailed indicates an archive download failed.
	ErrDownloadFailed = errors.New("download failed")
	// ErrDigestMismatch indicates a downloaded artifact did not match its advertised digest.
	ErrDigestMismatch = errors.New("sha256 digest mismatch")
	// ErrBinaryNotFound indicates no server binary exists inside an extracted archive.
	ErrBinaryNotFound = errors.New("server binary not found")
	// ErrNoCachedBinary indicates the container directory holds no usable cached binary.
	ErrNoCachedBinary = errors.New("no cached binary")

	// ErrSymlinkTargetResolvesToSelf indicates a symlink resolves to itself.
	ErrSymlinkTargetResolvesToSelf = errors.New("symlink target resolves to self")
	// ErrSymlinkTargetEscapesDestination indicates a symlink escapes the target directory.
	ErrSymlinkTargetEscapesDestination = errors.New("symlink target escapes destination")
	// ErrSymlinkTarget indicates a symlink target is invalid.
	ErrSymlinkTarget = errors.New("symlink target is invalid")
	// ErrSymlinkTargetResolvesToRoot indicates a symlink resolves to the root directory.
	ErrSymlinkTargetResolvesToRoot = errors.New("symlink target resolves to root")
	// ErrSymlinkTargetIsAbsolute indicates a symlink target is an absolute path.
	ErrSymlinkTargetIsAbsolute = errors.New("symlink target is absolute")
	// ErrSymlinkTargetIsEmpty indicates a symlink target is empty.
	ErrSymlinkTargetIsEmpty = errors.New("symlink target is empty")

	// ErrArchivePathContainsSymlinkComponent indicates an archive path traverses a symlink.
	ErrArchivePathContainsSymlinkComponent = errors.New("archive path contains symlink component")
	// ErrArchiveExceedsMaxSize indicates an archive exceeds the maximum total size.
	ErrArchiveExceedsMaxSize = errors.New("archive exceeds maximum total size")
	// ErrArchiveEntryHasNegativeSize indicates an archive entry has a negative size.
	ErrArchiveEntryHasNegativeSize = errors.New("archive entry has negative size")
	// ErrArchiveEntryIsTooLarge indicates an archive entry is too large.
	ErrArchiveEntryIsTooLarge = errors.New("archive entry is too large")
	// ErrArchiveEntryEscapesDestination indicates an archive entry escapes the destination.
	ErrArchiveEntryEscapesDestination = errors.New("archive entry escapes destination")
	// ErrArchiveEntryIsAbsolutePath indicates an archive entry uses an absolute path.
	ErrArchiveEntryIsAbsolutePath = errors.New("archive entry is absolute path")
	// ErrArchiveEntryHasEmptyName indicates an archive entry has an empty name.
	ErrArchiveEntryHasEmptyName = errors.New("archive entry has empty name")
	// ErrHardlinkTargetIsEmpty indicates a hardlink target is empty.
	ErrHardlinkTargetIsEmpty = errors.New("hardlink target is empty")
	// ErrFileIsEmpty indicates a file is empty.
	ErrFileIsEmpty = errors.New("file is empty")

	// ErrS3EmptyCreds indicates S3 mirror credentials are required but missing.
	ErrS3EmptyCreds = errors.New("s3 mirror requires access/secret keys when GO_ROSLYN_S3_BUCKET is set")

	// ErrCacheDirEmpty indicates the cache directory is empty.
	ErrCacheDirEmpty = errors.New("cache directory is empty")
	// ErrContainerDirEmpty indicates the container directory is empty.
	ErrContainerDirEmpty = errors.New("container directory is empty")
	// ErrAnotherInstanceIsRunning indicates another instance is already running.
	ErrAnotherInstanceIsRunning = errors.New("another instance is running")
	// ErrDbNil indicates a nil Bolt DB was provided.
	ErrDbNil = errors.New("bolt DB is nil")
	// ErrStoreNil indicates a nil store was provided.
	ErrStoreNil = errors.New("store is nil")
	// ErrUnsupportedSchemaVersion indicates the snapshot schema version is unsupported.
	ErrUnsupportedSchemaVersion = errors.New("unsupported snapshot schema version")

	// ErrConfigIsNil indicates a nil config was provided.
	ErrConfigIsNil = errors.New("config is nil")
	// ErrNoProjectFound indicates no project or solution file exists in the ancestor chain.
	ErrNoProjectFound = errors.New("no project or solution file found")
	// ErrUnknownFormat indicates an unsupported output format was requested.
	ErrUnknownFormat = errors.New("unknown output format")
)
