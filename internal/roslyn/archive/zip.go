package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
)

// ExtractZip extracts a zip archive into dstDir with the same path
// sanitization and size budget as the tar.gz path. Symlinks inside zip
// archives are not materialized; the release assets never contain them.
func ExtractZip(zipFile, dstDir string) error {
	info, err := os.Stat(zipFile)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", zipFile, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", helpers.ErrFileIsEmpty, zipFile)
	}

	reader, err := zip.OpenReader(zipFile)
	if err != nil {
		return fmt.Errorf("failed to open zip file %s: %w", zipFile, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	var extracted int64
	for _, entry := range reader.File {
		if err := handleZipEntry(entry, dstDir, &extracted); err != nil {
			return err
		}
	}
	return nil
}

func handleZipEntry(entry *zip.File, dstDir string, extracted *int64) error {
	relPath, err := sanitizeArchivePath(entry.Name)
	if err != nil {
		return err
	}
	if relPath == "" {
		return nil
	}
	targetPath := filepath.Join(dstDir, relPath)
	if err := ensureNoSymlinkParents(dstDir, relPath); err != nil {
		return err
	}

	if entry.FileInfo().IsDir() {
		return extractDir(targetPath)
	}
	return extractZipFile(entry, targetPath, extracted)
}

func extractZipFile(entry *zip.File, targetPath string, extracted *int64) error {
	size := int64(entry.UncompressedSize64) //nolint:gosec // size is bounded below before use.
	if size < 0 || size > helpers.ArchiveMaxEntrySize {
		return fmt.Errorf("%w %s: %d bytes", helpers.ErrArchiveEntryIsTooLarge, entry.Name, size)
	}
	if *extracted+size > helpers.ArchiveMaxTotalSize {
		return fmt.Errorf("%w: %d bytes", helpers.ErrArchiveExceedsMaxSize, helpers.ArchiveMaxTotalSize)
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), helpers.DirMod); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", targetPath, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open zip entry %s: %w", entry.Name, err)
	}
	defer func() {
		_ = src.Close()
	}()

	mode := entry.FileInfo().Mode().Perm()
	if mode == 0 {
		mode = helpers.FileMod
	}
	//nolint:gosec // targetPath is a sanitized archive entry under dstDir.
	file, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", targetPath, err)
	}
	// LimitReader guards against entries whose header lies about their size.
	written, err := io.Copy(file, io.LimitReader(src, size))
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write file %s: %w", targetPath, err)
	}
	*extracted += written
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", targetPath, err)
	}
	return nil
}
