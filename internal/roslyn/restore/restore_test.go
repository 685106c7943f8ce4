package restore

import (
	"context"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
)

type nopPrinter struct{}

func (nopPrinter) Printf(string, ...any)                 {}
func (nopPrinter) PersistentPrintf(string, ...any)       {}
func (nopPrinter) Warnf(string, ...any)                  {}
func (nopPrinter) Errorf(string, ...any)                 {}
func (nopPrinter) Debugf(string, ...any)                 {}
func (nopPrinter) DebugSincef(time.Time, string, ...any) {}

func stubDeps(t *testing.T, exec func(ctx context.Context, dir, name string, args ...string) ([]byte, error)) *infra.Infra {
	t.Helper()
	return &infra.Infra{
		Output:  nopPrinter{},
		Now:     time.Now,
		TempDir: t.TempDir,
		LookPath: func(file string) (string, error) {
			return "/usr/bin/" + file, nil
		},
		Exec: exec,
	}
}

func TestInstallRelocatesRestoredPackage(t *testing.T) {
	t.Parallel()
	const packageID = "Example.LanguageServer"
	const version = "5.0.0-1.25263.1"
	containerDir := t.TempDir()

	deps := stubDeps(t, func(_ context.Context, dir, _ string, args ...string) ([]byte, error) {
		if len(args) < 2 || args[0] != "restore" || args[1] != helpers.RestoreProjectFileName {
			t.Errorf("unexpected restore invocation: %v", args)
		}
		payloadDir := filepath.Join(dir, strings.ToLower(packageID), version, "content")
		if err := os.MkdirAll(payloadDir, helpers.DirMod); err != nil {
			return nil, err
		}
		return nil, os.WriteFile(filepath.Join(payloadDir, "server.dll"), []byte("payload"), helpers.FileMod)
	})

	versionDir, err := Install(context.Background(), deps, nil, packageID, version, containerDir)
	if err != nil {
		t.Fatalf("Install error: %v", err)
	}
	want := filepath.Join(containerDir, helpers.VersionDirName(version))
	if versionDir != want {
		t.Fatalf("expected %s, got %s", want, versionDir)
	}
	payload := filepath.Join(versionDir, "content", "server.dll")
	if got, err := os.ReadFile(payload); err != nil || string(got) != "payload" {
		t.Fatalf("expected relocated payload, got %q (%v)", got, err)
	}
}

func TestInstallDotnetMissing(t *testing.T) {
	t.Parallel()
	deps := stubDeps(t, nil)
	deps.LookPath = func(string) (string, error) {
		return "", errors.New("not found")
	}

	_, err := Install(context.Background(), deps, nil, "Example.LanguageServer", "5.0.0", t.TempDir())
	if !errors.Is(err, helpers.ErrDotnetNotFound) {
		t.Fatalf("expected ErrDotnetNotFound, got %v", err)
	}
}

func TestInstallRestoreFails(t *testing.T) {
	t.Parallel()
	deps := stubDeps(t, func(context.Context, string, string, ...string) ([]byte, error) {
		return []byte("error NU1301: unable to load the service index"), errors.New("exit status 1")
	})

	_, err := Install(context.Background(), deps, nil, "Example.LanguageServer", "5.0.0", t.TempDir())
	if !errors.Is(err, helpers.ErrRestoreFailed) {
		t.Fatalf("expected ErrRestoreFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "NU1301") {
		t.Fatalf("expected excerpt in error, got %v", err)
	}
}

func TestInstallMissingRestoredTree(t *testing.T) {
	t.Parallel()
	deps := stubDeps(t, func(context.Context, string, string, ...string) ([]byte, error) {
		return nil, nil
	})

	_, err := Install(context.Background(), deps, nil, "Example.LanguageServer", "5.0.0", t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing restored tree")
	}
}

func TestProjectXMLIsWellFormed(t *testing.T) {
	t.Parallel()
	rendered := projectXML("/tmp/scratch", "Example.LanguageServer", "5.0.0")

	var project struct {
		Sdk       string `xml:"Sdk,attr"`
		ItemGroup struct {
			PackageDownload struct {
				Include string `xml:"Include,attr"`
				Version string `xml:"Version,attr"`
			} `xml:"PackageDownload"`
		} `xml:"ItemGroup"`
	}
	if err := xml.Unmarshal([]byte(rendered), &project); err != nil {
		t.Fatalf("project is not well-formed XML: %v", err)
	}
	if project.ItemGroup.PackageDownload.Include != "Example.LanguageServer" {
		t.Fatalf("unexpected package: %s", project.ItemGroup.PackageDownload.Include)
	}
	if project.ItemGroup.PackageDownload.Version != "[5.0.0]" {
		t.Fatalf("expected exact version range, got %s", project.ItemGroup.PackageDownload.Version)
	}
}
