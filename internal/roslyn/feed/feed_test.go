package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/greeddj/go-roslyn/internal/roslyn/notify"
)

type countingPrinter struct {
	warns int
}

func (p *countingPrinter) Printf(string, ...any)                 {}
func (p *countingPrinter) PersistentPrintf(string, ...any)       {}
func (p *countingPrinter) Warnf(string, ...any)                  { p.warns++ }
func (p *countingPrinter) Errorf(string, ...any)                 {}
func (p *countingPrinter) Debugf(string, ...any)                 {}
func (p *countingPrinter) DebugSincef(time.Time, string, ...any) {}

func stubDeps(lookErr error, out []byte, execErr error) *infra.Infra {
	deps := infra.New(nil, nil)
	deps.LookPath = func(string) (string, error) {
		if lookErr != nil {
			return "", lookErr
		}
		return "/usr/bin/dotnet", nil
	}
	deps.Exec = func(context.Context, string, string, ...string) ([]byte, error) {
		return out, execErr
	}
	return deps
}

const searchJSON = `{
	"version": 2,
	"problems": [],
	"searchResult": [
		{
			"sourceName": "feed",
			"packages": [
				{"id": "Microsoft.CodeAnalysis.LanguageServer", "latestVersion": "5.0.0-1.25277.114  "},
				{"id": "Other.Package", "latestVersion": "9.9.9"}
			]
		}
	]
}`

func TestResolveReadsFirstResult(t *testing.T) {
	t.Parallel()
	deps := stubDeps(nil, []byte(searchJSON), nil)
	version, err := Resolve(context.Background(), deps, nil, "Microsoft.CodeAnalysis.LanguageServer", "https://feed.example")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if version.Tag != "5.0.0-1.25277.114" {
		t.Fatalf("expected trimmed first-result version, got %q", version.Tag)
	}
	if version.URL != "" || version.Digest != "" {
		t.Fatalf("feed versions carry no URL or digest: %+v", version)
	}
}

func TestResolveDotnetMissingWarnsOnce(t *testing.T) {
	t.Parallel()
	printer := &countingPrinter{}
	notifier := notify.New(printer)
	deps := stubDeps(errors.New("not found"), nil, nil)

	for range 3 {
		_, err := Resolve(context.Background(), deps, notifier, "pkg", "https://feed.example")
		if !errors.Is(err, helpers.ErrDotnetNotFound) {
			t.Fatalf("expected ErrDotnetNotFound, got %v", err)
		}
	}
	if printer.warns != 1 {
		t.Fatalf("expected exactly one warning, got %d", printer.warns)
	}
}

func TestResolveFeedUnavailable(t *testing.T) {
	t.Parallel()
	deps := stubDeps(nil, []byte("error: feed timed out"), errors.New("exit status 1"))
	_, err := Resolve(context.Background(), deps, nil, "pkg", "https://feed.example")
	if !errors.Is(err, helpers.ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}

func TestResolveVersionFieldMissing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		out  string
	}{
		{name: "empty results", out: `{"searchResult":[]}`},
		{name: "no packages", out: `{"searchResult":[{"packages":[]}]}`},
		{name: "blank version", out: `{"searchResult":[{"packages":[{"latestVersion":"   "}]}]}`},
		{name: "not json", out: "plain text output"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			deps := stubDeps(nil, []byte(tc.out), nil)
			_, err := Resolve(context.Background(), deps, nil, "pkg", "https://feed.example")
			if !errors.Is(err, helpers.ErrVersionFieldMissing) {
				t.Fatalf("expected ErrVersionFieldMissing, got %v", err)
			}
		})
	}
}

func TestOutputExcerpt(t *testing.T) {
	t.Parallel()
	if got := outputExcerpt(nil); got != "(no output)" {
		t.Fatalf("unexpected excerpt: %q", got)
	}
	long := make([]byte, 2*outputExcerptLimit)
	for i := range long {
		long[i] = 'x'
	}
	if got := outputExcerpt(long); len(got) > outputExcerptLimit+4 {
		t.Fatalf("excerpt not truncated: %d bytes", len(got))
	}
}
