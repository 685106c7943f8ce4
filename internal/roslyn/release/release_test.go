package release

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/greeddj/go-roslyn/internal/roslyn/mirror"
	"github.com/greeddj/go-roslyn/internal/roslyn/store"
)

func TestAssetNameFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		goos    string
		goarch  string
		want    string
		wantErr error
	}{
		{goos: "linux", goarch: "amd64", want: "csharp-language-server-x86_64-unknown-linux-gnu.tar.gz"},
		{goos: "linux", goarch: "arm64", want: "csharp-language-server-aarch64-unknown-linux-gnu.tar.gz"},
		{goos: "darwin", goarch: "arm64", want: "csharp-language-server-aarch64-apple-darwin.tar.gz"},
		{goos: "darwin", goarch: "amd64", want: "csharp-language-server-x86_64-apple-darwin.tar.gz"},
		{goos: "windows", goarch: "amd64", want: "csharp-language-server-x86_64-pc-windows-msvc.zip"},
		{goos: "plan9", goarch: "amd64", wantErr: helpers.ErrUnsupportedOS},
		{goos: "linux", goarch: "mips", wantErr: helpers.ErrUnsupportedArch},
	}
	for _, tc := range tests {
		t.Run(tc.goos+"/"+tc.goarch, func(t *testing.T) {
			t.Parallel()
			got, err := assetNameFor(tc.goos, tc.goarch)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("assetNameFor error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNormalizeDigest(t *testing.T) {
	t.Parallel()
	if got := normalizeDigest("sha256:abcdef"); got != "abcdef" {
		t.Fatalf("unexpected digest: %q", got)
	}
	if got := normalizeDigest("  abcdef "); got != "abcdef" {
		t.Fatalf("unexpected digest: %q", got)
	}
	if got := normalizeDigest(""); got != "" {
		t.Fatalf("unexpected digest: %q", got)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return fn(req)
}

func newIndexClient(t *testing.T, body string) *http.Client {
	t.Helper()
	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "/releases") {
				t.Fatalf("unexpected request path: %s", req.URL.Path)
			}
			header := make(http.Header)
			header.Set("Content-Type", "application/json")
			return &http.Response{
				StatusCode: http.StatusOK,
				Status:     http.StatusText(http.StatusOK),
				Header:     header,
				Body:       io.NopCloser(bytes.NewReader([]byte(body))),
			}, nil
		}),
	}
}

func indexBody(t *testing.T) string {
	t.Helper()
	assetName, err := AssetName()
	if err != nil {
		t.Skipf("no published build for this platform: %v", err)
	}
	return `[
		{"tag_name":"6.0.0-preview.1","prerelease":true,"assets":[
			{"name":"` + assetName + `","browser_download_url":"https://example.com/6.0.0-preview.1","digest":"sha256:ddd"}]},
		{"tag_name":"5.1.0","draft":true,"assets":[
			{"name":"` + assetName + `","browser_download_url":"https://example.com/5.1.0-draft","digest":"sha256:eee"}]},
		{"tag_name":"5.0.0","assets":[
			{"name":"` + assetName + `","browser_download_url":"https://example.com/5.0.0","digest":"sha256:aaa"}]},
		{"tag_name":"4.2.0","assets":[
			{"name":"` + assetName + `","browser_download_url":"https://example.com/4.2.0","digest":"sha256:bbb"}]},
		{"tag_name":"4.1.0","assets":[
			{"name":"other-file.tar.gz","browser_download_url":"https://example.com/4.1.0","digest":"sha256:ccc"}]}
	]`
}

func testDeps(t *testing.T, body string) *infra.Infra {
	t.Helper()
	deps := infra.New(nil, newIndexClient(t, body))
	return deps
}

func TestResolveNewestStable(t *testing.T) {
	t.Parallel()
	body := indexBody(t)
	version, err := Resolve(context.Background(), testDeps(t, body), store.New(), "o/r", "", false, mirror.Policy{})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if version.Tag != "5.0.0" {
		t.Fatalf("expected newest stable 5.0.0, got %s", version.Tag)
	}
	if version.Digest != "aaa" {
		t.Fatalf("expected normalized digest aaa, got %s", version.Digest)
	}
	if version.URL != "https://example.com/5.0.0" {
		t.Fatalf("unexpected url: %s", version.URL)
	}
}

func TestResolvePrereleaseOptIn(t *testing.T) {
	t.Parallel()
	body := indexBody(t)
	version, err := Resolve(context.Background(), testDeps(t, body), store.New(), "o/r", "", true, mirror.Policy{})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if version.Tag != "6.0.0-preview.1" {
		t.Fatalf("expected prerelease tag, got %s", version.Tag)
	}
}

func TestResolveConstraint(t *testing.T) {
	t.Parallel()
	body := indexBody(t)
	version, err := Resolve(context.Background(), testDeps(t, body), store.New(), "o/r", "< 5.0.0", false, mirror.Policy{})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if version.Tag != "4.2.0" {
		t.Fatalf("expected 4.2.0, got %s", version.Tag)
	}
}

func TestResolveConstraintUnsatisfied(t *testing.T) {
	t.Parallel()
	body := indexBody(t)
	_, err := Resolve(context.Background(), testDeps(t, body), store.New(), "o/r", ">= 9.0.0", false, mirror.Policy{})
	if !errors.Is(err, helpers.ErrNoVersionSatisfiesConstraint) {
		t.Fatalf("expected ErrNoVersionSatisfiesConstraint, got %v", err)
	}
}

func TestResolveNoMatchingAsset(t *testing.T) {
	t.Parallel()
	if _, err := AssetName(); err != nil {
		t.Skipf("no published build for this platform: %v", err)
	}
	body := `[{"tag_name":"5.0.0","assets":[{"name":"unrelated.zip","browser_download_url":"https://example.com/x"}]}]`
	_, err := Resolve(context.Background(), testDeps(t, body), store.New(), "o/r", "", false, mirror.Policy{})
	if !errors.Is(err, helpers.ErrNoMatchingAsset) {
		t.Fatalf("expected ErrNoMatchingAsset, got %v", err)
	}
}

func TestResolveNoReleases(t *testing.T) {
	t.Parallel()
	if _, err := AssetName(); err != nil {
		t.Skipf("no published build for this platform: %v", err)
	}
	_, err := Resolve(context.Background(), testDeps(t, "[]"), store.New(), "o/r", "", false, mirror.Policy{})
	if !errors.Is(err, helpers.ErrNoReleases) {
		t.Fatalf("expected ErrNoReleases, got %v", err)
	}
}
