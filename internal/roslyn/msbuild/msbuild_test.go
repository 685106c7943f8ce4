package msbuild

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
)

type nopPrinter struct{}

func (nopPrinter) Printf(string, ...any)                 {}
func (nopPrinter) PersistentPrintf(string, ...any)       {}
func (nopPrinter) Warnf(string, ...any)                  {}
func (nopPrinter) Errorf(string, ...any)                 {}
func (nopPrinter) Debugf(string, ...any)                 {}
func (nopPrinter) DebugSincef(time.Time, string, ...any) {}

func TestParseProperty(t *testing.T) {
	t.Parallel()
	cases := []struct {
		desc   string
		output string
		name   string
		want   string
		found  bool
	}{
		{
			desc:   "json properties object",
			output: `{"Properties":{"OutputType":"Exe"}}`,
			name:   "OutputType",
			want:   "Exe",
			found:  true,
		},
		{
			desc:   "json non-string value stringified",
			output: `{"Properties":{"IsTestProject":true}}`,
			name:   "IsTestProject",
			want:   "true",
			found:  true,
		},
		{
			desc:   "json missing key falls through to absent",
			output: `{"Properties":{"OutputType":"Exe"}}`,
			name:   "TargetFramework",
			found:  false,
		},
		{
			desc:   "equals separator",
			output: "OutputType = Exe",
			name:   "OutputType",
			want:   "Exe",
			found:  true,
		},
		{
			desc:   "colon separator",
			output: "OutputType: Exe",
			name:   "OutputType",
			want:   "Exe",
			found:  true,
		},
		{
			desc:   "case-insensitive name match",
			output: "OutputType: Exe",
			name:   "outputtype",
			want:   "Exe",
			found:  true,
		},
		{
			desc:   "token following the name",
			output: "Property OutputType Exe",
			name:   "OutputType",
			want:   "Exe",
			found:  true,
		},
		{
			desc:   "whole matching line as last resort",
			output: "WinExeOutputType",
			name:   "OutputType",
			want:   "WinExeOutputType",
			found:  true,
		},
		{
			desc:   "bare single token output",
			output: "  Exe\n",
			name:   "OutputType",
			want:   "Exe",
			found:  true,
		},
		{
			desc:   "quoted value with trailing comma",
			output: `  "OutputType": "Exe",`,
			name:   "OutputType",
			want:   "Exe",
			found:  true,
		},
		{
			desc:   "first matching line wins",
			output: "Restoring packages\nOutputType = Library\nOutputType = Exe",
			name:   "OutputType",
			want:   "Library",
			found:  true,
		},
		{
			desc:   "absent from multi-token output",
			output: "Build succeeded in 1.2s",
			name:   "OutputType",
			found:  false,
		},
		{
			desc:   "empty output",
			output: "",
			name:   "OutputType",
			found:  false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			got, found := ParseProperty(tc.output, tc.name)
			if found != tc.found {
				t.Fatalf("expected found=%v, got %v (value %q)", tc.found, found, got)
			}
			if found && got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{in: " Exe ", want: "Exe"},
		{in: `"Exe"`, want: "Exe"},
		{in: `'Exe'`, want: "Exe"},
		{in: `"Exe",`, want: "Exe"},
		{in: "Exe}", want: "Exe"},
		{in: "Exe]", want: "Exe"},
		{in: `"unterminated`, want: `"unterminated`},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		if got := sanitize(tc.in); got != tc.want {
			t.Fatalf("sanitize(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func stubDeps(exec func(ctx context.Context, dir, name string, args ...string) ([]byte, error)) *infra.Infra {
	return &infra.Infra{
		Output: nopPrinter{},
		Now:    time.Now,
		LookPath: func(file string) (string, error) {
			return "/usr/bin/" + file, nil
		},
		Exec: exec,
	}
}

func TestGetPropertiesSingleInvocation(t *testing.T) {
	t.Parallel()
	calls := 0
	deps := stubDeps(func(_ context.Context, _, _ string, args ...string) ([]byte, error) {
		calls++
		joined := strings.Join(args, " ")
		for _, want := range []string{"/nologo", "/v:q", "/getProperty:OutputType", "/getProperty:IsTestProject"} {
			if !strings.Contains(joined, want) {
				t.Errorf("expected %s in args %q", want, joined)
			}
		}
		return []byte(`{"Properties":{"OutputType":"Exe","IsTestProject":"false"}}`), nil
	})

	got := GetProperties(context.Background(), deps, "app.csproj", []string{"OutputType", "IsTestProject"})
	want := map[string]string{"OutputType": "Exe", "IsTestProject": "false"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if calls != 1 {
		t.Fatalf("expected a single build-tool run, got %d", calls)
	}
}

func TestGetPropertiesRunFailureIsEmpty(t *testing.T) {
	t.Parallel()
	deps := stubDeps(func(context.Context, string, string, ...string) ([]byte, error) {
		return []byte("MSB1009: project file does not exist"), errors.New("exit status 1")
	})

	if got := GetProperties(context.Background(), deps, "missing.csproj", []string{"OutputType"}); len(got) != 0 {
		t.Fatalf("expected empty map on run failure, got %v", got)
	}
}

func TestGetPropertiesDotnetMissingIsEmpty(t *testing.T) {
	t.Parallel()
	deps := stubDeps(nil)
	deps.LookPath = func(string) (string, error) {
		return "", errors.New("not found")
	}

	if got := GetProperties(context.Background(), deps, "app.csproj", []string{"OutputType"}); len(got) != 0 {
		t.Fatalf("expected empty map without the build tool, got %v", got)
	}
}
