package tasks

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func labels(templates []Task) []string {
	out := make([]string, 0, len(templates))
	for _, task := range templates {
		out = append(out, task.Label)
	}
	return out
}

func hasLabel(templates []Task, label string) bool {
	for _, task := range templates {
		if task.Label == label {
			return true
		}
	}
	return false
}

func TestTemplates(t *testing.T) {
	t.Parallel()
	cases := []struct {
		desc       string
		props      map[string]string
		wantRun    bool
		wantTests  bool
		wantLabels int
	}{
		{
			desc:       "library project gets the base set",
			props:      map[string]string{"OutputType": "Library"},
			wantLabels: 3,
		},
		{
			desc:       "exe project adds run",
			props:      map[string]string{"OutputType": "Exe"},
			wantRun:    true,
			wantLabels: 4,
		},
		{
			desc:       "winexe counts as executable",
			props:      map[string]string{"OutputType": "WinExe"},
			wantRun:    true,
			wantLabels: 4,
		},
		{
			desc:       "test project adds the test pair",
			props:      map[string]string{"OutputType": "Library", "IsTestProject": "true"},
			wantTests:  true,
			wantLabels: 5,
		},
		{
			desc:       "executable test project gets everything",
			props:      map[string]string{"OutputType": "Exe", "IsTestProject": "True"},
			wantRun:    true,
			wantTests:  true,
			wantLabels: 6,
		},
		{
			desc:       "no properties still yields the base set",
			props:      nil,
			wantLabels: 3,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			templates := Templates("src/App/App.csproj", tc.props)
			if len(templates) != tc.wantLabels {
				t.Fatalf("expected %d templates, got %d (%v)", tc.wantLabels, len(templates), labels(templates))
			}
			for _, always := range []string{"build", "restore", "publish"} {
				if !hasLabel(templates, always) {
					t.Fatalf("expected %s template, got %v", always, labels(templates))
				}
			}
			if hasLabel(templates, "run") != tc.wantRun {
				t.Fatalf("run presence mismatch, got %v", labels(templates))
			}
			if hasLabel(templates, "test") != tc.wantTests {
				t.Fatalf("test presence mismatch, got %v", labels(templates))
			}
			if hasLabel(templates, "test "+SymbolPlaceholder) != tc.wantTests {
				t.Fatalf("symbol test presence mismatch, got %v", labels(templates))
			}
		})
	}
}

func TestSymbolTestTemplateCarriesFilter(t *testing.T) {
	t.Parallel()
	templates := Templates("App.csproj", map[string]string{"IsTestProject": "true"})
	for _, task := range templates {
		if task.Label != "test "+SymbolPlaceholder {
			continue
		}
		joined := strings.Join(task.Args, " ")
		if !strings.Contains(joined, "--filter FullyQualifiedName~"+SymbolPlaceholder) {
			t.Fatalf("expected symbol filter in args, got %v", task.Args)
		}
		return
	}
	t.Fatalf("symbol test template missing: %v", labels(templates))
}

func TestTaskMarshalsToYAML(t *testing.T) {
	t.Parallel()
	templates := Templates("App.csproj", map[string]string{"OutputType": "Exe"})
	raw, err := yaml.Marshal(templates)
	if err != nil {
		t.Fatalf("yaml marshal error: %v", err)
	}
	text := string(raw)
	for _, want := range []string{"label: build", "label: run", "command: dotnet"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in yaml output:\n%s", want, text)
		}
	}
}
