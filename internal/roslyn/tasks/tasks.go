// Package tasks builds runnable task templates for a discovered project,
// keyed off its extracted build properties.
package tasks

import (
	"strings"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
)

// SymbolPlaceholder marks where a host substitutes the symbol under the
// cursor into the symbol-scoped test task.
const SymbolPlaceholder = "$SYMBOL"

// Property names consulted when deciding which templates apply.
const (
	PropertyOutputType    = "OutputType"
	PropertyIsTestProject = "IsTestProject"
)

// Task is one invocable template. It marshals to both JSON and YAML for
// host consumption.
type Task struct {
	Label   string   `json:"label"           yaml:"label"`
	Command string   `json:"command"         yaml:"command"`
	Args    []string `json:"args"            yaml:"args"`
	Cwd     string   `json:"cwd,omitempty"   yaml:"cwd,omitempty"`
}

// Templates returns the task set for projectPath given its extracted
// properties. Build, restore and publish always apply; run only for
// executable output types; the test pair only for test projects.
func Templates(projectPath string, props map[string]string) []Task {
	templates := []Task{
		{
			Label:   "build",
			Command: helpers.DotnetCommand,
			Args:    []string{"build", projectPath},
		},
	}

	if isExecutable(props[PropertyOutputType]) {
		templates = append(templates, Task{
			Label:   "run",
			Command: helpers.DotnetCommand,
			Args:    []string{"run", "--project", projectPath},
		})
	}

	if isTestProject(props[PropertyIsTestProject]) {
		templates = append(templates,
			Task{
				Label:   "test",
				Command: helpers.DotnetCommand,
				Args:    []string{"test", projectPath},
			},
			Task{
				Label:   "test " + SymbolPlaceholder,
				Command: helpers.DotnetCommand,
				Args:    []string{"test", projectPath, "--filter", "FullyQualifiedName~" + SymbolPlaceholder},
			},
		)
	}

	return append(templates,
		Task{
			Label:   "restore",
			Command: helpers.DotnetCommand,
			Args:    []string{"restore", projectPath},
		},
		Task{
			Label:   "publish",
			Command: helpers.DotnetCommand,
			Args:    []string{"publish", projectPath},
		},
	)
}

// isExecutable reports whether the output type produces a runnable program.
func isExecutable(outputType string) bool {
	switch strings.ToLower(strings.TrimSpace(outputType)) {
	case "exe", "winexe":
		return true
	}
	return false
}

// isTestProject reports whether the property marks a test project.
func isTestProject(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}
