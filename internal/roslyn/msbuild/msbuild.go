// Package msbuild extracts named properties from build-tool output. The
// output format is not a stable contract, so extraction is an ordered chain
// of heuristics over JSON and line-oriented text, and absence is never an
// error.
package msbuild

import (
	"context"
	"strings"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/tidwall/gjson"
)

// GetProperties evaluates the requested properties of a project in a single
// build-tool invocation. Best-effort: a failed run or an undiscoverable
// property leaves its key absent from the result.
func GetProperties(ctx context.Context, deps *infra.Infra, projectPath string, names []string) map[string]string {
	result := make(map[string]string, len(names))
	if len(names) == 0 {
		return result
	}

	dotnetPath, err := deps.LookPath(helpers.DotnetCommand)
	if err != nil {
		deps.Output.Debugf("property extraction skipped, %s not found: %v", helpers.DotnetCommand, err)
		return result
	}

	args := []string{"msbuild", projectPath, "/nologo", "/v:q"}
	for _, name := range names {
		args = append(args, "/getProperty:"+name)
	}

	runCtx, cancel := context.WithTimeout(ctx, helpers.SubprocessDefaultTimeout)
	defer cancel()

	out, err := deps.Exec(runCtx, "", dotnetPath, args...)
	if err != nil {
		deps.Output.Debugf("property extraction run failed for %s: %v", projectPath, err)
		return result
	}

	text := string(out)
	for _, name := range names {
		if value, ok := ParseProperty(text, name); ok {
			result[name] = value
		}
	}
	return result
}

// strategy attempts to extract one property value from output text.
type strategy func(output, name string) (string, bool)

// parseChain is tried left to right; the first hit wins.
var parseChain = []strategy{
	parseJSONProperties,
	parseMatchingLine,
	parseSingleToken,
}

// ParseProperty extracts the value of name from build-tool output text.
// The second return reports whether any strategy found a value.
func ParseProperty(output, name string) (string, bool) {
	for _, parse := range parseChain {
		if value, ok := parse(output, name); ok {
			return value, ok
		}
	}
	return "", false
}

// parseJSONProperties reads the property from a whole-output JSON document
// carrying a Properties object. Non-string values are stringified.
func parseJSONProperties(output, name string) (string, bool) {
	trimmed := strings.TrimSpace(output)
	if !gjson.Valid(trimmed) {
		return "", false
	}
	if !gjson.Get(trimmed, "Properties").IsObject() {
		return "", false
	}
	value := gjson.Get(trimmed, "Properties."+name)
	if !value.Exists() {
		return "", false
	}
	return value.String(), true
}

// parseMatchingLine scans for the first line mentioning the property name,
// case-insensitively, and pulls the value out of it: after the first "=",
// else after the first ":", else the token following the name, else the
// sanitized whole line.
func parseMatchingLine(output, name string) (string, bool) {
	lowerName := strings.ToLower(name)
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(strings.ToLower(line), lowerName) {
			continue
		}
		if _, after, found := strings.Cut(line, "="); found {
			return sanitize(after), true
		}
		if _, after, found := strings.Cut(line, ":"); found {
			return sanitize(after), true
		}
		if token, ok := tokenAfterName(line, lowerName); ok {
			return sanitize(token), true
		}
		return sanitize(line), true
	}
	return "", false
}

// tokenAfterName returns the whitespace-delimited token following the one
// matching the property name.
func tokenAfterName(line, lowerName string) (string, bool) {
	fields := strings.Fields(line)
	for i, field := range fields {
		if strings.ToLower(sanitize(field)) != lowerName {
			continue
		}
		if i+1 < len(fields) {
			return fields[i+1], true
		}
		return "", false
	}
	return "", false
}

// parseSingleToken handles a build tool that prints only the bare value:
// the entire output is one line of exactly one token.
func parseSingleToken(output, _ string) (string, bool) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t\n\r") {
		return "", false
	}
	return sanitize(trimmed), true
}

// sanitize normalizes an extracted fragment: trim space, strip one trailing
// comma/brace/bracket, strip one surrounding quote pair, trim again.
func sanitize(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 0 {
		switch value[len(value)-1] {
		case ',', '}', ']':
			value = value[:len(value)-1]
		}
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if first == last && (first == '"' || first == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return strings.TrimSpace(value)
}
