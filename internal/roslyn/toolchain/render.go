package toolchain

import (
	"encoding/json"
	"fmt"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Render.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Render marshals a value into the requested output format.
func Render(value any, format string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return json.MarshalIndent(value, "", "  ")
	case FormatYAML:
		return yaml.Marshal(value)
	default:
		return nil, fmt.Errorf("%w: %s", helpers.ErrUnknownFormat, format)
	}
}
