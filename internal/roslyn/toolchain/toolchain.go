// Package toolchain defines the shared result types of the acquisition
// pipeline: the resolved server version and the runnable binary descriptor
// handed to whatever launches the language server.
package toolchain

// Version identifies a resolved server version. URL and Digest are set only
// when the version came from the release index; Digest, when present, must
// match the downloaded artifact before it is trusted.
type Version struct {
	Tag    string `json:"tag" yaml:"tag"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`
}

// Binary describes a runnable language-server executable. It is immutable
// once constructed and owned by the caller.
type Binary struct {
	Path string            `json:"path" yaml:"path"`
	Args []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env  map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}
