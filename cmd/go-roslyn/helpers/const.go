package helpers

import "time"

const (
	dirSuffix      = ".cache/go-roslyn"
	defaultHomeDir = "/root"
	defaultTimeout = 30 * time.Second
)
