package local

import "errors"

var (
	errStateDirEmpty    = errors.New("mirror state directory is empty")
	errArtifactKeyEmpty = errors.New("artifact key is empty")
)

const (
	dirMod = 0o755
)
