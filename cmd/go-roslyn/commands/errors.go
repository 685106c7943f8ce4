package commands

import "errors"

var (
	errProjectArgRequired = errors.New("project file argument is required")
	errPathArgRequired    = errors.New("source path argument is required")
)
