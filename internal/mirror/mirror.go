package mirror

import (
	"errors"

	"github.com/greeddj/go-roslyn/internal/mirror/local"
	"github.com/greeddj/go-roslyn/internal/mirror/s3"
	"github.com/greeddj/go-roslyn/internal/roslyn/config"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	mirrorManager "github.com/greeddj/go-roslyn/internal/roslyn/mirror"
)

var (
	errConfigNil     = errors.New("config is nil")
	errHTTPClientNil = errors.New("http client is nil")
)

// New selects and constructs a mirror backend based on configuration.
func New(cfg *config.Config, runtime *infra.Infra) (mirrorManager.Backend, error) {
	if cfg == nil {
		return nil, errConfigNil
	}
	if cfg.S3Mirror.Enabled {
		if runtime == nil || runtime.HTTP == nil {
			return nil, errHTTPClientNil
		}
		tempDir := ""
		if runtime.TempDir != nil {
			tempDir = runtime.TempDir()
		}
		return s3.New(cfg.S3Mirror, runtime.HTTP, tempDir)
	}
	return local.New(cfg.ContainerDir), nil
}
