package commands

import (
	"io"
	"log"

	"github.com/greeddj/go-roslyn/cmd/go-roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/progress"
	"github.com/greeddj/go-roslyn/internal/roslyn/config"
	"github.com/greeddj/go-roslyn/internal/roslyn/fetch"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/greeddj/go-roslyn/internal/roslyn/install"
	"github.com/urfave/cli/v2"
)

// Install returns the CLI command that acquires the language server.
func Install() *cli.Command {
	flags := helpers.CommonFlags()
	flags = append(flags, helpers.ServerFlags()...)
	flags = append(flags, helpers.S3Flags()...)

	return &cli.Command{
		Name:    "install",
		Aliases: []string{"i"},
		Usage:   "Resolve, download, verify and cache the language server",
		Flags:   flags,
		Action: func(c *cli.Context) error {
			cfg, err := config.Build(c)
			if err != nil {
				return err
			}
			p := progress.New(cfg.Verbose, cfg.Quiet)
			if cfg.Verbose {
				log.SetOutput(p)
			} else {
				log.SetOutput(io.Discard)
			}
			defer p.Close()
			runtime := infra.New(p, fetch.New(cfg.Timeout))
			return install.Start(c.Context, cfg, runtime)
		},
	}
}
