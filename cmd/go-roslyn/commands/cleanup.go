package commands

import (
	"io"
	"log"

	"github.com/greeddj/go-roslyn/cmd/go-roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/progress"
	"github.com/greeddj/go-roslyn/internal/roslyn/cleanup"
	"github.com/greeddj/go-roslyn/internal/roslyn/config"
	"github.com/greeddj/go-roslyn/internal/roslyn/fetch"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/urfave/cli/v2"
)

// Cleanup returns the CLI command that removes stale cached server versions.
func Cleanup() *cli.Command {
	flags := helpers.CommonFlags()
	flags = append(flags, helpers.ServerFlags()...)
	flags = append(flags, helpers.S3Flags()...)

	return &cli.Command{
		Name:    "cleanup",
		Aliases: []string{"c"},
		Usage:   "Remove stale server versions across recorded container directories",
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
			return cleanup.Start(c.Context, cfg, runtime)
		},
	}
}
