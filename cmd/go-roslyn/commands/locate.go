package commands

import (
	"io"
	"log"

	"github.com/greeddj/go-roslyn/cmd/go-roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/progress"
	"github.com/greeddj/go-roslyn/internal/roslyn/config"
	"github.com/greeddj/go-roslyn/internal/roslyn/fetch"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/greeddj/go-roslyn/internal/roslyn/locate"
	"github.com/urfave/cli/v2"
)

// Locate returns the CLI command that finds a local install without network
// access.
func Locate() *cli.Command {
	flags := helpers.CommonFlags()
	flags = append(flags, helpers.ServerFlags()...)

	return &cli.Command{
		Name:    "locate",
		Aliases: []string{"l"},
		Usage:   "Find an already available server binary, system PATH first",
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
			return locate.Start(c.Context, cfg, runtime)
		},
	}
}
