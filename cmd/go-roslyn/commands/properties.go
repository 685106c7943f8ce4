package commands

import (
	"io"
	"log"

	"github.com/greeddj/go-roslyn/cmd/go-roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/progress"
	"github.com/greeddj/go-roslyn/internal/roslyn/config"
	"github.com/greeddj/go-roslyn/internal/roslyn/fetch"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/greeddj/go-roslyn/internal/roslyn/msbuild"
	"github.com/greeddj/go-roslyn/internal/roslyn/tasks"
	"github.com/greeddj/go-roslyn/internal/roslyn/toolchain"
	"github.com/urfave/cli/v2"
)

// Properties returns the CLI command that extracts build properties from a
// project file.
func Properties() *cli.Command {
	flags := helpers.CommonFlags()
	flags = append(flags,
		&cli.StringSliceFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "Property name to extract, repeatable",
			Value:   cli.NewStringSlice(tasks.PropertyOutputType, tasks.PropertyIsTestProject),
		},
	)

	return &cli.Command{
		Name:      "properties",
		Aliases:   []string{"p"},
		Usage:     "Extract build properties from a project file",
		ArgsUsage: "<project-file>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			projectPath := c.Args().First()
			if projectPath == "" {
				return errProjectArgRequired
			}
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

			props := msbuild.GetProperties(c.Context, runtime, projectPath, c.StringSlice("name"))
			rendered, err := toolchain.Render(props, cfg.Format)
			if err != nil {
				return err
			}
			p.PersistentPrintf("%s", rendered)
			return nil
		},
	}
}
