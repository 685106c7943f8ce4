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
	"github.com/greeddj/go-roslyn/internal/roslyn/project"
	"github.com/greeddj/go-roslyn/internal/roslyn/tasks"
	"github.com/greeddj/go-roslyn/internal/roslyn/toolchain"
	"github.com/urfave/cli/v2"
)

// Tasks returns the CLI command that emits task templates for the project
// enclosing a source path.
func Tasks() *cli.Command {
	flags := helpers.CommonFlags()
	flags = append(flags,
		&cli.StringFlag{
			Name:    "root",
			Usage:   "Worktree root bounding the project discovery walk",
			EnvVars: []string{"GO_ROSLYN_ROOT"},
		},
	)

	return &cli.Command{
		Name:      "tasks",
		Aliases:   []string{"t"},
		Usage:     "Generate task templates for the project enclosing a path",
		ArgsUsage: "<source-path>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			sourcePath := c.Args().First()
			if sourcePath == "" {
				return errPathArgRequired
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

			found, err := project.Discover(sourcePath, c.String("root"))
			if err != nil {
				return err
			}
			projectPath := found.ProjectPath
			if projectPath == "" {
				projectPath = found.SolutionPath
			}
			p.Printf("🔍 Using project %s", projectPath)

			props := msbuild.GetProperties(c.Context, runtime, projectPath, []string{
				tasks.PropertyOutputType,
				tasks.PropertyIsTestProject,
			})
			rendered, err := toolchain.Render(tasks.Templates(projectPath, props), cfg.Format)
			if err != nil {
				return err
			}
			p.PersistentPrintf("%s", rendered)
			return nil
		},
	}
}
