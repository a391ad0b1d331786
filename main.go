package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/smartbuilding/cmd"
)

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			EnvVars: []string{"LOG_LEVEL"},
			Value:   "INFO",
		},
		&cli.StringFlag{
			Name:    "migrations-folder",
			EnvVars: []string{"DATABASE_MIGRATIONS_FOLDER"},
			Value:   "./migrations",
		},
	}

	app := &cli.App{
		Name:   "smartbuilding",
		Usage:  "sensor ingestion pipeline and building automation",
		Action: cmd.PipelineCommand,
		Flags: append(flags, &cli.BoolFlag{
			Name:    "start-streams",
			EnvVars: []string{"PIPELINE_START_STREAMS"},
			Value:   true,
			Usage:   "start the bridge and consumer at boot instead of waiting for POST /streams/start",
		}),
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: cmd.MigrateCommand,
				Flags:  flags,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
