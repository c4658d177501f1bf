package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("portfolioctl failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "portfolioctl",
		Usage: "Operator CLI for the portfolio swap service",
		Description: `Builds, submits and inspects portfolio swaps using the same services as the API,
configured from the environment (and an optional .env file).`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file to load before reading configuration",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "zerolog level for service logs",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "warn",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
		Before: func(c *cli.Context) error {
			if path := c.String("env-file"); path != "" {
				if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("load %s: %w", path, err)
				}
			}
			lvl, err := zerolog.ParseLevel(c.String("log-level"))
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			zerolog.SetGlobalLevel(lvl)
			return nil
		},
		Commands: []*cli.Command{
			portfoliosCommand(),
			buildCommand(),
			submitCommand(),
			attemptsCommand(),
		},
	}
}
