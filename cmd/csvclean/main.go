// Command csvclean removes unneeded columns from CSV files without a browser.
//
//	csvclean clean --columns "Email Address" --columns Company contacts.csv
//	csvclean clean --profile sales --out - contacts.csv > out.csv
//	csvclean columns contacts.csv
//	csvclean profiles
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/JonMunkholm/csvcleaner/internal/core"
	"github.com/JonMunkholm/csvcleaner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		slog.Debug("command failed", "error", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, "csvclean:", core.FormatUserError(err))
		} else {
			fmt.Fprintln(os.Stderr, "csvclean:", err)
		}
		os.Exit(1)
	}
}

// newApp builds the command tree. Data goes to stdout, everything else to
// stderr.
func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "csvclean",
		Usage:     "keep only the CSV columns you need",
		Writer:    stdout,
		ErrWriter: stderr,

		// Header names may contain commas; list flags are repeated instead.
		DisableSliceFlagSeparator: true,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profiles-file",
				Usage:   "YAML file with named column profiles",
				Sources: cli.EnvVars("CLEANER_PROFILES_FILE", "COLUMN_PROFILES_FILE"),
			},
			&cli.StringSliceFlag{
				Name:   "default-columns",
				Usage:  "columns of the default profile (overrides DEFAULT_COLUMNS)",
				Config: cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "debug, info, warn or error",
				Sources: cli.EnvVars("CLEANER_LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetupWriter(stderr, cmd.String("log-level"), "text")
			return ctx, nil
		},
		Commands: []*cli.Command{
			cleanCommand(),
			columnsCommand(),
			profilesCommand(),
		},
	}
}
