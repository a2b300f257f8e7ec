package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"

	"github.com/JonMunkholm/csvcleaner/internal/config"
	"github.com/JonMunkholm/csvcleaner/internal/core"
	"github.com/JonMunkholm/csvcleaner/internal/history"
	"github.com/JonMunkholm/csvcleaner/internal/profile"
)

var (
	errMissingFile    = errors.New("missing FILE argument")
	errOverwriteInput = errors.New("output path is the input file")
)

func cleanCommand() *cli.Command {
	return &cli.Command{
		Name:      "clean",
		Usage:     "write a copy of FILE with only the selected columns",
		ArgsUsage: "FILE",

		// Each command applies its own setting when its flags are parsed.
		DisableSliceFlagSeparator: true,

		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "columns",
				Aliases: []string{"c"},
				Usage:   "column to keep; repeat for more, in output order",
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Value:   profile.DefaultName,
				Usage:   "profile to use when --columns is not given",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "keep every column",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "fail when a --columns name is not in the file",
			},
			&cli.StringFlag{
				Name:    "encoding",
				Aliases: []string{"e"},
				Usage:   "input charset, e.g. utf-8, windows-1252",
				Sources: cli.EnvVars("LOAD_ENCODING"),
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   `output path, "-" for stdout (default: FILE with suffix)`,
			},
			&cli.StringFlag{
				Name:    "suffix",
				Usage:   "inserted before the extension of the default output name",
				Sources: cli.EnvVars("OUTPUT_SUFFIX"),
			},
		},
		Action: runClean,
	}
}

func columnsCommand() *cli.Command {
	return &cli.Command{
		Name:      "columns",
		Usage:     "list the columns of FILE, marking those in a profile with *",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Value:   profile.DefaultName,
			},
			&cli.StringFlag{
				Name:    "encoding",
				Aliases: []string{"e"},
				Sources: cli.EnvVars("LOAD_ENCODING"),
			},
		},
		Action: runColumns,
	}
}

func profilesCommand() *cli.Command {
	return &cli.Command{
		Name:   "profiles",
		Usage:  "list the configured column profiles",
		Action: runProfiles,
	}
}

func runClean(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errMissingFile
	}

	cfg, profiles, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	t, err := loadFile(path, encodingFor(cmd, cfg))
	if err != nil {
		return err
	}

	res, err := projectFor(cmd, t, profiles)
	if err != nil {
		return err
	}

	suffix := cmd.String("suffix")
	if suffix == "" {
		suffix = cfg.Columns.Suffix
	}
	outName := core.OutputFilename(path, suffix)

	out := cmd.Root().Writer
	errOut := cmd.Root().ErrWriter

	dest := cmd.String("out")
	switch dest {
	case "-":
		if err := core.Write(out, res.Table); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	default:
		if dest == "" {
			dest = filepath.Join(filepath.Dir(path), outName)
		}
		if filepath.Clean(dest) == filepath.Clean(path) {
			return errOverwriteInput
		}
		if err := writeFile(dest, res.Table); err != nil {
			return err
		}
		outName = filepath.Base(dest)
	}

	printStats(errOut, res, dest)
	recordExport(ctx, cfg, history.NewEntry(history.SourceCLI, filepath.Base(path), outName, res))
	return nil
}

func runColumns(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errMissingFile
	}

	cfg, profiles, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	p, err := profiles.Lookup(cmd.String("profile"))
	if err != nil {
		return err
	}

	t, err := loadFile(path, encodingFor(cmd, cfg))
	if err != nil {
		return err
	}

	matched := make(map[string]bool)
	for _, name := range core.SelectMinimal(t, p.Columns) {
		matched[name] = true
	}

	out := cmd.Root().Writer
	for i, name := range t.Columns() {
		mark := " "
		if matched[name] {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %3d  %s\n", mark, i+1, name)
	}
	fmt.Fprintf(cmd.Root().ErrWriter, "%d columns, %d rows, %d in profile %q\n",
		t.NumColumns(), t.NumRows(), len(matched), p.Name)
	return nil
}

func runProfiles(ctx context.Context, cmd *cli.Command) error {
	_, profiles, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	for _, p := range profiles.All() {
		if p.Description != "" {
			fmt.Fprintf(out, "%s: %s\n", p.Name, p.Description)
		} else {
			fmt.Fprintf(out, "%s\n", p.Name)
		}
		fmt.Fprintf(out, "  %s\n", strings.Join(p.Columns, ", "))
	}
	return nil
}

// loadSettings reads the environment configuration and applies the global
// flag overrides.
func loadSettings(cmd *cli.Command) (*config.Config, *profile.Set, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	if cols := cmd.StringSlice("default-columns"); len(cols) > 0 {
		cfg.Columns.Defaults = cols
	}
	if path := cmd.String("profiles-file"); path != "" {
		cfg.Columns.ProfilesFile = path
	}

	profiles, err := profile.LoadFile(cfg.Columns.ProfilesFile, cfg.Columns.Defaults)
	if err != nil {
		return nil, nil, err
	}
	return cfg, profiles, nil
}

func encodingFor(cmd *cli.Command, cfg *config.Config) string {
	if enc := cmd.String("encoding"); enc != "" {
		return enc
	}
	return cfg.Load.Encoding
}

func loadFile(path, encoding string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := core.LoadReader(f, core.LoadOptions{Encoding: encoding})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("file loaded", "path", path, "rows", t.NumRows(), "columns", t.NumColumns())
	return t, nil
}

// projectFor applies the selection flags: --all, then --columns, then the
// profile.
func projectFor(cmd *cli.Command, t *core.Table, profiles *profile.Set) (core.ProjectionResult, error) {
	if cmd.Bool("all") {
		return core.Project(t, core.SelectAll(t)), nil
	}

	if columns := cmd.StringSlice("columns"); len(columns) > 0 {
		if cmd.Bool("strict") {
			return core.ProjectStrict(t, columns)
		}
		res := core.Project(t, columns)
		if res.Empty() {
			return core.ProjectionResult{}, core.ErrNoColumnsSelected
		}
		return res, nil
	}

	defaults, err := profiles.Columns(cmd.String("profile"))
	if err != nil {
		return core.ProjectionResult{}, err
	}
	picked := core.SelectMinimal(t, defaults)
	if len(picked) == 0 {
		return core.ProjectionResult{}, core.ErrNoDefaultMatch
	}
	return core.Project(t, picked), nil
}

// writeFile writes t to path, removing the partial file on failure.
func writeFile(path string, t *core.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if err := core.Write(f, t); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func printStats(w io.Writer, res core.ProjectionResult, dest string) {
	if len(res.Skipped) > 0 {
		fmt.Fprintf(w, "skipped columns not in file: %s\n", strings.Join(res.Skipped, ", "))
	}
	fmt.Fprintf(w, "%d rows, kept %d of %d columns, file size reduced by approximately %s%%\n",
		res.Rows, res.KeptColumns, res.TotalColumns, res.ReductionLabel())
	if dest != "-" {
		fmt.Fprintf(w, "wrote %s\n", dest)
	}
}

// recordExport adds a history entry when a database is configured. Failures
// are logged and do not fail the command.
func recordExport(ctx context.Context, cfg *config.Config, e history.Entry) {
	if !cfg.Database.Enabled() {
		return
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		slog.Warn("history unavailable", "error", err)
		return
	}
	defer pool.Close()

	store := history.NewPGStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Warn("history unavailable", "error", err)
		return
	}
	if err := store.Record(ctx, e); err != nil {
		slog.Warn("failed to record export", "error", err)
	}
}
