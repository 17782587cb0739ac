package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Version is set via -ldflags at release time.
var Version = "dev"

var (
	verbose  bool
	cacheDir string

	rootCmd = &cobra.Command{
		Use:   "depfetch",
		Short: "Fetch pinned external sources into a version-scoped cache",
		Long: `depfetch downloads the files of exactly-pinned dependencies into a
local cache keyed by name and version, and declares static-library
build targets from the cached sources.

Dependencies are listed in a TOML file; see 'depfetch ensure --help'.`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "cache directory (default is the user cache dir)")

	rootCmd.AddCommand(ensureCmd)
}

// newLogger builds the CLI logger, bridged into log/slog for the library.
func newLogger() *slog.Logger {
	opts := charmlog.Options{
		ReportTimestamp: true,
		Level:           charmlog.InfoLevel,
	}
	if verbose {
		opts.Level = charmlog.DebugLevel
	}
	return slog.New(charmlog.NewWithOptions(os.Stderr, opts))
}

func execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
