package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tidegate/depfetch"
)

var ensureCmd = &cobra.Command{
	Use:   "ensure [depsfile]",
	Short: "Fetch all dependencies listed in a TOML deps file",
	Long: `Fetch all dependencies listed in a TOML deps file into the cache.

Each dependency's files are downloaded once per pinned version; reruns
with an unchanged deps file perform no network activity. For entries
with a [dependency.library] table, the resolved static-library target
is printed after fetching.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		path := "deps.toml"
		if len(args) > 0 {
			path = args[0]
		}
		f, err := loadDepsFile(path)
		if err != nil {
			return err
		}

		logger := newLogger()
		opts := []depfetch.Option{depfetch.WithLogger(logger)}
		switch {
		case cacheDir != "":
			opts = append(opts, depfetch.WithCacheDir(cacheDir))
		case f.CacheDir != "":
			opts = append(opts, depfetch.WithCacheDir(f.CacheDir))
		}
		client, err := depfetch.New(opts...)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, entry := range f.Dependencies {
			dep, err := entry.dependency()
			if err != nil {
				return err
			}
			root, err := client.Ensure(cmd.Context(), dep)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s\n", dep, root)

			if entry.Library == nil {
				continue
			}
			lib := entry.Library
			name := lib.Name
			if name == "" {
				name = dep.Name
			}
			artifact, err := depfetch.DeclareStaticLibrary(root, lib.Sources, lib.IncludeDir, name)
			if err != nil {
				return err
			}
			printArtifact(out, artifact)
		}
		return nil
	},
}

func printArtifact(out io.Writer, a *depfetch.LibraryArtifact) {
	fmt.Fprintf(out, "library %s\n", a.Name)
	fmt.Fprintf(out, "  sources:  %s\n", strings.Join(a.Sources, " "))
	fmt.Fprintf(out, "  includes: %s\n", strings.Join(a.PublicIncludeDirs, " "))
	fmt.Fprintf(out, "  pic:      %t\n", a.PositionIndependent)
}
