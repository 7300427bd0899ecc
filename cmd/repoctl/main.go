package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-munki/pkg/simplemunki/config"
)

// repoDeps holds the stores shared by every subcommand. The root command
// builds them once the repo flags are known.
type repoDeps struct {
	stores *config.Stores
	user   string
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	deps := &repoDeps{}
	var repoDir string
	var gitEnabled bool

	root := &cobra.Command{
		Use:   "repoctl",
		Short: "Manage the documents and files of a Munki repo",
		Long: `repoctl works on a Munki repo directly on disk: listing, creating,
printing, overwriting and deleting manifests, pkgsinfo and the opaque
files next to them. With --git, every mutation is also committed to the
git history of the repo under the --user name.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.WithEnv(), func(c *config.ServerConfig) error {
				if repoDir != "" {
					c.RepoDir = repoDir
				}
				if gitEnabled {
					c.GitEnabled = true
				}
				return nil
			})
			if err != nil {
				return err
			}
			stores, err := cfg.BuildStores()
			if err != nil {
				return err
			}
			deps.stores = stores
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if deps.stores != nil {
				deps.stores.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&repoDir, "repo", "", "path to the Munki repo (default $MUNKI_REPO_DIR or ./munki_repo)")
	root.PersistentFlags().StringVarP(&deps.user, "user", "u", os.Getenv("USER"), "user recorded in the repo history for mutations")
	root.PersistentFlags().BoolVar(&gitEnabled, "git", false, "mirror mutations to the git history of the repo")

	root.AddCommand(
		newListCmd(deps),
		newShowCmd(deps),
		newNewCmd(deps),
		newWriteCmd(deps),
		newDeleteCmd(deps),
		newFilesCmd(deps),
		newStatusCmd(deps),
	)
	return root
}

func newListCmd(deps *repoDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "list KIND",
		Short: "List the documents of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := deps.stores.Documents.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newShowCmd(deps *repoDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "show KIND PATH",
		Short:   "Print a document as stored",
		Aliases: []string{"cat"},
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := deps.stores.Documents.ReadRaw(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newNewCmd(deps *repoDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "new KIND PATH",
		Short: "Create a document from the starter template for its kind",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := deps.stores.Documents.New(cmd.Context(), args[0], args[1], deps.user, nil)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newWriteCmd(deps *repoDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "write KIND PATH [FILE]",
		Short: "Store a plist file as a document, creating or overwriting it",
		Long: `write stores FILE (or stdin when FILE is absent or "-") byte for byte
as the document at PATH. The bytes are expected to be a property list;
an unparseable document later reads back as empty.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			upload, err := openUpload(cmd, args)
			if err != nil {
				return err
			}
			defer upload.Close()
			data, err := io.ReadAll(upload)
			if err != nil {
				return err
			}
			return deps.stores.Documents.Write(cmd.Context(), data, args[0], args[1], deps.user)
		},
	}
}

func newDeleteCmd(deps *repoDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "delete KIND PATH",
		Short:   "Delete a document",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.stores.Documents.Delete(cmd.Context(), args[0], args[1], deps.user)
		},
	}
}

func newFilesCmd(deps *repoDeps) *cobra.Command {
	files := &cobra.Command{
		Use:   "files",
		Short: "Manage the opaque files of the repo: pkgs, icons, client resources",
	}

	files.AddCommand(
		&cobra.Command{
			Use:   "list KIND",
			Short: "List the files of a kind",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				paths, err := deps.stores.Files.List(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "path KIND PATH",
			Short: "Print the full filesystem path of a file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), deps.stores.Files.FullPath(args[0], args[1]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "add KIND PATH [FILE]",
			Short: "Add a new file to the repo",
			Args:  cobra.RangeArgs(2, 3),
			RunE: func(cmd *cobra.Command, args []string) error {
				upload, err := openUpload(cmd, args)
				if err != nil {
					return err
				}
				defer upload.Close()
				return deps.stores.Files.New(cmd.Context(), args[0], upload, args[1], deps.user)
			},
		},
		&cobra.Command{
			Use:   "put KIND PATH [FILE]",
			Short: "Overwrite a file already in the repo",
			Args:  cobra.RangeArgs(2, 3),
			RunE: func(cmd *cobra.Command, args []string) error {
				upload, err := openUpload(cmd, args)
				if err != nil {
					return err
				}
				defer upload.Close()
				return deps.stores.Files.Write(cmd.Context(), args[0], upload, args[1], deps.user)
			},
		},
		&cobra.Command{
			Use:   "rm KIND PATH",
			Short: "Delete a file from the repo",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return deps.stores.Files.Delete(cmd.Context(), args[0], args[1], deps.user)
			},
		},
	)
	return files
}

func newStatusCmd(deps *repoDeps) *cobra.Command {
	status := &cobra.Command{
		Use:   "status",
		Short: "Inspect scan progress reports",
	}

	status.AddCommand(
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print the latest progress report for a key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := deps.stores.Status.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n",
					st.Key, st.UpdatedAt.Format(time.RFC3339), st.Message)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm KEY",
			Short: "Remove the progress report for a key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return deps.stores.Status.Delete(cmd.Context(), args[0])
			},
		},
	)
	return status
}

// openUpload returns a reader for the optional FILE argument, or stdin
// when it is absent or "-".
func openUpload(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) < 3 || args[2] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(args[2])
}
