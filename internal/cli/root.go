package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/travelog/internal/entry"
	"github.com/roach88/travelog/internal/journal"
)

// RootOptions holds global flags for all commands.
//
// Backend flags are overrides: an empty value keeps what the config file
// (or the default config) says.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	Backend   string
	DBPath    string
	Dir       string
	RedisAddr string
	Key       string
	OnCorrupt string

	// Clock, IDGenerator and Registerer override the journal's clock, id
	// generator and the store's metrics registry (for testing).
	Clock       journal.Clock
	IDGenerator entry.IDGenerator
	Registerer  prometheus.Registerer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the travelog CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "travelog",
		Short: "travelog - a photo travel journal",
		Long: `Capture travel moments (a photo, where it was taken, an optional note)
and browse them later. Entries are kept in one durable collection in SQLite,
a data directory or Redis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				err := fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return exitError(ExitCommandError, err)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	flags.StringVar(&opts.Backend, "backend", "", "storage backend (sqlite|file|redis|memory)")
	flags.StringVar(&opts.DBPath, "db", "", "path to SQLite database")
	flags.StringVar(&opts.Dir, "dir", "", "data directory for the file backend")
	flags.StringVar(&opts.RedisAddr, "redis-addr", "", "Redis address (host:port)")
	flags.StringVar(&opts.Key, "key", "", "storage key of the journal collection")
	flags.StringVar(&opts.OnCorrupt, "on-corrupt", "", "what to do with an unreadable collection (fail|reset)")

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewFavoriteCommand(opts))
	cmd.AddCommand(NewNoteCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
