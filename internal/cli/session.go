package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/travelog/internal/config"
	"github.com/roach88/travelog/internal/geo"
	"github.com/roach88/travelog/internal/journal"
	"github.com/roach88/travelog/internal/kv"
	"github.com/roach88/travelog/internal/kv/filekv"
	"github.com/roach88/travelog/internal/kv/memkv"
	"github.com/roach88/travelog/internal/kv/rediskv"
	"github.com/roach88/travelog/internal/kv/sqlitekv"
	"github.com/roach88/travelog/internal/notify"
	"github.com/roach88/travelog/internal/recordstore"
)

// Error codes reported in CLIError.Code besides the recordstore codes.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidInput = "INVALID_INPUT"
	CodeConfig       = "CONFIG_ERROR"
	CodeOpenFailed   = "OPEN_FAILED"
	CodeInternal     = "INTERNAL"
)

var (
	errConfig     = errors.New("invalid configuration")
	errOpenFailed = errors.New("failed to open storage")
)

// session is everything one command needs, opened from the resolved config
// and closed when the command returns.
type session struct {
	cfg     config.Config
	logger  *slog.Logger
	backend kv.Backend
	store   *recordstore.Store
	journal *journal.Service
}

// openSession resolves config, opens the backend and builds the journal.
// extra options are applied after the defaults.
func openSession(cmd *cobra.Command, opts *RootOptions, extra ...journal.Option) (*session, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	logger.Debug("opening backend", "backend", cfg.Backend, "key", cfg.Key)

	backend, err := openBackend(commandContext(cmd), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errOpenFailed, cfg.Backend, err)
	}

	storeOpts := []recordstore.Option{
		recordstore.WithKey(cfg.Key),
		recordstore.WithLogger(logger),
		recordstore.WithCorruptionPolicy(corruptionPolicy(cfg.OnCorrupt)),
	}
	if opts.Registerer != nil {
		storeOpts = append(storeOpts, recordstore.WithMetrics(opts.Registerer))
	}
	store := recordstore.New(backend, storeOpts...)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify {
		notifier = notify.NewLogNotifier(logger)
	}
	journalOpts := []journal.Option{
		journal.WithLogger(logger),
		journal.WithNotifier(notifier),
	}
	if opts.Clock != nil {
		journalOpts = append(journalOpts, journal.WithClock(opts.Clock))
	}
	if opts.IDGenerator != nil {
		journalOpts = append(journalOpts, journal.WithIDGenerator(opts.IDGenerator))
	}
	journalOpts = append(journalOpts, extra...)

	return &session{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		store:   store,
		journal: journal.New(store, journalOpts...),
	}, nil
}

// Close stops the store's writer, then closes the backend.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "error", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend", "error", err)
	}
}

// resolveConfig layers the config file (or defaults) and flag overrides.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: %w", errConfig, err)
		}
		cfg = loaded
	}

	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.DBPath != "" {
		cfg.SQLite.Path = opts.DBPath
	}
	if opts.Dir != "" {
		cfg.File.Dir = opts.Dir
	}
	if opts.RedisAddr != "" {
		cfg.Redis.Addr = opts.RedisAddr
	}
	if opts.Key != "" {
		cfg.Key = opts.Key
	}
	if opts.OnCorrupt != "" {
		cfg.OnCorrupt = opts.OnCorrupt
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("%w: %w", errConfig, err)
	}
	return cfg, nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (kv.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return sqlitekv.Open(cfg.SQLite.Path)
	case config.BackendFile:
		return filekv.Open(cfg.File.Dir, logger)
	case config.BackendRedis:
		return rediskv.Open(ctx, rediskv.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	case config.BackendMemory:
		return memkv.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func corruptionPolicy(name string) recordstore.CorruptionPolicy {
	if name == recordstore.PolicyReset.String() {
		return recordstore.PolicyReset
	}
	return recordstore.PolicyFail
}

// newLogger logs text to w at Info, or Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// classify maps an error to its CLIError code and exit code.
func classify(err error) (string, int) {
	var storeErr *recordstore.Error
	switch {
	case errors.Is(err, journal.ErrNotFound):
		return CodeNotFound, ExitFailure
	case errors.Is(err, journal.ErrNoImage),
		errors.Is(err, journal.ErrNoteTooLong),
		errors.Is(err, journal.ErrNoAddress),
		errors.Is(err, geo.ErrInvalidCoordinates),
		recordstore.IsInvalid(err):
		return CodeInvalidInput, ExitCommandError
	case errors.As(err, &storeErr):
		return string(storeErr.Code), ExitFailure
	case errors.Is(err, errConfig):
		return CodeConfig, ExitCommandError
	case errors.Is(err, errOpenFailed):
		return CodeOpenFailed, ExitCommandError
	default:
		return CodeInternal, ExitFailure
	}
}

// fail reports err through the formatter and returns the matching ExitError.
func fail(formatter *OutputFormatter, err error) error {
	code, exit := classify(err)
	_ = formatter.Error(code, err.Error())
	return exitError(exit, err)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
