package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ncx/internal/cache"
	"github.com/desertthunder/ncx/internal/repositories"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/desertthunder/ncx/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	store      cache.Store
	catalog    services.Catalog
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	archive *repositories.PlaylistRepository
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      cache.Store
	Catalog    services.Catalog
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// Without a catalog the runner builds a gateway over an in-memory cache.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Store == nil {
		opts.Store = cache.NewMemory(opts.Config.Cache.TTL())
	}
	if opts.Catalog == nil {
		opts.Catalog = services.NewGateway(opts.Config.Catalog, opts.Store, opts.HTTPClient, opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// Configure loads the config named by --config, applies the log level and rebuilds the gateway.
//
// A missing config file is not an error: the defaults are used.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	} else {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	}

	if c, ok := r.store.(io.Closer); ok {
		_ = c.Close()
	}
	r.store = cache.Open(ctx, r.config.Cache.TTL(), r.config.Cache.RedisURL, r.logger)
	r.catalog = services.NewGateway(r.config.Catalog, r.store, r.httpClient, r.logger)
	return ctx, nil
}

// SetLogger replaces the logger used by commands and rebuilds the gateway around it.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	if _, ok := r.catalog.(*services.Gateway); ok {
		r.catalog = services.NewGateway(r.config.Catalog, r.store, r.httpClient, logger)
	}
}

// Archive opens the playlist archive on first use, running pending migrations.
func (r *Runner) Archive() (*repositories.PlaylistRepository, error) {
	if r.archive != nil {
		return r.archive, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.archive = repositories.NewPlaylistRepository(db)
	return r.archive, nil
}

// Close releases the shared cache connection and the archive database if they were opened.
func (r *Runner) Close() error {
	var errs []error
	if c, ok := r.store.(io.Closer); ok {
		errs = append(errs, c.Close())
		r.store = cache.NewMemory(r.config.Cache.TTL())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db, r.archive = nil, nil
	}
	return errors.Join(errs...)
}

func (r *Runner) engine(withArchive bool) (*tasks.Engine, error) {
	if !withArchive {
		return tasks.NewEngine(r.catalog, nil, r.logger), nil
	}
	archive, err := r.Archive()
	if err != nil {
		return nil, err
	}
	return tasks.NewEngine(r.catalog, archive, r.logger), nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, searchCommand, playlistCommand, toplistsCommand,
		trackCommand, lyricCommand, urlCommand, archiveCommand, exportCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
