package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/backup"
	"github.com/desertthunder/ytsort/internal/quota"
	"github.com/desertthunder/ytsort/internal/repositories"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/desertthunder/ytsort/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const defaultConfigPath = "config.toml"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, playlist service and engine are built on first use so commands
// like `setup config` work before a database exists.
type Runner struct {
	config     *shared.Config
	configPath string
	service    services.PlaylistService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
	progress   chan tasks.ProgressUpdate
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Service    services.PlaylistService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		service:    opts.Service,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, syncCommand, snapshotCommand, quotaCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// configure reloads the configuration when --config points somewhere other than
// the file loaded at startup.
func (r *Runner) configure(cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" || path == r.configPath {
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}

	r.config = config
	r.configPath = path
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Log.Level))
	return nil
}

// database opens the configured database once and brings its schema up to date.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	path := shared.ExpandHome(r.config.Database.Path)
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Debug("database ready", "path", path)
	r.db = db
	return db, nil
}

func (r *Runner) oauthConfig() (*oauth2.Config, error) {
	yt := r.config.Credentials.YouTube
	return services.NewOAuthConfig(yt.ClientID, yt.ClientSecret, yt.RedirectURI)
}

func (r *Runner) tokenPath() string {
	return shared.ExpandHome(r.config.Credentials.YouTube.TokenPath)
}

// credential loads the saved YouTube token, refreshing it through r.httpClient when expired.
func (r *Runner) credential(ctx context.Context) (services.Credential, error) {
	config, err := r.oauthConfig()
	if err != nil {
		return services.Credential{}, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	return services.LoadCredential(ctx, config, r.tokenPath())
}

func (r *Runner) playlistService() (services.PlaylistService, error) {
	if r.service != nil {
		return r.service, nil
	}

	config, err := r.oauthConfig()
	if err != nil {
		return nil, err
	}

	r.service = services.NewYouTubeService(
		config,
		r.config.Sync.RequestsPerSecond,
		services.WithHTTPClient(r.httpClient),
		services.WithLogger(shared.WithLogger(r.logger, "service", "youtube")),
	)
	return r.service, nil
}

func (r *Runner) quotaGate() (*quota.Gate, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return quota.NewGate(repositories.NewQuotaRepository(db), r.config.Sync.DailyQuotaLimit), nil
}

func (r *Runner) snapshotter(ctx context.Context) (*backup.Snapshotter, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	provider, err := backup.NewProvider(ctx, r.config.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot provider: %w", err)
	}

	return backup.NewSnapshotter(db, provider, shared.WithLogger(r.logger, "component", "backup")), nil
}

// engine wires the sync engine to the configured database, service, quota ledger and snapshot store.
func (r *Runner) engine(ctx context.Context) (*tasks.Engine, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	service, err := r.playlistService()
	if err != nil {
		return nil, err
	}

	gate, err := r.quotaGate()
	if err != nil {
		return nil, err
	}

	snapshotter, err := r.snapshotter(ctx)
	if err != nil {
		return nil, err
	}

	opts := []tasks.EngineOption{
		tasks.WithPauseThreshold(r.config.Sync.QuotaPauseThreshold),
		tasks.WithLogger(shared.WithLogger(r.logger, "component", "sync")),
	}
	if r.progress != nil {
		opts = append(opts, tasks.WithProgress(r.progress))
	}

	return tasks.NewEngine(db, service, gate, snapshotter, opts...), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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
