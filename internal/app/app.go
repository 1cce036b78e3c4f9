package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dori/taskdeck/internal/api"
	"github.com/dori/taskdeck/internal/config"
	"github.com/dori/taskdeck/internal/db"
	"github.com/dori/taskdeck/internal/guard"
	"github.com/dori/taskdeck/internal/notify"
	"github.com/dori/taskdeck/internal/session"
	"github.com/dori/taskdeck/internal/tasks"
	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another instance holds the lock
var ErrAlreadyRunning = errors.New("another instance of taskdeck is already running")

// App holds the application state and dependencies
type App struct {
	Config   *config.Config
	DB       *db.DB
	Session  *session.Session
	Client   *api.Client
	Guard    guard.Guard
	Tasks    *tasks.Collection
	Detail   *tasks.Detail
	Stats    *tasks.Stats
	Notifier *notify.Notifier
	Logger   *slog.Logger
	DataDir  string

	lockFile *flock.Flock
	logFile  *os.File
}

type options struct {
	noLock bool
}

// Option configures New
type Option func(*options)

// WithoutLock skips the single-instance lock. One-shot commands use it so
// they can run next to the TUI.
func WithoutLock() Option {
	return func(o *options) { o.noLock = true }
}

// New creates a new application instance
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	app := &App{
		Config:   cfg,
		DataDir:  cfg.DataDir,
		Notifier: notify.NewNotifier(cfg.Notifications),
	}

	if !o.noLock {
		if err := app.acquireLock(); err != nil {
			return nil, err
		}
	}

	if err := app.openLog(); err != nil {
		app.releaseLock()
		return nil, err
	}

	database, err := db.Open(filepath.Join(cfg.DataDir, "taskdeck.db"))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.DB = database

	sess, err := session.New(database, nil)
	if err != nil {
		app.Close()
		return nil, err
	}
	sess.SetLogger(app.Logger)
	app.Session = sess

	app.Client = api.New(cfg.APIURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithTokenSource(sess),
		api.WithLogger(app.Logger),
	)
	sess.SetAuthenticator(app.Client)

	app.Guard = guard.New(sess)
	app.Tasks = tasks.NewCollection(app.Client, app.Logger)
	app.Detail = tasks.NewDetail(app.Client, app.Logger)
	app.Stats = tasks.NewStats(app.Client, app.Logger)

	app.Logger.Debug("taskdeck started",
		"api_url", cfg.APIURL,
		"data_dir", cfg.DataDir,
		"authenticated", sess.IsAuthenticated(),
	)
	return app, nil
}

// openLog sets up the debug log file, or a discarding logger
func (a *App) openLog() error {
	if !a.Config.Debug {
		a.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	f, err := os.OpenFile(filepath.Join(a.DataDir, "taskdeck.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open debug log: %w", err)
	}
	a.logFile = f
	a.Logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return nil
}

// acquireLock acquires an exclusive file lock to prevent multiple instances
func (a *App) acquireLock() error {
	lockPath := filepath.Join(a.DataDir, "taskdeck.lock")
	a.lockFile = flock.New(lockPath)

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !locked {
		return ErrAlreadyRunning
	}

	return nil
}

// releaseLock releases the file lock
func (a *App) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

// Close cleans up application resources
func (a *App) Close() error {
	var errs []error

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close debug log: %w", err))
		}
	}

	a.releaseLock()

	return errors.Join(errs...)
}
