// Package bootstrap wires the shared infrastructure (logger, database,
// migrations) before any channel or flow component starts.
package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "complaintbot/core/config"
	coredatabase "complaintbot/core/database"
	"complaintbot/core/logger"
)

// Options control the bootstrap pipeline. Connect and Migrate are
// replaceable for tests; nil selects the real implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(logger.Options) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger, connects to the database, and applies migrations.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.Init
	}
	logOpts := logger.Options{
		Level:   opts.Config.Logging.Level,
		Format:  opts.Config.Logging.Format,
		Dir:     opts.Config.Logging.Dir,
		File:    opts.Config.Logging.File,
		Profile: opts.Config.Logging.Profile,
		Channel: opts.Config.Channel,
		Entry:   opts.Config.Flow.Entry,
	}
	if err := loggerInit(logOpts); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(opts.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(opts.Config.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db}, nil
}
