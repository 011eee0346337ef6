package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/metcalfc/bookpilot/internal/api"
	"github.com/metcalfc/bookpilot/internal/config"
	"github.com/metcalfc/bookpilot/internal/logging"
	"github.com/metcalfc/bookpilot/internal/session"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionString() string {
	return fmt.Sprintf("bookpilot %s (commit: %s, built: %s)", version, commit, date)
}

// options are the command line overrides shared by every entry point.
type options struct {
	configPath string
	apiURL     string
	timeout    time.Duration
	verbose    bool
}

// services is everything a front end needs, built once per process.
type services struct {
	cfg     config.Config
	logger  *zap.Logger
	session *session.Store
	client  *api.Client
}

func setup(opts options) (*services, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.apiURL != "" {
		cfg.APIURL = opts.apiURL
	}
	if opts.timeout > 0 {
		cfg.Timeout = opts.timeout
	}
	cfg.Verbose = cfg.Verbose || opts.verbose
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogFile, cfg.Verbose)
	if err != nil {
		return nil, err
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("api_url", cfg.APIURL),
		zap.Duration("timeout", cfg.Timeout),
	)

	store := session.NewStore(cfg.StateDir, logger.Named("session"))
	if err := store.Rehydrate(); err != nil {
		// A corrupt session file means signing in again, nothing worse
		logger.Warn("rehydrate session", zap.Error(err))
	}

	client := api.New(cfg.APIURL,
		api.WithTimeout(cfg.Timeout),
		api.WithTokenSource(store),
		api.WithLogger(logger.Named("api")),
	)

	return &services{cfg: cfg, logger: logger, session: store, client: client}, nil
}

func (s *services) Close() {
	_ = s.logger.Sync()
}
