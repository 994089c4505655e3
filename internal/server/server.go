// Package server wires the node inventory, the deployer and the maintenance
// jobs into one process.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rzbill/provision/internal/config"
	"github.com/rzbill/provision/pkg/clock"
	"github.com/rzbill/provision/pkg/deploy"
	"github.com/rzbill/provision/pkg/log"
	"github.com/rzbill/provision/pkg/maintenance"
	"github.com/rzbill/provision/pkg/nodes"
	"github.com/rzbill/provision/pkg/store"
	"github.com/rzbill/provision/pkg/types"
)

// Server owns the store and every component built on it.
type Server struct {
	cfg     *config.Config
	options *Options
	logger  log.Logger

	store      store.Store
	nodes      *nodes.Repository
	deployer   *deploy.LocalDeployer
	maintainer *maintenance.ApplicationMaintainer
	control    *maintenance.JobControl
	runner     *maintenance.Runner
	opened     bool
}

// New validates cfg and prepares a server. Call Open before using it.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		logger, err := log.ApplyConfig(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			return nil, err
		}
		options.Logger = logger
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Flavors == nil {
		flavors, err := loadFlavors(cfg.FlavorsFile, options.Logger)
		if err != nil {
			return nil, err
		}
		options.Flavors = flavors
	}
	if options.Store == nil {
		var badgerOpts []store.BadgerOption
		if cfg.Store.InMemory {
			badgerOpts = append(badgerOpts, store.WithInMemory())
		}
		options.Store = store.NewBadgerStore(options.Logger, badgerOpts...)
	}

	return &Server{
		cfg:     cfg,
		options: options,
		logger:  options.Logger.WithComponent("server"),
		store:   options.Store,
		control: maintenance.NewJobControl(cfg.Maintenance.Disabled...),
	}, nil
}

func loadFlavors(path string, logger log.Logger) (*types.FlavorCatalog, error) {
	catalog, err := types.LoadFlavorCatalog(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Flavors file not found, starting without flavors", log.Str("path", path))
		return types.NewFlavorCatalog()
	}
	return catalog, err
}

// Open opens the store and builds the components.
func (s *Server) Open() error {
	if s.opened {
		return nil
	}

	storeDir := filepath.Join(s.cfg.DataDir, "store")
	if !s.cfg.Store.InMemory {
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", storeDir, err)
		}
	}
	s.logger.Info("Opening state store", log.Str("path", storeDir), log.Bool("inMemory", s.cfg.Store.InMemory))
	if err := s.store.Open(storeDir); err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}

	s.nodes = nodes.NewRepository(s.store, s.options.Flavors,
		nodes.WithClock(s.options.Clock),
		nodes.WithLogger(s.options.Logger),
		nodes.WithLockTimeout(s.cfg.Maintenance.LockTimeout))
	s.deployer = deploy.NewLocalDeployer(s.store, s.nodes, s.cfg.Hostname,
		deploy.WithClock(s.options.Clock),
		deploy.WithLogger(s.options.Logger))
	s.maintainer = maintenance.NewApplicationMaintainer(s.deployer, s.nodes, s.cfg.Maintenance.ApplicationInterval,
		maintenance.WithDeployTimeout(s.cfg.Maintenance.DeployTimeout),
		maintenance.WithLogger(s.options.Logger))

	s.runner = maintenance.NewRunner(s.control, s.options.Logger)
	if err := s.runner.Add(s.maintainer); err != nil {
		s.store.Close()
		return err
	}

	s.opened = true
	return nil
}

// Run runs the maintenance jobs until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if !s.opened {
		return fmt.Errorf("server is not open")
	}
	s.runner.Start()
	<-ctx.Done()
	s.runner.Stop()
	return nil
}

// Close closes the store.
func (s *Server) Close() error {
	if !s.opened {
		return nil
	}
	s.opened = false
	return s.store.Close()
}

func (s *Server) Nodes() *nodes.Repository { return s.nodes }

func (s *Server) Deployer() *deploy.LocalDeployer { return s.deployer }

func (s *Server) Runner() *maintenance.Runner { return s.runner }

func (s *Server) JobControl() *maintenance.JobControl { return s.control }

func (s *Server) Logger() log.Logger { return s.logger }

func (s *Server) Flavors() types.FlavorResolver { return s.options.Flavors }
