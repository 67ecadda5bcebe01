package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tnunamak/claudebar/internal/api"
	"github.com/tnunamak/claudebar/internal/config"
	"github.com/tnunamak/claudebar/internal/logger"
	"github.com/tnunamak/claudebar/internal/refresh"
)

// deps is everything a command needs to build a refresh controller.
type deps struct {
	cfg      *config.Config
	log      *zap.Logger
	provider *api.Provider
	client   *api.Client
	// files is the credentials file store, if the source includes one.
	files *api.FileStore
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

// newDeps loads configuration and builds the credential and API layers.
// logPath overrides the configured log file when non-empty; quiet discards
// logs entirely unless a log file is configured.
func newDeps(logPath string, quiet bool) (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if logPath == "" {
		logPath = cfg.Log.File
	}
	var log *zap.Logger
	if quiet && logPath == "" {
		log = zap.NewNop()
	} else {
		log, err = logger.New(cfg.Log.Level, cfg.Log.Format, logPath)
		if err != nil {
			return nil, err
		}
	}

	store, files, err := newStore(cfg.Credentials, log)
	if err != nil {
		return nil, err
	}
	log.Debug("credential store", zap.String("store", store.Name()))

	client := api.NewClient(
		api.WithURL(cfg.API.URL),
		api.WithBetaHeader(cfg.API.Beta),
		api.WithTimeout(cfg.RequestTimeout),
		api.WithUserAgent("claudebar/"+Version),
	)

	return &deps{
		cfg:      cfg,
		log:      log,
		provider: api.NewProvider(store, log),
		client:   client,
		files:    files,
	}, nil
}

func newStore(c config.CredentialsConfig, log *zap.Logger) (api.SecretStore, *api.FileStore, error) {
	switch c.Source {
	case "auto":
		chain := api.DefaultStores(c.Service, c.File, log)
		var files *api.FileStore
		for _, s := range chain {
			if fs, ok := s.(*api.FileStore); ok {
				files = fs
			}
		}
		return chain, files, nil
	case "keychain":
		return api.NewKeychainStore(c.Service), nil, nil
	case "file":
		fs := api.NewFileStore(c.File, log)
		return fs, fs, nil
	case "env":
		return api.NewEnvStore(api.TokenEnvVar), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown credentials source %q", c.Source)
	}
}

func (d *deps) controller(surface refresh.Surface) *refresh.Controller {
	return refresh.New(d.provider, d.client, surface, refresh.Options{
		Interval:   d.cfg.PollInterval,
		ErrorWidth: d.cfg.ErrorWidth,
		Logger:     d.log,
	})
}

// watchCredentials marks the cached token stale whenever the credentials
// file changes. It returns immediately when there is nothing to watch.
func (d *deps) watchCredentials(ctx context.Context) {
	if d.files == nil || !d.cfg.WatchCredentials() {
		return
	}
	go func() {
		err := d.files.Watch(ctx, d.provider.MarkStale)
		if err != nil && ctx.Err() == nil {
			d.log.Warn("credentials watch stopped", zap.Error(err))
		}
	}()
}
