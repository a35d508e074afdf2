package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"docshell/internal/blobstore"
	"docshell/internal/config"
	"docshell/internal/convert"
	"docshell/internal/intercept"
	"docshell/internal/logging"
	"docshell/internal/recent"
	"docshell/internal/server"
	"docshell/internal/session"
	"docshell/internal/socket"
)

const fetchTimeout = 60 * time.Second

// InternalHost reaches this instance's blob URLs from HTTPClient without a
// listener.
const InternalHost = "docshell.invalid"

// App is one docshell instance.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *convert.Engine
	Blobs    *blobstore.Store
	Registry *intercept.Registry
	Broker   *socket.Broker
	Session  *session.Controller
	Recent   *recent.Store
	Server   *server.Server

	detach func()
}

// New assembles an instance from cfg. Nothing listens until Run.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app requires a config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := recent.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open recent files: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Engine:   engine,
		Blobs:    blobstore.New(blobstore.DefaultBase, blobstore.WithHosts(ownHosts(cfg.Paths.APIBind)...)),
		Registry: intercept.NewRegistry(logger),
		Broker:   socket.NewBroker(),
		Recent:   store,
	}

	a.Session = session.New(engine, a.Blobs,
		session.WithLogger(logger),
		session.WithUser(cfg.Editor.UserID, cfg.Editor.UserName),
		session.WithBuild(cfg.Editor.BuildVersion, cfg.Editor.BuildNumber),
		session.WithDownloader(session.DirDownloader{Dir: cfg.Paths.DownloadDir}),
		session.WithFetcher(session.HTTPFetcher{Client: a.HTTPClient()}),
	)
	a.Registry.Use(a.Blobs.Middleware())
	a.Registry.Use(a.Session.HandleRequest)
	a.detach = a.Session.Attach(a.Broker)

	a.Server, err = server.New(a.Session, a.Registry, a.Blobs, a.Recent, server.Options{
		Bind:         cfg.Paths.APIBind,
		LockPath:     cfg.LockPath(),
		AllowOrigins: cfg.Editor.AllowOrigins,
		Logger:       logger,
	})
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

// ownHosts lists the hosts blob URLs may be addressed through: the API bind,
// its localhost alias when bound to loopback, and InternalHost.
func ownHosts(bind string) []string {
	hosts := []string{InternalHost, bind}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return hosts
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		hosts = append(hosts, net.JoinHostPort("localhost", port))
	}
	return hosts
}

// NewEngine builds the conversion engine for the configured backend, with
// fonts and themes preloaded when their directories are set.
func NewEngine(cfg *config.Config, logger *slog.Logger) (*convert.Engine, error) {
	var backend convert.Backend
	var err error
	switch cfg.Converter.Backend {
	case config.BackendWasm:
		backend, err = convert.NewWasmBackend(cfg.Converter.WasmPath, cfg.Converter.CacheDir)
	default:
		backend, err = convert.NewProcessBackend(cfg.Converter.Binary)
	}
	if err != nil {
		return nil, fmt.Errorf("converter backend: %w", err)
	}

	fonts, err := convert.LoadAssetDir(cfg.Converter.FontsDir)
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	themes, err := convert.LoadAssetDir(cfg.Converter.ThemesDir)
	if err != nil {
		return nil, fmt.Errorf("load themes: %w", err)
	}
	if len(fonts) > 0 || len(themes) > 0 {
		logger.Debug("converter assets loaded",
			logging.Int("fonts", len(fonts)),
			logging.Int("themes", len(themes)),
		)
	}

	return convert.NewEngine(backend,
		convert.WithLogger(logger),
		convert.WithTempDir(cfg.WorkDir()),
		convert.WithSharedAssets(fonts, themes),
	), nil
}

// HTTPClient returns a client whose requests pass through the interception
// registry before reaching the network.
func (a *App) HTTPClient() *http.Client {
	return &http.Client{
		Transport: &intercept.Transport{Registry: a.Registry},
		Timeout:   fetchTimeout,
	}
}

// NewCall returns an editor-style request bound to the registry.
func (a *App) NewCall() *intercept.Call {
	return intercept.NewCall(a.Registry, intercept.WithCallLogger(a.Logger))
}

// Connect opens an editor socket on the broker. The session binds to it once
// the connect is delivered.
func (a *App) Connect() *socket.Socket {
	return socket.New(a.Broker, socket.WithLogger(a.Logger))
}

// Run serves the API until ctx is cancelled. Blank templates are encoded in
// the background so the first new document does not wait on the converter.
func (a *App) Run(ctx context.Context) error {
	if err := a.Server.Start(ctx); err != nil {
		return err
	}
	go func() {
		if err := a.Session.PrepareTemplates(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(a.Logger, "blank templates not prepared", "app.templates",
				logging.Error(err),
			)
		}
	}()
	<-ctx.Done()
	a.Server.Stop()
	return nil
}

// Close releases every component. It is safe to call on a partially built
// instance.
func (a *App) Close(ctx context.Context) error {
	if a.Server != nil {
		a.Server.Stop()
	}
	if a.detach != nil {
		a.detach()
		a.detach = nil
	}
	if a.Session != nil {
		a.Session.Close()
	}
	var errs []error
	if a.Engine != nil {
		if err := a.Engine.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close engine: %w", err))
		}
	}
	if a.Recent != nil {
		if err := a.Recent.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close recent files: %w", err))
		}
	}
	return errors.Join(errs...)
}
