// pkg/serverfx/serverfx.go
package serverfx

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fhhd11/agent-gateway/pkg/config"
	"github.com/fhhd11/agent-gateway/pkg/core"
	"github.com/fhhd11/agent-gateway/pkg/middleware/auth"
	"github.com/fhhd11/agent-gateway/pkg/middleware/logger"
	"github.com/fhhd11/agent-gateway/pkg/middleware/metrics"
	"github.com/fhhd11/agent-gateway/pkg/middleware/ratelimit"
	"github.com/fhhd11/agent-gateway/pkg/profile"
	"github.com/fhhd11/agent-gateway/pkg/transport/httpx"
)

// Options allow per-deployment env keys/defaults without code duplication.
type Options struct {
	Service         string // for logs only
	ManifestEnv     string // e.g. "GATEWAY_MANIFEST"
	DefaultManifest string // e.g. "gateway.toml"
	ListenAddrEnv   string // e.g. "SERVER_LISTEN_ADDRESS"
	DefaultListen   string // e.g. ":4000"
	TLSCertEnv      string // e.g. "SSL_SERVER_CERTIFICATE"
	TLSKeyEnv       string // e.g. "SSL_SERVER_KEY"
}

func provideConfig(opts Options, log *zap.Logger) config.Config {
	path := envOr(opts.ManifestEnv, opts.DefaultManifest)
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal("config load failed", zap.Error(err), zap.String("path", path))
	}
	return cfg
}

// ---- Router ----

type routerDeps struct {
	fx.In

	Cfg      config.Config
	AuthMW   *auth.Middleware
	LogMW    *logger.Middleware
	Limiter  *ratelimit.Limiter
	Resolver *profile.Resolver
	Proxy    *core.Proxy

	Metrics http.Handler `name:"metrics"`

	R   httpx.Router
	Log *zap.Logger
}

func provideRouter(d routerDeps) http.Handler {
	return core.BuildRouter(core.BuildDeps{
		Cfg:      d.Cfg,
		Auth:     d.AuthMW,
		LogMW:    d.LogMW,
		Metrics:  d.Metrics,
		Limiter:  d.Limiter,
		Resolver: d.Resolver,
		Proxy:    d.Proxy,
		Router:   d.R,
		Log:      d.Log,
	})
}

// ---- Server lifecycle ----

type serverDeps struct {
	fx.In
	Opts   Options
	Logger *zap.Logger
	App    http.Handler `name:"app"`
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	addr := envOr(d.Opts.ListenAddrEnv, d.Opts.DefaultListen)
	cert := os.Getenv(d.Opts.TLSCertEnv)
	key := os.Getenv(d.Opts.TLSKeyEnv)

	srv := &http.Server{
		Addr:         addr,
		Handler:      d.App,
		ReadTimeout:  15 * time.Second,
		// Proxied LLM responses stream for minutes; no write deadline.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
		TLSConfig:    &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}
	useTLS := fileExists(cert) && fileExists(key)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if useTLS {
				d.Logger.Info("server starting (TLS)",
					zap.String("service", d.Opts.Service),
					zap.String("addr", addr),
					zap.String("cert", cert),
				)
				go func() {
					if err := srv.ListenAndServeTLS(cert, key); err != nil && err != http.ErrServerClosed {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			} else {
				d.Logger.Info("server starting (PLAINTEXT)",
					zap.String("service", d.Opts.Service),
					zap.String("addr", addr),
				)
				go func() {
					srv.TLSConfig = nil
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", d.Opts.Service))
			return srv.Shutdown(ctx)
		},
	})
}

// ---- Public Fx module ----

func Module(opts Options) fx.Option {
	return fx.Options(
		// Supply options to DI.
		fx.Supply(opts),

		// Middleware modules
		auth.Module,
		logger.Module,
		ratelimit.Module,

		// Metrics (named)
		fx.Provide(fx.Annotate(metrics.ProvideMetrics, fx.ResultTags(`name:"metrics"`))),

		// Router implementation
		fx.Provide(httpx.NewChi),

		// Gateway collaborators
		fx.Provide(provideConfig),
		fx.Provide(profile.NewResolver),
		fx.Provide(core.NewProxy),

		// Router (named "app")
		fx.Provide(
			fx.Annotate(
				provideRouter,
				fx.ResultTags(`name:"app"`),
			),
		),

		// App lifecycle (starts HTTP server)
		fx.Invoke(registerHooks),
	)
}

// ---- helpers ----

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
