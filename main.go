package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/theemilyd/react-riftsurge/content"
	"github.com/theemilyd/react-riftsurge/fallback"
	"github.com/theemilyd/react-riftsurge/handlers"
	site "github.com/theemilyd/react-riftsurge/lib"
	"github.com/theemilyd/react-riftsurge/logger"
	"github.com/theemilyd/react-riftsurge/render"
	"github.com/theemilyd/react-riftsurge/resolver"
)

const envHelp = `
The following environment variables and defaults are available. A .env file
in the working directory is loaded first; the real environment wins.

CONTENT_API_URL=                 GraphQL endpoint of the CMS; empty serves static copy only
CONTENT_BASE_URL=                Base URL for relative media paths and the /wp-content/ proxy
FORCE_STATIC_FALLBACK=false      Never call the CMS
DEPLOYMENT_ENV=                  Non-empty marks a constrained deployment and forces static copy
SITE_FALLBACK_HOST_FRAGMENTS=vercel.app  Comma-separated host fragments that force static copy
SITE_PUBADDR=:8080               Address on which to serve public requests
SITE_APIADDR=:8081               Address on which to serve the operational API
SITE_DEBUG=                      Enable debug output if non-empty
SITE_REDIRECTS_FILE=             Load legacy redirects from a JSONL file if non-empty
SITE_CONTACT_DATABASE_URL=       Store contact submissions in PostgreSQL if non-empty
SITE_CONTACT_RATE=5              Contact submissions allowed per client per minute

Timeouts: (values must be parseable by https://pkg.go.dev/time#ParseDuration)

SITE_CONTENT_TIMEOUT=10s           Timeout of a single CMS request
SITE_RENDER_BUDGET=3s              How long a page waits for content before rendering a skeleton
SITE_BACKEND_CONNECT_TIMEOUT=1s    Connect timeout of the media proxy
SITE_BACKEND_HEADER_TIMEOUT=20s    Timeout for media response headers to be returned
SITE_FRONTEND_READ_TIMEOUT=60s     See https://cs.opensource.google/go/go/+/master:src/net/http/server.go?q=symbol:ReadTimeout
SITE_FRONTEND_WRITE_TIMEOUT=60s    See https://cs.opensource.google/go/go/+/master:src/net/http/server.go?q=symbol:WriteTimeout
SITE_REDIRECT_RELOAD_INTERVAL=1m   Interval for periodic redirect reloads
`

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "riftsurge",
		Short:         "Server-rendered marketing site backed by a headless CMS",
		Long:          "Server-rendered marketing site backed by a headless CMS.\n" + envHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return site.LoadDotEnv(".env")
		},
	}
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newRoutesCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "RiftSurge site %s\n", site.VersionInfo())
		},
	}
}

func newRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the routing table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			routes := site.Routes()
			if err := site.ValidateRoutes(routes); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATTERN\tKIND\tSLUG")
			for _, r := range routes {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Pattern, r.Kind, r.Slug)
			}
			return tw.Flush()
		},
	}
}

func newExportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the fixed pages into a directory of static HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := site.LoadConfig()
			if err != nil {
				return err
			}
			log := logger.NewLocal(os.Stderr, cfg.Debug)

			// Exports wait for content instead of rendering skeletons.
			cfg.RenderBudget = 3 * cfg.ContentTimeout

			s, rv, err := buildSite(cfg, log, nil)
			if err != nil {
				return err
			}
			defer func() {
				if err := rv.Shutdown(context.Background()); err != nil {
					log.Warn().Err(err).Msg("resolver did not shut down cleanly")
				}
			}()

			if err := site.Export(cmd.Context(), s, out, site.StaticPaths()); err != nil {
				return err
			}
			log.Info().Str("dir", out).Msg("export complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "out", "Directory to write the pages to")
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the site and the operational API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := site.LoadConfig()
	if err != nil {
		return err
	}

	// SENTRY_DSN, SENTRY_ENVIRONMENT and SENTRY_RELEASE are picked up from
	// the environment.
	if err := sentry.Init(sentry.ClientOptions{}); err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer sentry.Flush(2 * time.Second)

	log, closer, err := logger.New(os.Stderr, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() {
		_ = closer.Close()
	}()

	log.Info().Msgf("RiftSurge site %s", site.VersionInfo())
	log.Info().Msgf("frontend read timeout: %v", cfg.FrontendReadTimeout)
	log.Info().Msgf("frontend write timeout: %v", cfg.FrontendWriteTimeout)
	log.Info().Msgf("GOMAXPROCS value of %d", runtime.GOMAXPROCS(0))

	site.RegisterMetrics(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := site.OpenContactStore(ctx, cfg.ContactDatabaseURL, log)
	if err != nil {
		return err
	}
	defer closeStore()

	s, rv, err := buildSite(cfg, log, store)
	if err != nil {
		return err
	}
	go s.PeriodicRedirectUpdates(ctx)

	ready := site.NewReadiness()
	api, err := site.NewAPIHandler(s, ready)
	if err != nil {
		return fmt.Errorf("failed to create API handler: %w", err)
	}

	servers := []*http.Server{
		newServer(cfg.PubAddr, s, cfg.FrontendReadTimeout, cfg.FrontendWriteTimeout),
		newServer(cfg.APIAddr, api, cfg.FrontendReadTimeout, cfg.FrontendWriteTimeout),
	}
	listeners, err := listen(servers)
	if err != nil {
		return err
	}

	errs := make(chan error, len(servers))
	for i, srv := range servers {
		log.Info().Msgf("listening on %v", listeners[i].Addr())
		go func() {
			if err := srv.Serve(listeners[i]); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("%s: %w", srv.Addr, err)
			}
		}()
	}
	// Every address is bound before /readyz answers OK.
	ready.MarkReady()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case serveErr = <-errs:
		log.Error().Err(serveErr).Msg("listener failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Str("addr", srv.Addr).Msg("server did not shut down cleanly")
		}
	}
	if err := rv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("resolver did not shut down cleanly")
	}
	return serveErr
}

// listen binds every server's address, closing what was already bound if
// one of them fails.
func listen(servers []*http.Server) ([]net.Listener, error) {
	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			return nil, fmt.Errorf("%s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}
	return listeners, nil
}

func newServer(addr string, handler http.Handler, rTimeout, wTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  rTimeout,
		WriteTimeout: wTimeout,
	}
}

// buildSite wires the content client, resolver and renderer into a Site.
func buildSite(cfg site.Config, log zerolog.Logger, store handlers.ContactStore) (*site.Site, *resolver.Resolver, error) {
	client := content.New(content.Options{
		Endpoint: cfg.ContentAPIURL,
		Timeout:  cfg.ContentTimeout,
		Logger:   log,
	})
	if !client.Configured() {
		log.Warn().Msg("CONTENT_API_URL not set; serving static copy only")
	}

	rv := resolver.New(client, resolver.Options{
		Logger:       log,
		FetchTimeout: cfg.ContentTimeout,
	})

	rd, err := render.New(render.Options{
		Assets: content.AssetResolver{BaseURL: cfg.ContentBaseURL, Placeholder: content.DefaultPlaceholder},
		Logger: log,
	})
	if err != nil {
		return nil, nil, err
	}

	var mediaOrigin *url.URL
	if cfg.ContentBaseURL != "" {
		mediaOrigin, err = url.Parse(cfg.ContentBaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("CONTENT_BASE_URL: %w", err)
		}
	}

	s, err := site.NewSite(site.Options{
		Resolver: rv,
		Renderer: rd,
		Policy: &fallback.Policy{
			ForceStatic:   cfg.ForceStatic,
			EnvVar:        cfg.FallbackEnvVar,
			HostFragments: cfg.FallbackHostFragments,
		},
		ContactStore:           store,
		MediaOrigin:            mediaOrigin,
		BackendConnTimeout:     cfg.BackendConnectTimeout,
		BackendHeaderTimeout:   cfg.BackendHeaderTimeout,
		RenderBudget:           cfg.RenderBudget,
		ContactRatePerMinute:   cfg.ContactRatePerMinute,
		RedirectsFile:          cfg.RedirectsFile,
		RedirectReloadInterval: cfg.RedirectReloadInterval,
		Logger:                 log,
	})
	if err != nil {
		return nil, nil, err
	}
	return s, rv, nil
}
