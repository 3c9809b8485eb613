package commands

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"filippo.io/csrf"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/jokko/internal/api"
	"github.com/wolfeidau/jokko/internal/assets"
	"github.com/wolfeidau/jokko/internal/cleanup"
	"github.com/wolfeidau/jokko/internal/conversations"
	httpmiddleware "github.com/wolfeidau/jokko/internal/http"
	"github.com/wolfeidau/jokko/internal/logger"
	"github.com/wolfeidau/jokko/internal/login"
	"github.com/wolfeidau/jokko/internal/mail"
	"github.com/wolfeidau/jokko/internal/objectstore"
	"github.com/wolfeidau/jokko/internal/organizations"
	"github.com/wolfeidau/jokko/internal/passwordreset"
	"github.com/wolfeidau/jokko/internal/ratelimit"
	"github.com/wolfeidau/jokko/internal/revalidate"
	"github.com/wolfeidau/jokko/internal/secrets"
	"github.com/wolfeidau/jokko/internal/signup"
	"github.com/wolfeidau/jokko/internal/telemetry"
	"github.com/wolfeidau/jokko/internal/util"
	"github.com/wolfeidau/jokko/internal/web"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const (
	envDevelopment = "development"
	envProduction  = "production"
)

type ServerCmd struct {
	// Server configuration
	Listen      string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"JOKKO_LISTEN"`
	BaseURL     string `help:"public base URL, used in emailed links" default:"http://localhost:8080" env:"JOKKO_BASE_URL"`
	Environment string `help:"deployment environment" default:"development" env:"JOKKO_ENV" enum:"development,test,production"`
	TrustProxy  bool   `help:"trust X-Forwarded-For and X-Real-IP for the client address" default:"false" env:"JOKKO_TRUST_PROXY"`

	// TLS is enabled when a certificate is configured
	Cert    string `help:"path to TLS cert file" default:"" env:"JOKKO_TLS_CERT"`
	Key     string `help:"path to TLS key file" default:"" env:"JOKKO_TLS_KEY"`
	CertSSM string `name:"cert-ssm" help:"SSM parameter holding the TLS cert" default:"" env:"JOKKO_TLS_CERT_SSM"`
	KeySSM  string `name:"key-ssm" help:"SSM parameter holding the TLS key" default:"" env:"JOKKO_TLS_KEY_SSM"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:8080" env:"JOKKO_CORS_ORIGINS"`

	Tracing          bool    `help:"enable tracing" default:"false" env:"JOKKO_TRACING"`
	TraceSampleRatio float64 `help:"fraction of traces sampled" default:"1" env:"JOKKO_TRACE_SAMPLE_RATIO"`

	Session SessionFlags `embed:"" prefix:"session-"`
	Store   StoreFlags   `embed:""`

	SES         AWSFlags `embed:"" prefix:"ses-" envprefix:"JOKKO_SES_"`
	SESFrom     string   `name:"ses-from-email" help:"sender address for outgoing email" default:"" env:"JOKKO_SES_FROM_EMAIL"`
	SESFromName string   `name:"ses-from-name" help:"sender display name" default:"Jokko" env:"JOKKO_SES_FROM_NAME"`

	S3          AWSFlags `embed:"" prefix:"s3-" envprefix:"JOKKO_S3_"`
	S3Bucket    string   `name:"s3-bucket" help:"bucket for attachments, uploads are disabled when empty" default:"" env:"JOKKO_S3_BUCKET"`
	S3PathStyle bool     `name:"s3-use-path-style" help:"use path style S3 addressing" default:"false" env:"JOKKO_S3_USE_PATH_STYLE"`

	SSMRegion string `name:"ssm-region" help:"AWS region for SSM parameters" default:"" env:"JOKKO_SSM_REGION"`

	// Rate limiting is enabled when a redis URL is configured
	RedisURL   string        `help:"redis URL for rate limiting" default:"" env:"JOKKO_REDIS_URL"`
	AuthLimit  int           `help:"sign-in and forgot-password requests per client per window" default:"10" env:"JOKKO_AUTH_RATE_LIMIT"`
	AuthWindow time.Duration `help:"rate limit window" default:"1m" env:"JOKKO_AUTH_RATE_WINDOW"`

	UIEntryGlob string `help:"glob of page script entry points" default:"ui/pages/*.ts" env:"JOKKO_UI_ENTRY_GLOB"`
	BcryptCost  int    `help:"bcrypt cost for password hashes" default:"10" env:"JOKKO_BCRYPT_COST"`
}

type SessionFlags struct {
	TTL        time.Duration `help:"session TTL" default:"168h" env:"JOKKO_SESSION_TTL"`
	Secret     string        `help:"session signing secret (at least 32 bytes)" default:"" env:"JOKKO_SESSION_SECRET"`
	SecretFile string        `help:"file holding the session signing secret" default:"" env:"JOKKO_SESSION_SECRET_FILE"`
	SecretSSM  string        `name:"secret-ssm" help:"SSM parameter holding the session signing secret" default:"" env:"JOKKO_SESSION_SECRET_SSM"`
}

func (s SessionFlags) source() secrets.Source {
	return secrets.Source{Value: s.Secret, File: s.SecretFile, SSMParameter: s.SecretSSM}
}

func (c *ServerCmd) Validate() error {
	if c.Environment == envProduction && c.Session.source().IsZero() {
		return errors.New("a session secret is required in production (--session-secret, --session-secret-file or --session-secret-ssm)")
	}
	if (c.Cert == "") != (c.Key == "") || (c.CertSSM == "") != (c.KeySSM == "") {
		return errors.New("TLS needs both a certificate and a key")
	}
	if c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost) {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

func (c *ServerCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Str("environment", c.Environment).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "jokko-server",
			Version:     globals.Version,
			SampleRatio: c.TraceSampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	st, err := openStores(ctx, c.Store, false)
	if err != nil {
		return err
	}
	defer st.close()

	resolver := secrets.NewResolver(util.AWSOptions{Region: c.SSMRegion})

	sessionSecret, err := c.sessionSecret(ctx, log, resolver)
	if err != nil {
		return err
	}

	creds, err := login.NewCredentials(login.Stores{Users: st.users, Sessions: st.sessions}, login.Config{
		SessionSecret: sessionSecret,
		SessionTTL:    c.Session.TTL,
		SecureCookies: strings.HasPrefix(c.BaseURL, "https://"),
		BcryptCost:    c.BcryptCost,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize credentials: %w", err)
	}

	mailer, err := c.mailer(ctx, log)
	if err != nil {
		return err
	}

	broker := revalidate.NewBroker()
	orgs := organizations.NewService(st.organizations)

	deps := api.Deps{
		Credentials: creds,
		Users:       st.users,
		Signup:      signup.NewService(creds, orgs),
		PasswordReset: passwordreset.NewService(st.users, st.resets, creds, mailer, passwordreset.Config{
			BaseURL:    c.BaseURL,
			BcryptCost: c.BcryptCost,
		}),
		Organizations: orgs,
		Conversations: conversations.NewService(st.conversations, conversations.LogSender{}, broker),
		Events:        broker,
		HealthCheck:   st.ping,
	}

	if c.S3Bucket != "" {
		deps.Uploads, err = objectstore.New(ctx, objectstore.Config{
			Bucket:       c.S3Bucket,
			EndpointURL:  c.S3.EndpointURL,
			UsePathStyle: c.S3PathStyle,
			AWS:          c.S3.Options(),
		})
		if err != nil {
			return fmt.Errorf("failed to create object store: %w", err)
		}
		log.Info().Str("bucket", c.S3Bucket).Msg("Attachment uploads enabled")
	}

	if c.RedisURL != "" {
		client, err := ratelimit.NewClient(ctx, c.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		deps.AuthLimiter, err = ratelimit.New(client, ratelimit.Config{
			Limit:  c.AuthLimit,
			Window: c.AuthWindow,
			Prefix: "ratelimit:auth",
		})
		if err != nil {
			return fmt.Errorf("failed to create rate limiter: %w", err)
		}
		log.Info().Int("limit", c.AuthLimit).Dur("window", c.AuthWindow).Msg("Auth rate limiting enabled")
	}

	if c.Environment != envProduction {
		deps.Cleanup = cleanup.NewService(cleanup.Stores{
			Users:          st.users,
			Sessions:       st.sessions,
			PasswordResets: st.resets,
			Organizations:  st.organizations,
		})
		log.Warn().Msg("Test cleanup endpoint is enabled")
	}

	assetsCfg := assets.DefaultConfig()
	assetsCfg.EntryPointGlob = c.UIEntryGlob
	assetsCfg.Minify = c.Environment == envProduction

	var scripts web.Scripts
	pipeline := assets.New(assetsCfg)
	switch err := pipeline.Build(); {
	case errors.Is(err, assets.ErrNoEntryPoints):
		log.Warn().Str("glob", c.UIEntryGlob).Msg("No page scripts found, pages are served without scripts")
	case err != nil:
		return fmt.Errorf("failed to build page scripts: %w", err)
	default:
		scripts = pipeline
	}

	site, err := web.New(web.Deps{
		Gateway:       creds,
		Users:         st.users,
		Organizations: deps.Organizations,
		Conversations: deps.Conversations,
		Assets:        scripts,
	})
	if err != nil {
		return fmt.Errorf("failed to load pages: %w", err)
	}

	apiHandler := withCORS(c.CORSOrigins, api.New(deps).Handler())

	mux := http.NewServeMux()
	mux.Handle(assetsCfg.PublicPath+"/", http.StripPrefix(assetsCfg.PublicPath+"/", http.FileServer(http.Dir(assetsCfg.OutputDir))))
	mux.Handle("/", site.Handler())

	// CSRF protection for HTML pages (not applied to API routes)
	protection := csrf.New()
	pages := protection.Handler(mux)

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			apiHandler.ServeHTTP(w, r)
			return
		}
		pages.ServeHTTP(w, r)
	})

	handler = httpmiddleware.Chain(handler,
		logger.AccessLog(log),
		httpmiddleware.ClientIPMiddleware(c.TrustProxy),
		httpmiddleware.SecurityHeaders,
	)
	if c.Tracing {
		handler = otelhttp.NewHandler(handler, "jokko-server")
	}

	srv := configureHTTPServer(c.Listen, handler)

	tlsConfig, err := resolver.TLSConfig(ctx,
		secrets.Source{File: c.Cert, SSMParameter: c.CertSSM},
		secrets.Source{File: c.Key, SSMParameter: c.KeySSM},
	)
	switch {
	case errors.Is(err, secrets.ErrNoSource):
		tlsConfig = nil
	case err != nil:
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	return serve(ctx, log, srv, tlsConfig)
}

// serve runs srv until ctx is cancelled, then drains connections.
func serve(ctx context.Context, log zerolog.Logger, srv *http.Server, tlsConfig *tls.Config) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if tlsConfig != nil {
			srv.TLSConfig = tlsConfig
			log.Info().Str("addr", srv.Addr).Msg("Starting HTTPS server")
			err = srv.ListenAndServeTLS("", "")
		} else {
			log.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (c *ServerCmd) sessionSecret(ctx context.Context, log zerolog.Logger, resolver *secrets.Resolver) ([]byte, error) {
	src := c.Session.source()
	if src.IsZero() {
		// only reachable outside production, see Validate
		log.Warn().Msg("No session secret configured, generating one; sessions will not survive a restart")
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		return secret, nil
	}

	secret, err := resolver.Resolve(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to load session secret: %w", err)
	}
	return []byte(secret), nil
}

func (c *ServerCmd) mailer(ctx context.Context, log zerolog.Logger) (mail.Mailer, error) {
	if c.SESFrom == "" {
		if c.Environment == envProduction {
			return nil, errors.New("an SES sender is required in production (--ses-from-email)")
		}
		log.Warn().Msg("No SES sender configured, emails are written to the log")
		return mail.LogMailer{}, nil
	}

	ses, err := mail.NewSESFromOptions(ctx, c.SES.Options(), c.SES.EndpointURL, mail.SESConfig{
		FromEmail: c.SESFrom,
		FromName:  c.SESFromName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SES mailer: %w", err)
	}
	return ses, nil
}

// isAPIRoute returns true if the path is an API route that needs CORS instead of CSRF
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, api.Prefix) || path == "/healthz"
}

// withCORS lets the configured origins call the JSON API with cookies.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true, // Required for cookie-based authentication
	})
	return middleware.Handler(h)
}
