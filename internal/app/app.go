// Package app wires every connector package into one RPC router and
// starts the process in either API or worker mode, mirroring the
// teacher's own api/worker split (cmd/nightowl's two modes) but
// replacing its REST domain-handler mounts with namespace registration
// against internal/rpc.Router.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gfirestore "google.golang.org/api/option"

	"github.com/kabsikabs/integration-core/internal/alerting"
	"github.com/kabsikabs/integration-core/internal/auth"
	"github.com/kabsikabs/integration-core/internal/cache"
	"github.com/kabsikabs/integration-core/internal/config"
	"github.com/kabsikabs/integration-core/internal/connpool"
	"github.com/kabsikabs/integration-core/internal/httpserver"
	"github.com/kabsikabs/integration-core/internal/identity"
	"github.com/kabsikabs/integration-core/internal/platform"
	"github.com/kabsikabs/integration-core/internal/rpc"
	"github.com/kabsikabs/integration-core/internal/secret"
	coretelemetry "github.com/kabsikabs/integration-core/internal/telemetry"
	"github.com/kabsikabs/integration-core/internal/version"
	"github.com/kabsikabs/integration-core/pkg/drive"
	"github.com/kabsikabs/integration-core/pkg/erp"
	"github.com/kabsikabs/integration-core/pkg/hr"
	"github.com/kabsikabs/integration-core/pkg/jobber"
	"github.com/kabsikabs/integration-core/pkg/llm"
	"github.com/kabsikabs/integration-core/pkg/stream"
	"github.com/kabsikabs/integration-core/pkg/vector"
)

// driveScope is the one OAuth scope the Drive connector needs — read-only
// listing of files already shared with the service account's delegated
// user, matching pkg/drive's Fetcher surface (list only, no writes).
const driveScope = "https://www.googleapis.com/auth/drive.readonly"

// Run is the process entry point: load config, connect to
// infrastructure, then start the requested mode.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := coretelemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting integration-core", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	secrets := secret.New(cfg)
	defer func() { _ = secrets.Close() }()

	databaseURL := cfg.NeonDatabaseURL
	if databaseURL == "" && cfg.NeonSecretName != "" {
		var err error
		databaseURL, err = secrets.Get(ctx, cfg.NeonSecretName)
		if err != nil {
			return fmt.Errorf("resolving database url from secret manager: %w", err)
		}
	}
	if databaseURL == "" {
		return errors.New("no database url: set NEON_DATABASE_URL or NEON_SECRET_NAME")
	}

	if err := platform.RunMigrations(databaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	db, err := platform.NewPostgresPool(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	fs, err := buildFirestoreClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to firestore: %w", err)
	}
	defer func() {
		if err := fs.Close(); err != nil {
			logger.Error("closing firestore", "error", err)
		}
	}()

	metricsReg := coretelemetry.NewMetricsRegistry(coretelemetry.All()...)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, fs, metricsReg)
	case "worker":
		return runWorker(ctx, cfg, logger, rdb)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// buildFirestoreClient mirrors internal/secret's credential preference
// order (inline JSON, base64 JSON, application default credentials) —
// duplicated rather than shared since internal/secret is scoped to
// Secret Manager specifically and firestore.NewClient takes its own
// option set.
func buildFirestoreClient(ctx context.Context, cfg *config.Config) (*firestore.Client, error) {
	if inline := cfg.GoogleServiceAccountJSON; inline != "" {
		return firestore.NewClient(ctx, cfg.GoogleProjectID, gfirestore.WithCredentialsJSON([]byte(inline)))
	}
	if b64 := cfg.GoogleServiceAccountJSONB64; b64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decoding GOOGLE_SERVICE_ACCOUNT_JSON_B64: %w", err)
		}
		return firestore.NewClient(ctx, cfg.GoogleProjectID, gfirestore.WithCredentialsJSON(decoded))
	}
	return firestore.NewClient(ctx, cfg.GoogleProjectID)
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, fs *firestore.Client, metricsReg *prometheus.Registry) error {
	// --- Caller authentication ---
	patSecret := cfg.PATSigningSecret
	if patSecret == "" {
		patSecret = auth.GenerateDevSecret()
		logger.Info("pat: using auto-generated dev signing secret (set PAT_SIGNING_SECRET in production)")
	}
	patMaxAge, err := time.ParseDuration(cfg.PATMaxAge)
	if err != nil {
		return fmt.Errorf("parsing PAT_MAX_AGE %q: %w", cfg.PATMaxAge, err)
	}
	patMgr, err := auth.NewPATManager(patSecret, patMaxAge)
	if err != nil {
		return fmt.Errorf("creating PAT manager: %w", err)
	}

	var oidcAuth *auth.OIDCAuthenticator
	if cfg.OIDCIssuerURL != "" && cfg.OIDCClientID != "" {
		oidcAuth, err = auth.NewOIDCAuthenticator(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
		if err != nil {
			return fmt.Errorf("initializing OIDC authenticator: %w", err)
		}
		logger.Info("OIDC authentication enabled", "issuer", cfg.OIDCIssuerURL)
	} else {
		logger.Info("OIDC authentication disabled (OIDC_ISSUER_URL not set)")
	}

	// --- Domain wiring ---
	mandates := identity.New(fs)
	cacheMgr := cache.New(rdb)

	notifier := alerting.NewNotifier(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)
	if !notifier.IsEnabled() {
		logger.Info("alerting disabled (SLACK_BOT_TOKEN/SLACK_ALERT_CHANNEL not set)")
	}

	connTTL, err := time.ParseDuration(cfg.ConnectionCacheTTL)
	if err != nil {
		return fmt.Errorf("parsing CONNECTION_CACHE_TTL %q: %w", cfg.ConnectionCacheTTL, err)
	}
	pool := connpool.New(connTTL, connectorBuilder(mandates)).WithFailureObserver(
		func(tenantID, kind string, consecutive int, err error) {
			if alertErr := notifier.NotifyConnectorDown(context.Background(), tenantID, kind, consecutive, err); alertErr != nil {
				logger.Warn("posting connector failure alert", "tenant_id", tenantID, "kind", kind, "error", alertErr)
			}
		},
	)

	hrStore := hr.NewStore(db)
	hrSvc := hr.NewService(hrStore)
	hrHandler := hr.NewHandler(hrSvc, cacheMgr, logger)

	driveHandler := drive.NewHandler(pool, cacheMgr, logger)
	erpHandler := erp.NewHandler(pool, cacheMgr, logger)

	chromaCfg, err := parseChromaURL(cfg.ChromaURL)
	if err != nil {
		return fmt.Errorf("parsing CHROMA_URL %q: %w", cfg.ChromaURL, err)
	}
	vectorClient, err := vector.NewClient(ctx, chromaCfg, nil)
	if err != nil {
		logger.Warn("vector store unavailable at startup, will retry on first call", "error", err)
	}
	vectorHandler := vector.NewHandler(vectorClient, cacheMgr, logger)

	hub := stream.NewHub()
	go hub.Run(ctx)
	bridge := stream.NewBridge(hub, rdb, logger)
	go bridge.Run(ctx)

	sessions := llm.NewSessionStore()
	llmHandler := llm.NewHandler(sessions, nil, &stream.LLMSinkResolver{Hub: hub}, logger)

	jobberClient := jobber.NewClient(jobber.Config{
		JobberURL:       cfg.JobberURL,
		APIKey:          cfg.JobberAPIKey,
		CallbackBaseURL: cfg.ListenersURL,
		Timeout:         time.Duration(cfg.JobberTimeout) * time.Second,
	})
	jobberTracker := jobber.NewTracker(rdb)
	jobberHandler := jobber.NewHandler(jobberClient, cacheMgr, jobberTracker, notifier, logger)
	jobberCallbacks := jobber.NewRouter(&stream.JobberSinkResolver{Hub: hub}, jobberTracker, logger)

	router := rpc.New(logger)
	hrHandler.Register(router)
	driveHandler.Register(router)
	erpHandler.Register(router)
	vectorHandler.Register(router)
	llmHandler.Register(router)
	jobberHandler.Register(router)

	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg, patMgr, oidcAuth, router)

	// Callback and streaming endpoints: mounted here rather than inside
	// httpserver.NewServer since they depend on connector-specific wiring
	// (the stream hub, the jobber sink resolver) that constructor doesn't own.
	srv.Router.Post("/hr/callback", requireCallbackBearer(cfg.CallbackBearerKey, jobberCallbacks.ServeHTTP))
	srv.Router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(patMgr, oidcAuth, logger))
		r.Get("/ws", stream.NewHandler(hub, logger).ServeHTTP)
	})

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// requireCallbackBearer gates the Jobber's callback endpoint behind a
// pre-shared bearer key (spec.md §6) instead of auth.Middleware's
// user-identity flow — the Jobber is not an RPC caller and carries no
// OIDC token or PAT.
func requireCallbackBearer(key string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != key {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// connectorBuilder closes over the mandate resolver to produce a
// connpool.Builder that dispatches on kind, resolving the caller's
// mandate and downstream credential document before constructing the
// concrete Drive or ERP client. Both connectors share one pool keyed by
// (user, tenant, kind), per internal/connpool's design.
func connectorBuilder(mandates *identity.Resolver) connpool.Builder {
	return func(ctx context.Context, userID, tenantID, kind string) (connpool.Client, error) {
		mandate, err := mandates.Resolve(ctx, userID, tenantID)
		if err != nil {
			return nil, &connpool.ProbeError{Class: connpool.ProbeErrorPermission, Err: err}
		}

		switch kind {
		case "drive":
			creds, err := mandates.GetCredentials(ctx, mandate, "drive/oauth")
			if err != nil {
				return nil, &connpool.ProbeError{Class: connpool.ProbeErrorOAuthRecoverable, Err: err}
			}
			ts, err := driveTokenSource(ctx, creds)
			if err != nil {
				return nil, &connpool.ProbeError{Class: connpool.ProbeErrorOAuthRecoverable, Err: err}
			}
			return drive.NewClient(ctx, ts)

		case "erp":
			creds, err := mandates.GetCredentials(ctx, mandate, "erp/odoo")
			if err != nil {
				return nil, &connpool.ProbeError{Class: connpool.ProbeErrorPermission, Err: err}
			}
			return erp.NewClient(ctx, erpCredentials(creds))

		default:
			return nil, fmt.Errorf("connpool: unknown connector kind %q", kind)
		}
	}
}

func driveTokenSource(ctx context.Context, creds identity.Credentials) (oauth2.TokenSource, error) {
	accessToken, _ := creds["access_token"].(string)
	refreshToken, _ := creds["refresh_token"].(string)
	clientID, _ := creds["client_id"].(string)
	clientSecret, _ := creds["client_secret"].(string)
	if refreshToken == "" || clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("incomplete drive oauth credentials")
	}

	var expiry time.Time
	if raw, ok := creds["expiry"].(string); ok && raw != "" {
		expiry, _ = time.Parse(time.RFC3339, raw)
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{driveScope},
	}
	token := &oauth2.Token{AccessToken: accessToken, RefreshToken: refreshToken, Expiry: expiry}
	return cfg.TokenSource(ctx, token), nil
}

// parseChromaURL splits a CHROMA_URL like "http://localhost:8100" into
// the host/port/ssl triple vector.Config expects.
func parseChromaURL(raw string) (vector.Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return vector.Config{}, err
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "8100"
	}
	return vector.Config{Host: host, Port: port, SSL: u.Scheme == "https"}, nil
}

func erpCredentials(creds identity.Credentials) erp.Credentials {
	str := func(k string) string {
		v, _ := creds[k].(string)
		return v
	}
	return erp.Credentials{
		URL:         str("url"),
		Database:    str("database"),
		Username:    str("username"),
		APIKey:      str("api_key"),
		CompanyName: str("company_name"),
	}
}

// reconciliationGrace is how long a job may sit tracked-but-pending
// before the worker assumes its callback was dropped and polls status
// directly.
const reconciliationGrace = 5 * time.Minute

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, rdb *redis.Client) error {
	logger.Info("worker started", "version", version.Version)

	jobberClient := jobber.NewClient(jobber.Config{
		JobberURL: cfg.JobberURL,
		APIKey:    cfg.JobberAPIKey,
		Timeout:   time.Duration(cfg.JobberTimeout) * time.Second,
	})
	tracker := jobber.NewTracker(rdb)

	// The Jobber reports completion via callback, not polling, so the
	// worker's job is reconciliation, not a primary delivery path:
	// sweep still-tracked jobs past their grace period and poll them
	// directly in case a callback never arrived, mirroring
	// pkg/escalation.Engine.Run's ticker shape and its own
	// rdb.Publish-to-notify-consumers pattern (here, stream.PublishRemote
	// standing in for the engine's ad hoc Redis channel).
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopping")
			return nil
		case <-ticker.C:
			reconcile(ctx, jobberClient, tracker, rdb, logger)
		}
	}
}

func reconcile(ctx context.Context, jobberClient *jobber.Client, tracker *jobber.Tracker, rdb *redis.Client, logger *slog.Logger) {
	health := jobberClient.CheckHealth(ctx)
	if health.Status != "ok" {
		logger.Warn("jobber health check failed", "jobber_url", health.JobberURL, "error", health.Error)
		return
	}

	stale, err := tracker.PendingOlderThan(ctx, reconciliationGrace)
	if err != nil {
		logger.Error("listing stale tracked jobs", "error", err)
		return
	}

	for _, job := range stale {
		result, err := jobberClient.GetJobStatus(ctx, job.JobID)
		if err != nil {
			logger.Warn("polling stale job status", "job_id", job.JobID, "error", err)
			continue
		}
		if result.Status == string(jobber.JobPending) {
			continue
		}

		logger.Info("reconciled dropped callback", "job_id", job.JobID, "session_id", job.SessionID, "status", result.Status)
		if err := tracker.Untrack(ctx, job.JobID); err != nil {
			logger.Warn("untracking reconciled job", "job_id", job.JobID, "error", err)
		}
		if job.SessionID == "" {
			continue
		}
		msg := stream.Message{
			Type:      stream.MsgJobUpdate,
			SessionID: job.SessionID,
			Payload: jobber.CallbackPayload{
				JobID:     job.JobID,
				SessionID: job.SessionID,
				Status:    jobber.JobStatus(result.Status),
				Progress:  result.Progress,
				Error:     result.Error,
			},
		}
		if err := stream.PublishRemote(ctx, rdb, msg); err != nil {
			logger.Warn("publishing reconciled job update", "job_id", job.JobID, "error", err)
		}
	}
}
