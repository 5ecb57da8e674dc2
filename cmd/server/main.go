// auditbot - conversational security-audit orchestrator
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/slack-go/slack"

	"github.com/nvolkov/auditbot/internal/agent"
	"github.com/nvolkov/auditbot/internal/api"
	"github.com/nvolkov/auditbot/internal/chatws"
	"github.com/nvolkov/auditbot/internal/config"
	"github.com/nvolkov/auditbot/internal/dialog"
	"github.com/nvolkov/auditbot/internal/middleware"
	"github.com/nvolkov/auditbot/internal/questionnaire"
	"github.com/nvolkov/auditbot/internal/session"
	"github.com/nvolkov/auditbot/internal/slackbot"
	"github.com/nvolkov/auditbot/internal/store"
	"github.com/nvolkov/auditbot/internal/tools"
	"github.com/nvolkov/auditbot/internal/transcript"
	"github.com/nvolkov/auditbot/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	transcriptLog, err := transcript.New(transcript.Config{
		Enabled:   cfg.Transcript.Enabled,
		Dir:       cfg.Transcript.Dir,
		QueueSize: cfg.Transcript.QueueSize,
	})
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcriptLog.Close(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	// External capabilities.
	jenkins := tools.NewJenkinsClient(cfg.Jenkins)
	mobsf := tools.NewMobSFClient(cfg.MobSF)
	nmap := tools.NewNmapRunner(cfg.NmapPath)

	toolset := []agent.Tool{
		{
			Spec: agent.ToolSpec{
				Name:        "run_jenkins_job",
				Description: "Trigger the Jenkins security test job against an endpoint URL",
				ArgName:     "endpoint",
				ArgHint:     "URL of the endpoint to scan",
			},
			Run: jenkins.TriggerBuild,
		},
		{
			Spec: agent.ToolSpec{
				Name:        "run_nmap_scan",
				Description: "Run an nmap version-detection scan against a host or URL",
				ArgName:     "target",
				ArgHint:     "hostname, IP address, or URL to scan",
			},
			Run: nmap.Scan,
		},
		{
			Spec: agent.ToolSpec{
				Name:        "run_mobsf_scan",
				Description: "Submit a mobile application package to MobSF for static analysis",
				ArgName:     "file_url",
				ArgHint:     "direct download URL of the APK or IPA file",
			},
			Run: mobsf.UploadAndScan,
		},
	}

	// The agent path degrades to a fixed message without a credential.
	var decider agent.Decider
	if d := agent.NewOpenAIDecider(cfg.OpenAIAPIKey, cfg.OpenAIModel); d != nil {
		decider = d
		slog.Info("Agent enabled", "model", cfg.OpenAIModel)
	} else {
		slog.Info("Agent disabled (OPENAI_API_KEY not set)")
	}

	// Core dialog layer.
	sessions := session.NewTable()
	engine := questionnaire.NewEngine(repo, jenkins, mobsf)
	bridge := agent.NewBridge(decider, toolset, cfg.HistoryLimit)
	router := dialog.NewRouter(sessions, engine, bridge)

	// Handlers.
	apiHandler := api.NewHandler(router, repo, transcriptLog)
	wsHandler := chatws.NewHandler(router, transcriptLog, cfg.AllowOrigins, isDevOrigins(cfg.AllowOrigins))

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowOrigins))

	apiHandler.RegisterRoutes(r)
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	if cfg.SlackEnabled() {
		slackHandler := slackbot.NewHandler(router, slack.New(cfg.Slack.BotToken), transcriptLog, cfg.Slack.SigningSecret)
		r.Post("/slack/events", slackHandler.ServeHTTP)
		slog.Info("Slack transport enabled")
	} else {
		slog.Info("Slack transport disabled (SLACK_BOT_TOKEN or SLACK_SIGNING_SECRET not set)")
	}

	// Serve the embedded chat widget.
	r.Handle("/*", web.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // external calls (nmap, LLM) can legitimately take minutes
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// isDevOrigins reports whether origin checking should be relaxed, which is
// only the case for a wildcard configuration.
func isDevOrigins(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
