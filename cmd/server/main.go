package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "groupgate/internal/api/http"
	"groupgate/internal/config"
	"groupgate/internal/gateway/onebot"
	"groupgate/internal/jobs"
	"groupgate/internal/logger"
	"groupgate/internal/repository"
	memorystore "groupgate/internal/repository/memory"
	"groupgate/internal/repository/postgres"
	redisstore "groupgate/internal/repository/redis"
	remotestore "groupgate/internal/repository/remote"
	"groupgate/internal/scheduler"
	"groupgate/internal/security"
	"groupgate/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	logger.Info("Starting groupgate...",
		"address", cfg.GetServerAddress(),
		"gateway", cfg.Gateway.APIURL,
		"codestore", cfg.CodeStore.Backend)

	var tokens security.TokenManager
	if cfg.CodeStore.ServiceSecret != "" {
		tokens = security.NewTokenManager(cfg.CodeStore.ServiceSecret)
	}

	// Select the code-store backend once at startup.
	var codeRepo repository.CodeRepository
	localStore := true
	switch cfg.CodeStore.Backend {
	case "postgres":
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Error("Failed to ping database", "error", err)
			log.Fatalf("Failed to ping database: %v", err)
		}
		logger.Info("Database connection established")
		codeRepo = postgres.NewStore(db)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		logger.Info("Using redis code store", "addr", cfg.Redis.Addr)
		codeRepo = redisstore.NewCodeRepository(client)
	case "remote":
		localStore = false
		logger.Info("Using remote code store", "endpoint", cfg.CodeStore.Endpoint)
		codeRepo = remotestore.NewCodeRepository(
			cfg.CodeStore.Endpoint,
			time.Duration(cfg.CodeStore.TimeoutSeconds)*time.Second,
			func() (string, error) { return tokens.IssueServiceToken("groupgate") },
		)
	default:
		logger.Info("Using in-memory code store; codes do not survive a restart")
		codeRepo = memorystore.NewCodeRepository()
	}

	verifier := service.NewVerifier(codeRepo)
	engine := service.NewPolicyEngine(cfg.Policy, verifier)

	sink := onebot.NewSink(
		cfg.Gateway.APIURL,
		cfg.Gateway.AccessToken,
		time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second,
	)

	var notify service.NotifyService
	if cfg.Notify.OnDefer {
		notify = service.NewNotifyService(
			cfg.Notify.SendGridAPIKey,
			cfg.Notify.FromEmail,
			cfg.Notify.FromName,
			cfg.Notify.ModeratorEmail,
		)
	}

	eventHandler := httpapi.NewEventHandler(engine, sink, notify)

	// The code API and admin surface are only served by the instance
	// that owns the backing store.
	var codeHandler *httpapi.CodeHandler
	var adminHandler *httpapi.AdminHandler
	if localStore {
		if tokens != nil {
			codeHandler = httpapi.NewCodeHandler(codeRepo, tokens)
		}
		if cfg.Admin.SecretHash != "" {
			provisionSvc := service.NewProvisionService(codeRepo)
			adminHandler = httpapi.NewAdminHandler(provisionSvc, codeRepo, cfg.Admin.SecretHash)
		}

		jobRunner := jobs.NewJobRunner(codeRepo, cfg)
		sched := scheduler.NewScheduler(jobRunner)
		sched.Start()
		defer sched.Stop()
	}

	router := httpapi.NewRouter(eventHandler, codeHandler, adminHandler)

	logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
	if err := http.ListenAndServe(cfg.GetServerAddress(), router); err != nil {
		logger.Error("HTTP server error", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
}
