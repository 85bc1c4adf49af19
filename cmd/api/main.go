package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bagaskara/sentrascan/internal/application"
	appanalysis "github.com/bagaskara/sentrascan/internal/application/analysis"
	appscans "github.com/bagaskara/sentrascan/internal/application/scans"
	"github.com/bagaskara/sentrascan/internal/config"
	domanalysis "github.com/bagaskara/sentrascan/internal/domain/analysis"
	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
	aiopenai "github.com/bagaskara/sentrascan/internal/infra/ai/openai"
	mysqlp "github.com/bagaskara/sentrascan/internal/infra/db/mysql"
	postgresp "github.com/bagaskara/sentrascan/internal/infra/db/postgres"
	dockerrunner "github.com/bagaskara/sentrascan/internal/infra/executor/docker"
	"github.com/bagaskara/sentrascan/internal/infra/httpserver"
	minioStore "github.com/bagaskara/sentrascan/internal/infra/storage"
	"github.com/bagaskara/sentrascan/internal/infra/tools"
	"github.com/bagaskara/sentrascan/internal/middleware"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	ctx := context.Background()

	var db *sql.DB
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
	}
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("database connect error")
	}
	defer db.Close()

	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("minio init error")
	}

	runner := dockerrunner.NewRunner(cfg.StageTimeout())

	scansSvc, analysisSvc := buildServices(cfg, db, store, runner)

	if err := scansSvc.EnsureTools(ctx); err != nil {
		log.Fatal().Err(err).Msg("tool registry bootstrap error")
	}

	handler := httpserver.NewRouter(scansSvc, analysisSvc, map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func buildServices(cfg *config.Config, db *sql.DB, store *minioStore.Store, runner *dockerrunner.Runner) (*appscans.Service, *appanalysis.Service) {
	var (
		jobs     domain.JobRepository
		targets  domain.TargetRepository
		toolRepo domain.ToolRepository
		execs    domain.ExecutionRepository
		findings domain.FindingRepository
		vulns    domain.VulnerabilityRepository
		analyses domanalysis.Repository
	)

	if cfg.Database.Driver == "postgres" {
		jobs = postgresp.NewJobRepository(db)
		targets = postgresp.NewTargetRepository(db)
		toolRepo = postgresp.NewToolRepository(db)
		execs = postgresp.NewExecutionRepository(db)
		findings = postgresp.NewFindingRepository(db)
		vulns = postgresp.NewVulnerabilityRepository(db)
		analyses = postgresp.NewAnalysisRepository(db)
	} else {
		jobs = mysqlp.NewJobRepository(db)
		targets = mysqlp.NewTargetRepository(db)
		toolRepo = mysqlp.NewToolRepository(db)
		execs = mysqlp.NewExecutionRepository(db)
		findings = mysqlp.NewFindingRepository(db)
		vulns = mysqlp.NewVulnerabilityRepository(db)
		analyses = mysqlp.NewAnalysisRepository(db)
	}

	clock := application.SystemClock{}
	catalog := appscans.NewCatalog(vulns)
	stages := &appscans.StageExecutor{
		Execs:      execs,
		Findings:   findings,
		Normalizer: &appscans.Normalizer{Catalog: catalog},
		Artifacts:  store,
		Clock:      clock,
	}
	scansSvc := &appscans.Service{
		Jobs:     jobs,
		Targets:  targets,
		Tools:    toolRepo,
		Adapters: tools.NewRegistry(runner),
		Stages:   stages,
		Clock:    clock,
	}
	analysisSvc := &appanalysis.Service{
		Client:   aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
		Jobs:     jobs,
		Targets:  targets,
		Execs:    execs,
		Findings: findings,
		Analyses: analyses,
		Model:    cfg.OpenAI.Model,
		Clock:    clock,
	}
	return scansSvc, analysisSvc
}
