package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"picnichub/cmd/buildCFG"
	"picnichub/internal/api/api"
	"picnichub/internal/auth"
	rabbitReader "picnichub/internal/consumerWorker"
	"picnichub/internal/lifecycle"
	"picnichub/internal/mailer"
	"picnichub/internal/notify"
	"picnichub/internal/rabbit"
	"picnichub/internal/repo"
	"picnichub/internal/service"
)

type stack struct {
	repository repo.Repository
	notifier   notify.Notifier
	cleanup    []func()
}

func (s *stack) onShutdown(f func()) {
	s.cleanup = append(s.cleanup, f)
}

// shutdown runs cleanups in reverse registration order.
func (s *stack) shutdown() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", ""); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)

	st := &stack{}
	workerCtx, cancelWorkers := context.WithCancel(context.Background())

	if err := setupStorage(cfg, &log, st); err != nil {
		log.Fatal().Err(err).Msg("failed to set up storage")
	}
	if err := setupNotifications(workerCtx, cfg, &log, st); err != nil {
		log.Fatal().Err(err).Msg("failed to set up notifications")
	}

	adminCfg, err := buildCFG.BuildAdminConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load admin config")
	}
	sessions := auth.NewSessions(adminCfg.Username, adminCfg.Password, adminCfg.ID, adminCfg.SessionSecret, adminCfg.SessionTTL)

	manager := lifecycle.NewManager(st.repository, st.notifier, &log, lifecycle.WithAdmin(adminCfg.ID, adminCfg.Email))
	serviceInstance := service.NewService(manager, sessions, &log)
	app := api.NewRouters(&api.Routers{Service: serviceInstance, Sessions: sessions, Mode: serverCfg.Mode})

	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	cancelWorkers()
	st.shutdown()
	log.Info().Msg("Shutdown complete")
}

func setupStorage(cfg *config.Config, log *zerolog.Logger, st *stack) error {
	storageCfg, err := buildCFG.BuildStorageConfig(cfg, log)
	if err != nil {
		return err
	}

	if storageCfg.Driver == buildCFG.StorageMemory {
		st.repository = repo.NewMemory()
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return nil
	}

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, log)
	if err != nil {
		return fmt.Errorf("build DB config: %w", err)
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		return fmt.Errorf("connect to DB: %w", err)
	}
	if err := db.Master.Ping(); err != nil {
		return fmt.Errorf("DB ping: %w", err)
	}
	log.Info().Msg("Database connected successfully")

	repository, err := repo.NewRepository(db, log)
	if err != nil {
		return fmt.Errorf("initialize repository: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	migrationPath := filepath.Join(cwd, "migrations/postgres")
	if err := repository.MigrateUp(migrationPath); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	log.Info().Msg("Migrations applied successfully")

	st.repository = repository
	st.onShutdown(func() {
		if storageCfg.ResetOnShutdown {
			log.Info().Msg("Rolling back migrations...")
			if err := repository.MigrateDown(migrationPath); err != nil {
				log.Error().Err(err).Msg("failed to rollback migrations")
			}
		}
		if err := db.Master.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	})
	return nil
}

func setupNotifications(ctx context.Context, cfg *config.Config, log *zerolog.Logger, st *stack) error {
	notifyCfg, err := buildCFG.BuildNotifyConfig(cfg, log)
	if err != nil {
		return err
	}
	smtpCfg := buildCFG.BuildSMTPConfig(cfg, log)
	mail := mailer.New(mailer.Config{
		Host:     smtpCfg.Host,
		Port:     smtpCfg.Port,
		Username: smtpCfg.Username,
		Password: smtpCfg.Password,
		From:     smtpCfg.From,
	}, log)

	if notifyCfg.Transport == buildCFG.TransportInProcess {
		dispatcher := notify.NewDispatcher(notifyCfg.Buffer, mail.Deliver, log)
		dispatcher.Start(ctx)
		st.notifier = dispatcher
		st.onShutdown(dispatcher.Stop)
		return nil
	}

	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, log)
	if err != nil {
		return fmt.Errorf("load RabbitMQ config: %w", err)
	}
	rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	st.onShutdown(rmq.Close)

	reader := rabbitReader.NewReader(rmq, mail.Deliver, log)
	reader.Start(ctx)
	st.onShutdown(reader.Stop)

	st.notifier = notify.NewRabbitNotifier(rmq)
	return nil
}
