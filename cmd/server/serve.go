package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tinbox/internal/guard"
	"tinbox/internal/handler"
	"tinbox/internal/infrastructure/mq"
	"tinbox/internal/job"
	"tinbox/internal/logging"
	"tinbox/internal/pending"
	"tinbox/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, log := a.cfg, a.log

	if err := a.store.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize record store: %w", err)
	}

	g, err := guard.New(cfg.Guard.Secret)
	if err != nil {
		return err
	}

	var pendingStore pending.Store
	if cfg.Pending.Driver == "redis" {
		pendingStore = pending.NewRedisStore(a.redis)
	} else {
		memory := pending.NewMemoryStore()
		sweeper := job.NewPendingSweeper(memory, cfg.Pending.SweepInterval, log)
		go sweeper.Start(ctx)
		pendingStore = memory
	}

	if a.outbox != nil {
		producer, err := mq.NewSyncProducer(&cfg.Kafka, log)
		if err != nil {
			return err
		}
		publisher := mq.NewPublisher(producer)
		defer func() {
			if err := publisher.Close(); err != nil {
				logging.LogError(log, "serve", "close", "kafka", err)
			}
		}()

		sender := job.NewOutboxSender(a.outbox, publisher, cfg.Kafka.PollInterval, cfg.Kafka.MaxRetryCount, log)
		go sender.Start(ctx)
	}

	svc := service.NewDonationService(a.store, g, pendingStore, cfg.Pending.TTL, log)
	router := handler.SetupRouter(handler.NewHandler(svc, cfg.XLSX.Sheet, log), &cfg.Server, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-serverErr:
		logging.LogError(log, "serve", "ListenAndServe", cfg.Server.Port, err)
		return err
	}

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.LogError(log, "serve", "Shutdown", nil, err)
		return err
	}

	log.Info("server stopped")
	return nil
}
