package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sazonpos/internal/clock"
	"sazonpos/internal/config"
	"sazonpos/internal/infra"
	"sazonpos/internal/repository"
	"sazonpos/internal/router"
	"sazonpos/internal/service"
	"sazonpos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	clk, err := clock.NewSystemClock(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid timezone")
	}

	db, err := infra.NewDatabase(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Close leftover ticket sessions from previous business days before
	// taking any traffic.
	sesionRepo := repository.NewSesionTicketRepository(db)
	sesionSvc := service.NewSesionTicketService(sesionRepo, clk)
	if cerradas, err := sesionSvc.IniciarNuevoDia(ctx, clk.Today()); err != nil {
		log.Error().Err(err).Msg("startup: could not close stale ticket sessions")
	} else if cerradas > 0 {
		log.Info().Int64("sesiones_cerradas", cerradas).Str("fecha", clk.Today()).Msg("startup: stale ticket sessions closed")
	}

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	printer := infra.NewPrinterClient(cfg.PrinterBridgeURL)
	printerCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	impresionRepo := repository.NewImpresionRepository(db)
	ventaRepo := repository.NewVentaRepository(db)

	workerHandlers := worker.WorkerHandlers{
		Impresion: worker.NewImpresionWorker(printer, impresionRepo, ventaRepo, dispatcher, clk, cfg.PDFStoragePath),
		Email:     worker.NewEmailWorker(mailer),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)

	// Reprint cron — picks up trabajos stuck in pendiente with a due retry.
	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		ImpresionRepo: impresionRepo,
		VentaRepo:     ventaRepo,
		Printer:       printer,
		CB:            printerCB,
		RDB:           rdb,
		Clk:           clk,
	})

	r := router.New(cfg, db, rdb, printerCB, clk, dispatcher)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("SazónPOS backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
