package worker

// retry_cron.go
// Background goroutine that periodically re-attempts printing for
// trabajos stuck in estado='pendiente' with a next_retry_at in the past.
// Uses the Circuit Breaker to avoid hammering a downed printer bridge.

import (
	"context"
	"fmt"
	"time"

	"sazonpos/internal/clock"
	"sazonpos/internal/infra"
	"sazonpos/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10

	// MaxImpresionRetries is the cron retry budget on top of the worker's
	// inline attempts. After this the trabajo is marked error and DLQ'd.
	MaxImpresionRetries = 5
)

// computeRetryBackoff spaces cron retries: 1m, 2m, 4m … capped at 15m.
func computeRetryBackoff(retryCount int) time.Duration {
	backoff := time.Minute << uint(retryCount-1)
	if backoff > 15*time.Minute {
		backoff = 15 * time.Minute
	}
	return backoff
}

// RetryCronConfig holds all dependencies for the reprint goroutine.
type RetryCronConfig struct {
	ImpresionRepo repository.ImpresionRepository
	VentaRepo     repository.VentaRepository
	Printer       *infra.PrinterClient
	CB            *infra.CircuitBreaker
	RDB           *redis.Client
	Clk           clock.Clock
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries pending trabajos, and re-attempts printing through the CB.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed printer
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	now := cfg.Clk.Now()
	trabajos, err := cfg.ImpresionRepo.ListPendingRetries(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}

	if len(trabajos) == 0 {
		return
	}

	log.Info().Int("count", len(trabajos)).Msg("retry_cron: processing pending trabajos")

	for i := range trabajos {
		trabajo := &trabajos[i]

		// Check CB state before each call — it may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}

		venta, err := cfg.VentaRepo.FindByID(ctx, trabajo.VentaID)
		if err != nil {
			log.Error().Err(err).
				Str("trabajo_id", trabajo.ID.String()).
				Str("venta_id", trabajo.VentaID.String()).
				Msg("retry_cron: venta not found for trabajo")
			continue
		}

		ticket := BuildTicketPayload(venta, cfg.Clk)

		cbErr := cfg.CB.Execute(func() error {
			_, err := cfg.Printer.Imprimir(ctx, ticket)
			return err
		})

		if cbErr != nil {
			// Failure — increment retry count, schedule next attempt
			trabajo.RetryCount++
			errMsg := cbErr.Error()
			trabajo.LastError = &errMsg
			nextRetry := cfg.Clk.Now().Add(computeRetryBackoff(trabajo.RetryCount))
			trabajo.NextRetryAt = &nextRetry

			if trabajo.RetryCount >= MaxImpresionRetries {
				trabajo.Estado = "error"
				trabajo.NextRetryAt = nil
				log.Error().
					Str("trabajo_id", trabajo.ID.String()).
					Str("venta_id", trabajo.VentaID.String()).
					Int("retries", trabajo.RetryCount).
					Msg("retry_cron: max retries exceeded, moving to error/DLQ")

				// Send to DLQ for manual inspection
				payload := fmt.Sprintf(`{"venta_id":"%s","trabajo_id":"%s"}`, trabajo.VentaID, trabajo.ID)
				SendToDLQ(ctx, cfg.RDB, QueueImpresion, "impresion", []byte(payload),
					fmt.Sprintf("max retries (%d) exceeded: %s", MaxImpresionRetries, errMsg),
					trabajo.RetryCount)
			} else {
				log.Warn().
					Str("trabajo_id", trabajo.ID.String()).
					Int("retry_count", trabajo.RetryCount).
					Time("next_retry_at", *trabajo.NextRetryAt).
					Msg("retry_cron: reprint failed, scheduled next attempt")
			}

			_ = cfg.ImpresionRepo.Update(ctx, trabajo)
			continue
		}

		// Success path
		trabajo.Estado = "impreso"
		trabajo.NextRetryAt = nil
		trabajo.LastError = nil
		_ = cfg.ImpresionRepo.Update(ctx, trabajo)

		log.Info().
			Int("numero_ticket", venta.NumeroTicket).
			Str("trabajo_id", trabajo.ID.String()).
			Int("total_retries", trabajo.RetryCount).
			Msg("retry_cron: ticket printed after retry")
	}
}
