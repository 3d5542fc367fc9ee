package worker

// retry_cron.go
// Background goroutine that periodically re-attempts agenda updates for
// cita_syncs stuck in estado='pendiente' with a next_retry_at in the past.
// Uses the Circuit Breaker to avoid hammering a downed agenda service.

import (
	"context"
	"fmt"
	"time"

	"github.com/juan135072/chamos-barber-app-sub003/internal/infra"
	"github.com/juan135072/chamos-barber-app-sub003/internal/model"
	"github.com/juan135072/chamos-barber-app-sub003/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10

	// MaxCitaSyncRetries is the attempt ceiling before a sync moves to
	// estado='error' and the DLQ.
	MaxCitaSyncRetries = 5
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	CitaSyncRepo repository.CitaSyncRepository
	CitasClient  *infra.CitasClient
	CB           *infra.CircuitBreaker
	RDB          *redis.Client
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries pending cita syncs, and re-attempts agenda calls through the CB.
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
	// If CB is open, skip entirely — don't hammer a downed agenda
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	now := time.Now()
	syncs, err := cfg.CitaSyncRepo.ListPendingRetries(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}

	if len(syncs) == 0 {
		return
	}

	log.Info().Int("count", len(syncs)).Msg("retry_cron: processing pending cita syncs")

	for i := range syncs {
		sync := &syncs[i]

		// Check CB state before each call — it may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}

		cbErr := cfg.CB.Execute(func() error {
			return EjecutarCitaSync(ctx, cfg.CitasClient, sync)
		})

		if cbErr != nil {
			sync.RetryCount++
			errMsg := cbErr.Error()
			sync.LastError = &errMsg
			nextRetry := time.Now().Add(computeRetryBackoff(sync.RetryCount))
			sync.NextRetryAt = &nextRetry

			if sync.RetryCount >= MaxCitaSyncRetries {
				sync.Estado = "error"
				sync.NextRetryAt = nil
				log.Error().
					Str("cita_sync_id", sync.ID.String()).
					Str("cita_id", sync.CitaID.String()).
					Int("retries", sync.RetryCount).
					Msg("retry_cron: max retries exceeded, moving to error/DLQ")

				payload := fmt.Sprintf(`{"cita_sync_id":"%s","cita_id":"%s","accion":"%s"}`,
					sync.ID, sync.CitaID, sync.Accion)
				SendToDLQ(ctx, cfg.RDB, "cita_sync", sync.Accion, []byte(payload),
					fmt.Sprintf("max retries (%d) exceeded: %s", MaxCitaSyncRetries, errMsg),
					sync.RetryCount)
			} else {
				log.Warn().
					Str("cita_sync_id", sync.ID.String()).
					Int("retry_count", sync.RetryCount).
					Time("next_retry_at", *sync.NextRetryAt).
					Msg("retry_cron: agenda retry failed, scheduled next attempt")
			}

			_ = cfg.CitaSyncRepo.Update(ctx, sync)
			continue
		}

		sync.Estado = "completado"
		sync.NextRetryAt = nil
		sync.LastError = nil
		_ = cfg.CitaSyncRepo.Update(ctx, sync)

		log.Info().
			Str("cita_sync_id", sync.ID.String()).
			Str("accion", sync.Accion).
			Int("total_retries", sync.RetryCount).
			Msg("retry_cron: cita sync landed after retry")
	}
}

// EjecutarCitaSync performs the agenda call a CitaSync row describes.
// Shared by the retry cron and the inline first attempt after void/correction.
func EjecutarCitaSync(ctx context.Context, client *infra.CitasClient, sync *model.CitaSync) error {
	switch sync.Accion {
	case model.SyncEstadoPago:
		estado := "pendiente"
		if sync.EstadoPago != nil {
			estado = *sync.EstadoPago
		}
		return client.ActualizarEstadoPago(ctx, sync.CitaID.String(), estado)
	case model.SyncBarberoServicio:
		var barberoID, servicioID *string
		if sync.BarberoID != nil {
			s := sync.BarberoID.String()
			barberoID = &s
		}
		if sync.ServicioID != nil {
			s := sync.ServicioID.String()
			servicioID = &s
		}
		return client.ActualizarBarberoServicio(ctx, sync.CitaID.String(), barberoID, servicioID)
	default:
		return fmt.Errorf("accion desconocida: %s", sync.Accion)
	}
}

// computeRetryBackoff returns the wait before the next attempt: 1m, 2m, 4m …
// capped at 30m.
func computeRetryBackoff(retryCount int) time.Duration {
	backoff := time.Minute * time.Duration(1<<uint(retryCount-1))
	if backoff > 30*time.Minute {
		backoff = 30 * time.Minute
	}
	return backoff
}
