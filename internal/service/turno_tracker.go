package service

import (
	"context"
	"sync"

	"sazonpos/internal/clock"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TurnoTracker watches the request boundary for day rollover and cashier
// handoff. It holds one small piece of process-wide state — the cashier last
// seen and the business day they were seen on — injected where needed instead
// of living in a package-level global.
//
// Bookkeeping is advisory: every store error is logged and swallowed so the
// sale request underneath always proceeds. Ticket-number correctness is
// enforced by SesionTicketService/VentaService, not here.
type TurnoTracker struct {
	mu            sync.Mutex
	usuarioActual *uuid.UUID
	fechaActual   string

	sesiones SesionTicketService
	clk      clock.Clock
}

func NewTurnoTracker(sesiones SesionTicketService, clk clock.Clock) *TurnoTracker {
	return &TurnoTracker{sesiones: sesiones, clk: clk}
}

// Registrar is called ahead of the coordinator on every sales request.
// Transitions:
//   - day changed  → close every session from prior days, forget the cashier
//   - user changed → close the previous cashier's session for today
//   - same user, same day → no-op
//
// The tracked state always ends as (usuarioID, today).
func (t *TurnoTracker) Registrar(ctx context.Context, usuarioID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hoy := t.clk.Today()

	if t.fechaActual != "" && t.fechaActual != hoy {
		cerradas, err := t.sesiones.IniciarNuevoDia(ctx, hoy)
		if err != nil {
			log.Error().Err(err).Str("fecha", hoy).Msg("turno: no se pudieron cerrar las sesiones del día anterior")
		} else if cerradas > 0 {
			log.Info().Int64("sesiones_cerradas", cerradas).Str("fecha", hoy).Msg("turno: nuevo día iniciado")
		}
		t.usuarioActual = nil
	}

	if t.usuarioActual != nil && *t.usuarioActual != usuarioID {
		anterior := *t.usuarioActual
		if err := t.sesiones.CerrarSesionUsuario(ctx, anterior, hoy); err != nil {
			log.Error().Err(err).Str("usuario_id", anterior.String()).Msg("turno: no se pudo cerrar la sesión del cajero saliente")
		}
		// Informational only: whether the incoming cashier resumes numbering.
		if tuvo, err := t.sesiones.TuvoActividad(ctx, usuarioID, hoy); err == nil && tuvo {
			log.Info().Str("usuario_id", usuarioID.String()).Str("fecha", hoy).Msg("turno: el cajero entrante retoma numeración previa del día")
		}
	}

	t.usuarioActual = &usuarioID
	t.fechaActual = hoy
}

// Actual returns the tracked cashier and day, for the health/debug surface.
func (t *TurnoTracker) Actual() (usuarioID *uuid.UUID, fecha string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.usuarioActual == nil {
		return nil, t.fechaActual
	}
	u := *t.usuarioActual
	return &u, t.fechaActual
}
