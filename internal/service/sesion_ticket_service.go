package service

import (
	"context"
	"errors"

	"sazonpos/internal/clock"
	"sazonpos/internal/dto"
	"sazonpos/internal/model"
	"sazonpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrSinSesionActiva is returned when a counter increment finds no active
// session to update. The increment NEVER creates a session implicitly: the
// number already printed on the physical ticket must match the persisted
// counter, so a missing session is a hard error for the whole sale.
var ErrSinSesionActiva = errors.New("no hay sesión de tickets activa para el usuario")

// SesionTicketService is the single source of truth for "what ticket number
// comes next" per cashier per day. Numbering is per (usuario, fecha): it
// resumes across session close/reopen cycles within the day and never repeats
// or goes backward.
//
// ProximoNumeroTicket followed by IncrementarContador are two logical steps of
// one sale; callers must run both inside the same transaction (VentaService
// additionally serializes sales per user).
type SesionTicketService interface {
	// ObtenerOCrearSesion returns the active session for (usuario, fecha),
	// creating one if none exists. A fresh session starts from the maximum
	// ultimo_numero_ticket across ALL of the user's sessions that day, so a
	// cashier returning after a shift handoff continues where they left off.
	ObtenerOCrearSesion(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string) (*model.SesionTicket, error)
	// ProximoNumeroTicket returns ultimo_numero_ticket + 1 of the active
	// session (creating one if needed) without mutating the counter.
	ProximoNumeroTicket(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string) (int, error)
	// IncrementarContador atomically applies ultimo_numero_ticket += 1,
	// total_ventas += 1, total_monto += monto to the active session and
	// returns the new ultimo_numero_ticket. Fails with ErrSinSesionActiva
	// when no active session exists.
	IncrementarContador(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string, monto decimal.Decimal) (int, error)
	// CerrarSesionUsuario deactivates the user's active session for fecha.
	// Idempotent: closing with none active is a no-op success.
	CerrarSesionUsuario(ctx context.Context, usuarioID uuid.UUID, fecha string) error
	// IniciarNuevoDia deactivates every still-active session dated before
	// fecha, leaving fecha's own sessions untouched. Returns how many closed.
	IniciarNuevoDia(ctx context.Context, fecha string) (int64, error)
	// TuvoActividad reports whether the user already issued tickets on fecha
	// under any session, active or closed.
	TuvoActividad(ctx context.Context, usuarioID uuid.UUID, fecha string) (bool, error)
	ResumenDiario(ctx context.Context, fecha string) (*dto.ResumenDiarioResponse, error)
	EstadisticasUsuario(ctx context.Context, usuarioID uuid.UUID, fecha string) (*dto.EstadisticasSesionResponse, error)
}

type sesionTicketService struct {
	repo repository.SesionTicketRepository
	clk  clock.Clock
}

func NewSesionTicketService(repo repository.SesionTicketRepository, clk clock.Clock) SesionTicketService {
	return &sesionTicketService{repo: repo, clk: clk}
}

func (s *sesionTicketService) ObtenerOCrearSesion(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string) (*model.SesionTicket, error) {
	sesion, err := s.repo.FindActiva(ctx, tx, usuarioID, fecha)
	if err == nil {
		return sesion, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Resumption: the highest number issued that day wins, across every prior
	// closed session, so numbering continues instead of restarting at 1.
	max, err := s.repo.MaxNumeroTicket(ctx, tx, usuarioID, fecha)
	if err != nil {
		return nil, err
	}

	nueva := &model.SesionTicket{
		Fecha:              fecha,
		UsuarioID:          usuarioID,
		UltimoNumeroTicket: max,
		TotalMonto:         decimal.Zero,
		Activa:             true,
		StartedAt:          s.clk.Now(),
	}
	if err := s.repo.Create(ctx, tx, nueva); err != nil {
		return nil, err
	}
	return nueva, nil
}

func (s *sesionTicketService) ProximoNumeroTicket(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string) (int, error) {
	sesion, err := s.ObtenerOCrearSesion(ctx, tx, usuarioID, fecha)
	if err != nil {
		return 0, err
	}
	return sesion.UltimoNumeroTicket + 1, nil
}

func (s *sesionTicketService) IncrementarContador(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, fecha string, monto decimal.Decimal) (int, error) {
	rows, err := s.repo.IncrementarContador(ctx, tx, usuarioID, fecha, monto)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, ErrSinSesionActiva
	}
	sesion, err := s.repo.FindActiva(ctx, tx, usuarioID, fecha)
	if err != nil {
		return 0, err
	}
	return sesion.UltimoNumeroTicket, nil
}

func (s *sesionTicketService) CerrarSesionUsuario(ctx context.Context, usuarioID uuid.UUID, fecha string) error {
	_, err := s.repo.CerrarActiva(ctx, usuarioID, fecha, s.clk.Now())
	return err
}

func (s *sesionTicketService) IniciarNuevoDia(ctx context.Context, fecha string) (int64, error) {
	return s.repo.CerrarAnteriores(ctx, fecha, s.clk.Now())
}

func (s *sesionTicketService) TuvoActividad(ctx context.Context, usuarioID uuid.UUID, fecha string) (bool, error) {
	max, err := s.repo.MaxNumeroTicket(ctx, nil, usuarioID, fecha)
	if err != nil {
		return false, err
	}
	return max > 0, nil
}

func (s *sesionTicketService) ResumenDiario(ctx context.Context, fecha string) (*dto.ResumenDiarioResponse, error) {
	sesiones, err := s.repo.ListByFecha(ctx, fecha)
	if err != nil {
		return nil, err
	}

	resumen := &dto.ResumenDiarioResponse{
		Fecha:      fecha,
		TotalMonto: decimal.Zero,
	}
	porUsuario := make(map[uuid.UUID]*dto.ResumenUsuario)
	var orden []uuid.UUID

	for i := range sesiones {
		ses := &sesiones[i]
		resumen.Sesiones++
		if ses.Activa {
			resumen.SesionesActivas++
		}
		resumen.TotalVentas += ses.TotalVentas
		resumen.TotalMonto = resumen.TotalMonto.Add(ses.TotalMonto)

		ru, ok := porUsuario[ses.UsuarioID]
		if !ok {
			nombre := ""
			if ses.Usuario != nil {
				nombre = ses.Usuario.Nombre
			}
			ru = &dto.ResumenUsuario{
				UsuarioID:  ses.UsuarioID.String(),
				Nombre:     nombre,
				TotalMonto: decimal.Zero,
			}
			porUsuario[ses.UsuarioID] = ru
			orden = append(orden, ses.UsuarioID)
		}
		ru.Sesiones++
		ru.TotalVentas += ses.TotalVentas
		ru.TotalMonto = ru.TotalMonto.Add(ses.TotalMonto)
		if ses.UltimoNumeroTicket > ru.UltimoNumeroTicket {
			ru.UltimoNumeroTicket = ses.UltimoNumeroTicket
		}
	}

	for _, id := range orden {
		resumen.PorUsuario = append(resumen.PorUsuario, *porUsuario[id])
	}
	return resumen, nil
}

func (s *sesionTicketService) EstadisticasUsuario(ctx context.Context, usuarioID uuid.UUID, fecha string) (*dto.EstadisticasSesionResponse, error) {
	sesiones, err := s.repo.ListByUsuarioFecha(ctx, usuarioID, fecha)
	if err != nil {
		return nil, err
	}

	stats := &dto.EstadisticasSesionResponse{
		UsuarioID:  usuarioID.String(),
		Fecha:      fecha,
		TotalMonto: decimal.Zero,
	}
	for i := range sesiones {
		ses := &sesiones[i]
		stats.Sesiones++
		stats.TotalVentas += ses.TotalVentas
		stats.TotalMonto = stats.TotalMonto.Add(ses.TotalMonto)
		if ses.UltimoNumeroTicket > stats.UltimoNumeroTicket {
			stats.UltimoNumeroTicket = ses.UltimoNumeroTicket
		}
		if ses.Activa {
			stats.SesionActiva = true
		}
	}
	return stats, nil
}
