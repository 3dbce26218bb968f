package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sazonpos/internal/clock"
	"sazonpos/internal/dto"
	"sazonpos/internal/model"
	"sazonpos/internal/repository"
	"sazonpos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrPagoInsuficiente rejects a sale whose paid amount does not cover the total.
var ErrPagoInsuficiente = errors.New("El monto pagado es insuficiente")

// ErrVentaSinItems rejects a sale with no line items.
var ErrVentaSinItems = errors.New("La venta debe incluir al menos un producto")

type VentaService interface {
	RegistrarVenta(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
}

type ventaService struct {
	repo         repository.VentaRepository
	sesiones     SesionTicketService
	productoRepo repository.ProductoRepository
	dispatcher   *worker.Dispatcher
	clk          clock.Clock

	// userLocks serializes sale creation per cashier: two concurrent sales by
	// the same user must never observe the same "next" ticket number. Sales by
	// different users may proceed in parallel.
	userLocks sync.Map // uuid.UUID → *sync.Mutex
}

func NewVentaService(
	repo repository.VentaRepository,
	sesiones SesionTicketService,
	productoRepo repository.ProductoRepository,
	dispatcher *worker.Dispatcher,
	clk clock.Clock,
) VentaService {
	return &ventaService{
		repo:         repo,
		sesiones:     sesiones,
		productoRepo: productoRepo,
		dispatcher:   dispatcher,
		clk:          clk,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func (s *ventaService) lockFor(usuarioID uuid.UUID) *sync.Mutex {
	mu, _ := s.userLocks.LoadOrStore(usuarioID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
// Atomic sale creation:
//   1. Resolve products and compute totals (pre-flight, outside TX — nothing
//      persisted yet, so a validation failure changes no state)
//   2. Validate monto_pagado >= total
//   3. BEGIN TX: próximo número de ticket → insert venta + detalles →
//      increment session counter
//   4. COMMIT — or roll back everything; no partial sale is ever visible
//   5. (async, best-effort) enqueue receipt print job

func (s *ventaService) RegistrarVenta(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	// Guarded here too, not only at the DTO layer, so callers that bypass the
	// HTTP binding get the same rejection.
	if len(req.Items) == 0 {
		return nil, ErrVentaSinItems
	}

	// 1. Resolve products and calculate totals
	type resolvedItem struct {
		productoID uuid.UUID
		nombre     string
		precio     decimal.Decimal
		cantidad   int
		subtotal   decimal.Decimal
	}

	var resolved []resolvedItem
	subtotal := decimal.Zero

	for _, item := range req.Items {
		pid, err := uuid.Parse(item.ProductoID)
		if err != nil {
			return nil, fmt.Errorf("producto_id inválido: %w", err)
		}
		p, err := s.productoRepo.FindByID(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("producto %s no encontrado", item.ProductoID)
		}
		if !p.Activo {
			return nil, fmt.Errorf("producto %s está inactivo y no puede venderse", p.Nombre)
		}
		lineSubtotal := p.Precio.Mul(decimal.NewFromInt(int64(item.Cantidad)))
		subtotal = subtotal.Add(lineSubtotal)
		resolved = append(resolved, resolvedItem{
			productoID: pid,
			nombre:     p.Nombre,
			precio:     p.Precio,
			cantidad:   item.Cantidad,
			subtotal:   lineSubtotal,
		})
	}

	total := subtotal

	// 2. Payment sufficiency
	if req.MontoPagado.LessThan(total) {
		return nil, ErrPagoInsuficiente
	}
	vuelto := req.MontoPagado.Sub(total)

	// 3. Serialize the numbering-critical section per user, then run the
	// whole sale as one transaction.
	mu := s.lockFor(usuarioID)
	mu.Lock()
	defer mu.Unlock()

	fecha := s.clk.Today()

	var venta model.Venta
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		numeroTicket, err := s.sesiones.ProximoNumeroTicket(ctx, tx, usuarioID, fecha)
		if err != nil {
			return err
		}

		venta = model.Venta{
			ClienteNit:    req.ClienteNit,
			ClienteNombre: req.ClienteNombre,
			TipoOrden:     req.TipoOrden,
			MetodoPago:    req.MetodoPago,
			NumeroMesa:    req.NumeroMesa,
			Observaciones: req.Observaciones,
			Subtotal:      subtotal,
			Total:         total,
			MontoPagado:   req.MontoPagado,
			Vuelto:        vuelto,
			UsuarioID:     usuarioID,
			NumeroTicket:  numeroTicket,
			Fecha:         fecha,
			CreatedAt:     s.clk.Now(),
		}
		for _, r := range resolved {
			venta.Detalles = append(venta.Detalles, model.VentaDetalle{
				ProductoID:     r.productoID,
				ProductoNombre: r.nombre,
				Cantidad:       r.cantidad,
				PrecioUnitario: r.precio,
				Subtotal:       r.subtotal,
			})
		}

		if err := s.repo.Create(ctx, tx, &venta); err != nil {
			return err
		}

		confirmado, err := s.sesiones.IncrementarContador(ctx, tx, usuarioID, fecha, total)
		if err != nil {
			return err
		}
		if confirmado != numeroTicket {
			return fmt.Errorf("número de ticket desincronizado: asignado %d, contador %d", numeroTicket, confirmado)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// 4. Receipt printing — fire & forget; a print failure must never undo
	// or fail the committed sale.
	if s.dispatcher != nil {
		job := worker.ImpresionJobPayload{VentaID: venta.ID.String(), ClienteEmail: req.ClienteEmail}
		if err := s.dispatcher.EnqueueImpresion(ctx, job); err != nil {
			log.Warn().Err(err).
				Str("venta_id", venta.ID.String()).
				Int("numero_ticket", venta.NumeroTicket).
				Msg("no se pudo encolar la impresión del ticket")
		}
	}

	return s.ventaToResponse(&venta), nil
}

func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	venta, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.New("venta no encontrada")
	}
	return s.ventaToResponse(venta), nil
}

// ListVentas returns a paginated list of sales for one local business day.
// Default filter: today.
func (s *ventaService) ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.Fecha == "" {
		filter.Fecha = s.clk.Today()
	}

	ventas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		items = append(items, *s.ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *ventaService) ventaToResponse(v *model.Venta) *dto.VentaResponse {
	items := make([]dto.DetalleVentaResponse, 0, len(v.Detalles))
	for _, d := range v.Detalles {
		items = append(items, dto.DetalleVentaResponse{
			ProductoID:     d.ProductoID.String(),
			Producto:       d.ProductoNombre,
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			Subtotal:       d.Subtotal,
		})
	}
	cajero := ""
	if v.Usuario != nil {
		cajero = v.Usuario.Nombre
	}
	return &dto.VentaResponse{
		ID:            v.ID.String(),
		NumeroTicket:  v.NumeroTicket,
		ClienteNit:    v.ClienteNit,
		ClienteNombre: v.ClienteNombre,
		TipoOrden:     v.TipoOrden,
		MetodoPago:    v.MetodoPago,
		NumeroMesa:    v.NumeroMesa,
		Observaciones: v.Observaciones,
		Items:         items,
		Subtotal:      v.Subtotal,
		Total:         v.Total,
		MontoPagado:   v.MontoPagado,
		Vuelto:        v.Vuelto,
		UsuarioID:     v.UsuarioID.String(),
		CajeroNombre:  cajero,
		CreatedAt:     s.clk.Timestamp(v.CreatedAt),
	}
}
