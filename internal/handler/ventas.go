package handler

import (
	"errors"
	"net/http"

	"sazonpos/internal/apierror"
	"sazonpos/internal/dto"
	"sazonpos/internal/middleware"
	"sazonpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type VentasHandler struct {
	svc    service.VentaService
	turnos *service.TurnoTracker
}

func NewVentasHandler(svc service.VentaService, turnos *service.TurnoTracker) *VentasHandler {
	return &VentasHandler{svc: svc, turnos: turnos}
}

// RegistrarVenta godoc
// @Summary      Registrar una nueva venta
// @Description  Crea una venta atómica (cabecera + detalles + número de ticket) y despacha la impresión del ticket de forma asíncrona.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegistrarVentaRequest true "Detalle de la venta"
// @Success      201  {object} dto.VentaResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/ventas [post]
func (h *VentasHandler) RegistrarVenta(c *gin.Context) {
	var req dto.RegistrarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	usuarioID, _ := uuid.Parse(claims.UserID)

	// Day-rollover / cashier-handoff bookkeeping. Advisory only: its errors
	// are logged inside and never block the sale.
	h.turnos.Registrar(c.Request.Context(), usuarioID)

	resp, err := h.svc.RegistrarVenta(c.Request.Context(), usuarioID, req)
	if err != nil {
		if errors.Is(err, service.ErrSinSesionActiva) {
			c.JSON(http.StatusConflict, apierror.New(err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ObtenerVenta godoc
// @Summary      Obtener una venta
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la venta"
// @Success      200 {object} dto.VentaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/ventas/{id} [get]
func (h *VentasHandler) ObtenerVenta(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.svc.ObtenerVenta(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("Venta no encontrada"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarVentas godoc
// @Summary      Listar ventas
// @Description  Retorna lista paginada de ventas filtrada por fecha y cajero.
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        fecha      query string false "Fecha YYYY-MM-DD (default: hoy)"
// @Param        usuario_id query string false "UUID del cajero"
// @Param        page       query int    false "Página (default 1)"
// @Param        limit      query int    false "Registros por página (default 50)"
// @Success      200    {object} dto.VentaListResponse
// @Failure      400    {object} apierror.APIError
// @Router       /v1/ventas [get]
func (h *VentasHandler) ListarVentas(c *gin.Context) {
	var filter dto.VentaFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.ListVentas(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Error al listar ventas"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
