package handler

import (
	"net/http"

	"sazonpos/internal/apierror"
	"sazonpos/internal/clock"
	"sazonpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReportesHandler struct {
	svc service.SesionTicketService
	clk clock.Clock
}

func NewReportesHandler(svc service.SesionTicketService, clk clock.Clock) *ReportesHandler {
	return &ReportesHandler{svc: svc, clk: clk}
}

// Diario godoc
// @Summary      Resumen diario de sesiones de tickets
// @Description  Totales del día por cajero: tickets emitidos, ventas y monto, sumando sesiones abiertas y cerradas.
// @Tags         reportes
// @Produce      json
// @Security     BearerAuth
// @Param        fecha query string false "Fecha YYYY-MM-DD (default: hoy)"
// @Success      200 {object} dto.ResumenDiarioResponse
// @Failure      500 {object} apierror.APIError
// @Router       /v1/reportes/diario [get]
func (h *ReportesHandler) Diario(c *gin.Context) {
	fecha := c.Query("fecha")
	if fecha == "" {
		fecha = h.clk.Today()
	}
	resp, err := h.svc.ResumenDiario(c.Request.Context(), fecha)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Error al generar el resumen diario"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Sesiones godoc
// @Summary      Estadísticas de sesión por cajero
// @Tags         reportes
// @Produce      json
// @Security     BearerAuth
// @Param        usuario_id query string true  "UUID del cajero"
// @Param        fecha      query string false "Fecha YYYY-MM-DD (default: hoy)"
// @Success      200 {object} dto.EstadisticasSesionResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/reportes/sesiones [get]
func (h *ReportesHandler) Sesiones(c *gin.Context) {
	usuarioID, err := uuid.Parse(c.Query("usuario_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("usuario_id invalido"))
		return
	}
	fecha := c.Query("fecha")
	if fecha == "" {
		fecha = h.clk.Today()
	}
	resp, err := h.svc.EstadisticasUsuario(c.Request.Context(), usuarioID, fecha)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Error al consultar estadísticas"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
