package handler

import (
	"net/http"

	"sazonpos/internal/apierror"
	"sazonpos/internal/clock"
	"sazonpos/internal/middleware"
	"sazonpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SesionesHandler struct {
	svc service.SesionTicketService
	clk clock.Clock
}

func NewSesionesHandler(svc service.SesionTicketService, clk clock.Clock) *SesionesHandler {
	return &SesionesHandler{svc: svc, clk: clk}
}

// Activa godoc
// @Summary      Estadísticas de la sesión de tickets del cajero autenticado
// @Description  Retorna contadores del día (último número, total de ventas, monto) para el cajero del token. Incluye sesiones ya cerradas del mismo día.
// @Tags         sesiones
// @Produce      json
// @Security     BearerAuth
// @Param        fecha query string false "Fecha YYYY-MM-DD (default: hoy)"
// @Success      200 {object} dto.EstadisticasSesionResponse
// @Failure      500 {object} apierror.APIError
// @Router       /v1/sesiones/activa [get]
func (h *SesionesHandler) Activa(c *gin.Context) {
	claims := middleware.GetClaims(c)
	usuarioID, _ := uuid.Parse(claims.UserID)

	fecha := c.Query("fecha")
	if fecha == "" {
		fecha = h.clk.Today()
	}

	resp, err := h.svc.EstadisticasUsuario(c.Request.Context(), usuarioID, fecha)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Error al consultar la sesión"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar godoc
// @Summary      Cerrar la sesión de tickets del cajero autenticado
// @Description  Marca la sesión activa de hoy como cerrada. Idempotente: sin sesión activa responde igual 204. Una venta posterior del mismo cajero abre una sesión nueva que retoma la numeración del día.
// @Tags         sesiones
// @Security     BearerAuth
// @Success      204
// @Failure      500 {object} apierror.APIError
// @Router       /v1/sesiones/cerrar [post]
func (h *SesionesHandler) Cerrar(c *gin.Context) {
	claims := middleware.GetClaims(c)
	usuarioID, _ := uuid.Parse(claims.UserID)

	if err := h.svc.CerrarSesionUsuario(c.Request.Context(), usuarioID, h.clk.Today()); err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Error al cerrar la sesión"))
		return
	}
	c.Status(http.StatusNoContent)
}

// NuevoDia godoc
// @Summary      Forzar inicio de nuevo día
// @Description  Cierra toda sesión de tickets de fechas anteriores a hoy. Normalmente ocurre solo en el arranque o en el primer request tras medianoche; este endpoint lo fuerza manualmente.
// @Tags         sesiones
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Failure      500 {object} apierror.APIError
// @Router       /v1/sesiones/nuevo-dia [post]
func (h *SesionesHandler) NuevoDia(c *gin.Context) {
	hoy := h.clk.Today()
	cerradas, err := h.svc.IniciarNuevoDia(c.Request.Context(), hoy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Error al iniciar el nuevo día"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"fecha": hoy, "sesiones_cerradas": cerradas})
}
