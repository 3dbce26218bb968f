package dto

import "github.com/shopspring/decimal"

// EstadisticasSesionResponse aggregates one user's ticket sessions for a day.
type EstadisticasSesionResponse struct {
	UsuarioID          string          `json:"usuario_id"`
	Fecha              string          `json:"fecha"`
	Sesiones           int             `json:"sesiones"`
	SesionActiva       bool            `json:"sesion_activa"`
	UltimoNumeroTicket int             `json:"ultimo_numero_ticket"`
	TotalVentas        int             `json:"total_ventas"`
	TotalMonto         decimal.Decimal `json:"total_monto"`
}

type ResumenUsuario struct {
	UsuarioID          string          `json:"usuario_id"`
	Nombre             string          `json:"nombre"`
	Sesiones           int             `json:"sesiones"`
	UltimoNumeroTicket int             `json:"ultimo_numero_ticket"`
	TotalVentas        int             `json:"total_ventas"`
	TotalMonto         decimal.Decimal `json:"total_monto"`
}

// ResumenDiarioResponse is the per-day report across every cashier.
type ResumenDiarioResponse struct {
	Fecha           string           `json:"fecha"`
	Sesiones        int              `json:"sesiones"`
	SesionesActivas int              `json:"sesiones_activas"`
	TotalVentas     int              `json:"total_ventas"`
	TotalMonto      decimal.Decimal  `json:"total_monto"`
	PorUsuario      []ResumenUsuario `json:"por_usuario"`
}
