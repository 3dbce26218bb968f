package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
type VentaFilter struct {
	Fecha     string `form:"fecha"` // YYYY-MM-DD local; empty = today
	UsuarioID string `form:"usuario_id"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemVentaRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
}

type RegistrarVentaRequest struct {
	ClienteNit    *string            `json:"cliente_nit"    validate:"omitempty,max=20"`
	ClienteNombre *string            `json:"cliente_nombre"`
	TipoOrden     string             `json:"tipo_orden"     validate:"required,oneof=mesa llevar delivery"`
	MetodoPago    string             `json:"metodo_pago"    validate:"required,oneof=efectivo qr"`
	NumeroMesa    *int               `json:"numero_mesa"    validate:"omitempty,min=1"`
	Observaciones *string            `json:"observaciones"`
	Items         []ItemVentaRequest `json:"items"          validate:"required,min=1,dive"`
	MontoPagado   decimal.Decimal    `json:"monto_pagado"   validate:"required,gt=0"`
	// ClienteEmail: optional — when present, the impresion worker mails the PDF receipt.
	ClienteEmail *string `json:"cliente_email" validate:"omitempty,email"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DetalleVentaResponse struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type VentaResponse struct {
	ID            string                 `json:"id"`
	NumeroTicket  int                    `json:"numero_ticket"`
	ClienteNit    *string                `json:"cliente_nit,omitempty"`
	ClienteNombre *string                `json:"cliente_nombre,omitempty"`
	TipoOrden     string                 `json:"tipo_orden"`
	MetodoPago    string                 `json:"metodo_pago"`
	NumeroMesa    *int                   `json:"numero_mesa,omitempty"`
	Observaciones *string                `json:"observaciones,omitempty"`
	Items         []DetalleVentaResponse `json:"items"`
	Subtotal      decimal.Decimal        `json:"subtotal"`
	Total         decimal.Decimal        `json:"total"`
	MontoPagado   decimal.Decimal        `json:"monto_pagado"`
	Vuelto        decimal.Decimal        `json:"vuelto"`
	UsuarioID     string                 `json:"usuario_id"`
	CajeroNombre  string                 `json:"cajero_nombre,omitempty"`
	// CreatedAt is the local ticket timestamp (YYYY-MM-DD HH:MM:SS).
	CreatedAt string `json:"created_at"`
}
