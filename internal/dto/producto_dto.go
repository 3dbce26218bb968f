package dto

import "github.com/shopspring/decimal"

type ProductoFilter struct {
	Nombre    string `form:"nombre"`
	Categoria string `form:"categoria"`
	Activo    string `form:"activo"` // "true" (default) | "false" | "all"
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type CrearProductoRequest struct {
	Nombre      string          `json:"nombre"      validate:"required,min=2"`
	Descripcion *string         `json:"descripcion"`
	Categoria   string          `json:"categoria"   validate:"required"`
	Precio      decimal.Decimal `json:"precio"      validate:"required,gt=0"`
}

type ActualizarProductoRequest struct {
	Nombre      string           `json:"nombre"      validate:"omitempty,min=2"`
	Descripcion *string          `json:"descripcion"`
	Categoria   string           `json:"categoria"`
	Precio      *decimal.Decimal `json:"precio"      validate:"omitempty,gt=0"`
}

type ProductoResponse struct {
	ID          string          `json:"id"`
	Nombre      string          `json:"nombre"`
	Descripcion *string         `json:"descripcion,omitempty"`
	Categoria   string          `json:"categoria"`
	Precio      decimal.Decimal `json:"precio"`
	Activo      bool            `json:"activo"`
}

type ProductoListResponse struct {
	Data  []ProductoResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
