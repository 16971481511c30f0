package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material representa un material del catálogo (global, compartido entre almacenes).
// La identidad es inmutable; precio y descripción pueden editarse. Nunca se elimina
// mientras existan movimientos que lo referencien.
type Material struct {
	ID          string
	Code        string // código único del catálogo
	Name        string
	Description string
	UnitMeasure string          // UN, KG, M, L, ...
	UnitPrice   decimal.Decimal // precio unitario de referencia
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
