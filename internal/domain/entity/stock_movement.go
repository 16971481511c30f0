package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de documento de origen de un movimiento (trazabilidad).
const (
	OriginReceipt      = "RECEIPT"       // acta de recepción
	OriginWithdrawal   = "WITHDRAWAL"    // retiro de material
	OriginPickingOrder = "PICKING_ORDER" // orden de separación
	OriginRequestItem  = "REQUEST_ITEM"  // ítem de solicitud de material
	OriginCount        = "COUNT"         // conteo físico
)

// MovementOrigin referencia al documento que originó el movimiento.
// Es trazabilidad, no integridad referencial: basta con que el documento exista.
type MovementOrigin struct {
	DocType       string
	DocID         string
	RequestItemID string // opcional: ítem de solicitud asociado (recepciones/retiros marcados)
}

// StockMovement es el registro inmutable del ledger: una sola escritura, nunca
// se actualiza ni se borra. Las correcciones son movimientos compensatorios
// nuevos (reversos), preservando el historial completo.
//
// Quantity siempre es positiva; la dirección la aporta el efecto del tipo
// (ver stock.Resolve).
type StockMovement struct {
	ID          string
	MaterialID  string
	WarehouseID string
	TypeCode    string
	Quantity    decimal.Decimal
	Origin      MovementOrigin
	Date        time.Time
	CreatedAt   time.Time
	CreatedBy   string
}
