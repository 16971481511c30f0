package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una restricción.
const (
	RestrictionOpen     = "OPEN"
	RestrictionReleased = "RELEASED"
)

// Restriction es una retención contra el saldo libre ligada a un ítem de
// solicitud aprobado y aún no liquidado. Misma forma que Reservation pero con
// otro disparador de liberación: la liquidación del ítem (lo recibido alcanza
// lo aprobado) o la cancelación de la solicitud, no la recolección física.
type Restriction struct {
	ID            string
	MaterialID    string
	WarehouseID   string
	RequestItemID string
	Quantity      decimal.Decimal
	Status        string
	CreatedAt     time.Time
	ReleasedAt    *time.Time
}
