package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una reserva. OPEN descuenta del saldo libre; FULFILLED y
// CANCELLED son terminales y dejan de contar (su efecto se liberó).
const (
	ReservationOpen      = "OPEN"
	ReservationFulfilled = "FULFILLED"
	ReservationCancelled = "CANCELLED"
)

// Reservation es un compromiso abierto contra el saldo libre, creado por un
// ítem de orden de separación (picking). Transiciona una sola vez a estado
// terminal y queda como historial inmutable.
type Reservation struct {
	ID             string
	MaterialID     string
	WarehouseID    string
	PickingOrderID string
	RequestItemID  string // opcional: ítem de solicitud al que sirve el picking
	Quantity       decimal.Decimal
	Status         string
	CreatedAt      time.Time
	ExpiresAt      *time.Time // opcional: barrido de expiración la cancela
	ClosedAt       *time.Time
}
