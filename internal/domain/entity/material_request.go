package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un ítem de solicitud de material.
const (
	RequestItemPending   = "PENDING"
	RequestItemApproved  = "APPROVED"
	RequestItemSettled   = "SETTLED"
	RequestItemCancelled = "CANCELLED"
)

// MaterialRequestItem es un ítem de solicitud de material: cantidad pedida y
// cantidad aprobada para un material contra un almacén. Los agregados
// (recibido, retirado, reservado, restringido) no se almacenan aquí: se
// derivan del ledger en cada consulta (ver application/request).
type MaterialRequestItem struct {
	ID                string
	RequestID         string
	MaterialID        string
	WarehouseID       string
	QuantityRequested decimal.Decimal
	QuantityApproved  decimal.Decimal
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RequestItemBalance es la proyección de solo lectura por ítem de solicitud.
// Se recalcula en cada consulta dentro de un snapshot consistente; nunca se
// persiste, así no puede divergir del ledger.
type RequestItemBalance struct {
	RequestItemID      string
	QuantityRequested  decimal.Decimal
	QuantityApproved   decimal.Decimal
	QuantityReceived   decimal.Decimal // entradas marcadas con este ítem
	QuantityWithdrawn  decimal.Decimal // salidas marcadas con este ítem
	QuantityReserved   decimal.Decimal // reservas abiertas ligadas al ítem
	QuantityRestricted decimal.Decimal // restricciones abiertas ligadas al ítem
}

// EffectiveBalance lo físicamente disponible ahora contra este ítem:
// recibido - retirado.
func (b *RequestItemBalance) EffectiveBalance() decimal.Decimal {
	return b.QuantityReceived.Sub(b.QuantityWithdrawn)
}

// PotentialBalance lo que aún puede retirarse cuando lleguen las recepciones
// pendientes: aprobado - retirado - reservado.
func (b *RequestItemBalance) PotentialBalance() decimal.Decimal {
	return b.QuantityApproved.Sub(b.QuantityWithdrawn).Sub(b.QuantityReserved)
}
