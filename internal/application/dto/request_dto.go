package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateRequestItemRequest body para POST /api/requests/items.
type CreateRequestItemRequest struct {
	RequestID   string          `json:"request_id"`
	MaterialID  string          `json:"material_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// ApproveRequestItemRequest body para POST /api/requests/items/:id/approve.
type ApproveRequestItemRequest struct {
	QuantityApproved decimal.Decimal `json:"quantity_approved"`
}

// RequestItemResponse un ítem de solicitud.
type RequestItemResponse struct {
	ID                string          `json:"id"`
	RequestID         string          `json:"request_id"`
	MaterialID        string          `json:"material_id"`
	WarehouseID       string          `json:"warehouse_id"`
	QuantityRequested decimal.Decimal `json:"quantity_requested"`
	QuantityApproved  decimal.Decimal `json:"quantity_approved"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
}

// RequestItemBalanceResponse saldos derivados de un ítem de solicitud.
// Proyección de solo lectura: se recalcula en cada consulta.
type RequestItemBalanceResponse struct {
	RequestItemID      string          `json:"request_item_id"`
	QuantityRequested  decimal.Decimal `json:"quantity_requested"`
	QuantityApproved   decimal.Decimal `json:"quantity_approved"`
	QuantityReceived   decimal.Decimal `json:"quantity_received"`
	QuantityWithdrawn  decimal.Decimal `json:"quantity_withdrawn"`
	QuantityReserved   decimal.Decimal `json:"quantity_reserved"`
	QuantityRestricted decimal.Decimal `json:"quantity_restricted"`
	EffectiveBalance   decimal.Decimal `json:"effective_balance"`
	PotentialBalance   decimal.Decimal `json:"potential_balance"`
}
