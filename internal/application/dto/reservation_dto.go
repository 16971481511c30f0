package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateReservationRequest body para POST /api/reservations.
type CreateReservationRequest struct {
	MaterialID     string          `json:"material_id"`
	WarehouseID    string          `json:"warehouse_id"`
	PickingOrderID string          `json:"picking_order_id"`
	RequestItemID  string          `json:"request_item_id,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// FulfillReservationRequest body para POST /api/reservations/:id/fulfill.
type FulfillReservationRequest struct {
	WithdrawalID string `json:"withdrawal_id"`
}

// ReservationResponse una reserva.
type ReservationResponse struct {
	ID             string          `json:"id"`
	MaterialID     string          `json:"material_id"`
	WarehouseID    string          `json:"warehouse_id"`
	PickingOrderID string          `json:"picking_order_id"`
	RequestItemID  string          `json:"request_item_id,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
}
