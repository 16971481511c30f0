package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AppendMovementRequest body para POST /api/stock/movements.
// La cantidad siempre es positiva; la dirección la aporta el tipo.
type AppendMovementRequest struct {
	MaterialID    string          `json:"material_id"`
	WarehouseID   string          `json:"warehouse_id"`
	TypeCode      string          `json:"type_code"`
	Quantity      decimal.Decimal `json:"quantity"`
	OriginDocType string          `json:"origin_doc_type"`
	OriginDocID   string          `json:"origin_doc_id"`
	RequestItemID string          `json:"request_item_id,omitempty"`
}

// MovementResponse un movimiento del ledger.
type MovementResponse struct {
	ID            string          `json:"id"`
	MaterialID    string          `json:"material_id"`
	WarehouseID   string          `json:"warehouse_id"`
	TypeCode      string          `json:"type_code"`
	Quantity      decimal.Decimal `json:"quantity"`
	OriginDocType string          `json:"origin_doc_type,omitempty"`
	OriginDocID   string          `json:"origin_doc_id,omitempty"`
	RequestItemID string          `json:"request_item_id,omitempty"`
	Date          time.Time       `json:"date"`
	CreatedBy     string          `json:"created_by,omitempty"`
}

// BalanceResponse snapshot de la proyección por (material, almacén).
type BalanceResponse struct {
	MaterialID           string          `json:"material_id"`
	WarehouseID          string          `json:"warehouse_id"`
	InitialStockQuantity decimal.Decimal `json:"initial_stock_quantity"`
	BalanceInMinusOut    decimal.Decimal `json:"balance_in_minus_out"`
	PhysicalOnHand       decimal.Decimal `json:"physical_on_hand"`
	RestrictedQuantity   decimal.Decimal `json:"restricted_quantity"`
	ReservedQuantity     decimal.Decimal `json:"reserved_quantity"`
	FreeBalance          decimal.Decimal `json:"free_balance"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// RebuildRequest body para POST /api/stock/rebuild.
type RebuildRequest struct {
	MaterialID  string `json:"material_id"`
	WarehouseID string `json:"warehouse_id"`
	Repair      bool   `json:"repair"`
}

// RebuildResponse resultado de la verificación replay vs incremental.
type RebuildResponse struct {
	Match       bool             `json:"match"`
	Repaired    bool             `json:"repaired"`
	Incremental *BalanceResponse `json:"incremental,omitempty"`
	Replayed    *BalanceResponse `json:"replayed,omitempty"`
}
