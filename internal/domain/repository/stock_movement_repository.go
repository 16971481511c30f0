package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// RequestItemSums agregados de movimientos marcados con un ítem de solicitud.
type RequestItemSums struct {
	Received  decimal.Decimal // suma de entradas (IN_*) marcadas con el ítem
	Withdrawn decimal.Decimal // suma de salidas (OUT_*) marcadas con el ítem
}

// StockMovementRepository define el puerto de persistencia del ledger.
// Solo inserta y lee: los movimientos son inmutables, no hay Update ni Delete.
type StockMovementRepository interface {
	Create(movement *entity.StockMovement) error
	GetByID(id string) (*entity.StockMovement, error)
	// ListAllByKey devuelve el historial completo de (material, almacén) en
	// orden de creación. Usado por el rebuild.
	ListAllByKey(materialID, warehouseID string) ([]*entity.StockMovement, error)
	ListByWarehouse(warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByMaterial(materialID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	// SumsByRequestItem agrega recibido/retirado de los movimientos marcados
	// con el ítem de solicitud.
	SumsByRequestItem(requestItemID string) (*RequestItemSums, error)
}
