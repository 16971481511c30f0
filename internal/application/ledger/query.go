package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// QueryUseCase consultas de solo lectura sobre saldo y movimientos.
// Usa repositorios atados al pool (fuera de transacción): un snapshot de la
// fila de proyección es consistente por sí solo.
type QueryUseCase struct {
	stockRepo    repository.WarehouseStockRepository
	movementRepo repository.StockMovementRepository
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(stockRepo repository.WarehouseStockRepository, movementRepo repository.StockMovementRepository) *QueryUseCase {
	return &QueryUseCase{stockRepo: stockRepo, movementRepo: movementRepo}
}

// GetBalance devuelve el snapshot de la proyección para (material, almacén).
// Si nunca hubo movimientos devuelve la fila en ceros.
func (uc *QueryUseCase) GetBalance(ctx context.Context, materialID, warehouseID string) (*entity.WarehouseStock, error) {
	return uc.stockRepo.Get(materialID, warehouseID)
}

// ListByWarehouse lista movimientos de un almacén en un rango de fechas.
func (uc *QueryUseCase) ListByWarehouse(ctx context.Context, warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return uc.movementRepo.ListByWarehouse(warehouseID, from, to, limit, offset)
}

// ListByMaterial lista movimientos de un material en un rango de fechas.
func (uc *QueryUseCase) ListByMaterial(ctx context.Context, materialID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return uc.movementRepo.ListByMaterial(materialID, from, to, limit, offset)
}
