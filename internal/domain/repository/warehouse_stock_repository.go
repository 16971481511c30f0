package repository

import "github.com/jhoicas/almacen-api/internal/domain/entity"

// WarehouseStockRepository define el puerto para la proyección materializada
// por (material, almacén). La fila se muta exclusivamente vía el proyector,
// nunca directo desde otros componentes.
type WarehouseStockRepository interface {
	Get(materialID, warehouseID string) (*entity.WarehouseStock, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE); si no existe devuelve
	// una fila en ceros lista para inicializar. Serializa los movimientos
	// contra la misma clave.
	GetForUpdate(materialID, warehouseID string) (*entity.WarehouseStock, error)
	Upsert(stock *entity.WarehouseStock) error
}
