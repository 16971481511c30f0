package repository

import "github.com/jhoicas/almacen-api/internal/domain/entity"

// MaterialRequestRepository define el puerto de persistencia para ítems de
// solicitud de material. Los agregados del ítem no viven aquí: se derivan del
// ledger (ver application/request).
type MaterialRequestRepository interface {
	CreateItem(item *entity.MaterialRequestItem) error
	GetItemByID(id string) (*entity.MaterialRequestItem, error)
	// GetItemForUpdate bloquea el ítem para transiciones de estado
	// (aprobación, liquidación, cancelación).
	GetItemForUpdate(id string) (*entity.MaterialRequestItem, error)
	UpdateItem(item *entity.MaterialRequestItem) error
	ListItemsByRequest(requestID string) ([]*entity.MaterialRequestItem, error)
}
