package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// RestrictionRepository define el puerto de persistencia para restricciones.
type RestrictionRepository interface {
	Create(restriction *entity.Restriction) error
	GetByID(id string) (*entity.Restriction, error)
	// GetOpenByRequestItemForUpdate bloquea la restricción abierta del ítem
	// (a lo sumo una por ítem).
	GetOpenByRequestItemForUpdate(requestItemID string) (*entity.Restriction, error)
	// Release marca la restricción RELEASED con su instante de liberación.
	Release(id string, releasedAt time.Time) error
	// SumOpenByRequestItem suma las restricciones abiertas ligadas a un ítem.
	SumOpenByRequestItem(requestItemID string) (decimal.Decimal, error)
}
