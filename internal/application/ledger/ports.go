package ledger

import (
	"context"

	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// Repos agrupa los repositorios atados a una misma transacción de BD.
type Repos struct {
	Movements    repository.StockMovementRepository
	Stock        repository.WarehouseStockRepository
	Reservations repository.ReservationRepository
	Restrictions repository.RestrictionRepository
	RequestItems repository.MaterialRequestRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza que el append del movimiento y la
// actualización de la proyección confirmen o reviertan juntos.
type TxRunner interface {
	// Run transacción de lectura-escritura (READ COMMITTED + FOR UPDATE).
	Run(ctx context.Context, fn func(r Repos) error) error

	// RunSnapshot transacción de solo lectura con aislamiento REPEATABLE READ:
	// las lecturas conjuntas de ledger + proyección ven un snapshot
	// consistente, nunca un par movimiento/proyección a medio aplicar.
	RunSnapshot(ctx context.Context, fn func(r Repos) error) error
}
