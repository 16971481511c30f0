package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
)

// Ensure TxRunner implements ledger.TxRunner.
var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL con los
// repositorios del motor atados a esa tx. El append del movimiento y la
// actualización de la proyección confirman o revierten juntos.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción de lectura-escritura, ejecuta fn con repos
// atados a la tx y hace Commit o Rollback. Conflictos de serialización,
// deadlocks y timeouts de lock se devuelven como ErrPersistenceConflict.
func (r *TxRunner) Run(ctx context.Context, fn func(rp ledger.Repos) error) error {
	return r.run(ctx, pgx.TxOptions{}, fn)
}

// RunSnapshot inicia una transacción de solo lectura REPEATABLE READ: las
// lecturas conjuntas de ledger y proyección ven un snapshot consistente.
func (r *TxRunner) RunSnapshot(ctx context.Context, fn func(rp ledger.Repos) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (r *TxRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(rp ledger.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapTxError(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := ledger.Repos{
		Movements:    NewStockMovementRepository(tx),
		Stock:        NewWarehouseStockRepository(tx),
		Reservations: NewReservationRepository(tx),
		Restrictions: NewRestrictionRepository(tx),
		RequestItems: NewMaterialRequestRepository(tx),
	}

	if err := fn(repos); err != nil {
		return mapTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapTxError(err))
	}
	return nil
}
