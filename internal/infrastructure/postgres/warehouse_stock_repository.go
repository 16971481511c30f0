package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

var _ repository.WarehouseStockRepository = (*WarehouseStockRepo)(nil)

// WarehouseStockRepo implementación de la proyección materializada sobre
// PostgreSQL (usable con pool o tx). La fila se muta solo vía el proyector.
type WarehouseStockRepo struct {
	q Querier
}

// NewWarehouseStockRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWarehouseStockRepository(q Querier) *WarehouseStockRepo {
	return &WarehouseStockRepo{q: q}
}

const warehouseStockColumns = `material_id, warehouse_id, initial_stock_quantity,
		balance_in_minus_out, restricted_quantity, reserved_quantity, updated_at`

// Get obtiene el snapshot de la proyección para (material, almacén).
// Si la fila no existe devuelve una en ceros (clave sin movimientos).
func (r *WarehouseStockRepo) Get(materialID, warehouseID string) (*entity.WarehouseStock, error) {
	query := `
		SELECT ` + warehouseStockColumns + `
		FROM warehouse_stock WHERE material_id = $1 AND warehouse_id = $2`
	return r.get(query, materialID, warehouseID)
}

// GetForUpdate obtiene la proyección y bloquea la fila (SELECT FOR UPDATE).
// Serializa los movimientos contra la misma clave: la sección crítica del
// proyector corre con esta fila bloqueada. Si la fila no existe la crea en
// ceros primero; sin fila no habría nada que bloquear y dos primeros
// movimientos de una clave nueva podrían pisarse.
func (r *WarehouseStockRepo) GetForUpdate(materialID, warehouseID string) (*entity.WarehouseStock, error) {
	ctx := context.Background()
	insert := `
		INSERT INTO warehouse_stock (material_id, warehouse_id, initial_stock_quantity,
			balance_in_minus_out, restricted_quantity, reserved_quantity, updated_at)
		VALUES ($1, $2, 0, 0, 0, 0, now())
		ON CONFLICT (material_id, warehouse_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, materialID, warehouseID); err != nil {
		return nil, fmt.Errorf("init warehouse stock: %w", err)
	}
	query := `
		SELECT ` + warehouseStockColumns + `
		FROM warehouse_stock WHERE material_id = $1 AND warehouse_id = $2
		FOR UPDATE`
	return r.get(query, materialID, warehouseID)
}

func (r *WarehouseStockRepo) get(query, materialID, warehouseID string) (*entity.WarehouseStock, error) {
	var s entity.WarehouseStock
	err := r.q.QueryRow(context.Background(), query, materialID, warehouseID).Scan(
		&s.MaterialID, &s.WarehouseID, &s.InitialStockQuantity,
		&s.BalanceInMinusOut, &s.RestrictedQuantity, &s.ReservedQuantity, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zeroStock(materialID, warehouseID), nil
		}
		return nil, fmt.Errorf("get warehouse stock: %w", err)
	}
	return &s, nil
}

// Upsert inserta o actualiza la fila de proyección por (material, almacén).
func (r *WarehouseStockRepo) Upsert(stock *entity.WarehouseStock) error {
	query := `
		INSERT INTO warehouse_stock (` + warehouseStockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (material_id, warehouse_id)
		DO UPDATE SET
			initial_stock_quantity = EXCLUDED.initial_stock_quantity,
			balance_in_minus_out = EXCLUDED.balance_in_minus_out,
			restricted_quantity = EXCLUDED.restricted_quantity,
			reserved_quantity = EXCLUDED.reserved_quantity,
			updated_at = now()`
	_, err := r.q.Exec(context.Background(), query,
		stock.MaterialID, stock.WarehouseID, stock.InitialStockQuantity,
		stock.BalanceInMinusOut, stock.RestrictedQuantity, stock.ReservedQuantity,
	)
	if err != nil {
		return fmt.Errorf("upsert warehouse stock: %w", err)
	}
	return nil
}

func zeroStock(materialID, warehouseID string) *entity.WarehouseStock {
	return &entity.WarehouseStock{
		MaterialID:           materialID,
		WarehouseID:          warehouseID,
		InitialStockQuantity: decimal.Zero,
		BalanceInMinusOut:    decimal.Zero,
		RestrictedQuantity:   decimal.Zero,
		ReservedQuantity:     decimal.Zero,
	}
}
