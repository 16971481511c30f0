package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implementación del ledger sobre PostgreSQL (usable con
// pool o tx). La tabla es append-only: solo INSERT y SELECT.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, material_id, warehouse_id, type_code, quantity,
		origin_doc_type, origin_doc_id, request_item_id, date, created_at, created_by`

// Create persiste un movimiento. Inmutable: nunca hay UPDATE ni DELETE sobre
// esta tabla; las correcciones son movimientos compensatorios nuevos.
func (r *StockMovementRepo) Create(movement *entity.StockMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	requestItemID := (*string)(nil)
	if movement.Origin.RequestItemID != "" {
		requestItemID = &movement.Origin.RequestItemID
	}
	createdBy := (*string)(nil)
	if movement.CreatedBy != "" {
		createdBy = &movement.CreatedBy
	}
	_, err := r.q.Exec(context.Background(), query,
		movement.ID, movement.MaterialID, movement.WarehouseID, movement.TypeCode,
		movement.Quantity, movement.Origin.DocType, movement.Origin.DocID,
		requestItemID, movement.Date, movement.CreatedAt, createdBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *StockMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// ListAllByKey devuelve el historial completo de (material, almacén) en orden
// de creación. Alimenta el replay del rebuild.
func (r *StockMovementRepo) ListAllByKey(materialID, warehouseID string) ([]*entity.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE material_id = $1 AND warehouse_id = $2
		ORDER BY created_at ASC, id ASC`
	rows, err := r.q.Query(context.Background(), query, materialID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("list by key: %w", err)
	}
	defer rows.Close()
	return collectMovements(rows)
}

// ListByWarehouse lista movimientos de un almacén en un rango de fechas.
func (r *StockMovementRepo) ListByWarehouse(warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return r.list("warehouse_id", warehouseID, from, to, limit, offset)
}

// ListByMaterial lista movimientos de un material en un rango de fechas.
func (r *StockMovementRepo) ListByMaterial(materialID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return r.list("material_id", materialID, from, to, limit, offset)
}

func (r *StockMovementRepo) list(column, value string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE ` + column + ` = $1`
	args := []any{value}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND date >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND date <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY date DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	return collectMovements(rows)
}

// SumsByRequestItem agrega recibido (IN_*) y retirado (OUT_*) de los
// movimientos marcados con el ítem de solicitud.
func (r *StockMovementRepo) SumsByRequestItem(requestItemID string) (*repository.RequestItemSums, error) {
	query := `
		SELECT
			COALESCE(SUM(quantity) FILTER (WHERE type_code LIKE 'IN\_%'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE type_code LIKE 'OUT\_%'), 0)
		FROM stock_movements
		WHERE request_item_id = $1`
	sums := &repository.RequestItemSums{Received: decimal.Zero, Withdrawn: decimal.Zero}
	err := r.q.QueryRow(context.Background(), query, requestItemID).Scan(&sums.Received, &sums.Withdrawn)
	if err != nil {
		return nil, fmt.Errorf("sums by request item: %w", err)
	}
	return sums, nil
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var requestItemID, createdBy *string
	err := row.Scan(
		&m.ID, &m.MaterialID, &m.WarehouseID, &m.TypeCode, &m.Quantity,
		&m.Origin.DocType, &m.Origin.DocID, &requestItemID, &m.Date, &m.CreatedAt, &createdBy,
	)
	if err != nil {
		return nil, err
	}
	if requestItemID != nil {
		m.Origin.RequestItemID = *requestItemID
	}
	if createdBy != nil {
		m.CreatedBy = *createdBy
	}
	return &m, nil
}

func collectMovements(rows pgx.Rows) ([]*entity.StockMovement, error) {
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
