package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

var _ repository.MaterialRequestRepository = (*MaterialRequestRepo)(nil)

// MaterialRequestRepo implementación del puerto MaterialRequestRepository
// sobre PostgreSQL (usable con pool o tx).
type MaterialRequestRepo struct {
	q Querier
}

// NewMaterialRequestRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMaterialRequestRepository(q Querier) *MaterialRequestRepo {
	return &MaterialRequestRepo{q: q}
}

const requestItemColumns = `id, request_id, material_id, warehouse_id,
		quantity_requested, quantity_approved, status, created_at, updated_at`

// CreateItem persiste un ítem de solicitud nuevo (PENDING).
func (r *MaterialRequestRepo) CreateItem(item *entity.MaterialRequestItem) error {
	query := `
		INSERT INTO material_request_items (` + requestItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.RequestID, item.MaterialID, item.WarehouseID,
		item.QuantityRequested, item.QuantityApproved, item.Status,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create request item: %w", err)
	}
	return nil
}

// GetItemByID obtiene un ítem por ID.
func (r *MaterialRequestRepo) GetItemByID(id string) (*entity.MaterialRequestItem, error) {
	query := `SELECT ` + requestItemColumns + ` FROM material_request_items WHERE id = $1`
	return r.get(query, id)
}

// GetItemForUpdate obtiene el ítem y bloquea la fila para transiciones de estado.
func (r *MaterialRequestRepo) GetItemForUpdate(id string) (*entity.MaterialRequestItem, error) {
	query := `SELECT ` + requestItemColumns + ` FROM material_request_items WHERE id = $1 FOR UPDATE`
	return r.get(query, id)
}

func (r *MaterialRequestRepo) get(query, id string) (*entity.MaterialRequestItem, error) {
	var item entity.MaterialRequestItem
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&item.ID, &item.RequestID, &item.MaterialID, &item.WarehouseID,
		&item.QuantityRequested, &item.QuantityApproved, &item.Status,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request item: %w", err)
	}
	return &item, nil
}

// UpdateItem persiste cantidad aprobada y estado del ítem.
func (r *MaterialRequestRepo) UpdateItem(item *entity.MaterialRequestItem) error {
	query := `
		UPDATE material_request_items
		SET quantity_approved = $2, status = $3, updated_at = $4
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query,
		item.ID, item.QuantityApproved, item.Status, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update request item: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListItemsByRequest lista los ítems de una solicitud.
func (r *MaterialRequestRepo) ListItemsByRequest(requestID string) ([]*entity.MaterialRequestItem, error) {
	query := `
		SELECT ` + requestItemColumns + `
		FROM material_request_items WHERE request_id = $1 ORDER BY created_at ASC`
	rows, err := r.q.Query(context.Background(), query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list request items: %w", err)
	}
	defer rows.Close()
	var list []*entity.MaterialRequestItem
	for rows.Next() {
		var item entity.MaterialRequestItem
		if err := rows.Scan(&item.ID, &item.RequestID, &item.MaterialID, &item.WarehouseID,
			&item.QuantityRequested, &item.QuantityApproved, &item.Status,
			&item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan request item: %w", err)
		}
		list = append(list, &item)
	}
	return list, rows.Err()
}
