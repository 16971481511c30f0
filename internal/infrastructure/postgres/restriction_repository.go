package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

var _ repository.RestrictionRepository = (*RestrictionRepo)(nil)

// RestrictionRepo implementación del sub-ledger de restricciones sobre
// PostgreSQL (usable con pool o tx).
type RestrictionRepo struct {
	q Querier
}

// NewRestrictionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRestrictionRepository(q Querier) *RestrictionRepo {
	return &RestrictionRepo{q: q}
}

const restrictionColumns = `id, material_id, warehouse_id, request_item_id,
		quantity, status, created_at, released_at`

// Create persiste una restricción nueva (OPEN).
func (r *RestrictionRepo) Create(restr *entity.Restriction) error {
	query := `
		INSERT INTO restrictions (` + restrictionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(context.Background(), query,
		restr.ID, restr.MaterialID, restr.WarehouseID, restr.RequestItemID,
		restr.Quantity, restr.Status, restr.CreatedAt, restr.ReleasedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create restriction: %w", err)
	}
	return nil
}

// GetByID obtiene una restricción por ID.
func (r *RestrictionRepo) GetByID(id string) (*entity.Restriction, error) {
	query := `SELECT ` + restrictionColumns + ` FROM restrictions WHERE id = $1`
	restr, err := scanRestriction(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get restriction: %w", err)
	}
	return restr, nil
}

// GetOpenByRequestItemForUpdate bloquea la restricción abierta del ítem
// (a lo sumo una por ítem).
func (r *RestrictionRepo) GetOpenByRequestItemForUpdate(requestItemID string) (*entity.Restriction, error) {
	query := `
		SELECT ` + restrictionColumns + `
		FROM restrictions WHERE request_item_id = $1 AND status = $2
		FOR UPDATE`
	restr, err := scanRestriction(r.q.QueryRow(context.Background(), query, requestItemID, entity.RestrictionOpen))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get open restriction: %w", err)
	}
	return restr, nil
}

// Release marca la restricción RELEASED. Transición única.
func (r *RestrictionRepo) Release(id string, releasedAt time.Time) error {
	query := `
		UPDATE restrictions SET status = $2, released_at = $3
		WHERE id = $1 AND status = $4`
	cmd, err := r.q.Exec(context.Background(), query, id, entity.RestrictionReleased, releasedAt, entity.RestrictionOpen)
	if err != nil {
		return fmt.Errorf("release restriction: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRestrictionNotOpen
	}
	return nil
}

// SumOpenByRequestItem suma las restricciones abiertas ligadas a un ítem.
func (r *RestrictionRepo) SumOpenByRequestItem(requestItemID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM restrictions WHERE request_item_id = $1 AND status = $2`
	var sum decimal.Decimal
	err := r.q.QueryRow(context.Background(), query, requestItemID, entity.RestrictionOpen).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum open restrictions: %w", err)
	}
	return sum, nil
}

func scanRestriction(row pgx.Row) (*entity.Restriction, error) {
	var restr entity.Restriction
	err := row.Scan(
		&restr.ID, &restr.MaterialID, &restr.WarehouseID, &restr.RequestItemID,
		&restr.Quantity, &restr.Status, &restr.CreatedAt, &restr.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}
	return &restr, nil
}
