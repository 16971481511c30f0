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

var _ repository.MaterialRepository = (*MaterialRepo)(nil)

// MaterialRepo implementación del puerto MaterialRepository sobre PostgreSQL.
type MaterialRepo struct {
	q Querier
}

// NewMaterialRepository construye el adaptador de persistencia para materiales.
func NewMaterialRepository(q Querier) *MaterialRepo {
	return &MaterialRepo{q: q}
}

const materialColumns = `id, code, name, description, unit_measure, unit_price, created_at, updated_at`

// Create persiste un material nuevo.
func (r *MaterialRepo) Create(material *entity.Material) error {
	query := `
		INSERT INTO materials (` + materialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(context.Background(), query,
		material.ID, material.Code, material.Name, material.Description,
		material.UnitMeasure, material.UnitPrice, material.CreatedAt, material.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert material: %w", err)
	}
	return nil
}

// GetByID obtiene un material por ID.
func (r *MaterialRepo) GetByID(id string) (*entity.Material, error) {
	query := `SELECT ` + materialColumns + ` FROM materials WHERE id = $1`
	return r.get(query, id)
}

// GetByCode obtiene un material por código de catálogo.
func (r *MaterialRepo) GetByCode(code string) (*entity.Material, error) {
	query := `SELECT ` + materialColumns + ` FROM materials WHERE code = $1`
	return r.get(query, code)
}

func (r *MaterialRepo) get(query, arg string) (*entity.Material, error) {
	var m entity.Material
	err := r.q.QueryRow(context.Background(), query, arg).Scan(
		&m.ID, &m.Code, &m.Name, &m.Description, &m.UnitMeasure,
		&m.UnitPrice, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	return &m, nil
}

// Update actualiza nombre, descripción y precio; la identidad es inmutable.
func (r *MaterialRepo) Update(material *entity.Material) error {
	query := `
		UPDATE materials SET name = $2, description = $3, unit_price = $4, updated_at = $5
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		material.ID, material.Name, material.Description, material.UnitPrice, material.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return nil
}

// List lista materiales con paginación.
func (r *MaterialRepo) List(limit, offset int) ([]*entity.Material, error) {
	query := `
		SELECT ` + materialColumns + `
		FROM materials ORDER BY code ASC LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(context.Background(), query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()
	var list []*entity.Material
	for rows.Next() {
		var m entity.Material
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.Description, &m.UnitMeasure,
			&m.UnitPrice, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// HasMovements indica si existen movimientos del ledger que referencien el material.
func (r *MaterialRepo) HasMovements(id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM stock_movements WHERE material_id = $1)`
	var exists bool
	err := r.q.QueryRow(context.Background(), query, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has movements: %w", err)
	}
	return exists, nil
}

// Delete elimina un material. El caso de uso verifica antes que no esté
// referenciado por movimientos.
func (r *MaterialRepo) Delete(id string) error {
	query := `DELETE FROM materials WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query, id)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
