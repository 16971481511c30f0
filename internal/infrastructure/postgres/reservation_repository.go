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

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo implementación del sub-ledger de reservas sobre PostgreSQL
// (usable con pool o tx).
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

const reservationColumns = `id, material_id, warehouse_id, picking_order_id,
		request_item_id, quantity, status, created_at, expires_at, closed_at`

// Create persiste una reserva nueva (OPEN).
func (r *ReservationRepo) Create(res *entity.Reservation) error {
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	requestItemID := (*string)(nil)
	if res.RequestItemID != "" {
		requestItemID = &res.RequestItemID
	}
	_, err := r.q.Exec(context.Background(), query,
		res.ID, res.MaterialID, res.WarehouseID, res.PickingOrderID,
		requestItemID, res.Quantity, res.Status, res.CreatedAt, res.ExpiresAt, res.ClosedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// GetByID obtiene una reserva por ID.
func (r *ReservationRepo) GetByID(id string) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return r.get(query, id)
}

// GetForUpdate obtiene la reserva y bloquea la fila para la transición de estado.
func (r *ReservationRepo) GetForUpdate(id string) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	return r.get(query, id)
}

func (r *ReservationRepo) get(query, id string) (*entity.Reservation, error) {
	res, err := scanReservation(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// Close marca la reserva FULFILLED o CANCELLED. Transición única: solo
// aplica sobre una reserva OPEN.
func (r *ReservationRepo) Close(id, status string, closedAt time.Time) error {
	query := `
		UPDATE reservations SET status = $2, closed_at = $3
		WHERE id = $1 AND status = $4`
	cmd, err := r.q.Exec(context.Background(), query, id, status, closedAt, entity.ReservationOpen)
	if err != nil {
		return fmt.Errorf("close reservation: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrReservationNotOpen
	}
	return nil
}

// ListByPickingOrder lista reservas de una orden de separación.
func (r *ReservationRepo) ListByPickingOrder(pickingOrderID string) ([]*entity.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations WHERE picking_order_id = $1 ORDER BY created_at ASC`
	rows, err := r.q.Query(context.Background(), query, pickingOrderID)
	if err != nil {
		return nil, fmt.Errorf("list by picking order: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListOpenExpired devuelve reservas OPEN con ExpiresAt vencido, para el barrido.
func (r *ReservationRepo) ListOpenExpired(now time.Time, limit int) ([]*entity.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at <= $2
		ORDER BY expires_at ASC LIMIT $3`
	rows, err := r.q.Query(context.Background(), query, entity.ReservationOpen, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list open expired: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// SumOpenByRequestItem suma las reservas abiertas ligadas a un ítem de solicitud.
func (r *ReservationRepo) SumOpenByRequestItem(requestItemID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM reservations WHERE request_item_id = $1 AND status = $2`
	var sum decimal.Decimal
	err := r.q.QueryRow(context.Background(), query, requestItemID, entity.ReservationOpen).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum open reservations: %w", err)
	}
	return sum, nil
}

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var res entity.Reservation
	var requestItemID *string
	err := row.Scan(
		&res.ID, &res.MaterialID, &res.WarehouseID, &res.PickingOrderID,
		&requestItemID, &res.Quantity, &res.Status, &res.CreatedAt, &res.ExpiresAt, &res.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	if requestItemID != nil {
		res.RequestItemID = *requestItemID
	}
	return &res, nil
}

func collectReservations(rows pgx.Rows) ([]*entity.Reservation, error) {
	var list []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		list = append(list, res)
	}
	return list, rows.Err()
}
