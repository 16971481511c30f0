package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// ReservationRepository define el puerto de persistencia para reservas.
// Las reservas transicionan una sola vez a estado terminal; Close registra esa
// transición, nunca se reabre ni se edita una reserva cerrada.
type ReservationRepository interface {
	Create(reservation *entity.Reservation) error
	GetByID(id string) (*entity.Reservation, error)
	// GetForUpdate bloquea la fila de la reserva para la transición de estado.
	GetForUpdate(id string) (*entity.Reservation, error)
	// Close marca la reserva FULFILLED o CANCELLED con su instante de cierre.
	Close(id, status string, closedAt time.Time) error
	ListByPickingOrder(pickingOrderID string) ([]*entity.Reservation, error)
	// ListOpenExpired devuelve reservas OPEN cuyo ExpiresAt ya pasó (barrido).
	ListOpenExpired(now time.Time, limit int) ([]*entity.Reservation, error)
	// SumOpenByRequestItem suma las reservas abiertas ligadas a un ítem.
	SumOpenByRequestItem(requestItemID string) (decimal.Decimal, error)
}
