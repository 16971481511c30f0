package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/stock"
	"github.com/jhoicas/almacen-api/pkg/logger"
)

// UseCase administra reservas (órdenes de separación) contra el saldo libre.
// Máquina de estados por reserva: OPEN -> FULFILLED (retiro físico que consume
// la reserva) u OPEN -> CANCELLED (cancelación explícita o barrido de
// expiración). Ambas transiciones son terminales.
//
// Crear una reserva es exactamente un append de RESERVATION_FOR_PICKING_ORDER
// y queda sujeta al mismo invariante de saldo libre: dos creaciones
// concurrentes por la última unidad serializan en el bloqueo de fila; una gana
// y la otra recibe ErrInsufficientFreeBalance como fallo de negocio normal.
type UseCase struct {
	txRunner ledger.TxRunner
	appendUC *ledger.AppendMovementUseCase
	ttl      time.Duration // 0 = las reservas no expiran
	log      *logger.Logger
}

// NewUseCase construye el caso de uso. ttl define la vigencia de las reservas
// nuevas para el barrido de expiración (cero la desactiva).
func NewUseCase(txRunner ledger.TxRunner, appendUC *ledger.AppendMovementUseCase, ttl time.Duration, log *logger.Logger) *UseCase {
	return &UseCase{txRunner: txRunner, appendUC: appendUC, ttl: ttl, log: log}
}

// CreateInput entrada para crear una reserva.
type CreateInput struct {
	MaterialID     string
	WarehouseID    string
	PickingOrderID string
	RequestItemID  string // opcional: ítem de solicitud al que sirve el picking
	Quantity       decimal.Decimal
	UserID         string
}

// Create reserva cantidad contra el saldo libre: movimiento de reserva y fila
// de reserva OPEN en la misma transacción.
func (uc *UseCase) Create(ctx context.Context, input CreateInput) (*entity.Reservation, error) {
	if !input.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}
	if input.MaterialID == "" || input.WarehouseID == "" || input.PickingOrderID == "" {
		return nil, domain.ErrInvalidInput
	}

	var res *entity.Reservation
	err := uc.txRunner.Run(ctx, func(r ledger.Repos) error {
		now := time.Now()
		_, err := uc.appendUC.AppendInTx(r, ledger.AppendMovementInput{
			MaterialID:  input.MaterialID,
			WarehouseID: input.WarehouseID,
			TypeCode:    stock.TypeReservationForPickingOrder,
			Quantity:    input.Quantity,
			Origin: entity.MovementOrigin{
				DocType:       entity.OriginPickingOrder,
				DocID:         input.PickingOrderID,
				RequestItemID: input.RequestItemID,
			},
			UserID: input.UserID,
		}, now)
		if err != nil {
			return err
		}

		res = &entity.Reservation{
			ID:             uuid.New().String(),
			MaterialID:     input.MaterialID,
			WarehouseID:    input.WarehouseID,
			PickingOrderID: input.PickingOrderID,
			RequestItemID:  input.RequestItemID,
			Quantity:       input.Quantity,
			Status:         entity.ReservationOpen,
			CreatedAt:      now,
		}
		if uc.ttl > 0 {
			expires := now.Add(uc.ttl)
			res.ExpiresAt = &expires
		}
		return r.Reservations.Create(res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Fulfill consume la reserva con el retiro físico: libera la reserva y
// registra la salida en la misma transacción. La liberación va primero para
// que el retiro no compita contra su propia reserva en el chequeo de saldo.
func (uc *UseCase) Fulfill(ctx context.Context, reservationID, withdrawalID, userID string) error {
	return uc.txRunner.Run(ctx, func(r ledger.Repos) error {
		res, err := r.Reservations.GetForUpdate(reservationID)
		if err != nil {
			return err
		}
		if res == nil {
			return domain.ErrNotFound
		}
		if res.Status != entity.ReservationOpen {
			return domain.ErrReservationNotOpen
		}

		now := time.Now()
		if _, err := uc.appendUC.AppendInTx(r, ledger.AppendMovementInput{
			MaterialID:  res.MaterialID,
			WarehouseID: res.WarehouseID,
			TypeCode:    stock.TypeReservationRelease,
			Quantity:    res.Quantity,
			Origin: entity.MovementOrigin{
				DocType:       entity.OriginPickingOrder,
				DocID:         res.PickingOrderID,
				RequestItemID: res.RequestItemID,
			},
			UserID: userID,
		}, now); err != nil {
			return err
		}
		if _, err := uc.appendUC.AppendInTx(r, ledger.AppendMovementInput{
			MaterialID:  res.MaterialID,
			WarehouseID: res.WarehouseID,
			TypeCode:    stock.TypeOutWithdrawal,
			Quantity:    res.Quantity,
			Origin: entity.MovementOrigin{
				DocType:       entity.OriginWithdrawal,
				DocID:         withdrawalID,
				RequestItemID: res.RequestItemID,
			},
			UserID: userID,
		}, now); err != nil {
			return err
		}
		return r.Reservations.Close(res.ID, entity.ReservationFulfilled, now)
	})
}

// Cancel libera la reserva sin retiro (cancelación explícita).
func (uc *UseCase) Cancel(ctx context.Context, reservationID, userID string) error {
	return uc.cancel(ctx, reservationID, userID)
}

func (uc *UseCase) cancel(ctx context.Context, reservationID, userID string) error {
	return uc.txRunner.Run(ctx, func(r ledger.Repos) error {
		res, err := r.Reservations.GetForUpdate(reservationID)
		if err != nil {
			return err
		}
		if res == nil {
			return domain.ErrNotFound
		}
		if res.Status != entity.ReservationOpen {
			return domain.ErrReservationNotOpen
		}

		now := time.Now()
		if _, err := uc.appendUC.AppendInTx(r, ledger.AppendMovementInput{
			MaterialID:  res.MaterialID,
			WarehouseID: res.WarehouseID,
			TypeCode:    stock.TypeReservationRelease,
			Quantity:    res.Quantity,
			Origin: entity.MovementOrigin{
				DocType:       entity.OriginPickingOrder,
				DocID:         res.PickingOrderID,
				RequestItemID: res.RequestItemID,
			},
			UserID: userID,
		}, now); err != nil {
			return err
		}
		return r.Reservations.Close(res.ID, entity.ReservationCancelled, now)
	})
}

// ExpireSweep cancela reservas OPEN vencidas. Lo invoca un colaborador
// periódico externo (ticker en cmd/api); la expiración es una transición de
// estado explícita, no un timeout del lock.
func (uc *UseCase) ExpireSweep(ctx context.Context, now time.Time, batch int) (int, error) {
	var expired []*entity.Reservation
	err := uc.txRunner.RunSnapshot(ctx, func(r ledger.Repos) error {
		var err error
		expired, err = r.Reservations.ListOpenExpired(now, batch)
		return err
	})
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, res := range expired {
		if err := uc.cancel(ctx, res.ID, "sweeper"); err != nil {
			// Otra transacción pudo cerrarla entre el listado y el cancel.
			if errors.Is(err, domain.ErrReservationNotOpen) {
				continue
			}
			uc.log.Error().Err(err).Str("reservation_id", res.ID).Msg("barrido: no se pudo cancelar la reserva vencida")
			continue
		}
		cancelled++
	}
	if cancelled > 0 {
		uc.log.Info().Int("cancelled", cancelled).Msg("barrido de reservas vencidas")
	}
	return cancelled, nil
}
