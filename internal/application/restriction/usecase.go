package restriction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/stock"
	"github.com/jhoicas/almacen-api/pkg/logger"
)

// UseCase administra restricciones ligadas a ítems de solicitud aprobados.
// Estructuralmente simétrico al manager de reservas, pero el disparador de
// liberación es la liquidación del ítem (lo recibido alcanza lo aprobado) o la
// cancelación de la solicitud, no la recolección física. Restricciones y
// reservas son aditivas e independientes: cada una tiene su propio registro
// respaldado por el ledger, así que una unidad no puede descontar dos veces su
// propia liberación.
type UseCase struct {
	txRunner ledger.TxRunner
	appendUC *ledger.AppendMovementUseCase
	log      *logger.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(txRunner ledger.TxRunner, appendUC *ledger.AppendMovementUseCase, log *logger.Logger) *UseCase {
	return &UseCase{txRunner: txRunner, appendUC: appendUC, log: log}
}

// ApproveItem aprueba un ítem de solicitud y abre la restricción por la
// cantidad aprobada: movimiento de restricción, fila de restricción OPEN y
// transición del ítem en la misma transacción. Sujeto al invariante de saldo
// libre igual que cualquier débito nuevo.
func (uc *UseCase) ApproveItem(ctx context.Context, requestItemID string, approvedQty decimal.Decimal, userID string) (*entity.Restriction, error) {
	if !approvedQty.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}

	var restr *entity.Restriction
	err := uc.txRunner.Run(ctx, func(r ledger.Repos) error {
		item, err := r.RequestItems.GetItemForUpdate(requestItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		if item.Status != entity.RequestItemPending {
			return domain.ErrConflict
		}
		if approvedQty.GreaterThan(item.QuantityRequested) {
			return domain.ErrInvalidQuantity
		}

		now := time.Now()
		if _, err := uc.appendUC.AppendInTx(r, ledger.AppendMovementInput{
			MaterialID:  item.MaterialID,
			WarehouseID: item.WarehouseID,
			TypeCode:    stock.TypeRestrictionForRequestItem,
			Quantity:    approvedQty,
			Origin: entity.MovementOrigin{
				DocType:       entity.OriginRequestItem,
				DocID:         item.ID,
				RequestItemID: item.ID,
			},
			UserID: userID,
		}, now); err != nil {
			return err
		}

		restr = &entity.Restriction{
			ID:            uuid.New().String(),
			MaterialID:    item.MaterialID,
			WarehouseID:   item.WarehouseID,
			RequestItemID: item.ID,
			Quantity:      approvedQty,
			Status:        entity.RestrictionOpen,
			CreatedAt:     now,
		}
		if err := r.Restrictions.Create(restr); err != nil {
			return err
		}

		item.QuantityApproved = approvedQty
		item.Status = entity.RequestItemApproved
		item.UpdatedAt = now
		return r.RequestItems.UpdateItem(item)
	})
	if err != nil {
		return nil, err
	}
	return restr, nil
}

// Settle intenta liquidar el ítem: si lo recibido ya alcanzó lo aprobado,
// libera la restricción y marca el ítem SETTLED; si aún no, devuelve false sin
// tocar nada. Las acciones de recepción lo invocan después de registrar cada
// entrada marcada con el ítem.
func (uc *UseCase) Settle(ctx context.Context, requestItemID, userID string) (bool, error) {
	settled := false
	err := uc.txRunner.Run(ctx, func(r ledger.Repos) error {
		item, err := r.RequestItems.GetItemForUpdate(requestItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		if item.Status != entity.RequestItemApproved {
			return domain.ErrConflict
		}

		sums, err := r.Movements.SumsByRequestItem(requestItemID)
		if err != nil {
			return err
		}
		if sums.Received.LessThan(item.QuantityApproved) {
			return nil // aún no liquidable
		}

		now := time.Now()
		if err := uc.releaseInTx(r, requestItemID, userID, now); err != nil {
			return err
		}
		item.Status = entity.RequestItemSettled
		item.UpdatedAt = now
		if err := r.RequestItems.UpdateItem(item); err != nil {
			return err
		}
		settled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return settled, nil
}

// CancelItem cancela el ítem (solicitud rechazada o cancelada) y libera su
// restricción abierta si la hay.
func (uc *UseCase) CancelItem(ctx context.Context, requestItemID, userID string) error {
	return uc.txRunner.Run(ctx, func(r ledger.Repos) error {
		item, err := r.RequestItems.GetItemForUpdate(requestItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		if item.Status == entity.RequestItemSettled || item.Status == entity.RequestItemCancelled {
			return domain.ErrConflict
		}

		now := time.Now()
		if item.Status == entity.RequestItemApproved {
			if err := uc.releaseInTx(r, requestItemID, userID, now); err != nil {
				return err
			}
		}
		item.Status = entity.RequestItemCancelled
		item.UpdatedAt = now
		return r.RequestItems.UpdateItem(item)
	})
}

// releaseInTx libera la restricción abierta del ítem: movimiento de
// liberación + transición de la fila, dentro de la transacción del caller.
func (uc *UseCase) releaseInTx(r ledger.Repos, requestItemID, userID string, now time.Time) error {
	restr, err := r.Restrictions.GetOpenByRequestItemForUpdate(requestItemID)
	if err != nil {
		return err
	}
	if restr == nil {
		return domain.ErrRestrictionNotOpen
	}
	if _, err := uc.appendUC.AppendInTx(r, ledger.AppendMovementInput{
		MaterialID:  restr.MaterialID,
		WarehouseID: restr.WarehouseID,
		TypeCode:    stock.TypeRestrictionRelease,
		Quantity:    restr.Quantity,
		Origin: entity.MovementOrigin{
			DocType:       entity.OriginRequestItem,
			DocID:         requestItemID,
			RequestItemID: requestItemID,
		},
		UserID: userID,
	}, now); err != nil {
		return err
	}
	return r.Restrictions.Release(restr.ID, now)
}
