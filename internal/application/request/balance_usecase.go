package request

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// BalanceUseCase es la calculadora de saldo por ítem de solicitud: agregador
// de solo lectura que consulta ledger, reservas y restricciones pero nunca
// escribe. Los saldos efectivo y potencial se recalculan en cada consulta
// dentro de un snapshot (REPEATABLE READ), así nunca mezclan estado pre y
// post commit de un par movimiento+proyección.
type BalanceUseCase struct {
	txRunner ledger.TxRunner
}

// NewBalanceUseCase construye el caso de uso.
func NewBalanceUseCase(txRunner ledger.TxRunner) *BalanceUseCase {
	return &BalanceUseCase{txRunner: txRunner}
}

// GetItemBalance agrega las cantidades del ítem (pedida, aprobada, recibida,
// retirada, reservada, restringida) y deriva:
//
//	effectiveBalance = recibido - retirado  (disponible físicamente ya)
//	potentialBalance = aprobado - retirado - reservado  (retirable a futuro)
//
// Sin escrituras de por medio, dos llamadas devuelven resultados idénticos.
func (uc *BalanceUseCase) GetItemBalance(ctx context.Context, requestItemID string) (*entity.RequestItemBalance, error) {
	var balance *entity.RequestItemBalance
	err := uc.txRunner.RunSnapshot(ctx, func(r ledger.Repos) error {
		item, err := r.RequestItems.GetItemByID(requestItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		sums, err := r.Movements.SumsByRequestItem(requestItemID)
		if err != nil {
			return err
		}
		reserved, err := r.Reservations.SumOpenByRequestItem(requestItemID)
		if err != nil {
			return err
		}
		restricted, err := r.Restrictions.SumOpenByRequestItem(requestItemID)
		if err != nil {
			return err
		}
		balance = &entity.RequestItemBalance{
			RequestItemID:      item.ID,
			QuantityRequested:  item.QuantityRequested,
			QuantityApproved:   item.QuantityApproved,
			QuantityReceived:   sums.Received,
			QuantityWithdrawn:  sums.Withdrawn,
			QuantityReserved:   reserved,
			QuantityRestricted: restricted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// CreateItemInput entrada para registrar un ítem de solicitud.
type CreateItemInput struct {
	RequestID   string
	MaterialID  string
	WarehouseID string
	Quantity    decimal.Decimal
}

// CreateItem registra un ítem PENDING. La aprobación (y su restricción) la
// maneja el manager de restricciones.
func (uc *BalanceUseCase) CreateItem(ctx context.Context, input CreateItemInput) (*entity.MaterialRequestItem, error) {
	if !input.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}
	if input.RequestID == "" || input.MaterialID == "" || input.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	item := &entity.MaterialRequestItem{
		ID:                uuid.New().String(),
		RequestID:         input.RequestID,
		MaterialID:        input.MaterialID,
		WarehouseID:       input.WarehouseID,
		QuantityRequested: input.Quantity,
		QuantityApproved:  decimal.Zero,
		Status:            entity.RequestItemPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := uc.txRunner.Run(ctx, func(r ledger.Repos) error {
		return r.RequestItems.CreateItem(item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem devuelve el ítem por ID.
func (uc *BalanceUseCase) GetItem(ctx context.Context, requestItemID string) (*entity.MaterialRequestItem, error) {
	var item *entity.MaterialRequestItem
	err := uc.txRunner.RunSnapshot(ctx, func(r ledger.Repos) error {
		var err error
		item, err = r.RequestItems.GetItemByID(requestItemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}
