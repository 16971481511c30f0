package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
	"github.com/jhoicas/almacen-api/internal/domain/stock"
	"github.com/jhoicas/almacen-api/pkg/logger"
)

// RetryConfig reintentos ante ErrPersistenceConflict (conflicto de
// serialización o deadlock): acotados, con backoff lineal.
type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

// AppendMovementUseCase agrega movimientos al ledger de forma transaccional:
// resuelve el efecto en el registro de tipos, bloquea la fila de proyección
// (SELECT FOR UPDATE), aplica el efecto con chequeo de invariante y persiste
// movimiento + proyección en la misma transacción. Commit o Rollback juntos:
// nunca queda un movimiento sin su actualización de saldo ni al revés.
type AppendMovementUseCase struct {
	txRunner      TxRunner
	materialRepo  repository.MaterialRepository
	warehouseRepo repository.WarehouseRepository
	retry         RetryConfig
	log           *logger.Logger
}

// NewAppendMovementUseCase construye el caso de uso.
func NewAppendMovementUseCase(
	txRunner TxRunner,
	materialRepo repository.MaterialRepository,
	warehouseRepo repository.WarehouseRepository,
	retry RetryConfig,
	log *logger.Logger,
) *AppendMovementUseCase {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 3
	}
	if retry.Backoff <= 0 {
		retry.Backoff = 50 * time.Millisecond
	}
	return &AppendMovementUseCase{
		txRunner:      txRunner,
		materialRepo:  materialRepo,
		warehouseRepo: warehouseRepo,
		retry:         retry,
		log:           log,
	}
}

// AppendMovementInput entrada para agregar un movimiento al ledger.
// Quantity siempre positiva: la dirección la decide el tipo, no el caller.
type AppendMovementInput struct {
	MaterialID  string
	WarehouseID string
	TypeCode    string
	Quantity    decimal.Decimal
	Origin      entity.MovementOrigin
	UserID      string
}

// Append valida la entrada, verifica que material y almacén existan y agrega
// el movimiento dentro de una transacción, reintentando conflictos de
// persistencia con backoff acotado.
//
// Errores esperables: ErrInvalidQuantity, ErrUnknownMovementType, ErrNotFound,
// ErrInsufficientFreeBalance (condición de negocio, no error de sistema),
// ErrPersistenceConflict (tras agotar reintentos).
func (uc *AppendMovementUseCase) Append(ctx context.Context, input AppendMovementInput) (*entity.StockMovement, error) {
	if !input.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}
	if _, err := stock.Resolve(input.TypeCode); err != nil {
		// Error de programación/configuración: se loggea y se rechaza.
		uc.log.Error().Str("type_code", input.TypeCode).Msg("tipo de movimiento desconocido")
		return nil, err
	}

	material, err := uc.materialRepo.GetByID(input.MaterialID)
	if err != nil {
		return nil, err
	}
	if material == nil {
		return nil, domain.ErrNotFound
	}
	warehouse, err := uc.warehouseRepo.GetByID(input.WarehouseID)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, domain.ErrNotFound
	}

	var mov *entity.StockMovement
	err = uc.withRetry(ctx, func() error {
		return uc.txRunner.Run(ctx, func(r Repos) error {
			var txErr error
			mov, txErr = uc.AppendInTx(r, input, time.Now())
			return txErr
		})
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// AppendInTx agrega un movimiento usando repositorios ya atados a la
// transacción del caller. Es el único camino que muta la fila de proyección:
// los managers de reservas y restricciones son callers especializados de este
// mismo camino.
func (uc *AppendMovementUseCase) AppendInTx(r Repos, input AppendMovementInput, now time.Time) (*entity.StockMovement, error) {
	if !input.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}
	effect, err := stock.Resolve(input.TypeCode)
	if err != nil {
		return nil, err
	}

	// Bloquea la fila de proyección: los movimientos contra la misma clave
	// (material, almacén) quedan serializados en orden de commit.
	row, err := r.Stock.GetForUpdate(input.MaterialID, input.WarehouseID)
	if err != nil {
		return nil, err
	}
	if err := stock.ApplyEffect(row, effect, input.Quantity); err != nil {
		return nil, err
	}
	row.UpdatedAt = now
	if err := r.Stock.Upsert(row); err != nil {
		return nil, err
	}

	mov := &entity.StockMovement{
		ID:          uuid.New().String(),
		MaterialID:  input.MaterialID,
		WarehouseID: input.WarehouseID,
		TypeCode:    input.TypeCode,
		Quantity:    input.Quantity,
		Origin:      input.Origin,
		Date:        now,
		CreatedAt:   now,
		CreatedBy:   input.UserID,
	}
	if err := r.Movements.Create(mov); err != nil {
		return nil, err
	}
	return mov, nil
}

// withRetry reintenta fn ante ErrPersistenceConflict con backoff lineal.
// Cualquier otro error se propaga de inmediato. appendMovement no deja estado
// parcial que limpiar: la transacción garantiza atomicidad, reintentar es seguro.
func (uc *AppendMovementUseCase) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= uc.retry.MaxAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrPersistenceConflict) {
			return err
		}
		if attempt == uc.retry.MaxAttempts {
			break
		}
		uc.log.Warn().Int("attempt", attempt).Err(err).Msg("conflicto de persistencia, reintentando")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(uc.retry.Backoff * time.Duration(attempt)):
		}
	}
	return err
}
