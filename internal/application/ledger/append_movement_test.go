package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/application/ledger/ledgertest"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/stock"
	"github.com/jhoicas/almacen-api/pkg/logger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "development", Level: "error"})
}

func newAppendUC(store *ledgertest.Store, retry ledger.RetryConfig) (*ledger.AppendMovementUseCase, *ledgertest.TxRunner) {
	runner := ledgertest.NewTxRunner(store)
	uc := ledger.NewAppendMovementUseCase(runner, ledgertest.MaterialRepo{}, ledgertest.WarehouseRepo{}, retry, testLogger())
	return uc, runner
}

func appendMov(t *testing.T, uc *ledger.AppendMovementUseCase, code, qty string) *entity.StockMovement {
	t.Helper()
	mov, err := uc.Append(context.Background(), ledger.AppendMovementInput{
		MaterialID:  "mat-1",
		WarehouseID: "alm-1",
		TypeCode:    code,
		Quantity:    dec(qty),
		UserID:      "user-1",
	})
	require.NoError(t, err)
	return mov
}

func TestAppend_ActualizaProyeccionYLedgerJuntos(t *testing.T) {
	store := ledgertest.NewStore()
	uc, _ := newAppendUC(store, ledger.RetryConfig{})

	mov := appendMov(t, uc, stock.TypeInReceipt, "10")
	assert.NotEmpty(t, mov.ID)
	assert.Equal(t, stock.TypeInReceipt, mov.TypeCode)

	row := store.Stock("mat-1", "alm-1")
	assert.True(t, row.BalanceInMinusOut.Equal(dec("10")))
	assert.Len(t, store.Movements(), 1)
}

func TestAppend_CantidadInvalida(t *testing.T) {
	store := ledgertest.NewStore()
	uc, _ := newAppendUC(store, ledger.RetryConfig{})

	_, err := uc.Append(context.Background(), ledger.AppendMovementInput{
		MaterialID: "mat-1", WarehouseID: "alm-1",
		TypeCode: stock.TypeInReceipt, Quantity: dec("-1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Empty(t, store.Movements(), "un rechazo no debe escribir nada")
}

func TestAppend_TipoDesconocido(t *testing.T) {
	store := ledgertest.NewStore()
	uc, _ := newAppendUC(store, ledger.RetryConfig{})

	_, err := uc.Append(context.Background(), ledger.AppendMovementInput{
		MaterialID: "mat-1", WarehouseID: "alm-1",
		TypeCode: "NO_EXISTE", Quantity: dec("1"),
	})
	assert.ErrorIs(t, err, domain.ErrUnknownMovementType)
}

// Rechazo por saldo libre: ni el movimiento ni la proyección deben quedar
// escritos (atomicidad de la transacción).
func TestAppend_RechazoNoDejaDatoParcial(t *testing.T) {
	store := ledgertest.NewStore()
	uc, _ := newAppendUC(store, ledger.RetryConfig{})
	appendMov(t, uc, stock.TypeInReceipt, "5")

	_, err := uc.Append(context.Background(), ledger.AppendMovementInput{
		MaterialID: "mat-1", WarehouseID: "alm-1",
		TypeCode: stock.TypeOutWithdrawal, Quantity: dec("8"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFreeBalance)

	row := store.Stock("mat-1", "alm-1")
	assert.True(t, row.BalanceInMinusOut.Equal(dec("5")), "la proyección no debe cambiar")
	assert.Len(t, store.Movements(), 1, "el movimiento rechazado no debe existir en el ledger")
}

// Conflictos transitorios de persistencia se reintentan hasta lograr commit.
func TestAppend_ReintentaConflictoDePersistencia(t *testing.T) {
	store := ledgertest.NewStore()
	uc, runner := newAppendUC(store, ledger.RetryConfig{MaxAttempts: 3, Backoff: time.Millisecond})
	runner.FailCommits = 2

	mov := appendMov(t, uc, stock.TypeInReceipt, "10")
	assert.NotNil(t, mov)
	assert.Len(t, store.Movements(), 1, "el reintento no debe duplicar el movimiento")
	row := store.Stock("mat-1", "alm-1")
	assert.True(t, row.BalanceInMinusOut.Equal(dec("10")))
}

func TestAppend_AgotaReintentos(t *testing.T) {
	store := ledgertest.NewStore()
	uc, runner := newAppendUC(store, ledger.RetryConfig{MaxAttempts: 2, Backoff: time.Millisecond})
	runner.FailCommits = 5

	_, err := uc.Append(context.Background(), ledger.AppendMovementInput{
		MaterialID: "mat-1", WarehouseID: "alm-1",
		TypeCode: stock.TypeInReceipt, Quantity: dec("10"),
	})
	assert.ErrorIs(t, err, domain.ErrPersistenceConflict)
	assert.Empty(t, store.Movements())
}

// Escenario de doble reserva concurrente sobre la última unidad: el bloqueo
// serializa, una gana y la otra recibe el fallo de negocio.
func TestAppend_ReservasConcurrentesSerializan(t *testing.T) {
	store := ledgertest.NewStore()
	uc, _ := newAppendUC(store, ledger.RetryConfig{})
	appendMov(t, uc, stock.TypeInReceipt, "10")

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := uc.Append(context.Background(), ledger.AppendMovementInput{
				MaterialID: "mat-1", WarehouseID: "alm-1",
				TypeCode: stock.TypeReservationForPickingOrder, Quantity: dec("6"),
			})
			errs <- err
		}()
	}

	var failures, successes int
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			assert.ErrorIs(t, err, domain.ErrInsufficientFreeBalance)
			failures++
		} else {
			successes++
		}
	}
	assert.Equal(t, 1, successes, "exactamente una reserva debe ganar")
	assert.Equal(t, 1, failures, "la otra debe fallar por saldo libre")

	row := store.Stock("mat-1", "alm-1")
	assert.True(t, row.ReservedQuantity.Equal(dec("6")))
	assert.True(t, row.FreeBalance().Equal(dec("4")))
}

// El rebuild replaya el historial y debe coincidir con la proyección
// incremental movimiento a movimiento.
func TestRebuild_CoincideConIncremental(t *testing.T) {
	store := ledgertest.NewStore()
	uc, runner := newAppendUC(store, ledger.RetryConfig{})

	appendMov(t, uc, stock.TypeAdjustmentInitialCount, "30")
	appendMov(t, uc, stock.TypeInReceipt, "12")
	appendMov(t, uc, stock.TypeOutWithdrawal, "7")
	appendMov(t, uc, stock.TypeRestrictionForRequestItem, "5")

	rebuildUC := ledger.NewRebuildBalanceUseCase(runner, testLogger())
	result, err := rebuildUC.Rebuild(context.Background(), "mat-1", "alm-1", false)
	require.NoError(t, err)
	assert.True(t, result.Match, "incremental y replay deben coincidir")
	assert.False(t, result.Repaired)
	assert.True(t, result.Replayed.Equal(result.Incremental))
}

// Una proyección corrompida se detecta, y con repair se reescribe desde el
// historial.
func TestRebuild_DetectaYReparaCorrupcion(t *testing.T) {
	store := ledgertest.NewStore()
	uc, runner := newAppendUC(store, ledger.RetryConfig{})
	appendMov(t, uc, stock.TypeInReceipt, "10")

	// Corromper la proyección por fuera del proyector.
	require.NoError(t, runner.Run(context.Background(), func(r ledger.Repos) error {
		row, err := r.Stock.GetForUpdate("mat-1", "alm-1")
		if err != nil {
			return err
		}
		row.BalanceInMinusOut = dec("99")
		return r.Stock.Upsert(row)
	}))

	rebuildUC := ledger.NewRebuildBalanceUseCase(runner, testLogger())
	_, err := rebuildUC.Rebuild(context.Background(), "mat-1", "alm-1", false)
	assert.ErrorIs(t, err, domain.ErrRebuildMismatch)

	result, err := rebuildUC.Rebuild(context.Background(), "mat-1", "alm-1", true)
	require.NoError(t, err)
	assert.True(t, result.Repaired)

	row := store.Stock("mat-1", "alm-1")
	assert.True(t, row.BalanceInMinusOut.Equal(dec("10")), "repair debe restaurar el valor derivado del ledger")
}
