package reservation_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/application/ledger/ledgertest"
	"github.com/jhoicas/almacen-api/internal/application/reservation"
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

type fixture struct {
	store  *ledgertest.Store
	uc     *reservation.UseCase
	append *ledger.AppendMovementUseCase
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()
	store := ledgertest.NewStore()
	runner := ledgertest.NewTxRunner(store)
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	appendUC := ledger.NewAppendMovementUseCase(runner, ledgertest.MaterialRepo{}, ledgertest.WarehouseRepo{}, ledger.RetryConfig{}, log)
	uc := reservation.NewUseCase(runner, appendUC, ttl, log)
	return &fixture{store: store, uc: uc, append: appendUC}
}

// seed deja existencia física disponible en (mat-1, alm-1).
func (f *fixture) seed(t *testing.T, qty string) {
	t.Helper()
	_, err := f.append.Append(context.Background(), ledger.AppendMovementInput{
		MaterialID: "mat-1", WarehouseID: "alm-1",
		TypeCode: stock.TypeInReceipt, Quantity: dec(qty),
	})
	require.NoError(t, err)
}

func (f *fixture) reserve(t *testing.T, qty string) *entity.Reservation {
	t.Helper()
	res, err := f.uc.Create(context.Background(), reservation.CreateInput{
		MaterialID: "mat-1", WarehouseID: "alm-1",
		PickingOrderID: "picking-1", Quantity: dec(qty), UserID: "user-1",
	})
	require.NoError(t, err)
	return res
}

func TestCreate_ReservaContraSaldoLibre(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, "10")

	res := f.reserve(t, "6")
	assert.Equal(t, entity.ReservationOpen, res.Status)
	assert.Nil(t, res.ExpiresAt, "con ttl cero las reservas no expiran")

	row := f.store.Stock("mat-1", "alm-1")
	assert.True(t, row.PhysicalOnHand().Equal(dec("10")), "reservar no mueve lo físico")
	assert.True(t, row.ReservedQuantity.Equal(dec("6")))
	assert.True(t, row.FreeBalance().Equal(dec("4")))
}

func TestCreate_SaldoLibreInsuficiente(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, "5")

	_, err := f.uc.Create(context.Background(), reservation.CreateInput{
		MaterialID: "mat-1", WarehouseID: "alm-1",
		PickingOrderID: "picking-1", Quantity: dec("6"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFreeBalance)
	assert.Len(t, f.store.Movements(), 1, "el movimiento de reserva rechazado no debe existir")
}

// Dos reservas concurrentes de 6 contra 10 libres: el bloqueo de fila
// serializa, exactamente una gana.
func TestCreate_ConcurrenciaPorLaUltimaUnidad(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, "10")

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.uc.Create(context.Background(), reservation.CreateInput{
				MaterialID: "mat-1", WarehouseID: "alm-1",
				PickingOrderID: "picking-concurrente", Quantity: dec("6"),
			})
			errs <- err
		}()
	}

	var wins, losses int
	for i := 0; i < 2; i++ {
		if err := <-errs; err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientFreeBalance)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
	row := f.store.Stock("mat-1", "alm-1")
	assert.True(t, row.ReservedQuantity.Equal(dec("6")))
}

// Ciclo completo: reservar, cumplir con el retiro, verificar que la reserva
// no descuenta dos veces.
func TestFulfill_LiberaYRetiraEnUnaTransaccion(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, "10")
	res := f.reserve(t, "6")

	require.NoError(t, f.uc.Fulfill(context.Background(), res.ID, "retiro-1", "user-1"))

	closed, ok := f.store.Reservation(res.ID)
	require.True(t, ok)
	assert.Equal(t, entity.ReservationFulfilled, closed.Status)
	assert.NotNil(t, closed.ClosedAt)

	row := f.store.Stock("mat-1", "alm-1")
	assert.True(t, row.PhysicalOnHand().Equal(dec("4")), "el retiro descuenta lo físico")
	assert.True(t, row.ReservedQuantity.IsZero(), "la reserva quedó liberada")
	assert.True(t, row.FreeBalance().Equal(dec("4")))
}

// Con todo el stock reservado por ella misma, la reserva aún puede cumplirse:
// la liberación va antes del retiro dentro de la transacción.
func TestFulfill_NoCompiteContraSuPropiaReserva(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, "6")
	res := f.reserve(t, "6")

	row := f.store.Stock("mat-1", "alm-1")
	require.True(t, row.FreeBalance().IsZero())

	assert.NoError(t, f.uc.Fulfill(context.Background(), res.ID, "retiro-1", "user-1"))
	row = f.store.Stock("mat-1", "alm-1")
	assert.True(t, row.PhysicalOnHand().IsZero())
}

func TestFulfill_ReservaYaCerrada(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, "10")
	res := f.reserve(t, "6")
	require.NoError(t, f.uc.Cancel(context.Background(), res.ID, "user-1"))

	err := f.uc.Fulfill(context.Background(), res.ID, "retiro-1", "user-1")
	assert.ErrorIs(t, err, domain.ErrReservationNotOpen,
		"las transiciones de estado son terminales")
}

func TestFulfill_ReservaInexistente(t *testing.T) {
	f := newFixture(t, 0)
	err := f.uc.Fulfill(context.Background(), "no-existe", "retiro-1", "user-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancel_DevuelveAlSaldoLibre(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, "10")
	res := f.reserve(t, "6")

	require.NoError(t, f.uc.Cancel(context.Background(), res.ID, "user-1"))

	closed, _ := f.store.Reservation(res.ID)
	assert.Equal(t, entity.ReservationCancelled, closed.Status)
	row := f.store.Stock("mat-1", "alm-1")
	assert.True(t, row.FreeBalance().Equal(dec("10")), "cancelar devuelve la cantidad al libre")
	assert.True(t, row.PhysicalOnHand().Equal(dec("10")), "cancelar no toca lo físico")
}

func TestExpireSweep_CancelaVencidasYEsIdempotente(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.seed(t, "20")

	primera := f.reserve(t, "5")
	segunda := f.reserve(t, "3")

	// Barrer dos horas en el futuro: ambos ttl ya pasaron...
	n, err := f.uc.ExpireSweep(context.Background(), time.Now().Add(2*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// ...y barrer de nuevo no debe tocar nada (idempotencia del barrido).
	n, err = f.uc.ExpireSweep(context.Background(), time.Now().Add(2*time.Hour), 100)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, id := range []string{primera.ID, segunda.ID} {
		res, _ := f.store.Reservation(id)
		assert.Equal(t, entity.ReservationCancelled, res.Status)
	}
	row := f.store.Stock("mat-1", "alm-1")
	assert.True(t, row.ReservedQuantity.IsZero())
	assert.True(t, row.FreeBalance().Equal(dec("20")))
}

func TestExpireSweep_RespetaVigencia(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.seed(t, "20")
	res := f.reserve(t, "5")

	n, err := f.uc.ExpireSweep(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Zero(t, n, "una reserva dentro de su ttl no debe cancelarse")

	still, _ := f.store.Reservation(res.ID)
	assert.Equal(t, entity.ReservationOpen, still.Status)
}
