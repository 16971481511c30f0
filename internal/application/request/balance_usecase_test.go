package request_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/application/ledger/ledgertest"
	"github.com/jhoicas/almacen-api/internal/application/request"
	"github.com/jhoicas/almacen-api/internal/application/restriction"
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
	store         *ledgertest.Store
	balanceUC     *request.BalanceUseCase
	restrictionUC *restriction.UseCase
	appendUC      *ledger.AppendMovementUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := ledgertest.NewStore()
	runner := ledgertest.NewTxRunner(store)
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	appendUC := ledger.NewAppendMovementUseCase(runner, ledgertest.MaterialRepo{}, ledgertest.WarehouseRepo{}, ledger.RetryConfig{}, log)
	return &fixture{
		store:         store,
		balanceUC:     request.NewBalanceUseCase(runner),
		restrictionUC: restriction.NewUseCase(runner, appendUC, log),
		appendUC:      appendUC,
	}
}

func (f *fixture) newItem(t *testing.T, qty string) *entity.MaterialRequestItem {
	t.Helper()
	item, err := f.balanceUC.CreateItem(context.Background(), request.CreateItemInput{
		RequestID: "req-1", MaterialID: "mat-1", WarehouseID: "alm-1", Quantity: dec(qty),
	})
	require.NoError(t, err)
	return item
}

// seed deja existencia física sin marcar con ningún ítem.
func (f *fixture) seed(t *testing.T, qty string) {
	t.Helper()
	_, err := f.appendUC.Append(context.Background(), ledger.AppendMovementInput{
		MaterialID: "mat-1", WarehouseID: "alm-1",
		TypeCode: stock.TypeInReceipt, Quantity: dec(qty),
	})
	require.NoError(t, err)
}

// appendFor registra un movimiento marcado con el ítem de solicitud.
func (f *fixture) appendFor(t *testing.T, itemID, code, qty string) {
	t.Helper()
	_, err := f.appendUC.Append(context.Background(), ledger.AppendMovementInput{
		MaterialID: "mat-1", WarehouseID: "alm-1",
		TypeCode: code, Quantity: dec(qty),
		Origin: entity.MovementOrigin{DocType: entity.OriginRequestItem, DocID: itemID, RequestItemID: itemID},
	})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, itemID string) *entity.RequestItemBalance {
	t.Helper()
	b, err := f.balanceUC.GetItemBalance(context.Background(), itemID)
	require.NoError(t, err)
	return b
}

func TestCreateItem_Pendiente(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "12")

	assert.Equal(t, entity.RequestItemPending, item.Status)
	assert.True(t, item.QuantityApproved.IsZero())

	_, err := f.balanceUC.CreateItem(context.Background(), request.CreateItemInput{
		RequestID: "req-1", MaterialID: "mat-1", WarehouseID: "alm-1", Quantity: decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestGetItemBalance_ItemInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.balanceUC.GetItemBalance(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Ciclo de un ítem: aprobar abre la restricción; las entradas marcadas con el
// ítem acumulan recibido; al cubrir lo aprobado, la liquidación libera la
// restricción y el retiro posterior descuenta el efectivo.
func TestCicloDeItem_AprobarRecibirLiquidarRetirar(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "12")

	// Existencia previa de otros flujos: el almacén no está vacío.
	f.seed(t, "20")

	restr, err := f.restrictionUC.ApproveItem(context.Background(), item.ID, dec("10"), "jefe-almacen")
	require.NoError(t, err)
	assert.Equal(t, entity.RestrictionOpen, restr.Status)

	got, _ := f.store.Item(item.ID)
	assert.Equal(t, entity.RequestItemApproved, got.Status)
	assert.True(t, got.QuantityApproved.Equal(dec("10")))

	row := f.store.Stock("mat-1", "alm-1")
	assert.True(t, row.RestrictedQuantity.Equal(dec("10")))
	assert.True(t, row.FreeBalance().Equal(dec("10")))

	// Recepción parcial: aún no liquidable.
	f.appendFor(t, item.ID, stock.TypeInReceipt, "6")
	settled, err := f.restrictionUC.Settle(context.Background(), item.ID, "almacenista")
	require.NoError(t, err)
	assert.False(t, settled, "6 recibidas contra 10 aprobadas no liquida")

	b := f.balance(t, item.ID)
	assert.True(t, b.QuantityReceived.Equal(dec("6")))
	assert.True(t, b.EffectiveBalance().Equal(dec("6")), "efectivo = recibido - retirado")
	assert.True(t, b.PotentialBalance().Equal(dec("10")), "potencial = aprobado - retirado - reservado")

	// Completa lo aprobado: liquida y libera la restricción.
	f.appendFor(t, item.ID, stock.TypeInReceipt, "4")
	settled, err = f.restrictionUC.Settle(context.Background(), item.ID, "almacenista")
	require.NoError(t, err)
	assert.True(t, settled)

	got, _ = f.store.Item(item.ID)
	assert.Equal(t, entity.RequestItemSettled, got.Status)
	released, _ := f.store.Restriction(restr.ID)
	assert.Equal(t, entity.RestrictionReleased, released.Status)

	row = f.store.Stock("mat-1", "alm-1")
	assert.True(t, row.RestrictedQuantity.IsZero())
	assert.True(t, row.PhysicalOnHand().Equal(dec("30")))

	// Retiro contra el ítem: baja el efectivo y el potencial por igual.
	f.appendFor(t, item.ID, stock.TypeOutWithdrawal, "7")
	b = f.balance(t, item.ID)
	assert.True(t, b.EffectiveBalance().Equal(dec("3")))
	assert.True(t, b.PotentialBalance().Equal(dec("3")))
}

// La consulta de saldos es de solo lectura: dos llamadas seguidas sin
// escrituras intermedias devuelven exactamente lo mismo.
func TestGetItemBalance_LecturaIdempotente(t *testing.T) {
	f := newFixture(t)
	item := f.newItem(t, "8")
	f.seed(t, "20")
	_, err := f.restrictionUC.ApproveItem(context.Background(), item.ID, dec("8"), "jefe")
	require.NoError(t, err)
	f.appendFor(t, item.ID, stock.TypeInReceipt, "5")

	first := f.balance(t, item.ID)
	second := f.balance(t, item.ID)
	assert.Equal(t, first, second)
	assert.Len(t, f.store.Movements(), 3, "consultar saldos no escribe movimientos")
}

func TestApproveItem_Reglas(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "20")
	item := f.newItem(t, "12")

	_, err := f.restrictionUC.ApproveItem(context.Background(), item.ID, dec("15"), "jefe")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity, "no se aprueba más de lo pedido")

	_, err = f.restrictionUC.ApproveItem(context.Background(), item.ID, dec("10"), "jefe")
	require.NoError(t, err)

	_, err = f.restrictionUC.ApproveItem(context.Background(), item.ID, dec("5"), "jefe")
	assert.ErrorIs(t, err, domain.ErrConflict, "un ítem ya aprobado no se vuelve a aprobar")
}

// Aprobar está sujeto al invariante: restringir más de lo libre falla y el
// ítem sigue PENDING.
func TestApproveItem_SinSaldoLibre(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "5")
	item := f.newItem(t, "10")

	_, err := f.restrictionUC.ApproveItem(context.Background(), item.ID, dec("10"), "jefe")
	assert.ErrorIs(t, err, domain.ErrInsufficientFreeBalance)

	got, _ := f.store.Item(item.ID)
	assert.Equal(t, entity.RequestItemPending, got.Status, "el rechazo revierte la transición del ítem")
}

func TestCancelItem_LiberaRestriccion(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "20")
	item := f.newItem(t, "10")
	restr, err := f.restrictionUC.ApproveItem(context.Background(), item.ID, dec("10"), "jefe")
	require.NoError(t, err)

	require.NoError(t, f.restrictionUC.CancelItem(context.Background(), item.ID, "jefe"))

	got, _ := f.store.Item(item.ID)
	assert.Equal(t, entity.RequestItemCancelled, got.Status)
	released, _ := f.store.Restriction(restr.ID)
	assert.Equal(t, entity.RestrictionReleased, released.Status)
	row := f.store.Stock("mat-1", "alm-1")
	assert.True(t, row.FreeBalance().Equal(dec("20")), "cancelar devuelve lo restringido al libre")

	err = f.restrictionUC.CancelItem(context.Background(), item.ID, "jefe")
	assert.ErrorIs(t, err, domain.ErrConflict, "cancelar es terminal")
}
