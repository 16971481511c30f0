package stock

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newRow() *entity.WarehouseStock {
	return &entity.WarehouseStock{
		MaterialID:           "mat-1",
		WarehouseID:          "alm-1",
		InitialStockQuantity: decimal.Zero,
		BalanceInMinusOut:    decimal.Zero,
		RestrictedQuantity:   decimal.Zero,
		ReservedQuantity:     decimal.Zero,
	}
}

func mustApply(t *testing.T, row *entity.WarehouseStock, code, qty string) {
	t.Helper()
	e, err := Resolve(code)
	require.NoError(t, err)
	require.NoError(t, ApplyEffect(row, e, dec(qty)))
}

func TestApplyEffect_CantidadNoPositiva(t *testing.T) {
	row := newRow()
	e, _ := Resolve(TypeInReceipt)

	assert.ErrorIs(t, ApplyEffect(row, e, decimal.Zero), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, ApplyEffect(row, e, dec("-3")), domain.ErrInvalidQuantity,
		"la dirección la aporta el tipo, nunca una cantidad negativa")
}

func TestApplyEffect_EntradaYSalida(t *testing.T) {
	row := newRow()
	mustApply(t, row, TypeInReceipt, "10")
	mustApply(t, row, TypeOutWithdrawal, "4")

	assert.True(t, row.BalanceInMinusOut.Equal(dec("6")))
	assert.True(t, row.PhysicalOnHand().Equal(dec("6")))
	assert.True(t, row.FreeBalance().Equal(dec("6")))
}

func TestApplyEffect_ConteoInicialNoTocaBalance(t *testing.T) {
	row := newRow()
	mustApply(t, row, TypeAdjustmentInitialCount, "25")

	assert.True(t, row.InitialStockQuantity.Equal(dec("25")))
	assert.True(t, row.BalanceInMinusOut.IsZero())
	assert.True(t, row.PhysicalOnHand().Equal(dec("25")))
}

// Una reserva resta del saldo libre sin mover la existencia física.
func TestApplyEffect_ReservaRestaDelLibre(t *testing.T) {
	row := newRow()
	mustApply(t, row, TypeInReceipt, "10")
	mustApply(t, row, TypeReservationForPickingOrder, "6")

	assert.True(t, row.PhysicalOnHand().Equal(dec("10")), "la reserva no toca lo físico")
	assert.True(t, row.ReservedQuantity.Equal(dec("6")))
	assert.True(t, row.FreeBalance().Equal(dec("4")))
}

// Invariante: un débito que dejaría el saldo libre negativo se rechaza y la
// fila queda intacta.
func TestApplyEffect_DebitoVioladorSeRechaza(t *testing.T) {
	row := newRow()
	mustApply(t, row, TypeInReceipt, "10")
	mustApply(t, row, TypeReservationForPickingOrder, "6")

	before := *row
	e, _ := Resolve(TypeReservationForPickingOrder)
	err := ApplyEffect(row, e, dec("6"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFreeBalance)
	assert.True(t, row.Equal(&before), "ante rechazo la fila no debe mutar")

	e, _ = Resolve(TypeOutWithdrawal)
	err = ApplyEffect(row, e, dec("5"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFreeBalance,
		"retirar 5 con libre 4 debe fallar aunque haya 10 físicas")
}

// Las liberaciones y entradas nunca fallan el invariante, incluso si otra
// columna dejó el libre temporalmente bajo.
func TestApplyEffect_CreditosNuncaFallan(t *testing.T) {
	row := newRow()
	mustApply(t, row, TypeInReceipt, "10")
	mustApply(t, row, TypeRestrictionForRequestItem, "10")

	assert.True(t, row.FreeBalance().IsZero())
	mustApply(t, row, TypeRestrictionRelease, "10")
	assert.True(t, row.FreeBalance().Equal(dec("10")))
}

// Restricciones y reservas son aditivas: 10 físicas, 4 restringidas y 3
// reservadas dejan 3 libres.
func TestApplyEffect_RestriccionYReservaSonAditivas(t *testing.T) {
	row := newRow()
	mustApply(t, row, TypeInReceipt, "10")
	mustApply(t, row, TypeRestrictionForRequestItem, "4")
	mustApply(t, row, TypeReservationForPickingOrder, "3")

	assert.True(t, row.FreeBalance().Equal(dec("3")))

	e, _ := Resolve(TypeReservationForPickingOrder)
	assert.ErrorIs(t, ApplyEffect(row, e, dec("4")), domain.ErrInsufficientFreeBalance)
}

// Aritmética decimal exacta: cantidades fraccionales no acumulan error binario.
func TestApplyEffect_DecimalExacto(t *testing.T) {
	row := newRow()
	for i := 0; i < 10; i++ {
		mustApply(t, row, TypeInReceipt, "0.1")
	}
	assert.True(t, row.BalanceInMinusOut.Equal(dec("1")), "0.1 sumado 10 veces debe dar exactamente 1")
}

func mov(id, code, qty string, at time.Time) *entity.StockMovement {
	return &entity.StockMovement{
		ID:          id,
		MaterialID:  "mat-1",
		WarehouseID: "alm-1",
		TypeCode:    code,
		Quantity:    dec(qty),
		Date:        at,
		CreatedAt:   at,
	}
}

// El replay desde cero debe producir la misma fila que la proyección
// incremental, para cualquier historial admitido.
func TestReplay_EquivaleAProyeccionIncremental(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	history := []struct{ code, qty string }{
		{TypeAdjustmentInitialCount, "50"},
		{TypeInReceipt, "20"},
		{TypeOutWithdrawal, "15"},
		{TypeRestrictionForRequestItem, "10"},
		{TypeReservationForPickingOrder, "8"},
		{TypeReservationRelease, "8"},
		{TypeOutWithdrawal, "8"},
		{TypeRestrictionRelease, "10"},
		{TypeAdjustmentNegative, "2"},
		{TypeInReturn, "1"},
	}

	incremental := newRow()
	movements := make([]*entity.StockMovement, 0, len(history))
	for i, h := range history {
		mustApply(t, incremental, h.code, h.qty)
		movements = append(movements, mov(string(rune('a'+i)), h.code, h.qty, base.Add(time.Duration(i)*time.Minute)))
	}

	replayed, err := Replay("mat-1", "alm-1", movements)
	require.NoError(t, err)
	assert.True(t, replayed.Equal(incremental),
		"replay e incremental deben coincidir: %+v vs %+v", replayed, incremental)
}

// El replay ordena por CreatedAt: recibir los movimientos desordenados no
// cambia el resultado.
func TestReplay_OrdenaPorCreatedAt(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	movements := []*entity.StockMovement{
		mov("b", TypeOutWithdrawal, "5", base.Add(time.Minute)),
		mov("a", TypeInReceipt, "10", base),
	}

	replayed, err := Replay("mat-1", "alm-1", movements)
	require.NoError(t, err)
	assert.True(t, replayed.BalanceInMinusOut.Equal(dec("5")))
}

func TestReplay_RechazaMovimientoDeOtraClave(t *testing.T) {
	base := time.Now()
	intruso := mov("x", TypeInReceipt, "1", base)
	intruso.WarehouseID = "otro-almacen"

	_, err := Replay("mat-1", "alm-1", []*entity.StockMovement{intruso})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReplay_CodigoDesconocidoEnHistorial(t *testing.T) {
	_, err := Replay("mat-1", "alm-1", []*entity.StockMovement{
		mov("x", "CODIGO_RETIRADO", "1", time.Now()),
	})
	assert.ErrorIs(t, err, domain.ErrUnknownMovementType)
}
