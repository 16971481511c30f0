package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// WarehouseStock es la proyección materializada del ledger: una fila por
// (material, almacén). Se deriva de los movimientos y puede reconstruirse
// completa en cualquier momento replayando el ledger.
type WarehouseStock struct {
	MaterialID  string
	WarehouseID string

	// InitialStockQuantity cantidad presente cuando inició el ledger
	// (establecida por el primer conteo físico).
	InitialStockQuantity decimal.Decimal

	// BalanceInMinusOut suma de entradas menos salidas desde la inicialización.
	BalanceInMinusOut decimal.Decimal

	// RestrictedQuantity suma de restricciones abiertas.
	RestrictedQuantity decimal.Decimal

	// ReservedQuantity suma de reservas abiertas.
	ReservedQuantity decimal.Decimal

	UpdatedAt time.Time
}

// PhysicalOnHand cantidad física en el almacén: inicial + (entradas - salidas).
func (s *WarehouseStock) PhysicalOnHand() decimal.Decimal {
	return s.InitialStockQuantity.Add(s.BalanceInMinusOut)
}

// FreeBalance saldo libre para nuevos compromisos: físico - restringido - reservado.
// Invariante: nunca negativo después de una operación confirmada.
func (s *WarehouseStock) FreeBalance() decimal.Decimal {
	return s.PhysicalOnHand().Sub(s.RestrictedQuantity).Sub(s.ReservedQuantity)
}

// Equal compara los campos derivados del ledger (ignora UpdatedAt).
// Usado por el rebuild para verificar la equivalencia replay vs incremental.
func (s *WarehouseStock) Equal(o *WarehouseStock) bool {
	return s.MaterialID == o.MaterialID &&
		s.WarehouseID == o.WarehouseID &&
		s.InitialStockQuantity.Equal(o.InitialStockQuantity) &&
		s.BalanceInMinusOut.Equal(o.BalanceInMinusOut) &&
		s.RestrictedQuantity.Equal(o.RestrictedQuantity) &&
		s.ReservedQuantity.Equal(o.ReservedQuantity)
}
