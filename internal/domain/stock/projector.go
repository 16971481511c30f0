package stock

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// ApplyEffect aplica el efecto de un movimiento sobre la fila de proyección y
// verifica el invariante de saldo libre. Muta row solo si la operación es
// válida; en caso de error la fila queda intacta y el caller debe abortar la
// transacción completa (el movimiento nunca se escribe).
//
// Debe ejecutarse dentro de la misma transacción que el insert del movimiento,
// con la fila bloqueada (SELECT ... FOR UPDATE): la sección crítica es
// leer fila, computar, chequear invariante, escribir fila.
func ApplyEffect(row *entity.WarehouseStock, effect Effect, quantity decimal.Decimal) error {
	if !quantity.GreaterThan(decimal.Zero) {
		return domain.ErrInvalidQuantity
	}

	next := *row
	if err := apply(&next, effect, quantity); err != nil {
		return err
	}

	// Solo las operaciones que incrementan un débito pueden violar el
	// invariante; recepciones y liberaciones nunca fallan este chequeo.
	if effect.Debit() && next.FreeBalance().IsNegative() {
		return fmt.Errorf("material %s almacén %s: libre %s tras aplicar %s de %s: %w",
			row.MaterialID, row.WarehouseID, next.FreeBalance(), effect.AppliesTo, quantity,
			domain.ErrInsufficientFreeBalance)
	}

	*row = next
	return nil
}

// apply suma el delta del efecto a la columna que corresponde, sin chequeos.
func apply(row *entity.WarehouseStock, effect Effect, quantity decimal.Decimal) error {
	delta := quantity
	if effect.Sign < 0 {
		delta = delta.Neg()
	}
	if effect.SetsInitial {
		row.InitialStockQuantity = row.InitialStockQuantity.Add(delta)
		return nil
	}
	switch effect.AppliesTo {
	case PhysicalOnHand:
		row.BalanceInMinusOut = row.BalanceInMinusOut.Add(delta)
	case Reservation:
		row.ReservedQuantity = row.ReservedQuantity.Add(delta)
	case Restriction:
		row.RestrictedQuantity = row.RestrictedQuantity.Add(delta)
	default:
		return domain.ErrUnknownMovementType
	}
	return nil
}

// Replay re-deriva la fila de proyección desde cero replayando todo el
// historial de movimientos de (material, almacén). Es el fallback de
// correctitud ante cualquier bug del proyector incremental: para cualquier
// intercalado de movimientos debe producir una fila idéntica a la mantenida
// incrementalmente.
//
// El chequeo de saldo libre se omite durante el replay: los movimientos ya
// fueron admitidos en su momento y el historial es inmutable.
func Replay(materialID, warehouseID string, movements []*entity.StockMovement) (*entity.WarehouseStock, error) {
	ordered := make([]*entity.StockMovement, len(movements))
	copy(ordered, movements)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	row := &entity.WarehouseStock{
		MaterialID:           materialID,
		WarehouseID:          warehouseID,
		InitialStockQuantity: decimal.Zero,
		BalanceInMinusOut:    decimal.Zero,
		RestrictedQuantity:   decimal.Zero,
		ReservedQuantity:     decimal.Zero,
	}
	for _, m := range ordered {
		if m.MaterialID != materialID || m.WarehouseID != warehouseID {
			return nil, fmt.Errorf("replay: movimiento %s no pertenece a (%s, %s): %w",
				m.ID, materialID, warehouseID, domain.ErrInvalidInput)
		}
		effect, err := Resolve(m.TypeCode)
		if err != nil {
			return nil, err
		}
		if err := apply(row, effect, m.Quantity); err != nil {
			return nil, err
		}
	}
	return row, nil
}
