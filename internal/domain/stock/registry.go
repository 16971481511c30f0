package stock

import (
	"fmt"

	"github.com/jhoicas/almacen-api/internal/domain"
)

// Ámbito sobre el que actúa un movimiento: existencia física, reservas o
// restricciones. Cada código del registro afecta exactamente uno.
type AppliesTo int

const (
	PhysicalOnHand AppliesTo = iota
	Reservation
	Restriction
)

// String para logs y mensajes.
func (a AppliesTo) String() string {
	switch a {
	case PhysicalOnHand:
		return "PHYSICAL_ON_HAND"
	case Reservation:
		return "RESERVATION"
	case Restriction:
		return "RESTRICTION"
	}
	return "UNKNOWN"
}

// Effect describe el efecto contable de un tipo de movimiento: a qué columna
// de la proyección aplica y con qué signo. El efecto queda atado al código en
// el sitio de definición; agregar una categoría operativa nueva (p. ej. un
// flujo de préstamo) es agregar entradas aquí, nunca ramificar lógica en otra
// parte.
type Effect struct {
	AppliesTo AppliesTo
	Sign      int // +1 crédito, -1 débito

	// SetsInitial marca el conteo físico que fija la cantidad inicial de la
	// fila en lugar de sumar al balance entradas-salidas.
	SetsInitial bool
}

// Debit indica si el efecto incrementa un débito (salida física, nueva reserva
// o nueva restricción). Solo los débitos disparan el chequeo de saldo libre.
func (e Effect) Debit() bool {
	if e.AppliesTo == PhysicalOnHand {
		return e.Sign < 0
	}
	return e.Sign > 0
}

// Códigos de movimiento, agrupados por prefijo. Taxonomía cerrada: un código
// desconocido se rechaza con ErrUnknownMovementType.
const (
	// Entradas físicas.
	TypeInReceipt = "IN_RECEIPT" // recepción de compra o entrega de proveedor
	TypeInReturn  = "IN_RETURN"  // devolución de material retirado

	// Salidas físicas.
	TypeOutWithdrawal = "OUT_WITHDRAWAL" // retiro contra solicitud o consumo directo

	// Ajustes (conteos y correcciones; el historial nunca se edita).
	TypeAdjustmentInitialCount = "ADJUSTMENT_INITIAL_COUNT" // primer conteo físico, fija el inicial
	TypeAdjustmentPositive     = "ADJUSTMENT_POSITIVE"
	TypeAdjustmentNegative     = "ADJUSTMENT_NEGATIVE"
	TypeAdjustmentReversalIn   = "ADJUSTMENT_REVERSAL_IN"  // reverso de una salida registrada por error
	TypeAdjustmentReversalOut  = "ADJUSTMENT_REVERSAL_OUT" // reverso de una entrada registrada por error

	// Reservas (órdenes de separación).
	TypeReservationForPickingOrder = "RESERVATION_FOR_PICKING_ORDER"
	TypeReservationRelease         = "RESERVATION_RELEASE"

	// Restricciones (ítems de solicitud aprobados sin liquidar).
	TypeRestrictionForRequestItem = "RESTRICTION_FOR_REQUEST_ITEM"
	TypeRestrictionRelease        = "RESTRICTION_RELEASE"
)

// effects es el registro: tabla estática e inmutable construida al inicio del
// proceso, sin mutación en runtime ni efectos secundarios.
var effects = map[string]Effect{
	TypeInReceipt:              {AppliesTo: PhysicalOnHand, Sign: +1},
	TypeInReturn:               {AppliesTo: PhysicalOnHand, Sign: +1},
	TypeOutWithdrawal:          {AppliesTo: PhysicalOnHand, Sign: -1},
	TypeAdjustmentInitialCount: {AppliesTo: PhysicalOnHand, Sign: +1, SetsInitial: true},
	TypeAdjustmentPositive:     {AppliesTo: PhysicalOnHand, Sign: +1},
	TypeAdjustmentNegative:     {AppliesTo: PhysicalOnHand, Sign: -1},
	TypeAdjustmentReversalIn:   {AppliesTo: PhysicalOnHand, Sign: +1},
	TypeAdjustmentReversalOut:  {AppliesTo: PhysicalOnHand, Sign: -1},

	TypeReservationForPickingOrder: {AppliesTo: Reservation, Sign: +1},
	TypeReservationRelease:         {AppliesTo: Reservation, Sign: -1},

	TypeRestrictionForRequestItem: {AppliesTo: Restriction, Sign: +1},
	TypeRestrictionRelease:        {AppliesTo: Restriction, Sign: -1},
}

// Resolve devuelve el efecto contable de un código de movimiento.
// Todo camino de escritura consulta aquí qué columna afecta el registro nuevo.
func Resolve(typeCode string) (Effect, error) {
	e, ok := effects[typeCode]
	if !ok {
		return Effect{}, fmt.Errorf("resolve %q: %w", typeCode, domain.ErrUnknownMovementType)
	}
	return e, nil
}

// Codes devuelve los códigos registrados (para validación y documentación).
func Codes() []string {
	out := make([]string, 0, len(effects))
	for c := range effects {
		out = append(out, c)
	}
	return out
}
