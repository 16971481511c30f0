package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// ErrUnknownMovementType el código de movimiento no existe en el registro.
	// Error de programación/configuración: se loggea y se rechaza, nunca debería
	// ocurrir en producción.
	ErrUnknownMovementType = errors.New("tipo de movimiento desconocido")

	// ErrInvalidQuantity la cantidad es cero o negativa. El signo lo aporta el
	// tipo de movimiento, no el caller.
	ErrInvalidQuantity = errors.New("cantidad inválida")

	// ErrInsufficientFreeBalance la operación dejaría el saldo libre negativo.
	// Condición de negocio esperada bajo concurrencia; el caller debe reconsultar
	// y reintentar con otra cantidad.
	ErrInsufficientFreeBalance = errors.New("saldo libre insuficiente")

	// ErrPersistenceConflict la transacción no pudo hacer commit (conflicto de
	// serialización, deadlock, timeout). Transitorio: se reintenta con backoff.
	ErrPersistenceConflict = errors.New("conflicto de persistencia")

	// ErrRebuildMismatch la proyección incremental no coincide con el replay
	// completo del ledger. Indica un bug del proyector: se loggea y se marca
	// para conciliación manual, nunca se ignora en silencio.
	ErrRebuildMismatch = errors.New("proyección no coincide con replay del ledger")

	// ErrReservationNotOpen la reserva ya está en estado terminal (FULFILLED o
	// CANCELLED) y no admite más transiciones.
	ErrReservationNotOpen = errors.New("la reserva no está abierta")

	// ErrRestrictionNotOpen la restricción ya fue liberada.
	ErrRestrictionNotOpen = errors.New("la restricción no está abierta")
)
