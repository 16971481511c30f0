package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/almacen-api/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isTransientTxFailure verifica condiciones transitorias que justifican
// reintentar la transacción completa: conflicto de serialización, deadlock o
// timeout de lock.
func isTransientTxFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03": // lock_not_available
			return true
		}
	}
	return false
}

// mapTxError traduce fallos transitorios a ErrPersistenceConflict para que el
// caller los reintente con backoff; el resto se propaga tal cual.
func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	if isTransientTxFailure(err) {
		return domain.ErrPersistenceConflict
	}
	return err
}
