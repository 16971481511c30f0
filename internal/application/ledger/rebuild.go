package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/stock"
	"github.com/jhoicas/almacen-api/pkg/logger"
)

// RebuildBalanceUseCase reconstruye la proyección de (material, almacén)
// replayando el historial completo del ledger y la compara con la fila
// mantenida incrementalmente. La equivalencia replay == incremental es la
// propiedad de correctitud central del diseño; una discrepancia indica un bug
// del proyector y jamás se ignora en silencio.
type RebuildBalanceUseCase struct {
	txRunner TxRunner
	log      *logger.Logger
}

// NewRebuildBalanceUseCase construye el caso de uso.
func NewRebuildBalanceUseCase(txRunner TxRunner, log *logger.Logger) *RebuildBalanceUseCase {
	return &RebuildBalanceUseCase{txRunner: txRunner, log: log}
}

// RebuildResult resultado de la verificación replay vs incremental.
type RebuildResult struct {
	Incremental *entity.WarehouseStock
	Replayed    *entity.WarehouseStock
	Match       bool
	Repaired    bool
}

// Rebuild replaya todos los movimientos de la clave bajo bloqueo de fila.
// Si la proyección incremental no coincide con el replay, loggea la
// discrepancia y devuelve ErrRebuildMismatch; con repair=true, además
// persiste la fila re-derivada (el ledger es la fuente de verdad).
func (uc *RebuildBalanceUseCase) Rebuild(ctx context.Context, materialID, warehouseID string, repair bool) (*RebuildResult, error) {
	result := &RebuildResult{}
	err := uc.txRunner.Run(ctx, func(r Repos) error {
		current, err := r.Stock.GetForUpdate(materialID, warehouseID)
		if err != nil {
			return err
		}
		movements, err := r.Movements.ListAllByKey(materialID, warehouseID)
		if err != nil {
			return err
		}
		replayed, err := stock.Replay(materialID, warehouseID, movements)
		if err != nil {
			return err
		}

		result.Incremental = current
		result.Replayed = replayed
		result.Match = current.Equal(replayed)
		if result.Match {
			return nil
		}

		uc.log.Error().
			Str("material_id", materialID).
			Str("warehouse_id", warehouseID).
			Str("incremental_free", current.FreeBalance().String()).
			Str("replayed_free", replayed.FreeBalance().String()).
			Msg("proyección incremental difiere del replay; requiere conciliación")

		if !repair {
			return domain.ErrRebuildMismatch
		}
		replayed.UpdatedAt = time.Now()
		if err := r.Stock.Upsert(replayed); err != nil {
			return err
		}
		result.Repaired = true
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}
