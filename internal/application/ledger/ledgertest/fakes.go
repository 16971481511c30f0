// Package ledgertest provee dobles en memoria del TxRunner y los
// repositorios para probar los casos de uso sin PostgreSQL. El mutex del
// store se sostiene durante toda la transacción, emulando la serialización
// que en producción aporta el bloqueo de fila.
package ledgertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

type stockKey struct {
	materialID  string
	warehouseID string
}

// Store estado compartido de los fakes. Todo acceso pasa por el TxRunner.
type Store struct {
	mu           sync.Mutex
	stock        map[stockKey]entity.WarehouseStock
	movements    []entity.StockMovement
	reservations map[string]entity.Reservation
	restrictions map[string]entity.Restriction
	items        map[string]entity.MaterialRequestItem
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		stock:        make(map[stockKey]entity.WarehouseStock),
		reservations: make(map[string]entity.Reservation),
		restrictions: make(map[string]entity.Restriction),
		items:        make(map[string]entity.MaterialRequestItem),
	}
}

// Stock devuelve una copia de la fila de proyección (fuera de transacción,
// para aserciones).
func (s *Store) Stock(materialID, warehouseID string) entity.WarehouseStock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[stockKey{materialID, warehouseID}]
}

// Movements devuelve una copia del ledger completo (para aserciones).
func (s *Store) Movements() []entity.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.StockMovement, len(s.movements))
	copy(out, s.movements)
	return out
}

// Reservation devuelve una copia de la reserva (para aserciones).
func (s *Store) Reservation(id string) (entity.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	return r, ok
}

// Restriction devuelve una copia de la restricción (para aserciones).
func (s *Store) Restriction(id string) (entity.Restriction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restrictions[id]
	return r, ok
}

// Item devuelve una copia del ítem de solicitud (para aserciones).
func (s *Store) Item(id string) (entity.MaterialRequestItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	return it, ok
}

type snapshot struct {
	stock        map[stockKey]entity.WarehouseStock
	movements    []entity.StockMovement
	reservations map[string]entity.Reservation
	restrictions map[string]entity.Restriction
	items        map[string]entity.MaterialRequestItem
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		stock:        make(map[stockKey]entity.WarehouseStock, len(s.stock)),
		movements:    make([]entity.StockMovement, len(s.movements)),
		reservations: make(map[string]entity.Reservation, len(s.reservations)),
		restrictions: make(map[string]entity.Restriction, len(s.restrictions)),
		items:        make(map[string]entity.MaterialRequestItem, len(s.items)),
	}
	for k, v := range s.stock {
		snap.stock[k] = v
	}
	copy(snap.movements, s.movements)
	for k, v := range s.reservations {
		snap.reservations[k] = v
	}
	for k, v := range s.restrictions {
		snap.restrictions[k] = v
	}
	for k, v := range s.items {
		snap.items[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.stock = snap.stock
	s.movements = snap.movements
	s.reservations = snap.reservations
	s.restrictions = snap.restrictions
	s.items = snap.items
}

// TxRunner implementa ledger.TxRunner contra el Store. Si FailCommits > 0,
// las primeras FailCommits transacciones fallan con ErrPersistenceConflict
// (el trabajo se revierte), para ejercitar la ruta de reintentos.
type TxRunner struct {
	store       *Store
	FailCommits int
}

var _ ledger.TxRunner = (*TxRunner)(nil)

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

func (t *TxRunner) repos() ledger.Repos {
	return ledger.Repos{
		Movements:    &movementRepo{store: t.store},
		Stock:        &stockRepo{store: t.store},
		Reservations: &reservationRepo{store: t.store},
		Restrictions: &restrictionRepo{store: t.store},
		RequestItems: &requestItemRepo{store: t.store},
	}
}

// Run ejecuta fn con el lock del store tomado, revirtiendo ante error.
func (t *TxRunner) Run(ctx context.Context, fn func(r ledger.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	snap := t.store.snapshot()
	if err := fn(t.repos()); err != nil {
		t.store.restore(snap)
		return err
	}
	if t.FailCommits > 0 {
		t.FailCommits--
		t.store.restore(snap)
		return fmt.Errorf("commit: %w", domain.ErrPersistenceConflict)
	}
	return nil
}

// RunSnapshot igual que Run pero descarta cualquier escritura: el caller es
// de solo lectura por contrato.
func (t *TxRunner) RunSnapshot(ctx context.Context, fn func(r ledger.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	snap := t.store.snapshot()
	err := fn(t.repos())
	t.store.restore(snap)
	return err
}

// ── Repositorios ─────────────────────────────────────────────────────────────

type movementRepo struct{ store *Store }

func (r *movementRepo) Create(m *entity.StockMovement) error {
	r.store.movements = append(r.store.movements, *m)
	return nil
}

func (r *movementRepo) GetByID(id string) (*entity.StockMovement, error) {
	for i := range r.store.movements {
		if r.store.movements[i].ID == id {
			m := r.store.movements[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (r *movementRepo) ListAllByKey(materialID, warehouseID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for i := range r.store.movements {
		if r.store.movements[i].MaterialID == materialID && r.store.movements[i].WarehouseID == warehouseID {
			m := r.store.movements[i]
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r *movementRepo) ListByWarehouse(warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for i := range r.store.movements {
		m := r.store.movements[i]
		if m.WarehouseID != warehouseID || !inRange(m.Date, from, to) {
			continue
		}
		out = append(out, &m)
	}
	return page(out, limit, offset), nil
}

func (r *movementRepo) ListByMaterial(materialID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for i := range r.store.movements {
		m := r.store.movements[i]
		if m.MaterialID != materialID || !inRange(m.Date, from, to) {
			continue
		}
		out = append(out, &m)
	}
	return page(out, limit, offset), nil
}

func (r *movementRepo) SumsByRequestItem(requestItemID string) (*repository.RequestItemSums, error) {
	sums := &repository.RequestItemSums{Received: decimal.Zero, Withdrawn: decimal.Zero}
	for i := range r.store.movements {
		m := r.store.movements[i]
		if m.Origin.RequestItemID != requestItemID {
			continue
		}
		switch {
		case strings.HasPrefix(m.TypeCode, "IN_"):
			sums.Received = sums.Received.Add(m.Quantity)
		case strings.HasPrefix(m.TypeCode, "OUT_"):
			sums.Withdrawn = sums.Withdrawn.Add(m.Quantity)
		}
	}
	return sums, nil
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func page(in []*entity.StockMovement, limit, offset int) []*entity.StockMovement {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

type stockRepo struct{ store *Store }

func (r *stockRepo) Get(materialID, warehouseID string) (*entity.WarehouseStock, error) {
	return r.GetForUpdate(materialID, warehouseID)
}

func (r *stockRepo) GetForUpdate(materialID, warehouseID string) (*entity.WarehouseStock, error) {
	key := stockKey{materialID, warehouseID}
	row, ok := r.store.stock[key]
	if !ok {
		row = entity.WarehouseStock{
			MaterialID:           materialID,
			WarehouseID:          warehouseID,
			InitialStockQuantity: decimal.Zero,
			BalanceInMinusOut:    decimal.Zero,
			RestrictedQuantity:   decimal.Zero,
			ReservedQuantity:     decimal.Zero,
		}
	}
	return &row, nil
}

func (r *stockRepo) Upsert(stock *entity.WarehouseStock) error {
	r.store.stock[stockKey{stock.MaterialID, stock.WarehouseID}] = *stock
	return nil
}

type reservationRepo struct{ store *Store }

func (r *reservationRepo) Create(res *entity.Reservation) error {
	r.store.reservations[res.ID] = *res
	return nil
}

func (r *reservationRepo) GetByID(id string) (*entity.Reservation, error) {
	res, ok := r.store.reservations[id]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r *reservationRepo) GetForUpdate(id string) (*entity.Reservation, error) {
	return r.GetByID(id)
}

func (r *reservationRepo) Close(id, status string, closedAt time.Time) error {
	res, ok := r.store.reservations[id]
	if !ok || res.Status != entity.ReservationOpen {
		return domain.ErrReservationNotOpen
	}
	res.Status = status
	res.ClosedAt = &closedAt
	r.store.reservations[id] = res
	return nil
}

func (r *reservationRepo) ListByPickingOrder(pickingOrderID string) ([]*entity.Reservation, error) {
	var out []*entity.Reservation
	for _, res := range r.store.reservations {
		if res.PickingOrderID == pickingOrderID {
			res := res
			out = append(out, &res)
		}
	}
	return out, nil
}

func (r *reservationRepo) ListOpenExpired(now time.Time, limit int) ([]*entity.Reservation, error) {
	var out []*entity.Reservation
	for _, res := range r.store.reservations {
		if res.Status != entity.ReservationOpen || res.ExpiresAt == nil || res.ExpiresAt.After(now) {
			continue
		}
		res := res
		out = append(out, &res)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *reservationRepo) SumOpenByRequestItem(requestItemID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, res := range r.store.reservations {
		if res.Status == entity.ReservationOpen && res.RequestItemID == requestItemID {
			sum = sum.Add(res.Quantity)
		}
	}
	return sum, nil
}

type restrictionRepo struct{ store *Store }

func (r *restrictionRepo) Create(restr *entity.Restriction) error {
	r.store.restrictions[restr.ID] = *restr
	return nil
}

func (r *restrictionRepo) GetByID(id string) (*entity.Restriction, error) {
	restr, ok := r.store.restrictions[id]
	if !ok {
		return nil, nil
	}
	return &restr, nil
}

func (r *restrictionRepo) GetOpenByRequestItemForUpdate(requestItemID string) (*entity.Restriction, error) {
	for _, restr := range r.store.restrictions {
		if restr.Status == entity.RestrictionOpen && restr.RequestItemID == requestItemID {
			restr := restr
			return &restr, nil
		}
	}
	return nil, nil
}

func (r *restrictionRepo) Release(id string, releasedAt time.Time) error {
	restr, ok := r.store.restrictions[id]
	if !ok || restr.Status != entity.RestrictionOpen {
		return domain.ErrRestrictionNotOpen
	}
	restr.Status = entity.RestrictionReleased
	restr.ReleasedAt = &releasedAt
	r.store.restrictions[id] = restr
	return nil
}

func (r *restrictionRepo) SumOpenByRequestItem(requestItemID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, restr := range r.store.restrictions {
		if restr.Status == entity.RestrictionOpen && restr.RequestItemID == requestItemID {
			sum = sum.Add(restr.Quantity)
		}
	}
	return sum, nil
}

type requestItemRepo struct{ store *Store }

func (r *requestItemRepo) CreateItem(item *entity.MaterialRequestItem) error {
	if _, ok := r.store.items[item.ID]; ok {
		return domain.ErrDuplicate
	}
	r.store.items[item.ID] = *item
	return nil
}

func (r *requestItemRepo) GetItemByID(id string) (*entity.MaterialRequestItem, error) {
	item, ok := r.store.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r *requestItemRepo) GetItemForUpdate(id string) (*entity.MaterialRequestItem, error) {
	return r.GetItemByID(id)
}

func (r *requestItemRepo) UpdateItem(item *entity.MaterialRequestItem) error {
	if _, ok := r.store.items[item.ID]; !ok {
		return domain.ErrNotFound
	}
	r.store.items[item.ID] = *item
	return nil
}

func (r *requestItemRepo) ListItemsByRequest(requestID string) ([]*entity.MaterialRequestItem, error) {
	var out []*entity.MaterialRequestItem
	for _, item := range r.store.items {
		if item.RequestID == requestID {
			item := item
			out = append(out, &item)
		}
	}
	return out, nil
}

// ── Catálogos ────────────────────────────────────────────────────────────────

// MaterialRepo fake del catálogo de materiales: todo ID consultado existe.
type MaterialRepo struct{}

func (MaterialRepo) Create(*entity.Material) error { return nil }
func (MaterialRepo) GetByID(id string) (*entity.Material, error) {
	return &entity.Material{ID: id, Code: "MAT-" + id, Name: "material " + id}, nil
}
func (MaterialRepo) GetByCode(string) (*entity.Material, error)        { return nil, nil }
func (MaterialRepo) Update(*entity.Material) error                     { return nil }
func (MaterialRepo) List(int, int) ([]*entity.Material, error)         { return nil, nil }
func (MaterialRepo) HasMovements(string) (bool, error)                 { return false, nil }
func (MaterialRepo) Delete(string) error                               { return nil }

// WarehouseRepo fake de almacenes: todo ID consultado existe.
type WarehouseRepo struct{}

func (WarehouseRepo) Create(*entity.Warehouse) error { return nil }
func (WarehouseRepo) GetByID(id string) (*entity.Warehouse, error) {
	return &entity.Warehouse{ID: id, Name: "almacén " + id, Active: true}, nil
}
func (WarehouseRepo) Update(*entity.Warehouse) error             { return nil }
func (WarehouseRepo) List(int, int) ([]*entity.Warehouse, error) { return nil, nil }
