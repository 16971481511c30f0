package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/application/request"
	"github.com/jhoicas/almacen-api/internal/application/reservation"
	"github.com/jhoicas/almacen-api/internal/application/restriction"
	"github.com/jhoicas/almacen-api/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	MaterialUC    *usecase.MaterialUseCase
	WarehouseUC   *usecase.WarehouseUseCase
	AppendUC      *ledger.AppendMovementUseCase
	QueryUC       *ledger.QueryUseCase
	RebuildUC     *ledger.RebuildBalanceUseCase
	ReservationUC *reservation.UseCase
	BalanceUC     *request.BalanceUseCase
	RestrictionUC *restriction.UseCase
	JWTSecret     string
}

// Router registra las rutas de la API. Todas requieren Bearer Token;
// las escrituras del ledger exigen además rol de almacenista.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	almacenista := RequireRole(RoleAlmacenista)

	// Catálogo de materiales
	materials := api.Group("/materials")
	materialHandler := NewMaterialHandler(deps.MaterialUC)
	materials.Post("/", almacenista, materialHandler.Create)
	materials.Get("/", materialHandler.List)
	materials.Get("/:id", materialHandler.GetByID)
	materials.Put("/:id", almacenista, materialHandler.Update)
	materials.Delete("/:id", almacenista, materialHandler.Delete)

	// Almacenes
	warehouses := api.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", almacenista, warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Put("/:id", almacenista, warehouseHandler.Update)

	// Ledger de stock
	stock := api.Group("/stock")
	stockHandler := NewStockHandler(deps.AppendUC, deps.QueryUC, deps.RebuildUC)
	stock.Post("/movements", almacenista, stockHandler.AppendMovement)
	stock.Get("/movements", stockHandler.ListMovements)
	stock.Get("/balance", stockHandler.GetBalance)
	stock.Post("/rebuild", RequireRole(), stockHandler.Rebuild) // solo admin

	// Reservas (órdenes de separación)
	reservations := api.Group("/reservations", almacenista)
	reservationHandler := NewReservationHandler(deps.ReservationUC)
	reservations.Post("/", reservationHandler.Create)
	reservations.Post("/:id/fulfill", reservationHandler.Fulfill)
	reservations.Post("/:id/cancel", reservationHandler.Cancel)

	// Ítems de solicitud y saldos derivados
	items := api.Group("/requests/items")
	requestHandler := NewRequestHandler(deps.BalanceUC, deps.RestrictionUC)
	items.Post("/", requestHandler.CreateItem)
	items.Get("/:id", requestHandler.GetItem)
	items.Get("/:id/balance", requestHandler.GetItemBalance)
	items.Post("/:id/approve", almacenista, requestHandler.ApproveItem)
	items.Post("/:id/settle", almacenista, requestHandler.SettleItem)
	items.Post("/:id/cancel", almacenista, requestHandler.CancelItem)
}
