package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// StockHandler maneja las peticiones HTTP del ledger de stock (protegido).
type StockHandler struct {
	appendUC  *ledger.AppendMovementUseCase
	queryUC   *ledger.QueryUseCase
	rebuildUC *ledger.RebuildBalanceUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(appendUC *ledger.AppendMovementUseCase, queryUC *ledger.QueryUseCase, rebuildUC *ledger.RebuildBalanceUseCase) *StockHandler {
	return &StockHandler{appendUC: appendUC, queryUC: queryUC, rebuildUC: rebuildUC}
}

// AppendMovement godoc
// @Summary      Registrar movimiento de stock
// @Description  Agrega un movimiento inmutable al ledger y actualiza la proyección
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AppendMovementRequest  true  "material_id, warehouse_id, type_code, quantity (siempre positiva), origen"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/movements [post]
func (h *StockHandler) AppendMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.AppendMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	mov, err := h.appendUC.Append(c.Context(), ledger.AppendMovementInput{
		MaterialID:  in.MaterialID,
		WarehouseID: in.WarehouseID,
		TypeCode:    in.TypeCode,
		Quantity:    in.Quantity,
		Origin: entity.MovementOrigin{
			DocType:       in.OriginDocType,
			DocID:         in.OriginDocID,
			RequestItemID: in.RequestItemID,
		},
		UserID: userID,
	})
	if err != nil {
		return stockError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(mov))
}

// GetBalance godoc
// @Summary      Saldo por material y almacén
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        material_id   query  string  true  "ID del material"
// @Param        warehouse_id  query  string  true  "ID del almacén"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/balance [get]
func (h *StockHandler) GetBalance(c *fiber.Ctx) error {
	materialID := c.Query("material_id")
	warehouseID := c.Query("warehouse_id")
	if materialID == "" || warehouseID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "material_id y warehouse_id son requeridos"})
	}
	stock, err := h.queryUC.GetBalance(c.Context(), materialID, warehouseID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(toBalanceResponse(stock))
}

// ListMovements godoc
// @Summary      Historial de movimientos
// @Description  Lista movimientos por almacén o por material, con rango de fechas opcional
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Filtrar por almacén"
// @Param        material_id   query  string  false  "Filtrar por material"
// @Param        from          query  string  false  "Fecha inicial (RFC3339)"
// @Param        to            query  string  false  "Fecha final (RFC3339)"
// @Success      200  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	warehouseID := c.Query("warehouse_id")
	materialID := c.Query("material_id")
	if warehouseID == "" && materialID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "warehouse_id o material_id es requerido"})
	}
	from, to, err := parseDateRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "fechas inválidas, use RFC3339"})
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var movements []*entity.StockMovement
	if warehouseID != "" {
		movements, err = h.queryUC.ListByWarehouse(c.Context(), warehouseID, from, to, limit, offset)
	} else {
		movements, err = h.queryUC.ListByMaterial(c.Context(), materialID, from, to, limit, offset)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	out := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, *toMovementResponse(m))
	}
	return c.JSON(fiber.Map{"total": len(out), "movements": out})
}

// Rebuild godoc
// @Summary      Verificar/reconstruir la proyección de saldo
// @Description  Replaya el ledger completo de la clave y compara contra la proyección incremental
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RebuildRequest  true  "material_id, warehouse_id, repair"
// @Success      200   {object}  dto.RebuildResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.RebuildResponse
// @Router       /api/stock/rebuild [post]
func (h *StockHandler) Rebuild(c *fiber.Ctx) error {
	var in dto.RebuildRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.MaterialID == "" || in.WarehouseID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "material_id y warehouse_id son requeridos"})
	}
	result, err := h.rebuildUC.Rebuild(c.Context(), in.MaterialID, in.WarehouseID, in.Repair)
	if err != nil && !errors.Is(err, domain.ErrRebuildMismatch) {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := dto.RebuildResponse{
		Match:       result.Match,
		Repaired:    result.Repaired,
		Incremental: toBalanceResponse(result.Incremental),
		Replayed:    toBalanceResponse(result.Replayed),
	}
	status := fiber.StatusOK
	if !result.Match && !result.Repaired {
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(out)
}

// stockError mapea errores de dominio del ledger a códigos HTTP.
func stockError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrUnknownMovementType):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "UNKNOWN_MOVEMENT_TYPE", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientFreeBalance):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_FREE_BALANCE", Message: "saldo libre insuficiente"})
	case errors.Is(err, domain.ErrPersistenceConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONCURRENCY_CONFLICT", Message: "conflicto de concurrencia, reintente"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

func parseDateRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	if s := c.Query("from"); s != "" {
		t, perr := time.Parse(time.RFC3339, s)
		if perr != nil {
			return nil, nil, perr
		}
		from = &t
	}
	if s := c.Query("to"); s != "" {
		t, perr := time.Parse(time.RFC3339, s)
		if perr != nil {
			return nil, nil, perr
		}
		to = &t
	}
	return from, to, nil
}

func toMovementResponse(m *entity.StockMovement) *dto.MovementResponse {
	return &dto.MovementResponse{
		ID:            m.ID,
		MaterialID:    m.MaterialID,
		WarehouseID:   m.WarehouseID,
		TypeCode:      m.TypeCode,
		Quantity:      m.Quantity,
		OriginDocType: m.Origin.DocType,
		OriginDocID:   m.Origin.DocID,
		RequestItemID: m.Origin.RequestItemID,
		Date:          m.Date,
		CreatedBy:     m.CreatedBy,
	}
}

func toBalanceResponse(s *entity.WarehouseStock) *dto.BalanceResponse {
	if s == nil {
		return nil
	}
	return &dto.BalanceResponse{
		MaterialID:           s.MaterialID,
		WarehouseID:          s.WarehouseID,
		InitialStockQuantity: s.InitialStockQuantity,
		BalanceInMinusOut:    s.BalanceInMinusOut,
		PhysicalOnHand:       s.PhysicalOnHand(),
		RestrictedQuantity:   s.RestrictedQuantity,
		ReservedQuantity:     s.ReservedQuantity,
		FreeBalance:          s.FreeBalance(),
		UpdatedAt:            s.UpdatedAt,
	}
}
