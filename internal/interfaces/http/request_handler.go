package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/request"
	"github.com/jhoicas/almacen-api/internal/application/restriction"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// RequestHandler maneja las peticiones HTTP de ítems de solicitud y sus
// saldos derivados (protegido).
type RequestHandler struct {
	balanceUC     *request.BalanceUseCase
	restrictionUC *restriction.UseCase
}

// NewRequestHandler construye el handler.
func NewRequestHandler(balanceUC *request.BalanceUseCase, restrictionUC *restriction.UseCase) *RequestHandler {
	return &RequestHandler{balanceUC: balanceUC, restrictionUC: restrictionUC}
}

// CreateItem godoc
// @Summary      Crear ítem de solicitud
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateRequestItemRequest  true  "request_id, material_id, warehouse_id, quantity"
// @Success      201   {object}  dto.RequestItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/requests/items [post]
func (h *RequestHandler) CreateItem(c *fiber.Ctx) error {
	var in dto.CreateRequestItemRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.RequestID == "" || in.MaterialID == "" || in.WarehouseID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "request_id, material_id y warehouse_id son requeridos"})
	}
	item, err := h.balanceUC.CreateItem(c.Context(), request.CreateItemInput{
		RequestID:   in.RequestID,
		MaterialID:  in.MaterialID,
		WarehouseID: in.WarehouseID,
		Quantity:    in.Quantity,
	})
	if err != nil {
		return requestError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toRequestItemResponse(item))
}

// GetItem godoc
// @Summary      Obtener ítem de solicitud
// @Tags         requests
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del ítem"
// @Success      200  {object}  dto.RequestItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/requests/items/{id} [get]
func (h *RequestHandler) GetItem(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	item, err := h.balanceUC.GetItem(c.Context(), id)
	if err != nil {
		return requestError(c, err)
	}
	return c.JSON(toRequestItemResponse(item))
}

// GetItemBalance godoc
// @Summary      Saldos derivados del ítem
// @Description  Recalcula saldo efectivo y potencial desde ledger, reservas y restricciones
// @Tags         requests
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del ítem"
// @Success      200  {object}  dto.RequestItemBalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/requests/items/{id}/balance [get]
func (h *RequestHandler) GetItemBalance(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	balance, err := h.balanceUC.GetItemBalance(c.Context(), id)
	if err != nil {
		return requestError(c, err)
	}
	return c.JSON(dto.RequestItemBalanceResponse{
		RequestItemID:      balance.RequestItemID,
		QuantityRequested:  balance.QuantityRequested,
		QuantityApproved:   balance.QuantityApproved,
		QuantityReceived:   balance.QuantityReceived,
		QuantityWithdrawn:  balance.QuantityWithdrawn,
		QuantityReserved:   balance.QuantityReserved,
		QuantityRestricted: balance.QuantityRestricted,
		EffectiveBalance:   balance.EffectiveBalance(),
		PotentialBalance:   balance.PotentialBalance(),
	})
}

// ApproveItem godoc
// @Summary      Aprobar ítem de solicitud
// @Description  Registra la restricción que aparta la cantidad aprobada del saldo libre
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del ítem"
// @Param        body  body  dto.ApproveRequestItemRequest  true  "quantity_approved"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/items/{id}/approve [post]
func (h *RequestHandler) ApproveItem(c *fiber.Ctx) error {
	userID := GetUserID(c)
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	var in dto.ApproveRequestItemRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	restr, err := h.restrictionUC.ApproveItem(c.Context(), id, in.QuantityApproved, userID)
	if err != nil {
		return requestError(c, err)
	}
	return c.JSON(fiber.Map{"message": "ítem aprobado", "restriction_id": restr.ID})
}

// SettleItem godoc
// @Summary      Liquidar ítem de solicitud
// @Description  Si lo recibido cubre lo aprobado, libera la restricción y marca el ítem SETTLED
// @Tags         requests
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del ítem"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/requests/items/{id}/settle [post]
func (h *RequestHandler) SettleItem(c *fiber.Ctx) error {
	userID := GetUserID(c)
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	settled, err := h.restrictionUC.Settle(c.Context(), id, userID)
	if err != nil {
		return requestError(c, err)
	}
	if !settled {
		return c.JSON(fiber.Map{"settled": false, "message": "lo recibido aún no cubre lo aprobado"})
	}
	return c.JSON(fiber.Map{"settled": true, "message": "ítem liquidado"})
}

// CancelItem godoc
// @Summary      Cancelar ítem de solicitud
// @Description  Libera la restricción si existía y marca el ítem CANCELLED
// @Tags         requests
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del ítem"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/requests/items/{id}/cancel [post]
func (h *RequestHandler) CancelItem(c *fiber.Ctx) error {
	userID := GetUserID(c)
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	if err := h.restrictionUC.CancelItem(c.Context(), id, userID); err != nil {
		return requestError(c, err)
	}
	return c.JSON(fiber.Map{"message": "ítem cancelado"})
}

func requestError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "ítem de solicitud no encontrado"})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrRestrictionNotOpen):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "RESTRICTION_NOT_OPEN", Message: "la restricción ya no está abierta"})
	case errors.Is(err, domain.ErrInsufficientFreeBalance):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_FREE_BALANCE", Message: "saldo libre insuficiente"})
	case errors.Is(err, domain.ErrPersistenceConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONCURRENCY_CONFLICT", Message: "conflicto de concurrencia, reintente"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

func toRequestItemResponse(item *entity.MaterialRequestItem) *dto.RequestItemResponse {
	return &dto.RequestItemResponse{
		ID:                item.ID,
		RequestID:         item.RequestID,
		MaterialID:        item.MaterialID,
		WarehouseID:       item.WarehouseID,
		QuantityRequested: item.QuantityRequested,
		QuantityApproved:  item.QuantityApproved,
		Status:            item.Status,
		CreatedAt:         item.CreatedAt,
	}
}
