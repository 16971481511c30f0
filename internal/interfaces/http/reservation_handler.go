package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/reservation"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// ReservationHandler maneja las peticiones HTTP de reservas (protegido).
type ReservationHandler struct {
	uc *reservation.UseCase
}

// NewReservationHandler construye el handler.
func NewReservationHandler(uc *reservation.UseCase) *ReservationHandler {
	return &ReservationHandler{uc: uc}
}

// Create godoc
// @Summary      Crear reserva contra saldo libre
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReservationRequest  true  "material_id, warehouse_id, picking_order_id, quantity"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations [post]
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.PickingOrderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "picking_order_id es requerido"})
	}
	res, err := h.uc.Create(c.Context(), reservation.CreateInput{
		MaterialID:     in.MaterialID,
		WarehouseID:    in.WarehouseID,
		PickingOrderID: in.PickingOrderID,
		RequestItemID:  in.RequestItemID,
		Quantity:       in.Quantity,
		UserID:         userID,
	})
	if err != nil {
		return reservationError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReservationResponse(res))
}

// Fulfill godoc
// @Summary      Cumplir reserva con un retiro
// @Description  Libera la reserva y registra la salida física en la misma transacción
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la reserva"
// @Param        body  body  dto.FulfillReservationRequest  true  "withdrawal_id"
// @Success      200   {object}  map[string]string
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/fulfill [post]
func (h *ReservationHandler) Fulfill(c *fiber.Ctx) error {
	userID := GetUserID(c)
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	var in dto.FulfillReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.WithdrawalID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "withdrawal_id es requerido"})
	}
	if err := h.uc.Fulfill(c.Context(), id, in.WithdrawalID, userID); err != nil {
		return reservationError(c, err)
	}
	return c.JSON(fiber.Map{"message": "reserva cumplida"})
}

// Cancel godoc
// @Summary      Cancelar reserva
// @Description  Libera la cantidad reservada de vuelta al saldo libre
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la reserva"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	userID := GetUserID(c)
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	if err := h.uc.Cancel(c.Context(), id, userID); err != nil {
		return reservationError(c, err)
	}
	return c.JSON(fiber.Map{"message": "reserva cancelada"})
}

func reservationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "reserva no encontrada"})
	case errors.Is(err, domain.ErrInsufficientFreeBalance):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_FREE_BALANCE", Message: "saldo libre insuficiente"})
	case errors.Is(err, domain.ErrReservationNotOpen):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "RESERVATION_NOT_OPEN", Message: "la reserva ya no está abierta"})
	case errors.Is(err, domain.ErrPersistenceConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONCURRENCY_CONFLICT", Message: "conflicto de concurrencia, reintente"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

func toReservationResponse(r *entity.Reservation) *dto.ReservationResponse {
	return &dto.ReservationResponse{
		ID:             r.ID,
		MaterialID:     r.MaterialID,
		WarehouseID:    r.WarehouseID,
		PickingOrderID: r.PickingOrderID,
		RequestItemID:  r.RequestItemID,
		Quantity:       r.Quantity,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
		ClosedAt:       r.ClosedAt,
	}
}
