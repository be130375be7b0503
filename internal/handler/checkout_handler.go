package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/olympia-tickets/checkout-service/internal/dto"
	"github.com/olympia-tickets/checkout-service/internal/service"
)

type CheckoutHandler struct {
	checkout service.CheckoutService
	orders   service.OrderService
}

func NewCheckoutHandler(checkout service.CheckoutService, orders service.OrderService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, orders: orders}
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/checkout", h.Checkout)
	e.GET("/api/v1/orders", h.ListOrders)
	e.GET("/api/v1/orders/:id", h.GetOrder)
}

func (h *CheckoutHandler) Checkout(c echo.Context) error {
	if userID(c) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "checkout requires an authenticated user")
	}

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CartID == 0 || req.PaymentToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "cart_id and payment_token are required")
	}

	result, err := h.checkout.Checkout(c.Request().Context(), req.CartID, userID(c), req.PaymentToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCartNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrGuestCheckout), errors.Is(err, service.ErrNotOwner):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrEmptyCart):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.ToCheckoutResponse(result))
}

func (h *CheckoutHandler) ListOrders(c echo.Context) error {
	if userID(c) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "listing orders requires an authenticated user")
	}

	orders, err := h.orders.ListUserOrders(c.Request().Context(), userID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.OrderResponse, len(orders))
	for i := range orders {
		resp[i] = dto.ToOrderResponse(&orders[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) GetOrder(c echo.Context) error {
	if userID(c) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "fetching an order requires an authenticated user")
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.orders.GetUserOrder(c.Request().Context(), uint(orderID), userID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotOwner):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}
