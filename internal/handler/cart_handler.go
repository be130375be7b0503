package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/olympia-tickets/checkout-service/internal/dto"
	"github.com/olympia-tickets/checkout-service/internal/service"
)

type CartHandler struct {
	svc service.CartService
}

func NewCartHandler(svc service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	cart := e.Group("/api/v1/cart")
	cart.POST("", h.GetOrCreateCart)
	cart.GET("", h.GetCart)
	cart.POST("/merge", h.MergeCarts)
	cart.POST("/items", h.AddItem)
	cart.PATCH("/items/:id", h.UpdateItem)
	cart.DELETE("/items/:id", h.RemoveItem)
}

func (h *CartHandler) GetOrCreateCart(c echo.Context) error {
	cart, err := h.svc.GetOrCreateCart(c.Request().Context(), sessionID(c), userID(c))
	if err != nil {
		return cartError(err)
	}
	return c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

func (h *CartHandler) GetCart(c echo.Context) error {
	cart, err := h.svc.GetCart(c.Request().Context(), sessionID(c), userID(c))
	if err != nil {
		return cartError(err)
	}
	return c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

func (h *CartHandler) MergeCarts(c echo.Context) error {
	if userID(c) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "merge requires an authenticated user")
	}

	cart, err := h.svc.MergeCarts(c.Request().Context(), sessionID(c), userID(c))
	if err != nil {
		return cartError(err)
	}
	return c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

func (h *CartHandler) AddItem(c echo.Context) error {
	var req dto.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.OfferID == 0 || req.Quantity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "offer_id and a positive quantity are required")
	}

	cart, err := h.svc.AddItem(c.Request().Context(), sessionID(c), userID(c), req.OfferID, req.Quantity)
	if err != nil {
		return cartError(err)
	}
	return c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	var req dto.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cart, err := h.svc.UpdateItem(c.Request().Context(), sessionID(c), userID(c), uint(itemID), req.Quantity)
	if err != nil {
		return cartError(err)
	}
	return c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	cart, err := h.svc.RemoveItem(c.Request().Context(), sessionID(c), userID(c), uint(itemID))
	if err != nil {
		return cartError(err)
	}
	return c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

func cartError(err error) error {
	switch {
	case errors.Is(err, service.ErrMissingIdentity):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrOfferNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
