package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/olympia-tickets/checkout-service/internal/dto"
	"github.com/olympia-tickets/checkout-service/internal/service"
)

type TicketHandler struct {
	svc service.TicketService
}

func NewTicketHandler(svc service.TicketService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

func (h *TicketHandler) RegisterRoutes(e *echo.Echo) {
	tickets := e.Group("/api/v1/tickets")
	tickets.GET("", h.ListTickets)
	tickets.GET("/:id", h.GetTicket)
	tickets.POST("/scan", h.Scan)

	e.GET("/api/v1/offers/:id/sold", h.SoldCount)
}

func (h *TicketHandler) ListTickets(c echo.Context) error {
	if userID(c) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "listing tickets requires an authenticated user")
	}

	tickets, err := h.svc.ListUserTickets(c.Request().Context(), userID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.TicketResponse, len(tickets))
	for i := range tickets {
		resp[i] = dto.ToTicketResponse(&tickets[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TicketHandler) GetTicket(c echo.Context) error {
	if userID(c) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "fetching a ticket requires an authenticated user")
	}

	ticketID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}

	ticket, err := h.svc.GetUserTicket(c.Request().Context(), uint(ticketID), userID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotOwner):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}

// Scan redeems a QR code at the venue gate. The gate device
// authenticates upstream as an operator; this is the capability check
// the services themselves never repeat.
func (h *TicketHandler) Scan(c echo.Context) error {
	if !hasRole(c, RoleOperator) {
		return echo.NewHTTPError(http.StatusForbidden, "scanning requires the operator role")
	}

	var req dto.ScanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.QRCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "qr_code is required")
	}

	status, err := h.svc.Scan(c.Request().Context(), req.QRCode)
	if err != nil {
		if errors.Is(err, service.ErrTicketNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if status == service.ScanAlreadyUsed {
		return c.JSON(http.StatusConflict, dto.ScanResponse{Status: status})
	}
	return c.JSON(http.StatusOK, dto.ScanResponse{Status: status})
}

func (h *TicketHandler) SoldCount(c echo.Context) error {
	offerID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid offer id")
	}

	sold, err := h.svc.SoldCount(c.Request().Context(), uint(offerID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.SoldCountResponse{OfferID: uint(offerID), Sold: sold})
}
