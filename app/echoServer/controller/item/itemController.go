package item

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"libraryrental/app/echoServer/controller/httperr"
	itemsvc "libraryrental/service/item"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc itemsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// POST /v1/items
func (h *Controller) Create(c echo.Context) error {
	var req CreateItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	it, err := h.Svc.Create(c.Request().Context(), req.Title, req.Barcode, req.AllowedRentalDays)
	if err != nil {
		h.Log.Error("item create", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": it})
}

// GET /v1/items
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context())
	if err != nil {
		h.Log.Error("item list", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/items/:id
func (h *Controller) Detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	it, err := h.Svc.ByID(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("item detail", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": it})
}

// DELETE /v1/items/:id
func (h *Controller) Delete(c echo.Context) error {
	return h.flagOp(c, h.Svc.Delete, "deleted")
}

// POST /v1/items/:id/recover
func (h *Controller) Recover(c echo.Context) error {
	return h.flagOp(c, h.Svc.Recover, "recovered")
}

// DELETE /v1/items/:id/hard
func (h *Controller) HardDelete(c echo.Context) error {
	return h.flagOp(c, h.Svc.HardDelete, "deleted permanently")
}

func (h *Controller) flagOp(c echo.Context, op func(ctx context.Context, id int64) error, okMsg string) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := op(c.Request().Context(), id); err != nil {
		h.Log.Error("item lifecycle", "op", okMsg, "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": okMsg})
}
