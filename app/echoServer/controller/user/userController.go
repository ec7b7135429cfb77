package user

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"libraryrental/app/echoServer/controller/httperr"
	usersvc "libraryrental/service/user"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc usersvc.Service
	Log *slog.Logger
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GET /v1/users
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context())
	if err != nil {
		h.Log.Error("user list", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/users/:id
func (h *Controller) Detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	u, err := h.Svc.ByID(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("user detail", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": u})
}

// DELETE /v1/users/:id
func (h *Controller) Delete(c echo.Context) error {
	return h.flagOp(c, h.Svc.Delete, "deleted")
}

// POST /v1/users/:id/recover
func (h *Controller) Recover(c echo.Context) error {
	return h.flagOp(c, h.Svc.Recover, "recovered")
}

// DELETE /v1/users/:id/hard
func (h *Controller) HardDelete(c echo.Context) error {
	return h.flagOp(c, h.Svc.HardDelete, "deleted permanently")
}

func (h *Controller) flagOp(c echo.Context, op func(ctx context.Context, id int64) error, okMsg string) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := op(c.Request().Context(), id); err != nil {
		h.Log.Error("user lifecycle", "op", okMsg, "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": okMsg})
}
