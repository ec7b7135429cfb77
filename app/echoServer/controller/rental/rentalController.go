package rental

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"libraryrental/app/echoServer/controller/httperr"
	"libraryrental/model"
	rs "libraryrental/service/rental"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc rs.Service
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

// POST /v1/rentals
func (h *Controller) Create(c echo.Context) error {
	var req CreateRentalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	userID := req.UserID
	if userID == 0 {
		userID, _ = c.Get("user_id").(int64)
	}

	out, err := h.Svc.Create(c.Request().Context(), userID, req.ItemID)
	if err != nil {
		h.Log.Error("rental create", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": out})
}

// PUT /v1/rentals/:id
func (h *Controller) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req UpdateRentalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	upd := rs.UpdateParams{ID: id, LateFee: req.LateFee}
	if req.DueDate != "" {
		due, err := time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid due_date"})
		}
		upd.DueDate = &due
	}
	if req.ReturnDate != nil {
		ret, err := time.Parse(time.RFC3339, *req.ReturnDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid return_date"})
		}
		upd.ReturnDate = &ret
	}

	if err := h.Svc.Update(c.Request().Context(), &upd); err != nil {
		h.Log.Error("rental update", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "updated"})
}

// POST /v1/rentals/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	if err := h.Svc.Return(c.Request().Context(), uid, id); err != nil {
		h.Log.Error("rental return", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "returned"})
}

// DELETE /v1/rentals/:id
func (h *Controller) Delete(c echo.Context) error {
	return h.flagOp(c, h.Svc.Delete, "deleted")
}

// POST /v1/rentals/:id/recover
func (h *Controller) Recover(c echo.Context) error {
	return h.flagOp(c, h.Svc.Recover, "recovered")
}

// DELETE /v1/rentals/:id/hard
func (h *Controller) HardDelete(c echo.Context) error {
	return h.flagOp(c, h.Svc.HardDelete, "deleted permanently")
}

func (h *Controller) flagOp(c echo.Context, op func(ctx context.Context, r *model.Rental) error, okMsg string) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := op(c.Request().Context(), &model.Rental{ID: id}); err != nil {
		h.Log.Error("rental lifecycle", "op", okMsg, "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": okMsg})
}

// GET /v1/rentals/my
func (h *Controller) MyHistory(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.MyHistory(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("history", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/rentals
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.All(c.Request().Context())
	if err != nil {
		h.Log.Error("rental list", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/rentals/overdue
func (h *Controller) Overdue(c echo.Context) error {
	rows, err := h.Svc.Overdue(c.Request().Context())
	if err != nil {
		h.Log.Error("rental overdue", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/rentals/:id
func (h *Controller) Detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rt, err := h.Svc.ByID(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("rental detail", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rt})
}

// GET /v1/rentals/by-date?ts=<RFC3339>
func (h *Controller) ByDate(c echo.Context) error {
	ts, err := time.Parse(time.RFC3339, c.QueryParam("ts"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid ts"})
	}
	rows, err := h.Svc.ByRentalDate(c.Request().Context(), ts)
	if err != nil {
		h.Log.Error("rental by date", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/rentals/by-day?day=<2006-01-02>
func (h *Controller) ByDay(c echo.Context) error {
	day, err := time.Parse("2006-01-02", c.QueryParam("day"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid day"})
	}
	rows, err := h.Svc.ByRentalDay(c.Request().Context(), day)
	if err != nil {
		h.Log.Error("rental by day", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
