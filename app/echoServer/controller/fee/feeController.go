package fee

import (
	"log/slog"
	"net/http"

	"libraryrental/app/echoServer/controller/httperr"
	feesvc "libraryrental/service/fee"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type PayFeeReq struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type Controller struct {
	Svc feesvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/fees/pay
func (h *Controller) Pay(c echo.Context) error {
	var req PayFeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, _ := c.Get("user_id").(int64)

	bal, err := h.Svc.Pay(c.Request().Context(), uid, req.Amount)
	if err != nil {
		h.Log.Error("fee pay", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "paid",
		"balance_after": bal,
	})
}

// GET /v1/fees/ledger
func (h *Controller) Ledger(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.Ledger(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("fee ledger", "err", err)
		return c.JSON(httperr.Status(err), echo.Map{"message": httperr.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
