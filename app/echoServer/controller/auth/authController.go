package auth

import (
	"log/slog"
	"net/http"

	"libraryrental/model"
	as "libraryrental/service/auth"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc as.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/users/register
func (h *Controller) Register(c echo.Context) error {
	var req model.RegisterReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	u, token, err := h.Svc.Register(c.Request().Context(), req)
	if err != nil {
		h.Log.Error("register", "err", err)
		switch as.Code(err) {
		case as.ErrEmailTaken:
			return c.JSON(http.StatusConflict, echo.Map{"message": "email already registered"})
		case as.ErrUsernameTaken:
			return c.JSON(http.StatusConflict, echo.Map{"message": "username already taken"})
		case as.ErrBadInput:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"user":  u,
		"token": token,
	})
}

// POST /v1/users/login
func (h *Controller) Login(c echo.Context) error {
	var req model.LoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	u, token, err := h.Svc.Login(c.Request().Context(), req)
	if err != nil {
		h.Log.Warn("login failed", "err", err)
		switch as.Code(err) {
		case as.ErrBadInput:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		case as.ErrInvalidCreds:
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid credentials"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":  u,
		"token": token,
	})
}
