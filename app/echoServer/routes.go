package echoServer

import (
	"net/http"

	"libraryrental/app/echoServer/controller/auth"
	"libraryrental/app/echoServer/controller/fee"
	"libraryrental/app/echoServer/controller/item"
	"libraryrental/app/echoServer/controller/rental"
	"libraryrental/app/echoServer/controller/user"
	"libraryrental/app/echoServer/jwtx"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Auth      *auth.Controller
	Item      *item.Controller
	User      *user.Controller
	Rental    *rental.Controller
	Fee       *fee.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Auth
	auth := e.Group("/v1")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(c.JWTSecret),

		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// user_id extraction
	auth.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			uid, err := jwtx.UserIDFromContext(ctx)
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", uid)
			return next(ctx)
		}
	})

	// Items
	auth.GET("/items", c.Item.List)
	auth.GET("/items/:id", c.Item.Detail)
	// Admin endpoints
	auth.POST("/items", c.Item.Create)
	auth.DELETE("/items/:id", c.Item.Delete)
	auth.POST("/items/:id/recover", c.Item.Recover)
	auth.DELETE("/items/:id/hard", c.Item.HardDelete)

	// Users
	auth.GET("/users", c.User.List)
	auth.GET("/users/:id", c.User.Detail)
	auth.DELETE("/users/:id", c.User.Delete)
	auth.POST("/users/:id/recover", c.User.Recover)
	auth.DELETE("/users/:id/hard", c.User.HardDelete)

	// Rentals
	auth.POST("/rentals", c.Rental.Create)
	auth.GET("/rentals", c.Rental.List)
	auth.GET("/rentals/my", c.Rental.MyHistory)
	auth.GET("/rentals/overdue", c.Rental.Overdue)
	auth.GET("/rentals/by-date", c.Rental.ByDate)
	auth.GET("/rentals/by-day", c.Rental.ByDay)
	auth.GET("/rentals/:id", c.Rental.Detail)
	auth.PUT("/rentals/:id", c.Rental.Update)
	auth.POST("/rentals/:id/return", c.Rental.Return)
	auth.DELETE("/rentals/:id", c.Rental.Delete)
	auth.POST("/rentals/:id/recover", c.Rental.Recover)
	auth.DELETE("/rentals/:id/hard", c.Rental.HardDelete)

	// Fees
	auth.POST("/fees/pay", c.Fee.Pay)
	auth.GET("/fees/ledger", c.Fee.Ledger)
}
