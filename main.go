// Package main library rental API.
//
// @title           Library Rental API
// @version         1.0
// @description     Library checkout lifecycle service (items, users, rentals, late fees).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"libraryrental/app/echoServer"
	authctrl "libraryrental/app/echoServer/controller/auth"
	feectrl "libraryrental/app/echoServer/controller/fee"
	itemctrl "libraryrental/app/echoServer/controller/item"
	rentalctrl "libraryrental/app/echoServer/controller/rental"
	userctrl "libraryrental/app/echoServer/controller/user"
	"libraryrental/app/echoServer/validation"
	"libraryrental/config"
	feerepo "libraryrental/repository/fee"
	itemrepo "libraryrental/repository/item"
	rentalrepo "libraryrental/repository/rental"
	userrepo "libraryrental/repository/user"
	authsvc "libraryrental/service/auth"
	"libraryrental/service/availability"
	feesvc "libraryrental/service/fee"
	itemsvc "libraryrental/service/item"
	rentalsvc "libraryrental/service/rental"
	usersvc "libraryrental/service/user"
	"libraryrental/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ur := userrepo.New(db)
	ir := itemrepo.New(db)
	rr := rentalrepo.New(db)
	fr := feerepo.New(db)

	// availability cache: one full scan before anything serves
	cache := availability.NewCache()
	if err := cache.Initialize(ctx, ir, ur); err != nil {
		log.Error("cache init failed", "err", err)
		os.Exit(1)
	}

	// services
	as := authsvc.New(ur, cache, cfg.JWTSecret)
	is := itemsvc.New(ir, rr, cache)
	us := usersvc.New(ur, cache)
	rs := rentalsvc.New(rr, ur, ir, cache)
	fs := feesvc.New(fr)
	accruer := feesvc.NewAccruer(fr, cfg.LateFeePerDay)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	itemC := &itemctrl.Controller{Svc: is, V: v, Log: log}
	userC := &userctrl.Controller{Svc: us, Log: log}
	rentalC := &rentalctrl.Controller{Svc: rs, V: v, Log: log}
	feeC := &feectrl.Controller{Svc: fs, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:   authC,
		Item:   itemC,
		User:   userC,
		Rental: rentalC,
		Fee:    feeC,

		JWTSecret: cfg.JWTSecret,
	})

	// overdue fee sweeper
	interval, err := time.ParseDuration(cfg.AccrueInterval)
	if err != nil {
		interval = time.Hour
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for range t.C {
			n, err := accruer.AccrueOverdue(ctx)
			if err != nil {
				log.Error("fee accrual failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info("late fees accrued", "rentals", n)
			}
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	slog.Info("starting server", "chosen_port", port)

	e.Logger.Fatal(e.Start(":" + port))
}
