package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"buchhaltung-backend/database"
	"buchhaltung-backend/middlewares"
	"buchhaltung-backend/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	database.Connect()
	database.AutoMigrate()

	bodyLimit := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimit <= 0 {
		bodyLimit = envInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:      "buchhaltung-backend",
		ErrorHandler: middlewares.ErrorHandler,
		BodyLimit:    bodyLimit,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: envStr("ALLOWED_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        envInt("RATE_LIMIT_MAX", 60),
		Expiration: time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}))

	routes.Register(app)

	port := envStr("PORT", "8080")
	log.Printf("listening on :%s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}
