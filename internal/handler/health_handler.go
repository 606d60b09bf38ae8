package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	readinessTimeout = 2 * time.Second

	checkOK       = "ok"
	checkDown     = "down"
	checkDisabled = "disabled"
)

// RegisterHealthRoutes mounts liveness and readiness probes. Either
// dependency may be nil when the process runs without it.
func RegisterHealthRoutes(app fiber.Router, sqlDB *sql.DB, rdb *redis.Client) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(sqlDB, rdb))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func ReadyzHandler(sqlDB *sql.DB, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		pgStatus := checkDisabled
		if sqlDB != nil {
			pgStatus = probe(sqlDB.PingContext(ctx))
		}
		redisStatus := checkDisabled
		if rdb != nil {
			redisStatus = probe(rdb.Ping(ctx).Err())
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if pgStatus == checkDown || redisStatus == checkDown {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": fiber.Map{
				"postgres": pgStatus,
				"redis":    redisStatus,
			},
		})
	}
}

func probe(err error) string {
	if err != nil {
		return checkDown
	}
	return checkOK
}
